package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/export"
	"tradeledger/backend/internal/ledger"
)

type exportFormat string

const (
	formatCSV  exportFormat = "csv"
	formatXLSX exportFormat = "xlsx"
	formatPDF  exportFormat = "pdf"
)

func (a *API) handleLedger(w http.ResponseWriter, r *http.Request) {
	snap, err := a.service.Snapshot(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) handleLedgerCards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := a.service.Cards(r.Context(), q.Get("job"), q.Get("commodity"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleLedgerTable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := a.service.Table(r.Context(), q.Get("job"), q.Get("commodity"), ledger.ParseSortKey(q.Get("sort")), queryBool(r, "desc"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleLedgerCommodities(w http.ResponseWriter, r *http.Request) {
	commodities, err := a.service.Commodities(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"commodities": commodities})
}

func (a *API) handleLedgerJob(w http.ResponseWriter, r *http.Request) {
	summary, err := a.service.JobSummary(r.Context(), pathParam(r, "jobNo"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleLedgerJobPDF(w http.ResponseWriter, r *http.Request) {
	jobNo := pathParam(r, "jobNo")
	summary, err := a.service.JobSummary(r.Context(), jobNo)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	sales, err := a.service.JobSales(r.Context(), summary.JobNo)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.sendFile(w, r, summary.JobNo+"_summary.pdf", export.ContentTypePDF, func(out io.Writer) error {
		return export.JobSummaryPDF(out, summary, sales)
	})
}

// ledgerRows picks the rows an export covers: the card filter, the sorted
// table filter, or every job ordered by job number.
func (a *API) ledgerRows(r *http.Request) (string, []domain.JobSummary, error) {
	q := r.URL.Query()
	switch strings.ToLower(strings.TrimSpace(q.Get("view"))) {
	case "cards":
		view, err := a.service.Cards(r.Context(), q.Get("job"), q.Get("commodity"))
		return "Filtered Jobs Summary", view.Rows, err
	case "table":
		view, err := a.service.Table(r.Context(), q.Get("job"), q.Get("commodity"), ledger.ParseSortKey(q.Get("sort")), queryBool(r, "desc"))
		return "Filtered Jobs Summary", view.Rows, err
	default:
		view, err := a.service.Table(r.Context(), "", "", ledger.SortJobNo, false)
		return "All Jobs Summary", view.Rows, err
	}
}

func (a *API) handleLedgerExport(format exportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		title, rows, err := a.ledgerRows(r)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		base := "all_jobs_summary"
		if strings.HasPrefix(title, "Filtered") {
			base = "filtered_jobs_summary"
		}
		name := fmt.Sprintf("%s.%s", base, format)

		switch format {
		case formatXLSX:
			a.sendFile(w, r, name, export.ContentTypeXLSX, func(out io.Writer) error {
				return export.SummariesXLSX(out, rows)
			})
		case formatPDF:
			a.sendFile(w, r, name, export.ContentTypePDF, func(out io.Writer) error {
				return export.SummariesPDF(out, title, rows)
			})
		default:
			a.sendFile(w, r, name, export.ContentTypeCSV, func(out io.Writer) error {
				return export.SummariesCSV(out, rows)
			})
		}
	}
}

func (a *API) profitLossRange(r *http.Request) (domain.Date, domain.Date, error) {
	from, err := queryDate(r, "from")
	if err != nil {
		return domain.Date{}, domain.Date{}, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return domain.Date{}, domain.Date{}, err
	}
	return from, to, nil
}

func (a *API) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	from, to, err := a.profitLossRange(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	report, err := a.service.ProfitLoss(r.Context(), from, to)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleProfitLossPDF(w http.ResponseWriter, r *http.Request) {
	from, to, err := a.profitLossRange(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	report, err := a.service.ProfitLoss(r.Context(), from, to)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.sendFile(w, r, "profit_loss.pdf", export.ContentTypePDF, func(out io.Writer) error {
		return export.ProfitLossPDF(out, report)
	})
}

func (a *API) handleSellsDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dash, err := a.service.SellsDashboard(r.Context(), strings.TrimSpace(q.Get("month")), strings.TrimSpace(q.Get("job")))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (a *API) handlePurchaseDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dash, err := a.service.PurchaseDashboard(r.Context(), strings.TrimSpace(q.Get("month")), strings.TrimSpace(q.Get("commodity")))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}
