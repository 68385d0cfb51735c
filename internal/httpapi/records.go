package httpapi

import (
	"io"
	"net/http"
	"strings"

	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/export"
)

func (a *API) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.service.ListJobs(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// handleGetJob answers {exists:false} rather than 404 for unknown jobs; the
// entry form uses it to decide between create and update.
func (a *API) handleGetJob(w http.ResponseWriter, r *http.Request) {
	lookup, err := a.service.GetJob(r.Context(), pathParam(r, "jobNo"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lookup)
}

func (a *API) handleUpsertJob(w http.ResponseWriter, r *http.Request) {
	var job domain.Job
	if err := decodeJSON(r, &job); err != nil {
		writeDecodeError(w, err)
		return
	}
	if jobNo := pathParam(r, "jobNo"); jobNo != "" {
		job.JobNo = jobNo
	}
	saved, err := a.service.UpsertJob(r.Context(), job)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": saved})
}

func (a *API) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteJob(r.Context(), pathParam(r, "jobNo")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleJobPosition(w http.ResponseWriter, r *http.Request) {
	pos, err := a.service.JobPosition(r.Context(), pathParam(r, "jobNo"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (a *API) handleJobSalesCSV(w http.ResponseWriter, r *http.Request) {
	jobNo := pathParam(r, "jobNo")
	sales, err := a.service.JobSales(r.Context(), jobNo)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.sendFile(w, r, jobNo+"_bcs.csv", export.ContentTypeCSV, func(out io.Writer) error {
		return export.JobSalesCSV(out, sales)
	})
}

func saleFilter(r *http.Request) (domain.SaleFilter, error) {
	from, err := queryDate(r, "from")
	if err != nil {
		return domain.SaleFilter{}, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return domain.SaleFilter{}, err
	}
	q := r.URL.Query()
	return domain.SaleFilter{
		From:  from,
		To:    to,
		JobNo: strings.TrimSpace(q.Get("jobNo")),
		BCNo:  strings.TrimSpace(q.Get("bcNo")),
	}, nil
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	filter, err := saleFilter(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	sales, err := a.service.ListSales(r.Context(), filter)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bcs": sales})
}

func (a *API) handleSalesCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := saleFilter(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	sales, err := a.service.ListSales(r.Context(), filter)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	name := "all_businesses.csv"
	if filter != (domain.SaleFilter{}) {
		name = "filtered_businesses.csv"
	}
	a.sendFile(w, r, name, export.ContentTypeCSV, func(out io.Writer) error {
		return export.SalesCSV(out, sales)
	})
}

func (a *API) handleNettDrift(w http.ResponseWriter, r *http.Request) {
	drift, err := a.service.NettDrift(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drift": drift})
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), pathParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bc": sale})
}

func (a *API) handleSalePDF(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), pathParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.sendFile(w, r, sale.BCNo+"_BusinessConfirmation.pdf", export.ContentTypePDF, func(out io.Writer) error {
		return export.SalePDF(out, sale, a.letterhead)
	})
}

func (a *API) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var in domain.SaleInput
	if err := decodeJSON(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	sale, err := a.service.CreateSale(r.Context(), in)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"bc": sale})
}

func (a *API) handleUpdateSale(w http.ResponseWriter, r *http.Request) {
	var in domain.SaleInput
	if err := decodeJSON(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	sale, err := a.service.UpdateSale(r.Context(), pathParam(r, "id"), in)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bc": sale})
}

func (a *API) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteSale(r.Context(), pathParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	groups, err := a.service.ListExpenseGroups(r.Context(), strings.TrimSpace(r.URL.Query().Get("jobNo")))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": groups})
}

func (a *API) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	group, err := a.service.GetExpenseGroup(r.Context(), pathParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expense": group})
}

func (a *API) handleExpenseReport(w http.ResponseWriter, r *http.Request) {
	group, stats, err := a.service.ExpenseReport(r.Context(), pathParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expense": group, "stats": stats})
}

func (a *API) handleExpensePDF(w http.ResponseWriter, r *http.Request) {
	group, stats, err := a.service.ExpenseReport(r.Context(), pathParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.sendFile(w, r, "Expense_Report_"+group.JobNo+".pdf", export.ContentTypePDF, func(out io.Writer) error {
		return export.ExpensePDF(out, group, stats)
	})
}

func (a *API) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var group domain.ExpenseGroup
	if err := decodeJSON(r, &group); err != nil {
		writeDecodeError(w, err)
		return
	}
	saved, err := a.service.CreateExpenseGroup(r.Context(), group)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"expense": saved})
}

func (a *API) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var group domain.ExpenseGroup
	if err := decodeJSON(r, &group); err != nil {
		writeDecodeError(w, err)
		return
	}
	saved, err := a.service.UpdateExpenseGroup(r.Context(), pathParam(r, "id"), group)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expense": saved})
}

func (a *API) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteExpenseGroup(r.Context(), pathParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	purchases, err := a.service.ListPurchases(r.Context(), domain.PurchaseFilter{
		BusinessNo: strings.TrimSpace(r.URL.Query().Get("businessNo")),
		From:       from,
		To:         to,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchases": purchases})
}

func (a *API) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := a.service.GetPurchase(r.Context(), pathParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchase": p})
}

func (a *API) handlePurchasePDF(w http.ResponseWriter, r *http.Request) {
	p, err := a.service.GetPurchase(r.Context(), pathParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.sendFile(w, r, p.BusinessNo+"_BusinessConfirmation.pdf", export.ContentTypePDF, func(out io.Writer) error {
		return export.PurchasePDF(out, p)
	})
}

func (a *API) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var p domain.Purchase
	if err := decodeJSON(r, &p); err != nil {
		writeDecodeError(w, err)
		return
	}
	saved, err := a.service.CreatePurchase(r.Context(), p)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"purchase": saved})
}

func (a *API) handleUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	var p domain.Purchase
	if err := decodeJSON(r, &p); err != nil {
		writeDecodeError(w, err)
		return
	}
	saved, err := a.service.UpdatePurchase(r.Context(), pathParam(r, "id"), p)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchase": saved})
}

func (a *API) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeletePurchase(r.Context(), pathParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
