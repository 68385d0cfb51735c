package export

import (
	"encoding/csv"
	"io"
	"time"

	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/ledger"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

var summaryHeaders = []string{
	"Job No", "Overall Qty (MT)", "Commodity", "Location", "Origin",
	"Current Qty (MT)", "Sold Qty (MT)", "Total Nett (Rs)", "Total Expense (Rs)",
}

var saleHeaders = []string{
	"BC No", "Date", "Job No", "Seller", "Buyer", "Commodity", "Origin", "Quantity (MT)",
	"Rate/MT (Rs)", "Nett Amount (Rs)", "Delivery Date", "Delivery Location", "Quality",
	"Packaging", "Payment Terms", "Brokerage", "Broker Name", "KYC", "Terms", "Special Notes",
	"Souda Confirmation", "Bank Details", "Created At",
}

var jobSaleHeaders = []string{
	"BC No", "Date", "Job No", "Seller", "Buyer", "Commodity", "Origin", "Quantity (MT)",
	"Rate/MT", "Nett", "Delivery", "DeliveryLoc", "Quality", "Packaging",
}

func summaryRecord(r domain.JobSummary) []string {
	return []string{
		r.JobNo,
		ledger.FormatPlain(r.Overall),
		r.Commodity,
		r.Location,
		r.Origin,
		ledger.FormatPlain(r.CurrentQty),
		ledger.FormatPlain(r.SoldQty),
		ledger.FormatPlain(r.TotalNett),
		ledger.FormatPlain(r.TotalExpense),
	}
}

// SummariesCSV writes one row per job summary.
func SummariesCSV(w io.Writer, rows []domain.JobSummary) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, summaryHeaders)
	for _, r := range rows {
		records = append(records, summaryRecord(r))
	}
	return writeCSV(w, records)
}

// SalesCSV writes every BC field, dates as DD-MM-YYYY.
func SalesCSV(w io.Writer, sales []domain.SaleConfirmation) error {
	records := make([][]string, 0, len(sales)+1)
	records = append(records, saleHeaders)
	for _, s := range sales {
		createdAt := ""
		if !s.CreatedAt.IsZero() {
			createdAt = s.CreatedAt.UTC().Format(time.RFC3339)
		}
		records = append(records, []string{
			s.BCNo, s.Date.Display(), s.JobNo, s.Seller, s.Buyer, s.Commodity, s.Origin,
			ledger.FormatPlain(s.Qty), ledger.FormatPlain(s.Rate), ledger.FormatPlain(s.Nett),
			s.Delivery.Display(), s.DeliveryLoc, s.Quality, s.Packaging, s.Payment, s.Brokerage,
			s.Broker, s.KYC, s.Terms, s.Notes, s.Souda, s.Bank, createdAt,
		})
	}
	return writeCSV(w, records)
}

// JobSalesCSV is the narrower per-job BC export.
func JobSalesCSV(w io.Writer, sales []domain.SaleConfirmation) error {
	records := make([][]string, 0, len(sales)+1)
	records = append(records, jobSaleHeaders)
	for _, s := range sales {
		records = append(records, []string{
			s.BCNo, s.Date.Display(), s.JobNo, s.Seller, s.Buyer, s.Commodity, s.Origin,
			ledger.FormatPlain(s.Qty), ledger.FormatPlain(s.Rate), ledger.FormatPlain(s.Nett),
			s.Delivery.Display(), s.DeliveryLoc, s.Quality, s.Packaging,
		})
	}
	return writeCSV(w, records)
}

func writeCSV(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}
