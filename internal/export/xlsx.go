package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"tradeledger/backend/internal/domain"
)

const ledgerSheet = "Ledger"

// SummariesXLSX writes the job summaries to a single-sheet workbook with the
// same columns as SummariesCSV. Quantities and amounts stay numeric cells.
func SummariesXLSX(w io.Writer, rows []domain.JobSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ledgerSheet); err != nil {
		return err
	}

	header := make([]any, len(summaryHeaders))
	for i, h := range summaryHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(ledgerSheet, "A1", &header); err != nil {
		return err
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.JobNo, r.Overall, r.Commodity, r.Location, r.Origin,
			r.CurrentQty, r.SoldQty, r.TotalNett, r.TotalExpense,
		}
		if err := f.SetSheetRow(ledgerSheet, cell, &values); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(summaryHeaders))
	if err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DCE6F1"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(ledgerSheet, "A1", lastCol+"1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(ledgerSheet, "A", lastCol, 18); err != nil {
		return err
	}

	if len(rows) > 0 {
		amounts, err := f.NewStyle(&excelize.Style{NumFmt: 4})
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(summaryHeaders), len(rows)+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(ledgerSheet, "F2", last, amounts); err != nil {
			return err
		}
	}

	return f.Write(w)
}
