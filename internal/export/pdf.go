package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/ledger"
)

// Letterhead carries the company line and enquiry contact printed on BC
// confirmations.
type Letterhead struct {
	Company      string
	ContactName  string
	ContactPhone string
	ContactEmail string
}

type rgb struct{ r, g, b int }

var (
	red   = rgb{220, 53, 69}
	blue  = rgb{59, 130, 246}
	green = rgb{16, 185, 129}
	teal  = rgb{39, 174, 96}
	navy  = rgb{41, 128, 185}
	amber = rgb{243, 156, 18}
)

const (
	pageMargin = 40.0
	cellPad    = 4.0
	pageBottom = 800.0
)

var now = time.Now

type column struct {
	title string
	width float64
	align string
}

type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(title string) *document {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetTitle(title, true)
	pdf.AddPage()
	return &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *document) contentWidth() float64 {
	w, _ := d.pdf.GetPageSize()
	return w - 2*pageMargin
}

func (d *document) heading(text string, size float64) {
	d.pdf.SetFont("Helvetica", "B", size)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.CellFormat(0, size+6, d.tr(text), "", 1, "L", false, 0, "")
}

func (d *document) line(text string) {
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.CellFormat(0, 16, d.tr(text), "", 1, "L", false, 0, "")
}

func (d *document) gap(h float64) { d.pdf.Ln(h) }

func (d *document) ensureSpace(h float64) bool {
	if d.pdf.GetY()+h <= pageBottom {
		return false
	}
	d.pdf.AddPage()
	return true
}

// table draws a grid with a filled header row. Cells wrap; a row that does
// not fit starts a new page and repeats the header.
func (d *document) table(cols []column, head rgb, fontSize float64, rows [][]string) {
	lineH := fontSize + 3
	drawHeader := func() {
		d.pdf.SetFont("Helvetica", "B", fontSize)
		d.pdf.SetFillColor(head.r, head.g, head.b)
		d.pdf.SetTextColor(255, 255, 255)
		x := pageMargin
		for _, c := range cols {
			d.pdf.SetX(x)
			d.pdf.CellFormat(c.width, lineH+2*cellPad, d.tr(c.title), "1", 0, "C", true, 0, "")
			x += c.width
		}
		d.pdf.Ln(-1)
	}

	d.ensureSpace(2 * (lineH + 2*cellPad))
	drawHeader()

	d.pdf.SetFont("Helvetica", "", fontSize)
	d.pdf.SetTextColor(0, 0, 0)
	for _, row := range rows {
		wrapped := make([][]string, len(cols))
		lines := 1
		for i, c := range cols {
			text := ""
			if i < len(row) {
				text = d.tr(row[i])
			}
			var parts []string
			for _, b := range d.pdf.SplitLines([]byte(text), c.width-2*cellPad) {
				parts = append(parts, string(b))
			}
			if len(parts) == 0 {
				parts = []string{""}
			}
			wrapped[i] = parts
			lines = max(lines, len(parts))
		}
		rowH := float64(lines)*lineH + 2*cellPad

		if d.ensureSpace(rowH) {
			drawHeader()
			d.pdf.SetFont("Helvetica", "", fontSize)
			d.pdf.SetTextColor(0, 0, 0)
		}

		y := d.pdf.GetY()
		x := pageMargin
		for i, c := range cols {
			d.pdf.Rect(x, y, c.width, rowH, "D")
			align := c.align
			if align == "" {
				align = "L"
			}
			for j, part := range wrapped[i] {
				d.pdf.SetXY(x+cellPad, y+cellPad+float64(j)*lineH)
				d.pdf.CellFormat(c.width-2*cellPad, lineH, part, "", 0, align, false, 0, "")
			}
			x += c.width
		}
		d.pdf.SetXY(pageMargin, y+rowH)
	}
}

func (d *document) write(w io.Writer) error {
	if err := d.pdf.Error(); err != nil {
		return err
	}
	return d.pdf.Output(w)
}

func plain(v float64) string {
	if v == 0 {
		return ""
	}
	return ledger.FormatPlain(v)
}

// SalePDF renders a BC as a letterhead confirmation.
func SalePDF(w io.Writer, bc domain.SaleConfirmation, head Letterhead) error {
	d := newDocument("Business Confirmation " + bc.BCNo)
	width := d.contentWidth()

	if head.Company != "" {
		d.pdf.SetFont("Helvetica", "B", 16)
		d.pdf.CellFormat(width, 24, d.tr(head.Company), "", 1, "C", false, 0, "")
	}
	d.pdf.SetY(115)
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.CellFormat(width, 25, d.tr("We are pleased to confirm your Souda As per Below Details"), "1", 1, "C", false, 0, "")

	bcLine := bc.BCNo
	if !bc.Date.IsZero() {
		bcLine += " Dated " + bc.Date.Display()
	}
	qty, rate, nett, delivery := "", "", "", ""
	if bc.Qty != 0 {
		qty = plain(bc.Qty) + " MT (+-10%) Sellers Option"
	}
	if bc.Rate != 0 {
		rate = "Rs. " + plain(bc.Rate) + " Per MT"
	}
	if bc.Nett != 0 {
		nett = "Rs. " + plain(bc.Nett) + " /-(Final Amt as per Lifting Qty)"
	}
	if !bc.Delivery.IsZero() {
		delivery = "Max " + bc.Delivery.Display()
	}

	particulars := [][2]string{
		{"Business Confirmation No. & Date", bcLine},
		{"Job No.", bc.JobNo},
		{"Seller", bc.Seller},
		{"Buyer", bc.Buyer},
		{"Commodity", bc.Commodity},
		{"Origin", bc.Origin},
		{"Quantity (MT)", qty},
		{"Rate/MT", rate},
		{"Delivery/Lifting Period", delivery},
		{"Delivery Location", bc.DeliveryLoc},
		{"Quality Specifications", bc.Quality},
		{"Packing", bc.Packaging},
		{"Nett Amount", nett},
		{"Payment Terms", bc.Payment},
		{"Brokerage", bc.Brokerage},
		{"Broker Name", bc.Broker},
		{"KYC's", bc.KYC},
		{"Terms & Conditions", bc.Terms},
		{"Special Notes", bc.Notes},
		{"Souda Confirmation", bc.Souda},
		{"Bank Details for Payment", bc.Bank},
	}
	rows := make([][]string, len(particulars))
	for i, p := range particulars {
		rows[i] = []string{strconv.Itoa(i + 1), p[0], p[1]}
	}
	d.table([]column{
		{title: "Sl", width: 25, align: "C"},
		{title: "Particulars", width: 180},
		{title: "Remarks", width: width - 205},
	}, red, 9, rows)

	if head.ContactName != "" || head.ContactPhone != "" || head.ContactEmail != "" {
		d.gap(20)
		d.ensureSpace(70)
		d.line("For Any Enquiry / Information Please Contact:")
		if head.ContactName != "" {
			d.line("Name:      " + head.ContactName)
		}
		if head.ContactPhone != "" {
			d.line("Ph No:      " + head.ContactPhone)
		}
		if head.ContactEmail != "" {
			d.line("E-mail:      " + head.ContactEmail)
		}
	}
	return d.write(w)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// JobSummaryPDF renders one job's figures followed by its BCs.
func JobSummaryPDF(w io.Writer, summary domain.JobSummary, sales []domain.SaleConfirmation) error {
	d := newDocument("Job Summary " + summary.JobNo)
	width := d.contentWidth()

	d.heading("Job Summary - "+summary.JobNo, 12)
	d.line("Commodity: " + orDash(summary.Commodity))
	d.line("Stock Location: " + orDash(summary.Location))
	d.line("Origin: " + orDash(summary.Origin))
	d.gap(8)

	d.table([]column{
		{title: "Particulars", width: width / 2},
		{title: "Value", width: width / 2, align: "R"},
	}, green, 10, [][]string{
		{"Overall Qty (MT)", ledger.FormatAmount(summary.Overall)},
		{"Current Qty (MT)", ledger.FormatAmount(summary.CurrentQty)},
		{"Sold Qty (MT)", ledger.FormatAmount(summary.SoldQty)},
		{"Total Nett (Rs)", "Rs " + ledger.FormatAmount(summary.TotalNett)},
		{"Total Expense (Rs)", "Rs " + ledger.FormatAmount(summary.TotalExpense)},
	})

	if len(sales) > 0 {
		rows := make([][]string, len(sales))
		for i, s := range sales {
			rows[i] = []string{
				strconv.Itoa(i + 1), s.BCNo, s.Date.Display(),
				plain(s.Qty), plain(s.Rate), plain(s.Nett),
			}
		}
		d.gap(10)
		d.table([]column{
			{title: "#", width: 30, align: "C"},
			{title: "BC No", width: 105},
			{title: "Date", width: 80},
			{title: "Qty (MT)", width: 90, align: "R"},
			{title: "Rate/MT", width: 90, align: "R"},
			{title: "Nett (Rs)", width: width - 395, align: "R"},
		}, red, 9, rows)
	}
	return d.write(w)
}

// SummariesPDF renders the jobs table under title.
func SummariesPDF(w io.Writer, title string, rows []domain.JobSummary) error {
	d := newDocument(title)
	d.heading(fmt.Sprintf("%s (%d jobs)", title, len(rows)), 12)
	d.gap(6)

	body := make([][]string, len(rows))
	for i, r := range rows {
		body[i] = []string{
			r.JobNo, ledger.FormatAmount(r.Overall), r.Commodity, r.Location, r.Origin,
			ledger.FormatAmount(r.CurrentQty), ledger.FormatAmount(r.SoldQty),
			ledger.FormatAmount(r.TotalNett), ledger.FormatAmount(r.TotalExpense),
		}
	}
	d.table([]column{
		{title: "Job No", width: 55},
		{title: "Overall", width: 50, align: "R"},
		{title: "Commodity", width: 70},
		{title: "Location", width: 55},
		{title: "Origin", width: 50},
		{title: "Current", width: 50, align: "R"},
		{title: "Sold", width: 50, align: "R"},
		{title: "Total Nett", width: 70, align: "R"},
		{title: "Total Expense", width: d.contentWidth() - 450, align: "R"},
	}, green, 8, body)
	return d.write(w)
}

func dateRange(from, to domain.Date) string {
	switch {
	case !from.IsZero() && !to.IsZero():
		return "Date Range: " + from.Display() + " to " + to.Display()
	case !from.IsZero():
		return "Date Range: from " + from.Display()
	case !to.IsZero():
		return "Date Range: up to " + to.Display()
	default:
		return "Date Range: All-Time"
	}
}

// ProfitLossPDF renders the profit/loss summary for the report's range.
func ProfitLossPDF(w io.Writer, report domain.ProfitLoss) error {
	d := newDocument("Profit / Loss Summary Report")
	width := d.contentWidth()

	d.heading("Profit / Loss Summary Report", 14)
	d.line(dateRange(report.From, report.To))
	d.gap(8)

	outcome := "Nil INR 0.00"
	switch {
	case report.Profit > 0:
		outcome = "Profit + INR " + ledger.FormatAmount(report.Profit)
	case report.Profit < 0:
		outcome = "Loss - INR " + ledger.FormatAmount(math.Abs(report.Profit))
	}

	d.table([]column{
		{title: "Particulars", width: width / 2},
		{title: "Amount (INR)", width: width / 2, align: "R"},
	}, blue, 10, [][]string{
		{"Total Sells (Nett)", "INR " + ledger.FormatAmount(report.NettTotal)},
		{"Total Purchase", "INR " + ledger.FormatAmount(report.PurchaseTotal)},
		{"Total Expenses", "INR " + ledger.FormatAmount(report.ExpenseTotal)},
		{"Profit / Loss", outcome},
	})
	return d.write(w)
}

// PurchasePDF renders every purchase field as a numbered label/value table.
func PurchasePDF(w io.Writer, p domain.Purchase) error {
	d := newDocument("Business Confirmation " + p.BusinessNo)
	width := d.contentWidth()

	d.pdf.SetY(70)
	d.pdf.SetFont("Helvetica", "B", 14)
	d.pdf.CellFormat(width, 20, d.tr("Business Confirmation Details"), "", 1, "C", false, 0, "")
	d.gap(6)

	fields := [][2]string{
		{"Business Confirmation No.", p.BusinessNo},
		{"Date", p.Date.Display()},
		{"Seller", p.Seller},
		{"Buyer", p.Buyer},
		{"KYC Norms", p.KYC},
		{"Broker Name / Direct", p.Broker},
		{"Commodity", p.Commodity},
		{"Country of Origin", p.Country},
		{"Quality Specification / Standard", p.QualitySpec},
		{"Packing", p.Packing},
		{"Shipment / Delivery Period", p.ShipmentPeriod},
		{"Brokerage", p.Brokerage},
		{"Vessel Name", p.Vessel},
		{"Loading Conditions", p.LoadingConditions},
		{"Buying Quantity(In MT)", plain(p.BuyingQty)},
		{"Price(Per MT)", plain(p.PriceIncoterms)},
		{"Incoterms", p.Incoterms},
		{"Purchase Date Conversion Rate (USD to INR)", plain(p.ConversionRate)},
		{"Total Amount (In USD)", plain(p.AmountUSD)},
		{"Total Amount (In INR)", plain(p.AmountINR)},
		{"Payment Terms", p.PaymentTerms},
		{"Weight and Quality", p.WeightQuality},
		{"GAFTA Contract No. 88", p.Gafta},
		{"Fumigation", p.Fumigation},
		{"Documents", p.Documents},
		{"Free Days", p.FreeDays},
	}
	rows := make([][]string, len(fields))
	for i, f := range fields {
		rows[i] = []string{strconv.Itoa(i + 1), f[0], f[1]}
	}
	d.table([]column{
		{title: "Sl", width: 30, align: "C"},
		{title: "Particulars", width: 190},
		{title: "Remarks", width: width - 220},
	}, navy, 10, rows)
	return d.write(w)
}

// ExpensePDF renders an expense group with its cost lines, expense lines and
// per-MT averages.
func ExpensePDF(w io.Writer, group domain.ExpenseGroup, stats domain.ExpenseStats) error {
	d := newDocument("Trading Expense Report " + group.JobNo)
	width := d.contentWidth()

	d.heading("Trading Expense Report - "+group.JobNo, 14)
	d.line("Overall Quantity: " + ledger.FormatPlain(group.OverallQty) + " MT")
	d.gap(8)

	d.heading("Business Confirmations", 11)
	lines := make([][]string, len(group.Confirmations))
	for i, c := range group.Confirmations {
		lines[i] = []string{
			strconv.Itoa(i + 1), c.BCNo,
			ledger.FormatPlain(c.Qty), ledger.FormatPlain(c.Rate), ledger.FormatAmount(c.Amount),
		}
	}
	d.table([]column{
		{title: "Sl No.", width: 45, align: "C"},
		{title: "BC No", width: 130},
		{title: "Quantity (MT)", width: 110, align: "R"},
		{title: "Rate", width: 100, align: "R"},
		{title: "Amount", width: width - 385, align: "R"},
	}, navy, 10, lines)
	d.gap(12)

	d.heading("Expense Heads (INR)", 11)
	entries := make([][]string, len(group.Entries))
	for i, e := range group.Entries {
		entries[i] = []string{
			strconv.Itoa(i + 1), e.Category.Label(), ledger.FormatAmount(e.Amount),
			orDash(e.Date.Display()), orDash(e.Note),
		}
	}
	d.table([]column{
		{title: "Sl No.", width: 45, align: "C"},
		{title: "Expense Head", width: 170},
		{title: "Amount (INR)", width: 100, align: "R"},
		{title: "Date", width: 80},
		{title: "Note", width: width - 395},
	}, teal, 10, entries)
	d.gap(12)

	d.ensureSpace(50)
	d.pdf.SetFillColor(amber.r, amber.g, amber.b)
	d.pdf.SetTextColor(255, 255, 255)
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.CellFormat(width, 18, d.tr("Average Rate/MT: "+ledger.FormatAmount(stats.AvgRate)), "", 1, "L", true, 0, "")
	d.pdf.CellFormat(width, 18, d.tr("Average Expense/MT: "+ledger.FormatAmount(stats.AvgExpense)), "", 1, "L", true, 0, "")

	d.gap(10)
	d.pdf.SetFont("Helvetica", "I", 9)
	d.pdf.SetTextColor(149, 165, 166)
	d.pdf.CellFormat(width, 14, "Generated on: "+now().Format("02-01-2006"), "", 1, "R", false, 0, "")
	return d.write(w)
}
