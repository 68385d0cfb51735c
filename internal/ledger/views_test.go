package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tradeledger/backend/internal/domain"
)

func sampleLedger() Ledger {
	return Aggregate([]domain.Job{
		{JobNo: "HM-101", Overall: 100, Commodity: "Canadian Yellow Peas"},
		{JobNo: "HM-102", Overall: 50, Commodity: "Russian/Ukrainian Yellow Peas"},
		{JobNo: "RS-201", Overall: 75, Commodity: "Maize"},
	}, []domain.SaleConfirmation{
		sale("1", "HM-101", 60, 10),
		sale("2", "RS-201", 5, 10),
	}, nil)
}

func jobNos(rows []domain.JobSummary) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.JobNo)
	}
	return out
}

func TestCardsUsesExactCommodity(t *testing.T) {
	l := sampleLedger()

	assert.Equal(t, []string{"HM-101"}, jobNos(Cards(l, "", "Canadian Yellow Peas")))
	assert.Empty(t, Cards(l, "", "yellow peas"))
	assert.Equal(t, []string{"HM-101", "HM-102"}, jobNos(Cards(l, "hm", "")))
}

func TestTableUsesCommoditySubstring(t *testing.T) {
	l := sampleLedger()

	assert.Equal(t, []string{"HM-101", "HM-102"}, jobNos(Table(l, "", "yellow peas")))
	assert.Equal(t, []string{"HM-102"}, jobNos(Table(l, "102", "PEAS")))
	assert.Equal(t, []string{"HM-101", "HM-102", "RS-201"}, jobNos(Table(l, "", "")))
}

func TestViewsDoNotMutateLedger(t *testing.T) {
	l := sampleLedger()
	before := make(Ledger, len(l))
	for k, v := range l {
		before[k] = v
	}

	cards := Cards(l, "HM", "Canadian Yellow Peas")
	rows := Table(l, "RS", "maize")
	SortRows(rows, SortCurrent, true)

	assert.Equal(t, before, l)
	assert.Equal(t, cards, Cards(l, "HM", "Canadian Yellow Peas"), "table filtering must not change card results")
}

func TestSortRows(t *testing.T) {
	rows := sampleLedger().Rows()

	SortRows(rows, SortCurrent, false)
	assert.Equal(t, []string{"HM-101", "HM-102", "RS-201"}, jobNos(rows))

	SortRows(rows, SortSold, true)
	assert.Equal(t, []string{"HM-101", "RS-201", "HM-102"}, jobNos(rows))

	SortRows(rows, ParseSortKey("bogus"), true)
	assert.Equal(t, []string{"RS-201", "HM-102", "HM-101"}, jobNos(rows))
}

func TestCommodities(t *testing.T) {
	l := sampleLedger()
	l["X"] = domain.JobSummary{JobNo: "X"}

	assert.Equal(t, []string{"Canadian Yellow Peas", "Maize", "Russian/Ukrainian Yellow Peas"}, Commodities(l))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1,234.50", FormatAmount(1234.5))
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "12.5", FormatPlain(12.5))
}
