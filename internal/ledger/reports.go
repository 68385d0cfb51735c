package ledger

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"tradeledger/backend/internal/domain"
)

const unknownCommodity = "Unknown"

// InRange reports whether d falls within [from, to]. Zero bounds are open; an
// undated record never matches once either bound is set.
func InRange(d, from, to domain.Date) bool {
	if from.IsZero() && to.IsZero() {
		return true
	}
	if d.IsZero() {
		return false
	}
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}

// FilterSales applies the BC list filters and orders the result newest first.
func FilterSales(sales []domain.SaleConfirmation, f domain.SaleFilter) []domain.SaleConfirmation {
	job := strings.ToLower(strings.TrimSpace(f.JobNo))
	bc := strings.ToLower(strings.TrimSpace(f.BCNo))
	out := make([]domain.SaleConfirmation, 0, len(sales))
	for _, s := range sales {
		if !InRange(s.Date, f.From, f.To) {
			continue
		}
		if job != "" && !strings.Contains(strings.ToLower(s.JobNo), job) {
			continue
		}
		if bc != "" && !strings.Contains(strings.ToLower(s.BCNo), bc) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// FilterPurchases applies the purchase list filters and orders the result newest first.
func FilterPurchases(purchases []domain.Purchase, f domain.PurchaseFilter) []domain.Purchase {
	bn := strings.ToLower(strings.TrimSpace(f.BusinessNo))
	out := make([]domain.Purchase, 0, len(purchases))
	for _, p := range purchases {
		if !InRange(p.Date, f.From, f.To) {
			continue
		}
		if bn != "" && !strings.Contains(strings.ToLower(p.BusinessNo), bn) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EffectiveDate().After(out[j].EffectiveDate()) })
	return out
}

// ProfitLoss nets sales against purchases and expenses booked within [from, to].
func ProfitLoss(sales []domain.SaleConfirmation, purchases []domain.Purchase, groups []domain.ExpenseGroup, from, to domain.Date) domain.ProfitLoss {
	var nett, bought, spent Accumulator
	for _, s := range sales {
		if InRange(s.Date, from, to) {
			nett.Add(s.Nett)
		}
	}
	for _, p := range purchases {
		if InRange(p.EffectiveDate(), from, to) {
			bought.Add(p.AmountINR)
		}
	}
	for _, g := range groups {
		for _, e := range g.Entries {
			if InRange(e.Date, from, to) {
				spent.Add(e.Amount)
			}
		}
	}
	out := domain.ProfitLoss{
		From:          from,
		To:            to,
		NettTotal:     nett.Value(),
		PurchaseTotal: bought.Value(),
		ExpenseTotal:  spent.Value(),
	}
	out.Profit = Round2(out.NettTotal - Add(out.PurchaseTotal, out.ExpenseTotal))
	return out
}

// ExpenseStats derives the per-MT averages shown on the expense sheet.
func ExpenseStats(g domain.ExpenseGroup) domain.ExpenseStats {
	var qty, amount, expense Accumulator
	for _, line := range g.Confirmations {
		qty.Add(line.Qty)
		amount.Add(line.Amount)
	}
	for _, e := range g.Entries {
		expense.Add(e.Amount)
	}
	out := domain.ExpenseStats{
		TotalQty:     qty.Value(),
		TotalAmount:  amount.Value(),
		TotalExpense: expense.Value(),
	}
	if out.TotalQty != 0 {
		out.AvgRate = Round2(out.TotalAmount / out.TotalQty)
	}
	if g.OverallQty != 0 {
		out.AvgExpense = Round2(out.TotalExpense / g.OverallQty)
	}
	return out
}

// SellsDashboard summarizes sales for month (YYYY-MM, empty for all time).
// When jobNo is set the quantity breakdown covers only that job.
func SellsDashboard(sales []domain.SaleConfirmation, jobs []domain.Job, month, jobNo string) domain.SellsDashboard {
	month = strings.TrimSpace(month)
	filtered := make([]domain.SaleConfirmation, 0, len(sales))
	for _, s := range sales {
		if month != "" && s.Date.Month() != month {
			continue
		}
		filtered = append(filtered, s)
	}

	out := domain.SellsDashboard{Month: month}
	jobSet := make(map[string]struct{})
	qtyByCommodity := make(map[string]*Accumulator)
	rates := make(map[string][]float64)
	weights := make(map[string][]float64)
	nettByDate := make(map[string]*Accumulator)
	var nett, qty Accumulator

	for _, s := range filtered {
		if s.Date.After(out.LastUpdated) {
			out.LastUpdated = s.Date
		}
		jobSet[s.JobNo] = struct{}{}
		nett.Add(s.Nett)
		qty.Add(s.Qty)

		c := s.Commodity
		if qtyByCommodity[c] == nil {
			qtyByCommodity[c] = &Accumulator{}
		}
		qtyByCommodity[c].Add(s.Qty)
		rates[c] = append(rates[c], s.Rate)
		weights[c] = append(weights[c], s.Qty)

		if !s.Date.IsZero() {
			key := s.Date.String()
			if nettByDate[key] == nil {
				nettByDate[key] = &Accumulator{}
			}
			nettByDate[key].Add(s.Nett)
		}
	}

	out.JobsCount = len(jobSet)
	out.CommodityCount = len(qtyByCommodity)
	out.TotalNett = nett.Value()
	out.TotalQty = qty.Value()
	for _, c := range sortedKeys(qtyByCommodity) {
		out.CommodityQty = append(out.CommodityQty, domain.SeriesPoint{Label: c, Value: qtyByCommodity[c].Value()})
		out.CommodityAvgRate = append(out.CommodityAvgRate, domain.SeriesPoint{Label: c, Value: weightedMean(rates[c], weights[c])})
	}
	for _, d := range sortedKeys(nettByDate) {
		out.NettByDate = append(out.NettByDate, domain.SeriesPoint{Label: d, Value: nettByDate[d].Value()})
	}

	ldg := Aggregate(jobs, sales, nil)
	jobNo = strings.TrimSpace(jobNo)
	for _, s := range ldg.Rows() {
		if jobNo != "" && s.JobNo != jobNo {
			continue
		}
		if s.Synthesized {
			continue
		}
		out.JobBreakdown = append(out.JobBreakdown, domain.JobQtyBreakdown{
			JobNo:   s.JobNo,
			Overall: s.Overall,
			Sold:    s.SoldQty,
			Unsold:  s.CurrentQty,
		})
	}
	return out
}

// PurchaseDashboard builds the month cards and the chart series. LastUpdated
// always spans every purchase regardless of month.
func PurchaseDashboard(purchases []domain.Purchase, month, commodity string) domain.PurchaseDashboard {
	month = strings.TrimSpace(month)
	commodity = strings.TrimSpace(commodity)
	out := domain.PurchaseDashboard{Month: month}

	var usd, inr, qty Accumulator
	countByDate := make(map[string]float64)
	usdByDate := make(map[string]*Accumulator)
	share := make(map[string]float64)
	qtyCells := make(map[string]map[string]*Accumulator)
	dates := make(map[string]struct{})
	commodities := make(map[string]struct{})

	for _, p := range purchases {
		if p.Date.After(out.LastUpdated) {
			out.LastUpdated = p.Date
		}
		if month == "" || p.Date.Month() == month {
			out.Count++
			usd.Add(p.AmountUSD)
			inr.Add(p.AmountINR)
			qty.Add(p.BuyingQty)
		}

		c := strings.TrimSpace(p.Commodity)
		if c == "" {
			c = unknownCommodity
		}
		share[c]++
		commodities[c] = struct{}{}

		if d := p.EffectiveDate(); !d.IsZero() {
			countByDate[d.String()]++
		}
		if p.Date.IsZero() {
			continue
		}
		key := p.Date.String()
		if usdByDate[key] == nil {
			usdByDate[key] = &Accumulator{}
		}
		usdByDate[key].Add(p.AmountUSD)

		dates[key] = struct{}{}
		if qtyCells[c] == nil {
			qtyCells[c] = make(map[string]*Accumulator)
		}
		if qtyCells[c][key] == nil {
			qtyCells[c][key] = &Accumulator{}
		}
		qtyCells[c][key].Add(p.BuyingQty)
	}

	out.TotalUSD = usd.Value()
	out.TotalINR = inr.Value()
	out.TotalQty = qty.Value()
	out.Commodities = sortedKeys(commodities)

	for _, d := range sortedKeys(countByDate) {
		out.CountByDate = append(out.CountByDate, domain.SeriesPoint{Label: d, Value: countByDate[d]})
	}
	for _, d := range sortedKeys(usdByDate) {
		out.USDByDate = append(out.USDByDate, domain.SeriesPoint{Label: d, Value: usdByDate[d].Value()})
	}
	for c, n := range share {
		out.CommodityShare = append(out.CommodityShare, domain.SeriesPoint{Label: c, Value: n})
	}
	sort.Slice(out.CommodityShare, func(i, j int) bool {
		a, b := out.CommodityShare[i], out.CommodityShare[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.Label < b.Label
	})

	out.QtyByDate = domain.QtySeries{Dates: sortedKeys(dates), Series: make(map[string][]float64)}
	series := out.Commodities
	if commodity != "" && !strings.EqualFold(commodity, "All") {
		series = []string{commodity}
	}
	for _, c := range series {
		row := make([]float64, len(out.QtyByDate.Dates))
		for i, d := range out.QtyByDate.Dates {
			if acc := qtyCells[c][d]; acc != nil {
				row[i] = acc.Value()
			}
		}
		out.QtyByDate.Series[c] = row
	}
	return out
}

// LatestPurchaseDate returns the most recent purchase date, or the zero Date.
func LatestPurchaseDate(purchases []domain.Purchase) domain.Date {
	var latest domain.Date
	for _, p := range purchases {
		if p.Date.After(latest) {
			latest = p.Date
		}
	}
	return latest
}

func weightedMean(values, weights []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return 0
	}
	mean := stat.Mean(values, weights)
	if math.IsNaN(mean) {
		return 0
	}
	return Round2(mean)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
