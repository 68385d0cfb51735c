package domain

import "time"

type SeriesPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type ProfitLoss struct {
	From          Date    `json:"from"`
	To            Date    `json:"to"`
	NettTotal     float64 `json:"nettTotal"`
	PurchaseTotal float64 `json:"purchaseTotal"`
	ExpenseTotal  float64 `json:"expenseTotal"`
	Profit        float64 `json:"profit"`
}

type JobQtyBreakdown struct {
	JobNo   string  `json:"jobNo"`
	Overall float64 `json:"overall"`
	Sold    float64 `json:"sold"`
	Unsold  float64 `json:"unsold"`
}

type SellsDashboard struct {
	Month            string            `json:"month,omitempty"`
	LastUpdated      Date              `json:"lastUpdated"`
	JobsCount        int               `json:"jobsCount"`
	CommodityCount   int               `json:"commodityCount"`
	TotalNett        float64           `json:"totalNett"`
	TotalQty         float64           `json:"totalQty"`
	CommodityQty     []SeriesPoint     `json:"commodityQty"`
	CommodityAvgRate []SeriesPoint     `json:"commodityAvgRate"`
	NettByDate       []SeriesPoint     `json:"nettByDate"`
	JobBreakdown     []JobQtyBreakdown `json:"jobBreakdown"`
}

type QtySeries struct {
	Dates  []string             `json:"dates"`
	Series map[string][]float64 `json:"series"`
}

type PurchaseDashboard struct {
	Month          string        `json:"month,omitempty"`
	LastUpdated    Date          `json:"lastUpdated"`
	Count          int           `json:"count"`
	TotalUSD       float64       `json:"totalUSD"`
	TotalINR       float64       `json:"totalINR"`
	TotalQty       float64       `json:"totalQty"`
	Commodities    []string      `json:"commodities"`
	CountByDate    []SeriesPoint `json:"countByDate"`
	USDByDate      []SeriesPoint `json:"usdByDate"`
	CommodityShare []SeriesPoint `json:"commodityShare"`
	QtyByDate      QtySeries     `json:"qtyByDate"`
}

type ExpenseStats struct {
	TotalQty     float64 `json:"totalQty"`
	TotalAmount  float64 `json:"totalAmount"`
	AvgRate      float64 `json:"avgRate"`
	TotalExpense float64 `json:"totalExpense"`
	AvgExpense   float64 `json:"avgExpense"`
}

type NettDrift struct {
	ID       string  `json:"id"`
	BCNo     string  `json:"bcNo"`
	JobNo    string  `json:"jobNo"`
	Qty      float64 `json:"qty"`
	Rate     float64 `json:"rate"`
	Stored   float64 `json:"stored"`
	Expected float64 `json:"expected"`
}

type SourceFailure struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// LastUpdated is the newest purchase date seen by the periodic refresh.
type LastUpdated struct {
	Purchases Date      `json:"purchases"`
	CheckedAt time.Time `json:"checkedAt"`
}
