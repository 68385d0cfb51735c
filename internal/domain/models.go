package domain

import "time"

type Job struct {
	JobNo     string  `json:"jobNo" db:"job_no" validate:"required"`
	Overall   float64 `json:"overall" db:"overall" validate:"gte=0"`
	Commodity string  `json:"commodity" db:"commodity"`
	Location  string  `json:"location" db:"location"`
	Origin    string  `json:"origin" db:"origin"`
}

type JobLookup struct {
	Exists bool `json:"exists"`
	Job    *Job `json:"job,omitempty"`
}

// SaleConfirmation is a business confirmation (BC) selling quantity out of a job.
// Nett is stored as entered; readers must not assume it equals Qty*Rate.
type SaleConfirmation struct {
	ID          string    `json:"id" db:"id"`
	BCNo        string    `json:"bcNo" db:"bc_no"`
	Date        Date      `json:"date" db:"date"`
	JobNo       string    `json:"jobNo" db:"job_no"`
	Seller      string    `json:"seller" db:"seller"`
	Buyer       string    `json:"buyer" db:"buyer"`
	Commodity   string    `json:"commodity" db:"commodity"`
	Origin      string    `json:"origin" db:"origin"`
	Qty         float64   `json:"qty" db:"qty"`
	Rate        float64   `json:"rate" db:"rate"`
	Nett        float64   `json:"nett" db:"nett"`
	Delivery    Date      `json:"delivery" db:"delivery"`
	DeliveryLoc string    `json:"deliveryLoc" db:"delivery_loc"`
	Quality     string    `json:"quality" db:"quality"`
	Packaging   string    `json:"packaging" db:"packaging"`
	Payment     string    `json:"payment" db:"payment"`
	Brokerage   string    `json:"brokerage" db:"brokerage"`
	Broker      string    `json:"broker" db:"broker"`
	KYC         string    `json:"kyc" db:"kyc"`
	Terms       string    `json:"terms" db:"terms"`
	Notes       string    `json:"notes" db:"notes"`
	Souda       string    `json:"souda" db:"souda"`
	Bank        string    `json:"bank" db:"bank"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

type SaleInput struct {
	BCNo            string  `json:"bcNo" validate:"required"`
	Date            Date    `json:"date"`
	JobNo           string  `json:"jobNo" validate:"required"`
	Seller          string  `json:"seller"`
	Buyer           string  `json:"buyer"`
	Commodity       string  `json:"commodity"`
	Origin          string  `json:"origin"`
	Qty             float64 `json:"qty" validate:"gte=0"`
	Rate            float64 `json:"rate" validate:"gte=0"`
	Delivery        Date    `json:"delivery"`
	DeliveryLoc     string  `json:"deliveryLoc"`
	Quality         string  `json:"quality"`
	Packaging       string  `json:"packaging"`
	Payment         string  `json:"payment"`
	Brokerage       string  `json:"brokerage"`
	Broker          string  `json:"broker"`
	KYC             string  `json:"kyc"`
	Terms           string  `json:"terms"`
	Notes           string  `json:"notes"`
	Souda           string  `json:"souda"`
	Bank            string  `json:"bank"`
	ConfirmOverdraw bool    `json:"confirmOverdraw"`
}

type CostLine struct {
	BCNo   string  `json:"bcNo"`
	Qty    float64 `json:"qty" validate:"gte=0"`
	Rate   float64 `json:"rate" validate:"gte=0"`
	Amount float64 `json:"amount" validate:"gte=0"`
}

type ExpenseGroup struct {
	ID            string         `json:"id"`
	JobNo         string         `json:"jobNo" validate:"required"`
	OverallQty    float64        `json:"overallQty" validate:"gte=0"`
	Confirmations []CostLine     `json:"bcData" validate:"dive"`
	Entries       []ExpenseEntry `json:"expenseData" validate:"dive"`
	CreatedAt     time.Time      `json:"createdAt"`
}

type Purchase struct {
	ID                string    `json:"id" db:"id"`
	BusinessNo        string    `json:"businessNo" db:"business_no" validate:"required"`
	Date              Date      `json:"date" db:"date"`
	Seller            string    `json:"seller" db:"seller"`
	Buyer             string    `json:"buyer" db:"buyer"`
	KYC               string    `json:"kyc" db:"kyc"`
	Broker            string    `json:"broker" db:"broker"`
	Commodity         string    `json:"commodity" db:"commodity"`
	Country           string    `json:"country" db:"country"`
	QualitySpec       string    `json:"qualitySpec" db:"quality_spec"`
	Packing           string    `json:"packing" db:"packing"`
	ShipmentPeriod    string    `json:"shipmentPeriod" db:"shipment_period"`
	Brokerage         string    `json:"brokerage" db:"brokerage"`
	Vessel            string    `json:"vessel" db:"vessel"`
	LoadingConditions string    `json:"loadingConditions" db:"loading_conditions"`
	BuyingQty         float64   `json:"buyingQty" db:"buying_qty" validate:"gte=0"`
	PriceIncoterms    float64   `json:"priceIncoterms" db:"price_incoterms" validate:"gte=0"`
	Incoterms         string    `json:"Incoterms" db:"incoterms"`
	ConversionRate    float64   `json:"conversionRate" db:"conversion_rate" validate:"gte=0"`
	AmountUSD         float64   `json:"amountUSD" db:"amount_usd"`
	AmountINR         float64   `json:"amountINR" db:"amount_inr"`
	PaymentTerms      string    `json:"paymentTerms" db:"payment_terms"`
	WeightQuality     string    `json:"weightQuality" db:"weight_quality"`
	Gafta             string    `json:"gafta" db:"gafta"`
	Fumigation        string    `json:"fumigation" db:"fumigation"`
	Documents         string    `json:"documents" db:"documents"`
	FreeDays          string    `json:"freeDays" db:"free_days"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}

// EffectiveDate is the purchase date, falling back to the creation day.
func (p Purchase) EffectiveDate() Date {
	if !p.Date.IsZero() {
		return p.Date
	}
	if p.CreatedAt.IsZero() {
		return Date{}
	}
	return NewDate(p.CreatedAt)
}

type JobSummary struct {
	JobNo        string  `json:"jobNo"`
	Overall      float64 `json:"overall"`
	Commodity    string  `json:"commodity"`
	Location     string  `json:"location"`
	Origin       string  `json:"origin"`
	SoldQty      float64 `json:"soldQty"`
	CurrentQty   float64 `json:"currentQty"`
	TotalNett    float64 `json:"totalNett"`
	TotalExpense float64 `json:"totalExpense"`
	Synthesized  bool    `json:"synthesized"`
}

type JobPosition struct {
	JobNo   string  `json:"jobNo"`
	Overall float64 `json:"overall"`
	Used    float64 `json:"used"`
	Current float64 `json:"current"`
}

type SaleFilter struct {
	From  Date
	To    Date
	JobNo string
	BCNo  string
}

type PurchaseFilter struct {
	BusinessNo string
	From       Date
	To         Date
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserAccount struct {
	Username  string    `json:"username" db:"username"`
	Password  string    `json:"-" db:"password"`
	Role      string    `json:"role" db:"role"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)
