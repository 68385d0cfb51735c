package ledger

import (
	"math"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance, in MT, applied when comparing sold against overall quantity.
const Epsilon = 1e-6

// cents snaps v onto the two-decimal grid. Non-finite input counts as zero.
func cents(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(2)
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return cents(v).InexactFloat64()
}

// Add sums a and b as whole hundredths, so repeated fractional additions do
// not drift.
func Add(a, b float64) float64 {
	return cents(a).Add(cents(b)).InexactFloat64()
}

// Mul multiplies with ordinary precision and rounds the product to two decimals.
func Mul(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return 0
	}
	return Round2(a * b)
}

// Sum folds values through Add.
func Sum(values ...float64) float64 {
	var acc Accumulator
	for _, v := range values {
		acc.Add(v)
	}
	return acc.Value()
}

// Accumulator keeps a running fixed-point total. The zero value is ready to use.
type Accumulator struct {
	total decimal.Decimal
}

func (a *Accumulator) Add(v float64) {
	a.total = a.total.Add(cents(v))
}

func (a *Accumulator) Value() float64 {
	return a.total.InexactFloat64()
}
