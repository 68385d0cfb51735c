package ledger

import (
	"strings"

	"tradeledger/backend/internal/domain"
)

type Conservation struct {
	JobNo       string
	Overall     float64
	SoldBefore  float64
	WouldBeSold float64
	Exceeds     bool
}

// Warning converts an exceeding check into the error surfaced to callers.
func (c Conservation) Warning() *domain.ConflictWarning {
	if !c.Exceeds {
		return nil
	}
	return &domain.ConflictWarning{
		JobNo:       c.JobNo,
		Overall:     c.Overall,
		SoldBefore:  c.SoldBefore,
		WouldBeSold: c.WouldBeSold,
	}
}

// CheckConservation sums the quantity already sold against jobNo, leaving out
// the record identified by excludeID, and adds newQty. A job with no overall
// quantity is never reported as exceeded.
func CheckConservation(overall float64, sales []domain.SaleConfirmation, jobNo, excludeID string, newQty float64) Conservation {
	jobNo = strings.TrimSpace(jobNo)
	var sold Accumulator
	for _, sale := range sales {
		if strings.TrimSpace(sale.JobNo) != jobNo {
			continue
		}
		if excludeID != "" && sale.ID == excludeID {
			continue
		}
		sold.Add(sale.Qty)
	}
	before := sold.Value()
	would := Add(before, newQty)
	return Conservation{
		JobNo:       jobNo,
		Overall:     overall,
		SoldBefore:  before,
		WouldBeSold: would,
		Exceeds:     overall > 0 && would > overall+Epsilon,
	}
}

// Position reports how much of a job is used and what remains.
func Position(overall float64, sales []domain.SaleConfirmation, jobNo string) domain.JobPosition {
	check := CheckConservation(overall, sales, jobNo, "", 0)
	return domain.JobPosition{
		JobNo:   check.JobNo,
		Overall: overall,
		Used:    check.SoldBefore,
		Current: Round2(overall - check.SoldBefore),
	}
}

// NettDrift lists sales whose stored nett no longer matches qty*rate. It only
// reports; stored values are left alone.
func NettDrift(sales []domain.SaleConfirmation) []domain.NettDrift {
	out := make([]domain.NettDrift, 0)
	for _, sale := range sales {
		expected := Mul(sale.Qty, sale.Rate)
		if Round2(sale.Nett) == expected {
			continue
		}
		out = append(out, domain.NettDrift{
			ID:       sale.ID,
			BCNo:     sale.BCNo,
			JobNo:    sale.JobNo,
			Qty:      sale.Qty,
			Rate:     sale.Rate,
			Stored:   sale.Nett,
			Expected: expected,
		})
	}
	return out
}
