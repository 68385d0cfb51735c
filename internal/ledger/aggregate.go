package ledger

import (
	"strings"

	"tradeledger/backend/internal/domain"
)

// Ledger maps a job number to its derived summary.
type Ledger map[string]domain.JobSummary

// Aggregate joins jobs, sales and expense groups into one summary per job
// number. Sales and expense groups that reference an unknown job get a
// zero-overall placeholder instead of being dropped. The result depends only on
// the inputs, so re-running it with refreshed inputs fully replaces a prior ledger.
func Aggregate(jobs []domain.Job, sales []domain.SaleConfirmation, groups []domain.ExpenseGroup) Ledger {
	out := make(Ledger, len(jobs))

	for _, job := range jobs {
		key := strings.TrimSpace(job.JobNo)
		if key == "" {
			continue
		}
		out[key] = domain.JobSummary{
			JobNo:     key,
			Overall:   job.Overall,
			Commodity: job.Commodity,
			Location:  job.Location,
			Origin:    job.Origin,
		}
	}

	for _, sale := range sales {
		key := strings.TrimSpace(sale.JobNo)
		if key == "" {
			continue
		}
		entry, ok := out[key]
		if !ok {
			entry = domain.JobSummary{
				JobNo:       key,
				Commodity:   sale.Commodity,
				Origin:      sale.Origin,
				Synthesized: true,
			}
		}
		entry.SoldQty = Add(entry.SoldQty, sale.Qty)
		entry.TotalNett = Add(entry.TotalNett, sale.Nett)
		out[key] = entry
	}

	for _, group := range groups {
		key := strings.TrimSpace(group.JobNo)
		if key == "" {
			continue
		}
		entry, ok := out[key]
		if !ok {
			entry = domain.JobSummary{JobNo: key, Synthesized: true}
		}
		for _, item := range group.Entries {
			entry.TotalExpense = Add(entry.TotalExpense, item.Amount)
		}
		out[key] = entry
	}

	for key, entry := range out {
		entry.CurrentQty = Round2(entry.Overall - entry.SoldQty)
		out[key] = entry
	}
	return out
}

// Get returns the summary for jobNo and whether it exists.
func (l Ledger) Get(jobNo string) (domain.JobSummary, bool) {
	s, ok := l[strings.TrimSpace(jobNo)]
	return s, ok
}

// Rows returns every summary sorted by job number.
func (l Ledger) Rows() []domain.JobSummary {
	return Table(l, "", "")
}
