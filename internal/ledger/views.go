package ledger

import (
	"sort"
	"strings"

	"tradeledger/backend/internal/domain"
)

type SortKey string

const (
	SortJobNo   SortKey = "jobNo"
	SortOverall SortKey = "overall"
	SortCurrent SortKey = "current"
	SortSold    SortKey = "sold"
	SortNett    SortKey = "nett"
	SortExpense SortKey = "expense"
)

// ParseSortKey falls back to SortJobNo for unknown keys.
func ParseSortKey(raw string) SortKey {
	switch SortKey(strings.TrimSpace(raw)) {
	case SortOverall:
		return SortOverall
	case SortCurrent:
		return SortCurrent
	case SortSold:
		return SortSold
	case SortNett:
		return SortNett
	case SortExpense:
		return SortExpense
	default:
		return SortJobNo
	}
}

// Cards filters by case-insensitive job number substring and exact commodity.
func Cards(l Ledger, query, commodity string) []domain.JobSummary {
	q := strings.ToLower(strings.TrimSpace(query))
	return collect(l, func(s domain.JobSummary) bool {
		if commodity != "" && s.Commodity != commodity {
			return false
		}
		return q == "" || strings.Contains(strings.ToLower(s.JobNo), q)
	})
}

// Table filters by case-insensitive job number and commodity substrings.
func Table(l Ledger, jobQuery, commodityQuery string) []domain.JobSummary {
	jq := strings.ToLower(strings.TrimSpace(jobQuery))
	cq := strings.ToLower(strings.TrimSpace(commodityQuery))
	return collect(l, func(s domain.JobSummary) bool {
		if jq != "" && !strings.Contains(strings.ToLower(s.JobNo), jq) {
			return false
		}
		return cq == "" || strings.Contains(strings.ToLower(s.Commodity), cq)
	})
}

// Commodities lists the distinct non-empty commodities in the ledger.
func Commodities(l Ledger) []string {
	seen := make(map[string]struct{}, len(l))
	for _, s := range l {
		if s.Commodity == "" {
			continue
		}
		seen[s.Commodity] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// SortRows orders rows in place. Ties fall back to job number.
func SortRows(rows []domain.JobSummary, key SortKey, desc bool) {
	value := func(s domain.JobSummary) float64 {
		switch key {
		case SortOverall:
			return s.Overall
		case SortCurrent:
			return s.CurrentQty
		case SortSold:
			return s.SoldQty
		case SortNett:
			return s.TotalNett
		case SortExpense:
			return s.TotalExpense
		}
		return 0
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if key != SortJobNo {
			va, vb := value(a), value(b)
			if va != vb {
				if desc {
					return va > vb
				}
				return va < vb
			}
		}
		if desc && key == SortJobNo {
			return a.JobNo > b.JobNo
		}
		return a.JobNo < b.JobNo
	})
}

func collect(l Ledger, keep func(domain.JobSummary) bool) []domain.JobSummary {
	out := make([]domain.JobSummary, 0, len(l))
	for _, s := range l {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobNo < out[j].JobNo })
	return out
}
