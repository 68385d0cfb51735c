package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports input that failed field rules. Fields maps the
// offending field name to the rule it broke.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func NewValidationError(field, rule string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: rule}}
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ConflictWarning is raised when a sale would push a job's sold quantity past
// its overall quantity. Callers may resubmit with an explicit override.
type ConflictWarning struct {
	JobNo       string  `json:"jobNo"`
	Overall     float64 `json:"overall"`
	SoldBefore  float64 `json:"soldBefore"`
	WouldBeSold float64 `json:"wouldBeSold"`
}

func (w *ConflictWarning) Error() string {
	return fmt.Sprintf("total assigned quantity (%g MT) exceeds overall job quantity (%g MT) for job %s",
		w.WouldBeSold, w.Overall, w.JobNo)
}
