package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tradeledger/backend/internal/domain"
)

// shape lists the fields of one record kind that need coercion before the
// record can be decoded into its domain type.
type shape struct {
	numbers  []string
	strings  []string
	nested   map[string]shape
	required []string
}

var (
	jobShape = shape{
		numbers:  []string{"overall"},
		strings:  []string{"jobNo"},
		required: []string{"jobNo"},
	}
	saleShape = shape{
		numbers:  []string{"qty", "rate", "nett"},
		strings:  []string{"jobNo", "bcNo"},
		required: []string{"id"},
	}
	expenseShape = shape{
		numbers: []string{"overallQty"},
		strings: []string{"jobNo"},
		nested: map[string]shape{
			"bcData":      {numbers: []string{"qty", "rate", "amount"}, strings: []string{"bcNo"}},
			"expenseData": {numbers: []string{"amount"}},
		},
		required: []string{"id"},
	}
	purchaseShape = shape{
		numbers:  []string{"buyingQty", "priceIncoterms", "conversionRate", "amountUSD", "amountINR"},
		strings:  []string{"businessNo"},
		required: []string{"id"},
	}
)

func decodeList[T any](body []byte, s shape) ([]T, error) {
	var raw []map[string]any
	if err := unmarshalNumbers(body, &raw); err != nil {
		return nil, &domain.ValidationError{Message: "expected a JSON array: " + err.Error()}
	}
	out := make([]T, 0, len(raw))
	for i, rec := range raw {
		item, err := decodeRecord[T](rec, s)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, item)
	}
	return out, nil
}

func decodeOne[T any](body []byte, s shape) (T, error) {
	var zero T
	var raw map[string]any
	if err := unmarshalNumbers(body, &raw); err != nil {
		return zero, &domain.ValidationError{Message: "expected a JSON object: " + err.Error()}
	}
	return decodeRecord[T](raw, s)
}

func decodeRecord[T any](rec map[string]any, s shape) (T, error) {
	var out T
	if err := normalize(rec, s); err != nil {
		return out, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, &domain.ValidationError{Message: err.Error()}
	}
	return out, nil
}

func normalize(rec map[string]any, s shape) error {
	if rec == nil {
		return &domain.ValidationError{Message: "record is null"}
	}
	if v, ok := rec["id"]; ok {
		rec["id"] = idString(v)
	}
	if id, _ := rec["id"].(string); id == "" {
		if mongoID, ok := rec["_id"]; ok {
			rec["id"] = idString(mongoID)
		}
	}
	delete(rec, "_id")
	if v, ok := rec["createdAt"].(string); ok && strings.TrimSpace(v) == "" {
		delete(rec, "createdAt")
	}

	for _, key := range s.numbers {
		v, present := rec[key]
		if !present {
			continue
		}
		n, err := flexNumber(v)
		if err != nil {
			return domain.NewValidationError(key, "number")
		}
		rec[key] = n
	}
	for _, key := range s.strings {
		if n, ok := rec[key].(json.Number); ok {
			rec[key] = n.String()
		}
	}
	for key, inner := range s.nested {
		v, present := rec[key]
		if !present || v == nil {
			delete(rec, key)
			continue
		}
		items, ok := v.([]any)
		if !ok {
			return domain.NewValidationError(key, "array")
		}
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				return domain.NewValidationError(key, "object")
			}
			if err := normalize(m, inner); err != nil {
				return err
			}
		}
	}
	for _, key := range s.required {
		if str, _ := rec[key].(string); strings.TrimSpace(str) == "" {
			return domain.NewValidationError(key, "required")
		}
	}
	return nil
}

// flexNumber accepts a JSON number, a numeric string, an empty string or null.
func flexNumber(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	case map[string]any:
		if oid, ok := id["$oid"].(string); ok {
			return oid
		}
	}
	return ""
}

func unmarshalNumbers(body []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(dst)
}
