package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateFormats(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-09", d.String())
	assert.Equal(t, "09-03-2025", d.Display())
	assert.Equal(t, "2025-03", d.Month())

	d, err = ParseDate("2025-03-09T18:30:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-09", d.String())

	d, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())
	assert.Equal(t, "", d.Display())

	_, err = ParseDate("09/03/2025")
	assert.Error(t, err)
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		Date     Date `json:"date"`
		Delivery Date `json:"delivery"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2025-01-31","delivery":""}`), &payload))
	assert.Equal(t, "2025-01-31", payload.Date.String())
	assert.True(t, payload.Delivery.IsZero())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-01-31","delivery":""}`, string(out))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 12, 1, 22, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-12-01", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	v, err := d.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestPurchaseEffectiveDate(t *testing.T) {
	p := Purchase{CreatedAt: time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC)}
	assert.Equal(t, "2025-05-06", p.EffectiveDate().String())

	p.Date = MustDate("2025-05-01")
	assert.Equal(t, "2025-05-01", p.EffectiveDate().String())
}
