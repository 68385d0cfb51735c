package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/store"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.URL+"/", 2*time.Second, zerolog.Nop())
}

func TestListJobsAcceptsStringNumbers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs", r.URL.Path)
		_, _ = io.WriteString(w, `[
			{"_id":"66a1","jobNo":"HM-101","overall":"500.5","commodity":"Maize"},
			{"jobNo":102,"overall":null}
		]`)
	})

	jobs, err := c.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, 500.5, jobs[0].Overall)
	assert.Equal(t, "102", jobs[1].JobNo)
	assert.Equal(t, 0.0, jobs[1].Overall)
}

func TestListSalesNormalizesMongoIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"_id":"a1","bcNo":"BC-1","jobNo":"J1","date":"2025-01-05","qty":"10","rate":100,"nett":1000,"createdAt":""},
			{"_id":{"$oid":"b2"},"bcNo":"BC-2","jobNo":"J2","date":"2025-02-05T00:00:00.000Z","qty":5,"rate":"2.5","nett":12.5}
		]`)
	})

	sales, err := c.ListSales(context.Background(), domain.SaleFilter{})
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "b2", sales[0].ID, "newest first")
	assert.Equal(t, 2.5, sales[0].Rate)
	assert.Equal(t, "a1", sales[1].ID)
	assert.Equal(t, 10.0, sales[1].Qty)

	one, err := c.GetSale(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "BC-1", one.BCNo)

	_, err = c.GetSale(context.Background(), "zz")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSchemaMismatchIsValidationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"_id":"a1","bcNo":"BC-1","jobNo":"J1","qty":"ten"}]`)
	})

	_, err := c.ListSales(context.Background(), domain.SaleFilter{})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "number", verr.Fields["qty"])
}

func TestRemoteErrorCarriesBackendMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"jobNo and overall required"}`)
	})

	_, err := c.UpsertJob(context.Background(), domain.Job{JobNo: "J1"})
	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusBadRequest, rerr.Status)
	assert.Equal(t, "jobNo and overall required", rerr.Error())
}

func TestRemoteErrorFallsBackToStatusText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `not json`)
	})

	err := c.DeleteSale(context.Background(), "x")
	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Not Found", rerr.Message)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := NewClient(url, url, time.Second, zerolog.Nop())

	_, err := c.ListJobs(context.Background())
	var nerr *NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, http.MethodGet, nerr.Op)
}

func TestGetJobLookup(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/jobs/HM-101":
			_, _ = io.WriteString(w, `{"exists":true,"job":{"jobNo":"HM-101","overall":"40"}}`)
		default:
			_, _ = io.WriteString(w, `{"exists":false}`)
		}
	})

	job, err := c.GetJob(context.Background(), "HM-101")
	require.NoError(t, err)
	assert.Equal(t, 40.0, job.Overall)

	_, err = c.GetJob(context.Background(), "NOPE")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateSaleSendsBodyAndDecodesEcho(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var got map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "BC-9", got["bcNo"])
		got["_id"] = "new-1"
		_ = json.NewEncoder(w).Encode(got)
	})

	created, err := c.CreateSale(context.Background(), domain.SaleConfirmation{BCNo: "BC-9", JobNo: "J1", Qty: 2, Rate: 3, Nett: 6})
	require.NoError(t, err)
	assert.Equal(t, "new-1", created.ID)
	assert.Equal(t, 6.0, created.Nett)
}

func TestExpenseGroupsDecodeNestedLines(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "J1", r.URL.Query().Get("jobNo"))
		_, _ = io.WriteString(w, `[{
			"_id":"e1","jobNo":"J1","overallQty":"40",
			"bcData":[{"bcNo":"P1","qty":"10","rate":"100","amount":""}],
			"expenseData":[{"head":"Others","amount":"80","date":"","note":"Fumigation"}]
		}]`)
	})

	groups, err := c.ListExpenseGroups(context.Background(), "J1")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 40.0, groups[0].OverallQty)
	assert.Equal(t, 0.0, groups[0].Confirmations[0].Amount)
	assert.Equal(t, domain.Custom("Fumigation"), groups[0].Entries[0].Category)
	assert.Equal(t, 80.0, groups[0].Entries[0].Amount)
}

func TestListPurchasesForwardsFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PB", r.URL.Query().Get("businessNo"))
		assert.Equal(t, "2025-01-01", r.URL.Query().Get("from"))
		_, _ = io.WriteString(w, `[
			{"_id":"p1","businessNo":"PB-1","date":"2025-01-03","buyingQty":"5","amountUSD":"10.5"},
			{"_id":"p2","businessNo":"XX-1","date":"2025-01-04"}
		]`)
	})

	purchases, err := c.ListPurchases(context.Background(), domain.PurchaseFilter{BusinessNo: "PB", From: domain.MustDate("2025-01-01")})
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, 10.5, purchases[0].AmountUSD)
}
