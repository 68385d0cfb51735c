package httpapi

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/export"
	"tradeledger/backend/internal/lock"
	"tradeledger/backend/internal/remote"
	"tradeledger/backend/internal/service"
	"tradeledger/backend/internal/store"
	"tradeledger/backend/internal/store/memory"
)

type archiveStub struct {
	names []string
	err   error
}

func (a *archiveStub) Put(_ context.Context, name, _ string, _ []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.names = append(a.names, name)
	return "exports/2025/01/01/" + name, nil
}

func (a *archiveStub) Enabled() bool { return true }

type testServer struct {
	api     *API
	handler http.Handler
	svc     *service.Service
	archive *archiveStub
}

// newTestAPI builds a full API over the seeded in-memory store so handler
// tests exercise the complete request path.
func newTestAPI(t *testing.T) *testServer {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin-pass-123")
	t.Setenv("SEED_VIEWER_PASSWORD", "viewer-pass-123")

	repo := memory.NewSeeded()
	svc := service.New(repo, service.Options{Logger: zerolog.Nop()})
	auth, err := NewAuthManager(context.Background(), testSecret, time.Hour, repo, zerolog.Nop())
	require.NoError(t, err)

	stub := &archiveStub{}
	api := New(Options{
		Service:        svc,
		Auth:           auth,
		Archive:        stub,
		Letterhead:     export.Letterhead{Company: "Test Trading"},
		AllowedOrigins: []string{"*"},
		Logger:         zerolog.Nop(),
	})
	return &testServer{api: api, handler: api.Handler(), svc: svc, archive: stub}
}

func (s *testServer) token(t *testing.T, username string) string {
	t.Helper()
	password := map[string]string{"admin": "admin-pass-123", "viewer": "viewer-pass-123"}[username]
	resp, err := s.api.auth.Login(context.Background(), domain.LoginRequest{Username: username, Password: password})
	require.NoError(t, err)
	return resp.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body), rec.Body.String())
	return body
}

func TestHandleHealth(t *testing.T) {
	s := newTestAPI(t)
	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])
}

func TestHandleLogin(t *testing.T) {
	s := newTestAPI(t)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "admin-pass-123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp domain.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, domain.RoleAdmin, resp.Role)
	assert.NotEmpty(t, resp.AccessToken)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestAPI(t)

	rec := s.do(t, http.MethodGet, "/api/v1/jobs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/jobs", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestViewerCanReadButNotWrite(t *testing.T) {
	s := newTestAPI(t)
	viewer := s.token(t, "viewer")

	rec := s.do(t, http.MethodGet, "/api/v1/jobs", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	jobs := decodeBody(t, rec)["jobs"].([]any)
	assert.Len(t, jobs, 3)

	rec = s.do(t, http.MethodPost, "/api/v1/bcs", viewer, domain.SaleInput{BCNo: "BC-9", JobNo: "HM-101", Qty: 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/users", viewer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateSaleConflictThenConfirm(t *testing.T) {
	s := newTestAPI(t)
	admin := s.token(t, "admin")

	in := domain.SaleInput{BCNo: "BC-2001", JobNo: "HM-101", Date: domain.MustDate("2025-03-01"), Qty: 400, Rate: 5000}
	rec := s.do(t, http.MethodPost, "/api/v1/bcs", admin, in)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "exceeds overall job quantity")
	warning := body["warning"].(map[string]any)
	assert.Equal(t, "HM-101", warning["jobNo"])
	assert.EqualValues(t, 500, warning["overall"])
	assert.EqualValues(t, 600.25, warning["wouldBeSold"])

	in.ConfirmOverdraw = true
	rec = s.do(t, http.MethodPost, "/api/v1/bcs", admin, in)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bc := decodeBody(t, rec)["bc"].(map[string]any)
	assert.EqualValues(t, 2000000, bc["nett"])
	assert.Equal(t, domain.DefaultBuyer, bc["buyer"])

	rec = s.do(t, http.MethodGet, "/api/v1/jobs/HM-101/position", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pos := decodeBody(t, rec)
	assert.EqualValues(t, 600.25, pos["used"])
	assert.EqualValues(t, -100.25, pos["current"])
}

func TestCreateSaleValidation(t *testing.T) {
	s := newTestAPI(t)
	admin := s.token(t, "admin")

	rec := s.do(t, http.MethodPost, "/api/v1/bcs", admin, domain.SaleInput{JobNo: "HM-101", Qty: 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["fields"], "bcNo")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bcs", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+admin)
	res := httptest.NewRecorder()
	s.handler.ServeHTTP(res, req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestSaleLifecycle(t *testing.T) {
	s := newTestAPI(t)
	admin := s.token(t, "admin")

	rec := s.do(t, http.MethodPost, "/api/v1/bcs", admin, domain.SaleInput{BCNo: "BC-3001", JobNo: "HM-102", Qty: 10, Rate: 2200})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeBody(t, rec)["bc"].(map[string]any)["id"].(string)

	rec = s.do(t, http.MethodPut, "/api/v1/bcs/"+id, admin, domain.SaleInput{BCNo: "BC-3001", JobNo: "HM-102", Qty: 12, Rate: 2200})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 26400, decodeBody(t, rec)["bc"].(map[string]any)["nett"])

	rec = s.do(t, http.MethodGet, "/api/v1/bcs/"+id+"/pdf", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypePDF, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "BC-3001_BusinessConfirmation.pdf")

	rec = s.do(t, http.MethodDelete, "/api/v1/bcs/"+id, admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/bcs/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSalesFilters(t *testing.T) {
	s := newTestAPI(t)
	viewer := s.token(t, "viewer")

	rec := s.do(t, http.MethodGet, "/api/v1/bcs?jobNo=hm-1&from=2025-01-10", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bcs := decodeBody(t, rec)["bcs"].([]any)
	assert.Len(t, bcs, 2)

	rec = s.do(t, http.MethodGet, "/api/v1/bcs?from=yesterday", viewer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobLookupAndUpsert(t *testing.T) {
	s := newTestAPI(t)
	admin := s.token(t, "admin")

	rec := s.do(t, http.MethodGet, "/api/v1/jobs/NEW-1", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["exists"])

	rec = s.do(t, http.MethodPut, "/api/v1/jobs/NEW-1", admin, domain.Job{Overall: 75, Commodity: "Wheat"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/jobs/NEW-1", admin, nil)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["exists"])
	assert.Equal(t, "Wheat", body["job"].(map[string]any)["commodity"])

	rec = s.do(t, http.MethodGet, "/api/v1/ledger/jobs/NEW-1", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 75, decodeBody(t, rec)["currentQty"])
}

func TestLedgerViews(t *testing.T) {
	s := newTestAPI(t)
	viewer := s.token(t, "viewer")

	rec := s.do(t, http.MethodGet, "/api/v1/ledger", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeBody(t, rec)
	hm101 := snap["ledger"].(map[string]any)["HM-101"].(map[string]any)
	assert.EqualValues(t, 200.25, hm101["soldQty"])
	assert.EqualValues(t, 24750.5, hm101["totalExpense"])
	assert.Empty(t, snap["failures"])

	rec = s.do(t, http.MethodGet, "/api/v1/ledger/table?sort=overall&desc=true", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeBody(t, rec)["rows"].([]any)
	require.Len(t, rows, 3)
	assert.Equal(t, "HM-101", rows[0].(map[string]any)["jobNo"])

	rec = s.do(t, http.MethodGet, "/api/v1/ledger/cards?commodity=Maize", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cards := decodeBody(t, rec)
	assert.Len(t, cards["rows"].([]any), 1)
	assert.Len(t, cards["commodities"].([]any), 3)

	rec = s.do(t, http.MethodGet, "/api/v1/ledger/jobs/NOPE", viewer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLedgerExports(t *testing.T) {
	s := newTestAPI(t)
	viewer := s.token(t, "viewer")

	rec := s.do(t, http.MethodGet, "/api/v1/ledger/export.csv?view=all", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "all_jobs_summary.csv")
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Job No", records[0][0])
	assert.Equal(t, "HM-101", records[1][0])

	rec = s.do(t, http.MethodGet, "/api/v1/ledger/export.xlsx?view=cards&commodity=Maize", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "filtered_jobs_summary.xlsx")

	rec = s.do(t, http.MethodGet, "/api/v1/ledger/export.pdf", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = s.do(t, http.MethodGet, "/api/v1/jobs/HM-101/bcs.csv", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records, err = csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestExportArchive(t *testing.T) {
	s := newTestAPI(t)
	viewer := s.token(t, "viewer")

	rec := s.do(t, http.MethodGet, "/api/v1/bcs/export.csv?archive=1", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stored", rec.Header().Get("X-Archive-Status"))
	assert.Equal(t, "exports/2025/01/01/all_businesses.csv", rec.Header().Get("X-Archive-Key"))
	assert.Equal(t, []string{"all_businesses.csv"}, s.archive.names)

	s.archive.err = errors.New("bucket gone")
	rec = s.do(t, http.MethodGet, "/api/v1/reports/profit-loss.pdf?archive=true", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "failed", rec.Header().Get("X-Archive-Status"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestReportsAndDashboards(t *testing.T) {
	s := newTestAPI(t)
	viewer := s.token(t, "viewer")

	rec := s.do(t, http.MethodGet, "/api/v1/reports/profit-loss?from=2025-01-01&to=2025-01-31", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pl := decodeBody(t, rec)
	assert.Contains(t, pl, "profit")
	assert.Contains(t, pl, "nettTotal")

	rec = s.do(t, http.MethodGet, "/api/v1/reports/profit-loss?to=31/01/2025", viewer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/dashboards/sells?month=2025-01", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-01", decodeBody(t, rec)["month"])

	rec = s.do(t, http.MethodGet, "/api/v1/dashboards/purchases", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody(t, rec)["count"])
}

func TestExpenseEndpoints(t *testing.T) {
	s := newTestAPI(t)
	admin := s.token(t, "admin")

	payload := map[string]any{
		"jobNo":      "HM-102",
		"overallQty": 250,
		"bcData":     []map[string]any{{"bcNo": "PB-900", "qty": 250, "rate": 2000}},
		"expenseData": []map[string]any{
			{"head": "Clearing Cost", "amount": 1000, "date": "2025-01-21"},
			{"head": "Others", "amount": 250, "note": "Demurrage"},
		},
	}
	rec := s.do(t, http.MethodPost, "/api/v1/expenses", admin, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeBody(t, rec)["expense"].(map[string]any)["id"].(string)

	rec = s.do(t, http.MethodGet, "/api/v1/expenses/"+id+"/report", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody(t, rec)["stats"].(map[string]any)
	assert.EqualValues(t, 1250, stats["totalExpense"])
	assert.EqualValues(t, 5, stats["avgExpense"])

	rec = s.do(t, http.MethodGet, "/api/v1/expenses/"+id+"/pdf", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/expenses?jobNo=HM-102", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["expenses"].([]any), 1)

	rec = s.do(t, http.MethodDelete, "/api/v1/expenses/"+id, admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPurchaseEndpoints(t *testing.T) {
	s := newTestAPI(t)
	admin := s.token(t, "admin")

	rec := s.do(t, http.MethodPost, "/api/v1/purchases", admin, map[string]any{
		"businessNo": "PB-777", "date": "2025-02-10", "commodity": "Maize",
		"buyingQty": 100, "priceIncoterms": 200, "conversionRate": 80,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decodeBody(t, rec)["purchase"].(map[string]any)
	assert.EqualValues(t, 20000, p["amountUSD"])
	assert.EqualValues(t, 1600000, p["amountINR"])

	rec = s.do(t, http.MethodGet, "/api/v1/purchases?businessNo=pb-7", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["purchases"].([]any), 1)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/purchases/%s/pdf", p["id"]), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestUsersEndpoint(t *testing.T) {
	s := newTestAPI(t)
	admin := s.token(t, "admin")

	rec := s.do(t, http.MethodPost, "/api/v1/users", admin, createUserRequest{Username: "analyst", Password: "analyst-pass"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["users"].([]any), 3)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "analyst", Password: "analyst-pass"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("qty", "gte=0"), http.StatusBadRequest},
		{"invalid record", fmt.Errorf("create: %w", store.ErrInvalidRecord), http.StatusBadRequest},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"conflict", &domain.ConflictWarning{JobNo: "HM-1"}, http.StatusConflict},
		{"busy", lock.ErrBusy, http.StatusLocked},
		{"remote 4xx", &remote.RemoteError{Status: http.StatusUnprocessableEntity, Message: "bad"}, http.StatusUnprocessableEntity},
		{"remote 404", &remote.RemoteError{Status: http.StatusNotFound, Message: "BC not found"}, http.StatusNotFound},
		{"remote 5xx", &remote.RemoteError{Status: http.StatusServiceUnavailable, Message: "down"}, http.StatusBadGateway},
		{"network", &remote.NetworkError{Op: "GET", URL: "http://x", Err: errors.New("refused")}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}

func TestWriteServiceErrorMessages(t *testing.T) {
	api := New(Options{Logger: zerolog.Nop()})

	rec := httptest.NewRecorder()
	api.writeServiceError(rec, &remote.RemoteError{Status: http.StatusBadGateway, Message: "Sells DB offline"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Sells DB offline", decodeBody(t, rec)["error"])

	rec = httptest.NewRecorder()
	api.writeServiceError(rec, errors.New("pq: relation does not exist"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeBody(t, rec)["error"])

	rec = httptest.NewRecorder()
	api.writeServiceError(rec, &remote.NetworkError{Op: "GET", URL: "http://10.0.0.5/bcs", Err: errors.New("refused")})
	assert.Equal(t, "upstream backend unavailable", decodeBody(t, rec)["error"])
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "HM_101_bcs.csv", safeFileName("HM/101_bcs.csv"))
	assert.Equal(t, "export", safeFileName("../"))
}

func TestPathParamDecodesSlash(t *testing.T) {
	s := newTestAPI(t)
	admin := s.token(t, "admin")

	rec := s.do(t, http.MethodPut, "/api/v1/jobs/HM%2F301", admin, domain.Job{Overall: 10})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "HM/301", decodeBody(t, rec)["job"].(map[string]any)["jobNo"])
}
