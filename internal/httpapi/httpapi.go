package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"tradeledger/backend/internal/archive"
	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/export"
	"tradeledger/backend/internal/lock"
	"tradeledger/backend/internal/remote"
	"tradeledger/backend/internal/service"
	"tradeledger/backend/internal/store"
)

const maxBodyBytes = 1 << 20

type Options struct {
	Service        *service.Service
	Auth           *AuthManager
	Archive        archive.Archiver
	Letterhead     export.Letterhead
	AllowedOrigins []string
	Logger         zerolog.Logger
}

type API struct {
	service        *service.Service
	auth           *AuthManager
	archive        archive.Archiver
	letterhead     export.Letterhead
	allowedOrigins []string
	loginLimiter   *attemptLimiter
	log            zerolog.Logger
}

func New(opts Options) *API {
	if opts.Archive == nil {
		opts.Archive = archive.NoopArchiver{}
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:5173"}
	}
	return &API{
		service:        opts.Service,
		auth:           opts.Auth,
		archive:        opts.Archive,
		letterhead:     opts.Letterhead,
		allowedOrigins: opts.AllowedOrigins,
		loginLimiter:   newAttemptLimiter(5, time.Minute),
		log:            opts.Logger.With().Str("component", "http").Logger(),
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(limitBody)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Archive-Key", "X-Archive-Status"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireRole(domain.RoleAdmin, domain.RoleViewer))

			r.Get("/jobs", a.handleListJobs)
			r.Get("/jobs/{jobNo}", a.handleGetJob)
			r.Get("/jobs/{jobNo}/position", a.handleJobPosition)
			r.Get("/jobs/{jobNo}/bcs.csv", a.handleJobSalesCSV)

			r.Get("/bcs", a.handleListSales)
			r.Get("/bcs/export.csv", a.handleSalesCSV)
			r.Get("/bcs/nett-drift", a.handleNettDrift)
			r.Get("/bcs/{id}", a.handleGetSale)
			r.Get("/bcs/{id}/pdf", a.handleSalePDF)

			r.Get("/expenses", a.handleListExpenses)
			r.Get("/expenses/{id}", a.handleGetExpense)
			r.Get("/expenses/{id}/report", a.handleExpenseReport)
			r.Get("/expenses/{id}/pdf", a.handleExpensePDF)

			r.Get("/purchases", a.handleListPurchases)
			r.Get("/purchases/{id}", a.handleGetPurchase)
			r.Get("/purchases/{id}/pdf", a.handlePurchasePDF)

			r.Get("/ledger", a.handleLedger)
			r.Get("/ledger/cards", a.handleLedgerCards)
			r.Get("/ledger/table", a.handleLedgerTable)
			r.Get("/ledger/commodities", a.handleLedgerCommodities)
			r.Get("/ledger/jobs/{jobNo}", a.handleLedgerJob)
			r.Get("/ledger/jobs/{jobNo}/pdf", a.handleLedgerJobPDF)
			r.Get("/ledger/export.csv", a.handleLedgerExport(formatCSV))
			r.Get("/ledger/export.xlsx", a.handleLedgerExport(formatXLSX))
			r.Get("/ledger/export.pdf", a.handleLedgerExport(formatPDF))

			r.Get("/reports/profit-loss", a.handleProfitLoss)
			r.Get("/reports/profit-loss.pdf", a.handleProfitLossPDF)
			r.Get("/dashboards/sells", a.handleSellsDashboard)
			r.Get("/dashboards/purchases", a.handlePurchaseDashboard)

			r.Get("/status/last-updated", a.handleLastUpdated)
			r.Get("/stream", a.handleStream)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Post("/jobs", a.handleUpsertJob)
				r.Put("/jobs/{jobNo}", a.handleUpsertJob)
				r.Delete("/jobs/{jobNo}", a.handleDeleteJob)

				r.Post("/bcs", a.handleCreateSale)
				r.Put("/bcs/{id}", a.handleUpdateSale)
				r.Delete("/bcs/{id}", a.handleDeleteSale)

				r.Post("/expenses", a.handleCreateExpense)
				r.Put("/expenses/{id}", a.handleUpdateExpense)
				r.Delete("/expenses/{id}", a.handleDeleteExpense)

				r.Post("/purchases", a.handleCreatePurchase)
				r.Put("/purchases/{id}", a.handleUpdatePurchase)
				r.Delete("/purchases/{id}", a.handleDeletePurchase)

				r.Get("/users", a.handleListUsers)
				r.Post("/users", a.handleCreateUser)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMethodNotAllowed(w)
	})

	return r
}

func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := service.ActorFromContext(r.Context())
		if !ok || actor.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		event := a.log.Info()
		if ww.Status() >= http.StatusInternalServerError {
			event = a.log.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"users": a.auth.ListUsers(r.Context())})
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	user, err := a.auth.CreateUser(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

// statusFor maps service, store and upstream errors onto HTTP statuses.
func statusFor(err error) int {
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictWarning
		remoteErr  *remote.RemoteError
		netErr     *remote.NetworkError
		maxBytes   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &validation), errors.Is(err, store.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &remoteErr):
		if remoteErr.Status >= 400 && remoteErr.Status < 500 {
			return remoteErr.Status
		}
		return http.StatusBadGateway
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lock.ErrBusy):
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)

	var conflict *domain.ConflictWarning
	if errors.As(err, &conflict) {
		writeJSON(w, status, map[string]any{"error": conflict.Error(), "warning": conflict})
		return
	}

	var remoteErr *remote.RemoteError
	if errors.As(err, &remoteErr) {
		if status >= 500 {
			a.log.Warn().Int("upstream_status", remoteErr.Status).Str("error", remoteErr.Message).Msg("upstream backend error")
		}
		writeJSON(w, status, map[string]any{"error": remoteErr.Message})
		return
	}

	var netErr *remote.NetworkError
	if errors.As(err, &netErr) {
		a.log.Warn().Err(err).Msg("upstream backend unreachable")
		writeJSON(w, status, map[string]any{"error": "upstream backend unavailable"})
		return
	}

	var validation *domain.ValidationError
	if errors.As(err, &validation) && len(validation.Fields) > 0 {
		writeJSON(w, status, map[string]any{"error": validation.Error(), "fields": validation.Fields})
		return
	}

	if status >= 500 {
		a.log.Error().Err(err).Int("status", status).Msg("internal error")
	}
	writeError(w, status, err)
}

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", maxBytes.Limit))
		return
	}
	writeError(w, http.StatusBadRequest, err)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError hides the message of 5xx errors from clients.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// pathParam returns a URL parameter with percent-escapes decoded, so job
// numbers containing "/" can travel as %2F.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return strings.TrimSpace(decoded)
	}
	return strings.TrimSpace(raw)
}

func queryDate(r *http.Request, name string) (domain.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return domain.Date{}, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return domain.Date{}, domain.NewValidationError(name, "date")
	}
	return d, nil
}

func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(name)))
	return err == nil && v
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func safeFileName(name string) string {
	name = unsafeFileChars.ReplaceAllString(name, "_")
	if strings.Trim(name, "_.") == "" {
		return "export"
	}
	return name
}

// sendFile renders a download and, with ?archive=1, stores a copy through
// the archiver. The response is served even when archiving fails.
func (a *API) sendFile(w http.ResponseWriter, r *http.Request, name, contentType string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		a.writeServiceError(w, err)
		return
	}

	name = safeFileName(name)
	if queryBool(r, "archive") {
		switch {
		case !a.archive.Enabled():
			w.Header().Set("X-Archive-Status", "disabled")
		default:
			key, err := a.archive.Put(r.Context(), name, contentType, buf.Bytes())
			if err != nil {
				a.log.Warn().Err(err).Str("file", name).Msg("export not archived")
				w.Header().Set("X-Archive-Status", "failed")
			} else {
				w.Header().Set("X-Archive-Status", "stored")
				w.Header().Set("X-Archive-Key", key)
			}
		}
	}

	disposition := "attachment"
	if contentType == export.ContentTypePDF {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
