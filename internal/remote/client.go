package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/ledger"
	"tradeledger/backend/internal/store"
)

const maxResponseBytes = 16 << 20

// Client implements store.Repository against the sells backend (jobs and
// BCs) and the books backend (expenses and purchases).
type Client struct {
	sellsURL   string
	booksURL   string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(sellsURL, booksURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		sellsURL:   strings.TrimRight(sellsURL, "/"),
		booksURL:   strings.TrimRight(booksURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "remote_client").Logger(),
	}
}

var _ store.Repository = (*Client)(nil)

func (c *Client) ListJobs(ctx context.Context) ([]domain.Job, error) {
	body, err := c.do(ctx, http.MethodGet, c.sellsURL+"/api/jobs", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[domain.Job](body, jobShape)
}

func (c *Client) GetJob(ctx context.Context, jobNo string) (*domain.Job, error) {
	body, err := c.do(ctx, http.MethodGet, c.sellsURL+"/api/jobs/"+url.PathEscape(strings.TrimSpace(jobNo)), nil)
	if err != nil {
		return nil, err
	}

	var lookup struct {
		Exists bool            `json:"exists"`
		Job    json.RawMessage `json:"job"`
	}
	if err := json.Unmarshal(body, &lookup); err != nil {
		return nil, &domain.ValidationError{Message: "job lookup: " + err.Error()}
	}
	if !lookup.Exists || len(lookup.Job) == 0 || string(lookup.Job) == "null" {
		return nil, store.ErrNotFound
	}
	job, err := decodeOne[domain.Job](lookup.Job, shape{numbers: jobShape.numbers, strings: jobShape.strings})
	if err != nil {
		return nil, err
	}
	if job.JobNo == "" {
		job.JobNo = strings.TrimSpace(jobNo)
	}
	return &job, nil
}

func (c *Client) UpsertJob(ctx context.Context, job domain.Job) (*domain.Job, error) {
	if _, err := c.do(ctx, http.MethodPost, c.sellsURL+"/api/jobs", job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) DeleteJob(ctx context.Context, jobNo string) error {
	_, err := c.do(ctx, http.MethodDelete, c.sellsURL+"/api/jobs/"+url.PathEscape(strings.TrimSpace(jobNo)), nil)
	return err
}

// ListSales fetches every BC; the sells backend has no server-side filter.
func (c *Client) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.SaleConfirmation, error) {
	body, err := c.do(ctx, http.MethodGet, c.sellsURL+"/api/bcs", nil)
	if err != nil {
		return nil, err
	}
	sales, err := decodeList[domain.SaleConfirmation](body, saleShape)
	if err != nil {
		return nil, err
	}
	return ledger.FilterSales(sales, filter), nil
}

func (c *Client) GetSale(ctx context.Context, id string) (*domain.SaleConfirmation, error) {
	sales, err := c.ListSales(ctx, domain.SaleFilter{})
	if err != nil {
		return nil, err
	}
	for _, s := range sales {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, store.ErrNotFound
}

func (c *Client) CreateSale(ctx context.Context, sale domain.SaleConfirmation) (*domain.SaleConfirmation, error) {
	body, err := c.do(ctx, http.MethodPost, c.sellsURL+"/api/bcs", sale)
	if err != nil {
		return nil, err
	}
	return echoed(body, saleShape, sale)
}

func (c *Client) UpdateSale(ctx context.Context, sale domain.SaleConfirmation) (*domain.SaleConfirmation, error) {
	body, err := c.do(ctx, http.MethodPut, c.sellsURL+"/api/bcs/"+url.PathEscape(sale.ID), sale)
	if err != nil {
		return nil, err
	}
	return echoed(body, saleShape, sale)
}

func (c *Client) DeleteSale(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.sellsURL+"/api/bcs/"+url.PathEscape(id), nil)
	return err
}

func (c *Client) ListExpenseGroups(ctx context.Context, jobNo string) ([]domain.ExpenseGroup, error) {
	endpoint := c.booksURL + "/api/expenses"
	if jobNo = strings.TrimSpace(jobNo); jobNo != "" {
		endpoint += "?" + url.Values{"jobNo": {jobNo}}.Encode()
	}
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	groups, err := decodeList[domain.ExpenseGroup](body, expenseShape)
	if err != nil {
		return nil, err
	}
	if jobNo == "" {
		return groups, nil
	}
	filtered := groups[:0]
	for _, g := range groups {
		if g.JobNo == jobNo {
			filtered = append(filtered, g)
		}
	}
	return filtered, nil
}

func (c *Client) GetExpenseGroup(ctx context.Context, id string) (*domain.ExpenseGroup, error) {
	groups, err := c.ListExpenseGroups(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if g.ID == id {
			return &g, nil
		}
	}
	return nil, store.ErrNotFound
}

func (c *Client) CreateExpenseGroup(ctx context.Context, group domain.ExpenseGroup) (*domain.ExpenseGroup, error) {
	body, err := c.do(ctx, http.MethodPost, c.booksURL+"/api/expenses", group)
	if err != nil {
		return nil, err
	}
	return echoed(body, expenseShape, group)
}

func (c *Client) UpdateExpenseGroup(ctx context.Context, group domain.ExpenseGroup) (*domain.ExpenseGroup, error) {
	body, err := c.do(ctx, http.MethodPut, c.booksURL+"/api/expenses/"+url.PathEscape(group.ID), group)
	if err != nil {
		return nil, err
	}
	return echoed(body, expenseShape, group)
}

func (c *Client) DeleteExpenseGroup(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.booksURL+"/api/expenses/"+url.PathEscape(id), nil)
	return err
}

func (c *Client) ListPurchases(ctx context.Context, filter domain.PurchaseFilter) ([]domain.Purchase, error) {
	params := url.Values{}
	if v := strings.TrimSpace(filter.BusinessNo); v != "" {
		params.Set("businessNo", v)
	}
	if !filter.From.IsZero() {
		params.Set("from", filter.From.String())
	}
	if !filter.To.IsZero() {
		params.Set("to", filter.To.String())
	}
	endpoint := c.booksURL + "/api/purchases"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	purchases, err := decodeList[domain.Purchase](body, purchaseShape)
	if err != nil {
		return nil, err
	}
	// the books backend may ignore the query, so filter again locally
	return ledger.FilterPurchases(purchases, filter), nil
}

func (c *Client) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	purchases, err := c.ListPurchases(ctx, domain.PurchaseFilter{})
	if err != nil {
		return nil, err
	}
	for _, p := range purchases {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (c *Client) CreatePurchase(ctx context.Context, p domain.Purchase) (*domain.Purchase, error) {
	body, err := c.do(ctx, http.MethodPost, c.booksURL+"/api/purchases", p)
	if err != nil {
		return nil, err
	}
	return echoed(body, purchaseShape, p)
}

func (c *Client) UpdatePurchase(ctx context.Context, p domain.Purchase) (*domain.Purchase, error) {
	body, err := c.do(ctx, http.MethodPut, c.booksURL+"/api/purchases/"+url.PathEscape(p.ID), p)
	if err != nil {
		return nil, err
	}
	return echoed(body, purchaseShape, p)
}

func (c *Client) DeletePurchase(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.booksURL+"/api/purchases/"+url.PathEscape(id), nil)
	return err
}

// echoed decodes the record a backend sends back after a write. Backends that
// answer with a bare acknowledgement get the submitted record instead.
func echoed[T any](body []byte, s shape, sent T) (*T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return &sent, nil
	}
	got, err := decodeOne[T](trimmed, s)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return &sent, nil
		}
		return nil, err
	}
	return &got, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", endpoint, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, &NetworkError{Op: method, URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Op: method, URL: endpoint, Err: err}
	}

	c.log.Debug().
		Str("method", method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(startTime)).
		Msg("remote call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &payload)
		return nil, newRemoteError(resp.StatusCode, payload.Error)
	}
	return body, nil
}
