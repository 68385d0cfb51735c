package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/store"
	"tradeledger/backend/internal/xid"
)

var _ store.Repository = (*Store)(nil)

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_no     TEXT PRIMARY KEY,
	overall    DOUBLE PRECISION NOT NULL DEFAULT 0,
	commodity  TEXT NOT NULL DEFAULT '',
	location   TEXT NOT NULL DEFAULT '',
	origin     TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sale_confirmations (
	id           TEXT PRIMARY KEY,
	bc_no        TEXT NOT NULL UNIQUE,
	date         DATE,
	job_no       TEXT NOT NULL,
	seller       TEXT NOT NULL DEFAULT '',
	buyer        TEXT NOT NULL DEFAULT '',
	commodity    TEXT NOT NULL DEFAULT '',
	origin       TEXT NOT NULL DEFAULT '',
	qty          DOUBLE PRECISION NOT NULL DEFAULT 0,
	rate         DOUBLE PRECISION NOT NULL DEFAULT 0,
	nett         DOUBLE PRECISION NOT NULL DEFAULT 0,
	delivery     DATE,
	delivery_loc TEXT NOT NULL DEFAULT '',
	quality      TEXT NOT NULL DEFAULT '',
	packaging    TEXT NOT NULL DEFAULT '',
	payment      TEXT NOT NULL DEFAULT '',
	brokerage    TEXT NOT NULL DEFAULT '',
	broker       TEXT NOT NULL DEFAULT '',
	kyc          TEXT NOT NULL DEFAULT '',
	terms        TEXT NOT NULL DEFAULT '',
	notes        TEXT NOT NULL DEFAULT '',
	souda        TEXT NOT NULL DEFAULT '',
	bank         TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS sale_confirmations_job_no_idx ON sale_confirmations (job_no);

CREATE TABLE IF NOT EXISTS expense_groups (
	id          TEXT PRIMARY KEY,
	job_no      TEXT NOT NULL,
	overall_qty DOUBLE PRECISION NOT NULL DEFAULT 0,
	cost_lines  JSONB NOT NULL DEFAULT '[]',
	entries     JSONB NOT NULL DEFAULT '[]',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS expense_groups_job_no_idx ON expense_groups (job_no);

CREATE TABLE IF NOT EXISTS purchases (
	id                 TEXT PRIMARY KEY,
	business_no        TEXT NOT NULL,
	date               DATE,
	seller             TEXT NOT NULL DEFAULT '',
	buyer              TEXT NOT NULL DEFAULT '',
	kyc                TEXT NOT NULL DEFAULT '',
	broker             TEXT NOT NULL DEFAULT '',
	commodity          TEXT NOT NULL DEFAULT '',
	country            TEXT NOT NULL DEFAULT '',
	quality_spec       TEXT NOT NULL DEFAULT '',
	packing            TEXT NOT NULL DEFAULT '',
	shipment_period    TEXT NOT NULL DEFAULT '',
	brokerage          TEXT NOT NULL DEFAULT '',
	vessel             TEXT NOT NULL DEFAULT '',
	loading_conditions TEXT NOT NULL DEFAULT '',
	buying_qty         DOUBLE PRECISION NOT NULL DEFAULT 0,
	price_incoterms    DOUBLE PRECISION NOT NULL DEFAULT 0,
	incoterms          TEXT NOT NULL DEFAULT '',
	conversion_rate    DOUBLE PRECISION NOT NULL DEFAULT 0,
	amount_usd         DOUBLE PRECISION NOT NULL DEFAULT 0,
	amount_inr         DOUBLE PRECISION NOT NULL DEFAULT 0,
	payment_terms      TEXT NOT NULL DEFAULT '',
	weight_quality     TEXT NOT NULL DEFAULT '',
	gafta              TEXT NOT NULL DEFAULT '',
	fumigation         TEXT NOT NULL DEFAULT '',
	documents          TEXT NOT NULL DEFAULT '',
	free_days          TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS app_users (
	username   TEXT PRIMARY KEY,
	password   TEXT NOT NULL,
	role       TEXT NOT NULL,
	active     BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) ListJobs(ctx context.Context) ([]domain.Job, error) {
	jobs := make([]domain.Job, 0, 64)
	err := s.db.SelectContext(ctx, &jobs, `
		SELECT job_no, overall, commodity, location, origin
		FROM jobs
		ORDER BY job_no
	`)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *Store) GetJob(ctx context.Context, jobNo string) (*domain.Job, error) {
	var job domain.Job
	err := s.db.GetContext(ctx, &job, `
		SELECT job_no, overall, commodity, location, origin
		FROM jobs
		WHERE job_no = $1
	`, strings.TrimSpace(jobNo))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (s *Store) UpsertJob(ctx context.Context, job domain.Job) (*domain.Job, error) {
	job.JobNo = strings.TrimSpace(job.JobNo)
	if job.JobNo == "" || job.Overall < 0 {
		return nil, store.ErrInvalidRecord
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO jobs (job_no, overall, commodity, location, origin, updated_at)
		VALUES (:job_no, :overall, :commodity, :location, :origin, now())
		ON CONFLICT (job_no) DO UPDATE SET
			overall = EXCLUDED.overall,
			commodity = EXCLUDED.commodity,
			location = EXCLUDED.location,
			origin = EXCLUDED.origin,
			updated_at = now()
	`, job)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *Store) DeleteJob(ctx context.Context, jobNo string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE job_no = $1`, strings.TrimSpace(jobNo))
	if err != nil {
		return err
	}
	return expectAffected(res)
}

const saleColumns = `id, bc_no, date, job_no, seller, buyer, commodity, origin, qty, rate, nett,
	delivery, delivery_loc, quality, packaging, payment, brokerage, broker, kyc, terms,
	notes, souda, bank, created_at`

func (s *Store) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.SaleConfirmation, error) {
	var where whereBuilder
	if !filter.From.IsZero() {
		where.add("date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		where.add("date <= ?", filter.To)
	}
	if q := strings.TrimSpace(filter.JobNo); q != "" {
		where.add("job_no ILIKE ?", likePattern(q))
	}
	if q := strings.TrimSpace(filter.BCNo); q != "" {
		where.add("bc_no ILIKE ?", likePattern(q))
	}

	query := `SELECT ` + saleColumns + ` FROM sale_confirmations` + where.clause() +
		` ORDER BY date DESC NULLS LAST, created_at ASC, id ASC`

	sales := make([]domain.SaleConfirmation, 0, 128)
	if err := s.db.SelectContext(ctx, &sales, s.db.Rebind(query), where.args...); err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].CreatedAt = sales[i].CreatedAt.UTC()
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.SaleConfirmation, error) {
	var sale domain.SaleConfirmation
	err := s.db.GetContext(ctx, &sale, `SELECT `+saleColumns+` FROM sale_confirmations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	return &sale, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.SaleConfirmation) (*domain.SaleConfirmation, error) {
	if strings.TrimSpace(sale.BCNo) == "" || strings.TrimSpace(sale.JobNo) == "" {
		return nil, store.ErrInvalidRecord
	}
	if sale.ID == "" {
		sale.ID = xid.New("bc")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sale_confirmations (`+saleColumns+`)
		VALUES (:id, :bc_no, :date, :job_no, :seller, :buyer, :commodity, :origin, :qty, :rate, :nett,
			:delivery, :delivery_loc, :quality, :packaging, :payment, :brokerage, :broker, :kyc, :terms,
			:notes, :souda, :bank, :created_at)
	`, sale)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRecord
		}
		return nil, err
	}
	return &sale, nil
}

func (s *Store) UpdateSale(ctx context.Context, sale domain.SaleConfirmation) (*domain.SaleConfirmation, error) {
	if strings.TrimSpace(sale.BCNo) == "" || strings.TrimSpace(sale.JobNo) == "" {
		return nil, store.ErrInvalidRecord
	}

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE sale_confirmations SET
			bc_no = :bc_no, date = :date, job_no = :job_no, seller = :seller, buyer = :buyer,
			commodity = :commodity, origin = :origin, qty = :qty, rate = :rate, nett = :nett,
			delivery = :delivery, delivery_loc = :delivery_loc, quality = :quality,
			packaging = :packaging, payment = :payment, brokerage = :brokerage, broker = :broker,
			kyc = :kyc, terms = :terms, notes = :notes, souda = :souda, bank = :bank
		WHERE id = :id
	`, sale)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRecord
		}
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetSale(ctx, sale.ID)
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sale_confirmations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// expenseRow is the table shape of an expense group; the line items live in
// JSONB columns.
type expenseRow struct {
	ID         string    `db:"id"`
	JobNo      string    `db:"job_no"`
	OverallQty float64   `db:"overall_qty"`
	CostLines  []byte    `db:"cost_lines"`
	Entries    []byte    `db:"entries"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r expenseRow) group() (domain.ExpenseGroup, error) {
	g := domain.ExpenseGroup{
		ID:         r.ID,
		JobNo:      r.JobNo,
		OverallQty: r.OverallQty,
		CreatedAt:  r.CreatedAt.UTC(),
	}
	if len(r.CostLines) > 0 {
		if err := json.Unmarshal(r.CostLines, &g.Confirmations); err != nil {
			return g, fmt.Errorf("decode cost lines of %s: %w", r.ID, err)
		}
	}
	if len(r.Entries) > 0 {
		if err := json.Unmarshal(r.Entries, &g.Entries); err != nil {
			return g, fmt.Errorf("decode entries of %s: %w", r.ID, err)
		}
	}
	return g, nil
}

func newExpenseRow(g domain.ExpenseGroup) (expenseRow, error) {
	lines := g.Confirmations
	if lines == nil {
		lines = []domain.CostLine{}
	}
	entries := g.Entries
	if entries == nil {
		entries = []domain.ExpenseEntry{}
	}
	costJSON, err := json.Marshal(lines)
	if err != nil {
		return expenseRow{}, err
	}
	entriesJSON, err := json.Marshal(entries)
	if err != nil {
		return expenseRow{}, err
	}
	return expenseRow{
		ID:         g.ID,
		JobNo:      g.JobNo,
		OverallQty: g.OverallQty,
		CostLines:  costJSON,
		Entries:    entriesJSON,
		CreatedAt:  g.CreatedAt,
	}, nil
}

func (s *Store) ListExpenseGroups(ctx context.Context, jobNo string) ([]domain.ExpenseGroup, error) {
	var where whereBuilder
	if jobNo = strings.TrimSpace(jobNo); jobNo != "" {
		where.add("job_no = ?", jobNo)
	}
	query := `SELECT id, job_no, overall_qty, cost_lines, entries, created_at FROM expense_groups` +
		where.clause() + ` ORDER BY created_at DESC, id ASC`

	var rows []expenseRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), where.args...); err != nil {
		return nil, err
	}
	groups := make([]domain.ExpenseGroup, 0, len(rows))
	for _, row := range rows {
		g, err := row.group()
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (s *Store) GetExpenseGroup(ctx context.Context, id string) (*domain.ExpenseGroup, error) {
	var row expenseRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, job_no, overall_qty, cost_lines, entries, created_at
		FROM expense_groups
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	g, err := row.group()
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) CreateExpenseGroup(ctx context.Context, group domain.ExpenseGroup) (*domain.ExpenseGroup, error) {
	group.JobNo = strings.TrimSpace(group.JobNo)
	if group.JobNo == "" {
		return nil, store.ErrInvalidRecord
	}
	if group.ID == "" {
		group.ID = xid.New("exp")
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	row, err := newExpenseRow(group)
	if err != nil {
		return nil, err
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO expense_groups (id, job_no, overall_qty, cost_lines, entries, created_at)
		VALUES (:id, :job_no, :overall_qty, :cost_lines, :entries, :created_at)
	`, row)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (s *Store) UpdateExpenseGroup(ctx context.Context, group domain.ExpenseGroup) (*domain.ExpenseGroup, error) {
	group.JobNo = strings.TrimSpace(group.JobNo)
	if group.JobNo == "" {
		return nil, store.ErrInvalidRecord
	}

	row, err := newExpenseRow(group)
	if err != nil {
		return nil, err
	}
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE expense_groups SET
			job_no = :job_no, overall_qty = :overall_qty, cost_lines = :cost_lines, entries = :entries
		WHERE id = :id
	`, row)
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetExpenseGroup(ctx, group.ID)
}

func (s *Store) DeleteExpenseGroup(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expense_groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

const purchaseColumns = `id, business_no, date, seller, buyer, kyc, broker, commodity, country,
	quality_spec, packing, shipment_period, brokerage, vessel, loading_conditions, buying_qty,
	price_incoterms, incoterms, conversion_rate, amount_usd, amount_inr, payment_terms,
	weight_quality, gafta, fumigation, documents, free_days, created_at`

func (s *Store) ListPurchases(ctx context.Context, filter domain.PurchaseFilter) ([]domain.Purchase, error) {
	var where whereBuilder
	if q := strings.TrimSpace(filter.BusinessNo); q != "" {
		where.add("business_no ILIKE ?", likePattern(q))
	}
	if !filter.From.IsZero() {
		where.add("date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		where.add("date <= ?", filter.To)
	}
	query := `SELECT ` + purchaseColumns + ` FROM purchases` + where.clause() +
		` ORDER BY COALESCE(date, created_at::date) DESC, created_at ASC, id ASC`

	purchases := make([]domain.Purchase, 0, 64)
	if err := s.db.SelectContext(ctx, &purchases, s.db.Rebind(query), where.args...); err != nil {
		return nil, err
	}
	for i := range purchases {
		purchases[i].CreatedAt = purchases[i].CreatedAt.UTC()
	}
	return purchases, nil
}

func (s *Store) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	var p domain.Purchase
	err := s.db.GetContext(ctx, &p, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) CreatePurchase(ctx context.Context, p domain.Purchase) (*domain.Purchase, error) {
	if strings.TrimSpace(p.BusinessNo) == "" {
		return nil, store.ErrInvalidRecord
	}
	if p.ID == "" {
		p.ID = xid.New("pur")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO purchases (`+purchaseColumns+`)
		VALUES (:id, :business_no, :date, :seller, :buyer, :kyc, :broker, :commodity, :country,
			:quality_spec, :packing, :shipment_period, :brokerage, :vessel, :loading_conditions,
			:buying_qty, :price_incoterms, :incoterms, :conversion_rate, :amount_usd, :amount_inr,
			:payment_terms, :weight_quality, :gafta, :fumigation, :documents, :free_days, :created_at)
	`, p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdatePurchase(ctx context.Context, p domain.Purchase) (*domain.Purchase, error) {
	if strings.TrimSpace(p.BusinessNo) == "" {
		return nil, store.ErrInvalidRecord
	}

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE purchases SET
			business_no = :business_no, date = :date, seller = :seller, buyer = :buyer, kyc = :kyc,
			broker = :broker, commodity = :commodity, country = :country, quality_spec = :quality_spec,
			packing = :packing, shipment_period = :shipment_period, brokerage = :brokerage,
			vessel = :vessel, loading_conditions = :loading_conditions, buying_qty = :buying_qty,
			price_incoterms = :price_incoterms, incoterms = :incoterms,
			conversion_rate = :conversion_rate, amount_usd = :amount_usd, amount_inr = :amount_inr,
			payment_terms = :payment_terms, weight_quality = :weight_quality, gafta = :gafta,
			fumigation = :fumigation, documents = :documents, free_days = :free_days
		WHERE id = :id
	`, p)
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetPurchase(ctx, p.ID)
}

func (s *Store) DeletePurchase(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM purchases WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRecord
	}
	if user.Role == "" {
		user.Role = domain.RoleViewer
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES (:username, :password, :role, :active, :created_at, now())
	`, user)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidRecord
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	users := make([]domain.UserAccount, 0, 16)
	err := s.db.SelectContext(ctx, &users, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].CreatedAt = users[i].CreatedAt.UTC()
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRecord
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// whereBuilder collects AND-ed conditions written with '?' placeholders;
// callers Rebind the final query for pgx.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, arg)
}

func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
