package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/ledger"
	"tradeledger/backend/internal/store"
	"tradeledger/backend/internal/xid"
)

var _ store.Repository = (*Store)(nil)

type Store struct {
	mu              sync.RWMutex
	jobsByNo        map[string]domain.Job
	salesByID       map[string]domain.SaleConfirmation
	groupsByID      map[string]domain.ExpenseGroup
	purchasesByID   map[string]domain.Purchase
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_VIEWER_PASSWORD.
// If unset, dev defaults are used and a warning is logged.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	viewerPwd := envOr("SEED_VIEWER_PASSWORD", "viewer123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_VIEWER_PASSWORD") == "" {
		log.Warn().Str("component", "memory-store").
			Msg("using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_VIEWER_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"viewer", viewerPwd, domain.RoleViewer},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("failed to hash seed password")
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// New returns an empty store with no users.
func New() *Store {
	return &Store{
		jobsByNo:        make(map[string]domain.Job),
		salesByID:       make(map[string]domain.SaleConfirmation),
		groupsByID:      make(map[string]domain.ExpenseGroup),
		purchasesByID:   make(map[string]domain.Purchase),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	base := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	for _, job := range []domain.Job{
		{JobNo: "HM-101", Overall: 500, Commodity: "Canadian Yellow Peas", Location: "Kolkata", Origin: "Canada"},
		{JobNo: "HM-102", Overall: 250, Commodity: "Maize", Location: "Haldia", Origin: "India"},
		{JobNo: "RS-201", Overall: 120.5, Commodity: "Australian Chickpeas", Location: "Kolkata", Origin: "Australia"},
	} {
		s.jobsByNo[job.JobNo] = job
	}

	for i, seed := range []struct {
		bcNo, jobNo, seller, day string
		qty, rate                float64
	}{
		{"BC-1001", "HM-101", "Hemraj Industries Pvt. Ltd.", "2025-01-06", 120, 5450},
		{"BC-1002", "HM-101", "Hemraj Industries Pvt. Ltd.", "2025-01-14", 80.25, 5475.5},
		{"BC-1003", "HM-102", "Radheshyam Industries Pvt. Ltd.", "2025-01-20", 60, 2210},
		{"BC-1004", "RS-201", "Radheshyam Industries Pvt. Ltd.", "2025-02-03", 40, 6120},
	} {
		job := s.jobsByNo[seed.jobNo]
		sale := domain.SaleConfirmation{
			ID:        xid.New("bc"),
			BCNo:      seed.bcNo,
			Date:      domain.MustDate(seed.day),
			JobNo:     seed.jobNo,
			Seller:    seed.seller,
			Buyer:     domain.DefaultBuyer,
			Commodity: job.Commodity,
			Origin:    job.Origin,
			Qty:       seed.qty,
			Rate:      seed.rate,
			Nett:      ledger.Mul(seed.qty, seed.rate),
			Quality:   domain.DefaultQuality,
			Packaging: domain.DefaultPackaging,
			Payment:   domain.DefaultPayment,
			Brokerage: domain.DefaultBrokerage,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		s.salesByID[sale.ID] = sale
	}

	group := domain.ExpenseGroup{
		ID:         xid.New("exp"),
		JobNo:      "HM-101",
		OverallQty: 500,
		Confirmations: []domain.CostLine{
			{BCNo: "PB-501", Qty: 300, Rate: 5010, Amount: 1503000},
			{BCNo: "PB-502", Qty: 200, Rate: 5025.5, Amount: 1005100},
		},
		Entries: []domain.ExpenseEntry{
			{Category: domain.Known("Clearing Cost"), Amount: 18500, Date: domain.MustDate("2025-01-04")},
			{Category: domain.Known("Weighment Charges"), Amount: 2250.5, Date: domain.MustDate("2025-01-05"), Note: "bridge 2"},
			{Category: domain.Custom("Fumigation"), Amount: 4000, Date: domain.MustDate("2025-01-07")},
		},
		CreatedAt: base,
	}
	s.groupsByID[group.ID] = group

	purchase := domain.Purchase{
		ID:             xid.New("pur"),
		BusinessNo:     "PB-501",
		Date:           domain.MustDate("2024-12-18"),
		Seller:         "Prairie Pulse Exports",
		Buyer:          "Hemraj Industries Pvt. Ltd.",
		Commodity:      "Canadian Yellow Peas",
		Country:        "Canada",
		BuyingQty:      500,
		PriceIncoterms: 61.5,
		Incoterms:      "CIF Kolkata",
		ConversionRate: 83.1,
		AmountUSD:      ledger.Mul(500, 61.5),
		AmountINR:      ledger.Mul(ledger.Mul(500, 61.5), 83.1),
		PaymentTerms:   "CAD",
		CreatedAt:      base.Add(-15 * 24 * time.Hour),
	}
	s.purchasesByID[purchase.ID] = purchase

	return s
}

func (s *Store) ListJobs(_ context.Context) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]domain.Job, 0, len(s.jobsByNo))
	for _, job := range s.jobsByNo {
		jobs = append(jobs, job)
	}
	slices.SortFunc(jobs, func(a, b domain.Job) int { return strings.Compare(a.JobNo, b.JobNo) })
	return jobs, nil
}

func (s *Store) GetJob(_ context.Context, jobNo string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobsByNo[strings.TrimSpace(jobNo)]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &job, nil
}

func (s *Store) UpsertJob(_ context.Context, job domain.Job) (*domain.Job, error) {
	job.JobNo = strings.TrimSpace(job.JobNo)
	if job.JobNo == "" || job.Overall < 0 {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobsByNo[job.JobNo] = job
	copyJob := job
	return &copyJob, nil
}

func (s *Store) DeleteJob(_ context.Context, jobNo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobNo = strings.TrimSpace(jobNo)
	if _, exists := s.jobsByNo[jobNo]; !exists {
		return store.ErrNotFound
	}
	delete(s.jobsByNo, jobNo)
	return nil
}

func (s *Store) ListSales(_ context.Context, filter domain.SaleFilter) ([]domain.SaleConfirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.SaleConfirmation, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		sales = append(sales, sale)
	}
	slices.SortFunc(sales, func(a, b domain.SaleConfirmation) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return ledger.FilterSales(sales, filter), nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.SaleConfirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &sale, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.SaleConfirmation) (*domain.SaleConfirmation, error) {
	if strings.TrimSpace(sale.BCNo) == "" || strings.TrimSpace(sale.JobNo) == "" {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bcNoTaken(sale.BCNo, "") {
		return nil, store.ErrInvalidRecord
	}
	if sale.ID == "" {
		sale.ID = xid.New("bc")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	s.salesByID[sale.ID] = sale
	copySale := sale
	return &copySale, nil
}

func (s *Store) UpdateSale(_ context.Context, sale domain.SaleConfirmation) (*domain.SaleConfirmation, error) {
	if strings.TrimSpace(sale.BCNo) == "" || strings.TrimSpace(sale.JobNo) == "" {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.salesByID[sale.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if s.bcNoTaken(sale.BCNo, sale.ID) {
		return nil, store.ErrInvalidRecord
	}
	sale.CreatedAt = existing.CreatedAt
	s.salesByID[sale.ID] = sale
	copySale := sale
	return &copySale, nil
}

func (s *Store) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.salesByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.salesByID, id)
	return nil
}

// bcNoTaken must be called with the lock held.
func (s *Store) bcNoTaken(bcNo, exceptID string) bool {
	for id, sale := range s.salesByID {
		if id != exceptID && strings.EqualFold(sale.BCNo, bcNo) {
			return true
		}
	}
	return false
}

func (s *Store) ListExpenseGroups(_ context.Context, jobNo string) ([]domain.ExpenseGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobNo = strings.TrimSpace(jobNo)
	groups := make([]domain.ExpenseGroup, 0, len(s.groupsByID))
	for _, group := range s.groupsByID {
		if jobNo != "" && group.JobNo != jobNo {
			continue
		}
		groups = append(groups, cloneGroup(group))
	}
	slices.SortFunc(groups, func(a, b domain.ExpenseGroup) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return groups, nil
}

func (s *Store) GetExpenseGroup(_ context.Context, id string) (*domain.ExpenseGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, exists := s.groupsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyGroup := cloneGroup(group)
	return &copyGroup, nil
}

func (s *Store) CreateExpenseGroup(_ context.Context, group domain.ExpenseGroup) (*domain.ExpenseGroup, error) {
	group.JobNo = strings.TrimSpace(group.JobNo)
	if group.JobNo == "" {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if group.ID == "" {
		group.ID = xid.New("exp")
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	s.groupsByID[group.ID] = cloneGroup(group)
	copyGroup := cloneGroup(group)
	return &copyGroup, nil
}

func (s *Store) UpdateExpenseGroup(_ context.Context, group domain.ExpenseGroup) (*domain.ExpenseGroup, error) {
	group.JobNo = strings.TrimSpace(group.JobNo)
	if group.JobNo == "" {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.groupsByID[group.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	group.CreatedAt = existing.CreatedAt
	s.groupsByID[group.ID] = cloneGroup(group)
	copyGroup := cloneGroup(group)
	return &copyGroup, nil
}

func (s *Store) DeleteExpenseGroup(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groupsByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.groupsByID, id)
	return nil
}

func (s *Store) ListPurchases(_ context.Context, filter domain.PurchaseFilter) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchases := make([]domain.Purchase, 0, len(s.purchasesByID))
	for _, p := range s.purchasesByID {
		purchases = append(purchases, p)
	}
	slices.SortFunc(purchases, func(a, b domain.Purchase) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return ledger.FilterPurchases(purchases, filter), nil
}

func (s *Store) GetPurchase(_ context.Context, id string) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.purchasesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) CreatePurchase(_ context.Context, p domain.Purchase) (*domain.Purchase, error) {
	if strings.TrimSpace(p.BusinessNo) == "" {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = xid.New("pur")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.purchasesByID[p.ID] = p
	copyPurchase := p
	return &copyPurchase, nil
}

func (s *Store) UpdatePurchase(_ context.Context, p domain.Purchase) (*domain.Purchase, error) {
	if strings.TrimSpace(p.BusinessNo) == "" {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.purchasesByID[p.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	s.purchasesByID[p.ID] = p
	copyPurchase := p
	return &copyPurchase, nil
}

func (s *Store) DeletePurchase(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.purchasesByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.purchasesByID, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRecord
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidRecord
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleViewer
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRecord
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneGroup(g domain.ExpenseGroup) domain.ExpenseGroup {
	g.Confirmations = slices.Clone(g.Confirmations)
	g.Entries = slices.Clone(g.Entries)
	return g
}
