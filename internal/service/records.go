package service

import (
	"context"
	"errors"
	"strings"

	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/ledger"
	"tradeledger/backend/internal/store"
)

func (s *Service) ListJobs(ctx context.Context) ([]domain.Job, error) {
	return s.repo.ListJobs(ctx)
}

// GetJob answers the job editor's lookup; a missing job is not an error.
func (s *Service) GetJob(ctx context.Context, jobNo string) (domain.JobLookup, error) {
	job, err := s.repo.GetJob(ctx, strings.TrimSpace(jobNo))
	if errors.Is(err, store.ErrNotFound) {
		return domain.JobLookup{Exists: false}, nil
	}
	if err != nil {
		return domain.JobLookup{}, err
	}
	return domain.JobLookup{Exists: true, Job: job}, nil
}

func (s *Service) UpsertJob(ctx context.Context, job domain.Job) (domain.Job, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Job{}, err
	}
	job.JobNo = strings.TrimSpace(job.JobNo)
	job.Commodity = strings.TrimSpace(job.Commodity)
	job.Location = strings.TrimSpace(job.Location)
	job.Origin = strings.TrimSpace(job.Origin)
	if err := s.check(job); err != nil {
		return domain.Job{}, err
	}
	job.Overall = ledger.Round2(job.Overall)

	saved, err := s.repo.UpsertJob(ctx, job)
	if err != nil {
		return domain.Job{}, err
	}
	s.invalidate(ctx)
	s.log.Info().Str("actor", actor.Username).Str("job_no", saved.JobNo).Float64("overall", saved.Overall).Msg("job saved")
	return *saved, nil
}

func (s *Service) DeleteJob(ctx context.Context, jobNo string) error {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	jobNo = strings.TrimSpace(jobNo)
	if err := s.repo.DeleteJob(ctx, jobNo); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info().Str("actor", actor.Username).Str("job_no", jobNo).Msg("job deleted")
	return nil
}

// JobPosition reports overall, used and remaining quantity for one job.
func (s *Service) JobPosition(ctx context.Context, jobNo string) (domain.JobPosition, error) {
	jobNo = strings.TrimSpace(jobNo)
	var overall float64
	job, err := s.repo.GetJob(ctx, jobNo)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return domain.JobPosition{}, err
	default:
		overall = job.Overall
	}
	sales, err := s.repo.ListSales(ctx, domain.SaleFilter{JobNo: jobNo})
	if err != nil {
		return domain.JobPosition{}, err
	}
	return ledger.Position(overall, sales, jobNo), nil
}

func (s *Service) ListExpenseGroups(ctx context.Context, jobNo string) ([]domain.ExpenseGroup, error) {
	return s.repo.ListExpenseGroups(ctx, jobNo)
}

func (s *Service) GetExpenseGroup(ctx context.Context, id string) (domain.ExpenseGroup, error) {
	g, err := s.repo.GetExpenseGroup(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.ExpenseGroup{}, err
	}
	return *g, nil
}

// ExpenseReport returns a group with its per-MT averages.
func (s *Service) ExpenseReport(ctx context.Context, id string) (domain.ExpenseGroup, domain.ExpenseStats, error) {
	g, err := s.GetExpenseGroup(ctx, id)
	if err != nil {
		return domain.ExpenseGroup{}, domain.ExpenseStats{}, err
	}
	return g, ledger.ExpenseStats(g), nil
}

func (s *Service) CreateExpenseGroup(ctx context.Context, g domain.ExpenseGroup) (domain.ExpenseGroup, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.ExpenseGroup{}, err
	}
	g.ID = ""
	if err := s.prepareExpenseGroup(&g); err != nil {
		return domain.ExpenseGroup{}, err
	}
	created, err := s.repo.CreateExpenseGroup(ctx, g)
	if err != nil {
		return domain.ExpenseGroup{}, err
	}
	s.invalidate(ctx)
	s.log.Info().Str("actor", actor.Username).Str("id", created.ID).Str("job_no", created.JobNo).Msg("expense group created")
	return *created, nil
}

func (s *Service) UpdateExpenseGroup(ctx context.Context, id string, g domain.ExpenseGroup) (domain.ExpenseGroup, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.ExpenseGroup{}, err
	}
	g.ID = strings.TrimSpace(id)
	if err := s.prepareExpenseGroup(&g); err != nil {
		return domain.ExpenseGroup{}, err
	}
	updated, err := s.repo.UpdateExpenseGroup(ctx, g)
	if err != nil {
		return domain.ExpenseGroup{}, err
	}
	s.invalidate(ctx)
	s.log.Info().Str("actor", actor.Username).Str("id", updated.ID).Str("job_no", updated.JobNo).Msg("expense group updated")
	return *updated, nil
}

func (s *Service) DeleteExpenseGroup(ctx context.Context, id string) error {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteExpenseGroup(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info().Str("actor", actor.Username).Str("id", id).Msg("expense group deleted")
	return nil
}

func (s *Service) prepareExpenseGroup(g *domain.ExpenseGroup) error {
	g.JobNo = strings.TrimSpace(g.JobNo)
	if err := s.check(*g); err != nil {
		return err
	}
	for i, e := range g.Entries {
		if e.Category.IsZero() {
			return domain.NewValidationError("expenseData.head", "required")
		}
		g.Entries[i].Amount = ledger.Round2(e.Amount)
	}
	kept := g.Confirmations[:0]
	for _, line := range g.Confirmations {
		line.BCNo = strings.TrimSpace(line.BCNo)
		if line.BCNo == "" {
			continue
		}
		if line.Amount == 0 {
			line.Amount = ledger.Mul(line.Qty, line.Rate)
		}
		kept = append(kept, line)
	}
	g.Confirmations = kept
	return nil
}

func (s *Service) ListPurchases(ctx context.Context, filter domain.PurchaseFilter) ([]domain.Purchase, error) {
	return s.repo.ListPurchases(ctx, filter)
}

func (s *Service) GetPurchase(ctx context.Context, id string) (domain.Purchase, error) {
	p, err := s.repo.GetPurchase(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Purchase{}, err
	}
	return *p, nil
}

func (s *Service) CreatePurchase(ctx context.Context, p domain.Purchase) (domain.Purchase, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Purchase{}, err
	}
	p.ID = ""
	if err := s.preparePurchase(&p); err != nil {
		return domain.Purchase{}, err
	}
	created, err := s.repo.CreatePurchase(ctx, p)
	if err != nil {
		return domain.Purchase{}, err
	}
	s.log.Info().Str("actor", actor.Username).Str("id", created.ID).Str("business_no", created.BusinessNo).Msg("purchase created")
	return *created, nil
}

func (s *Service) UpdatePurchase(ctx context.Context, id string, p domain.Purchase) (domain.Purchase, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Purchase{}, err
	}
	p.ID = strings.TrimSpace(id)
	if err := s.preparePurchase(&p); err != nil {
		return domain.Purchase{}, err
	}
	updated, err := s.repo.UpdatePurchase(ctx, p)
	if err != nil {
		return domain.Purchase{}, err
	}
	s.log.Info().Str("actor", actor.Username).Str("id", updated.ID).Str("business_no", updated.BusinessNo).Msg("purchase updated")
	return *updated, nil
}

func (s *Service) DeletePurchase(ctx context.Context, id string) error {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if err := s.repo.DeletePurchase(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("actor", actor.Username).Str("id", id).Msg("purchase deleted")
	return nil
}

// preparePurchase derives the USD and INR amounts from quantity, price and
// conversion rate.
func (s *Service) preparePurchase(p *domain.Purchase) error {
	p.BusinessNo = strings.TrimSpace(p.BusinessNo)
	p.Commodity = strings.TrimSpace(p.Commodity)
	if err := s.check(*p); err != nil {
		return err
	}
	p.AmountUSD = ledger.Mul(p.BuyingQty, p.PriceIncoterms)
	p.AmountINR = 0
	if p.ConversionRate > 0 {
		p.AmountINR = ledger.Mul(p.AmountUSD, p.ConversionRate)
	}
	return nil
}
