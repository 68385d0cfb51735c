package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tradeledger/backend/internal/cache"
	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/ledger"
	"tradeledger/backend/internal/store"
)

const (
	SourceJobs     = "jobs"
	SourceSales    = "bcs"
	SourceExpenses = "expenses"
)

// Snapshot is one aggregation over independently fetched collections. A
// source that could not be fetched contributes nothing and is listed in
// Failures.
type Snapshot struct {
	Ledger   ledger.Ledger          `json:"ledger"`
	Failures []domain.SourceFailure `json:"failures"`
	TakenAt  time.Time              `json:"takenAt"`
	Cached   bool                   `json:"cached"`
}

func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	if cached, ok, err := s.cache.Get(ctx); err != nil {
		s.log.Warn().Err(err).Msg("ledger snapshot cache read failed")
	} else if ok && cached.Ledger != nil {
		return Snapshot{
			Ledger:   ledger.Ledger(cached.Ledger),
			Failures: []domain.SourceFailure{},
			TakenAt:  cached.TakenAt,
			Cached:   true,
		}, nil
	}

	var (
		jobs   []domain.Job
		sales  []domain.SaleConfirmation
		groups []domain.ExpenseGroup
		errs   [3]error
	)
	var g errgroup.Group
	g.Go(func() error {
		jobs, errs[0] = s.repo.ListJobs(ctx)
		return nil
	})
	g.Go(func() error {
		sales, errs[1] = s.repo.ListSales(ctx, domain.SaleFilter{})
		return nil
	})
	g.Go(func() error {
		groups, errs[2] = s.repo.ListExpenseGroups(ctx, "")
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	failures := make([]domain.SourceFailure, 0, len(errs))
	for i, source := range []string{SourceJobs, SourceSales, SourceExpenses} {
		if errs[i] == nil {
			continue
		}
		s.log.Warn().Err(errs[i]).Str("source", source).Msg("source fetch failed, aggregating without it")
		failures = append(failures, domain.SourceFailure{Source: source, Message: errs[i].Error()})
	}
	if errs[0] != nil {
		jobs = nil
	}
	if errs[1] != nil {
		sales = nil
	}
	if errs[2] != nil {
		groups = nil
	}

	snap := Snapshot{
		Ledger:   ledger.Aggregate(jobs, sales, groups),
		Failures: failures,
		TakenAt:  s.now().UTC(),
	}
	if len(failures) == 0 {
		err := s.cache.Set(ctx, &cache.Snapshot{Ledger: snap.Ledger, TakenAt: snap.TakenAt}, s.cacheTTL)
		if err != nil {
			s.log.Warn().Err(err).Msg("ledger snapshot cache write failed")
		}
	}
	return snap, nil
}

type CardsView struct {
	Rows        []domain.JobSummary    `json:"rows"`
	Commodities []string               `json:"commodities"`
	Failures    []domain.SourceFailure `json:"failures"`
}

type TableView struct {
	Rows     []domain.JobSummary    `json:"rows"`
	Failures []domain.SourceFailure `json:"failures"`
}

func (s *Service) Cards(ctx context.Context, query, commodity string) (CardsView, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return CardsView{}, err
	}
	return CardsView{
		Rows:        ledger.Cards(snap.Ledger, query, commodity),
		Commodities: ledger.Commodities(snap.Ledger),
		Failures:    snap.Failures,
	}, nil
}

func (s *Service) Table(ctx context.Context, jobQuery, commodityQuery string, key ledger.SortKey, desc bool) (TableView, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return TableView{}, err
	}
	rows := ledger.Table(snap.Ledger, jobQuery, commodityQuery)
	ledger.SortRows(rows, key, desc)
	return TableView{Rows: rows, Failures: snap.Failures}, nil
}

func (s *Service) Commodities(ctx context.Context) ([]string, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Commodities(snap.Ledger), nil
}

func (s *Service) JobSummary(ctx context.Context, jobNo string) (domain.JobSummary, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.JobSummary{}, err
	}
	summary, ok := snap.Ledger.Get(strings.TrimSpace(jobNo))
	if !ok {
		return domain.JobSummary{}, store.ErrNotFound
	}
	return summary, nil
}
