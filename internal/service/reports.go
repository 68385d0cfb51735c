package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/ledger"
)

// ProfitLoss compares BC nett against purchases and expenses between two
// optional dates. Unlike the ledger snapshot, any fetch failure fails the
// report.
func (s *Service) ProfitLoss(ctx context.Context, from, to domain.Date) (domain.ProfitLoss, error) {
	var (
		sales     []domain.SaleConfirmation
		purchases []domain.Purchase
		groups    []domain.ExpenseGroup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.repo.ListSales(gctx, domain.SaleFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		purchases, err = s.repo.ListPurchases(gctx, domain.PurchaseFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = s.repo.ListExpenseGroups(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ProfitLoss{}, err
	}
	return ledger.ProfitLoss(sales, purchases, groups, from, to), nil
}

func (s *Service) SellsDashboard(ctx context.Context, month, jobNo string) (domain.SellsDashboard, error) {
	var (
		sales []domain.SaleConfirmation
		jobs  []domain.Job
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.repo.ListSales(gctx, domain.SaleFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		jobs, err = s.repo.ListJobs(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.SellsDashboard{}, err
	}
	return ledger.SellsDashboard(sales, jobs, month, jobNo), nil
}

func (s *Service) PurchaseDashboard(ctx context.Context, month, commodity string) (domain.PurchaseDashboard, error) {
	purchases, err := s.repo.ListPurchases(ctx, domain.PurchaseFilter{})
	if err != nil {
		return domain.PurchaseDashboard{}, err
	}
	return ledger.PurchaseDashboard(purchases, month, commodity), nil
}
