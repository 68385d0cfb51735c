package service

import (
	"context"
	"errors"
	"strings"

	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/ledger"
	"tradeledger/backend/internal/store"
)

func (s *Service) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.SaleConfirmation, error) {
	return s.repo.ListSales(ctx, filter)
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.SaleConfirmation, error) {
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.SaleConfirmation{}, err
	}
	return *sale, nil
}

// JobSales lists the BCs booked against exactly jobNo, newest first.
func (s *Service) JobSales(ctx context.Context, jobNo string) ([]domain.SaleConfirmation, error) {
	jobNo = strings.TrimSpace(jobNo)
	sales, err := s.repo.ListSales(ctx, domain.SaleFilter{JobNo: jobNo})
	if err != nil {
		return nil, err
	}
	out := sales[:0]
	for _, sale := range sales {
		if strings.TrimSpace(sale.JobNo) == jobNo {
			out = append(out, sale)
		}
	}
	return out, nil
}

func (s *Service) CreateSale(ctx context.Context, in domain.SaleInput) (domain.SaleConfirmation, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.SaleConfirmation{}, err
	}
	sale, err := s.prepareSale(in)
	if err != nil {
		return domain.SaleConfirmation{}, err
	}

	unlock, err := s.locker.Lock(ctx, sale.JobNo)
	if err != nil {
		return domain.SaleConfirmation{}, err
	}
	defer unlock()

	if err := s.checkConservation(ctx, sale.JobNo, "", sale.Qty, in.ConfirmOverdraw); err != nil {
		return domain.SaleConfirmation{}, err
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.SaleConfirmation{}, err
	}
	s.invalidate(ctx)
	s.log.Info().
		Str("actor", actor.Username).
		Str("bc_no", created.BCNo).
		Str("job_no", created.JobNo).
		Float64("qty", created.Qty).
		Msg("sale confirmation created")
	return *created, nil
}

func (s *Service) UpdateSale(ctx context.Context, id string, in domain.SaleInput) (domain.SaleConfirmation, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.SaleConfirmation{}, err
	}
	id = strings.TrimSpace(id)
	sale, err := s.prepareSale(in)
	if err != nil {
		return domain.SaleConfirmation{}, err
	}

	// Only the target job is locked: a job the sale moves away from can only lose quantity.
	unlock, err := s.locker.Lock(ctx, sale.JobNo)
	if err != nil {
		return domain.SaleConfirmation{}, err
	}
	defer unlock()

	existing, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.SaleConfirmation{}, err
	}
	if err := s.checkConservation(ctx, sale.JobNo, id, sale.Qty, in.ConfirmOverdraw); err != nil {
		return domain.SaleConfirmation{}, err
	}

	sale.ID = existing.ID
	sale.CreatedAt = existing.CreatedAt
	updated, err := s.repo.UpdateSale(ctx, sale)
	if err != nil {
		return domain.SaleConfirmation{}, err
	}
	s.invalidate(ctx)
	s.log.Info().
		Str("actor", actor.Username).
		Str("id", updated.ID).
		Str("bc_no", updated.BCNo).
		Str("job_no", updated.JobNo).
		Msg("sale confirmation updated")
	return *updated, nil
}

func (s *Service) DeleteSale(ctx context.Context, id string) error {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteSale(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info().Str("actor", actor.Username).Str("id", id).Msg("sale confirmation deleted")
	return nil
}

// NettDrift lists the stored BCs whose nett no longer matches qty*rate.
func (s *Service) NettDrift(ctx context.Context) ([]domain.NettDrift, error) {
	sales, err := s.repo.ListSales(ctx, domain.SaleFilter{})
	if err != nil {
		return nil, err
	}
	return ledger.NettDrift(sales), nil
}

func (s *Service) prepareSale(in domain.SaleInput) (domain.SaleConfirmation, error) {
	in.BCNo = strings.TrimSpace(in.BCNo)
	in.JobNo = strings.TrimSpace(in.JobNo)
	if err := s.check(in); err != nil {
		return domain.SaleConfirmation{}, err
	}

	qty := ledger.Round2(in.Qty)
	rate := ledger.Round2(in.Rate)
	return domain.SaleConfirmation{
		BCNo:        in.BCNo,
		Date:        in.Date,
		JobNo:       in.JobNo,
		Seller:      strings.TrimSpace(in.Seller),
		Buyer:       defaultString(in.Buyer, domain.DefaultBuyer),
		Commodity:   strings.TrimSpace(in.Commodity),
		Origin:      strings.TrimSpace(in.Origin),
		Qty:         qty,
		Rate:        rate,
		Nett:        ledger.Mul(qty, rate),
		Delivery:    in.Delivery,
		DeliveryLoc: strings.TrimSpace(in.DeliveryLoc),
		Quality:     defaultString(in.Quality, domain.DefaultQuality),
		Packaging:   defaultString(in.Packaging, domain.DefaultPackaging),
		Payment:     defaultString(in.Payment, domain.DefaultPayment),
		Brokerage:   defaultString(in.Brokerage, domain.DefaultBrokerage),
		Broker:      strings.TrimSpace(in.Broker),
		KYC:         strings.TrimSpace(in.KYC),
		Terms:       strings.TrimSpace(in.Terms),
		Notes:       strings.TrimSpace(in.Notes),
		Souda:       strings.TrimSpace(in.Souda),
		Bank:        strings.TrimSpace(in.Bank),
	}, nil
}

// checkConservation must run under the job lock.
func (s *Service) checkConservation(ctx context.Context, jobNo, excludeID string, qty float64, confirmed bool) error {
	var overall float64
	job, err := s.repo.GetJob(ctx, jobNo)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return err
	default:
		overall = job.Overall
	}

	sales, err := s.repo.ListSales(ctx, domain.SaleFilter{JobNo: jobNo})
	if err != nil {
		return err
	}

	result := ledger.CheckConservation(overall, sales, jobNo, excludeID, qty)
	if !result.Exceeds {
		return nil
	}
	if !confirmed {
		return result.Warning()
	}
	s.log.Warn().
		Str("job_no", jobNo).
		Float64("overall", result.Overall).
		Float64("would_be_sold", result.WouldBeSold).
		Msg("overdraw confirmed by caller")
	return nil
}

func defaultString(value string, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
