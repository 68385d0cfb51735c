package service

import (
	"context"

	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/ledger"
)

// RefreshLastUpdated re-reads the newest purchase date and notifies
// subscribers when it moved.
func (s *Service) RefreshLastUpdated(ctx context.Context) (domain.LastUpdated, error) {
	purchases, err := s.repo.ListPurchases(ctx, domain.PurchaseFilter{})
	if err != nil {
		s.log.Warn().Err(err).Msg("purchases last-updated refresh failed")
		return s.LastUpdated(), err
	}

	latest := ledger.LatestPurchaseDate(purchases)
	now := s.now().UTC()

	s.statusMu.Lock()
	changed := !latest.Equal(s.lastUpdated.Purchases) || s.lastUpdated.CheckedAt.IsZero()
	s.lastUpdated = domain.LastUpdated{Purchases: latest, CheckedAt: now}
	status := s.lastUpdated
	if changed {
		for _, ch := range s.subscribers {
			select {
			case ch <- status:
			default:
			}
		}
	}
	s.statusMu.Unlock()

	if changed {
		s.log.Info().Str("purchases_last_updated", latest.String()).Msg("last-updated status changed")
	}
	return status, nil
}

func (s *Service) LastUpdated() domain.LastUpdated {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.lastUpdated
}

// Subscribe returns a channel of last-updated changes. A change is dropped
// for a subscriber whose previous one is still unread.
func (s *Service) Subscribe() (<-chan domain.LastUpdated, func()) {
	ch := make(chan domain.LastUpdated, 1)

	s.statusMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.statusMu.Unlock()

	return ch, func() {
		s.statusMu.Lock()
		defer s.statusMu.Unlock()
		if _, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(ch)
		}
	}
}
