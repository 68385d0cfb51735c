package scheduler

import (
	"context"

	"tradeledger/backend/internal/domain"
)

type lastUpdatedRefresher interface {
	RefreshLastUpdated(ctx context.Context) (domain.LastUpdated, error)
}

// LastUpdatedJob re-reads the newest purchase date so the status endpoint
// and stream stay current.
type LastUpdatedJob struct {
	svc lastUpdatedRefresher
}

func NewLastUpdatedJob(svc lastUpdatedRefresher) *LastUpdatedJob {
	return &LastUpdatedJob{svc: svc}
}

func (j *LastUpdatedJob) Name() string { return "purchases-last-updated" }

func (j *LastUpdatedJob) Run(ctx context.Context) error {
	_, err := j.svc.RefreshLastUpdated(ctx)
	return err
}
