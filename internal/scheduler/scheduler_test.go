package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/backend/internal/domain"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestRunNowReturnsJobError(t *testing.T) {
	s := New(zerolog.Nop(), time.Second)
	job := &countingJob{err: errors.New("upstream down")}

	err := s.RunNow(job)
	require.Error(t, err)
	assert.EqualValues(t, 1, job.runs.Load())
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop(), time.Second)
	assert.Error(t, s.AddJob("every minute please", &countingJob{}))
}

func TestAddJobAcceptsSecondsAndDescriptors(t *testing.T) {
	s := New(zerolog.Nop(), time.Second)
	assert.NoError(t, s.AddJob("*/5 * * * * *", &countingJob{}))
	assert.NoError(t, s.AddJob("0 */5 * * *", &countingJob{}))
	assert.NoError(t, s.AddJob("@every 60s", &countingJob{}))
}

func TestScheduledJobRuns(t *testing.T) {
	s := New(zerolog.Nop(), time.Second)
	job := &countingJob{}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestStopCancelsRunContext(t *testing.T) {
	s := New(zerolog.Nop(), time.Minute)
	s.Stop()

	done := make(chan error, 1)
	go func() {
		done <- s.RunNow(ctxJob{})
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("job did not observe cancellation")
	}
}

type ctxJob struct{}

func (ctxJob) Name() string { return "ctx" }

func (ctxJob) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type refresher struct {
	calls int
	err   error
}

func (r *refresher) RefreshLastUpdated(context.Context) (domain.LastUpdated, error) {
	r.calls++
	return domain.LastUpdated{Purchases: domain.MustDate("2025-01-06")}, r.err
}

func TestLastUpdatedJob(t *testing.T) {
	r := &refresher{}
	job := NewLastUpdatedJob(r)
	assert.Equal(t, "purchases-last-updated", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, r.calls)

	r.err = errors.New("books backend unavailable")
	assert.Error(t, job.Run(context.Background()))
}
