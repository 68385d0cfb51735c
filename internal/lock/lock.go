package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

// ErrBusy is returned when another writer holds the lock for a job.
var ErrBusy = errors.New("job is being modified by another request, try again")

// JobLocker serializes check-then-write sequences for one job number.
type JobLocker interface {
	Lock(ctx context.Context, jobNo string) (unlock func(), err error)
}

// LocalLocker serializes writers within this process only.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

func (l *LocalLocker) Lock(ctx context.Context, jobNo string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[jobNo]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[jobNo] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(jobNo, s)
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(jobNo, s)
		})
	}, nil
}

func (l *LocalLocker) release(jobNo string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, jobNo)
	}
}

type obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// RedisLocker serializes writers across every process sharing the redis
// instance.
type RedisLocker struct {
	client obtainer
	ttl    time.Duration
}

func NewRedisLocker(client redislock.RedisClient) *RedisLocker {
	return &RedisLocker{client: redislock.New(client), ttl: 30 * time.Second}
}

func (l *RedisLocker) Lock(ctx context.Context, jobNo string) (func(), error) {
	lk, err := l.client.Obtain(ctx, "lock:job:"+jobNo, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(100 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrBusy
	}
	if err != nil {
		return nil, err
	}
	return func() {
		_ = lk.Release(context.WithoutCancel(ctx))
	}, nil
}
