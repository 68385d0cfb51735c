package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"tradeledger/backend/internal/cache"
	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/lock"
	"tradeledger/backend/internal/store"
)

var ErrForbidden = errors.New("admin role required")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	Cache    cache.SnapshotCache
	CacheTTL time.Duration
	Locker   lock.JobLocker
	Logger   zerolog.Logger
}

type Service struct {
	repo     store.Repository
	cache    cache.SnapshotCache
	cacheTTL time.Duration
	locker   lock.JobLocker
	validate *validator.Validate
	log      zerolog.Logger
	now      func() time.Time

	statusMu    sync.RWMutex
	lastUpdated domain.LastUpdated
	subscribers map[int]chan domain.LastUpdated
	nextSubID   int
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NoopSnapshotCache{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.Locker == nil {
		opts.Locker = lock.NewLocalLocker()
	}

	return &Service{
		repo:        repo,
		cache:       opts.Cache,
		cacheTTL:    opts.CacheTTL,
		locker:      opts.Locker,
		validate:    newValidator(),
		log:         opts.Logger.With().Str("component", "service").Logger(),
		now:         time.Now,
		subscribers: make(map[int]chan domain.LastUpdated),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs the struct rules and reports every broken field at once.
func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	verr := &domain.ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		name := fe.Namespace()
		if i := strings.IndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		verr.Fields[name] = fe.Tag()
	}
	return verr
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Actor{}, ErrForbidden
	}
	return actor, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate ledger snapshot cache")
	}
}
