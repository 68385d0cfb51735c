package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tradeledger/backend/internal/archive"
	"tradeledger/backend/internal/cache"
	"tradeledger/backend/internal/config"
	"tradeledger/backend/internal/export"
	"tradeledger/backend/internal/httpapi"
	"tradeledger/backend/internal/lock"
	"tradeledger/backend/internal/logging"
	"tradeledger/backend/internal/remote"
	"tradeledger/backend/internal/scheduler"
	"tradeledger/backend/internal/service"
	"tradeledger/backend/internal/store"
	"tradeledger/backend/internal/store/memory"
	pgstore "tradeledger/backend/internal/store/postgres"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "env file: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid security configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	repo, users, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("repository unavailable")
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}

	opts := service.Options{CacheTTL: cfg.SnapshotTTL, Logger: logger}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, using in-process cache and locks")
			_ = client.Close()
		} else {
			opts.Cache = cache.NewRedisSnapshotCache(client)
			opts.Locker = lock.NewRedisLocker(client)
			closers = append(closers, client.Close)
			logger.Info().Str("addr", cfg.RedisAddr).Msg("cache: redis")
		}
	} else {
		logger.Info().Msg("cache: noop")
	}
	svc := service.New(repo, opts)

	auth, err := httpapi.NewAuthManager(ctx, cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, users, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("auth setup failed")
	}

	var archiver archive.Archiver = archive.NoopArchiver{}
	s3Archiver, err := archive.NewS3Archiver(ctx, archive.S3Config{
		Bucket:          cfg.ArchiveBucket,
		Region:          cfg.ArchiveRegion,
		Prefix:          cfg.ArchivePrefix,
		Endpoint:        cfg.ArchiveEndpoint,
		AccessKeyID:     cfg.ArchiveAccessKey,
		SecretAccessKey: cfg.ArchiveSecretKey,
	}, logger)
	switch {
	case errors.Is(err, archive.ErrDisabled):
		logger.Info().Msg("export archive: disabled")
	case err != nil:
		logger.Warn().Err(err).Msg("export archive unavailable")
	default:
		archiver = s3Archiver
		logger.Info().Str("bucket", cfg.ArchiveBucket).Msg("export archive: s3")
	}

	api := httpapi.New(httpapi.Options{
		Service: svc,
		Auth:    auth,
		Archive: archiver,
		Letterhead: export.Letterhead{
			Company:      cfg.PDFCompany,
			ContactName:  cfg.PDFContactName,
			ContactPhone: cfg.PDFContactPhone,
			ContactEmail: cfg.PDFContactEmail,
		},
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
	})

	sched := scheduler.New(logger, cfg.RemoteTimeout)
	refresh := scheduler.NewLastUpdatedJob(svc)
	if err := sched.AddJob(cfg.RefreshSchedule, refresh); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.RefreshSchedule).Msg("invalid REFRESH_SCHEDULE")
	}
	_ = sched.RunNow(refresh)
	sched.Start()

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Address()).Msg("ledger backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	sched.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn().Err(err).Msg("close error")
		}
	}

	logger.Info().Msg("server stopped")
}

// openRepository picks postgres when DATABASE_URL is set, the remote sells
// and books backends when both URLs are set, and the seeded in-memory store
// otherwise. Remote mode keeps its accounts in memory.
func openRepository(ctx context.Context, cfg config.Config, logger zerolog.Logger) (store.Repository, store.UserStore, func() error, error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres: %w; refusing to start with in-memory fallback", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		logger.Info().Msg("repository: postgres")
		return pg, pg, pg.Close, nil
	case cfg.RemoteEnabled():
		client := remote.NewClient(cfg.SellsBackendURL, cfg.BooksBackendURL, cfg.RemoteTimeout, logger)
		logger.Info().Str("sells", cfg.SellsBackendURL).Str("books", cfg.BooksBackendURL).Msg("repository: remote backends")
		return client, memory.NewSeeded(), nil, nil
	case cfg.SellsBackendURL != "" || cfg.BooksBackendURL != "":
		return nil, nil, nil, errors.New("SELLS_BACKEND_URL and BOOKS_BACKEND_URL must be set together")
	default:
		mem := memory.NewSeeded()
		logger.Info().Msg("repository: in-memory")
		return mem, mem, nil, nil
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.ArchiveBucket != "" && (cfg.ArchiveAccessKey == "") != (cfg.ArchiveSecretKey == "") {
		return fmt.Errorf("ARCHIVE_S3_ACCESS_KEY_ID and ARCHIVE_S3_SECRET_ACCESS_KEY must be set together")
	}
	return nil
}
