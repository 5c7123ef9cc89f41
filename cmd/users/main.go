package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Proton-105/users-backend/internal/api"
	"github.com/Proton-105/users-backend/internal/database"
	apperrors "github.com/Proton-105/users-backend/internal/errors"
	"github.com/Proton-105/users-backend/internal/health"
	"github.com/Proton-105/users-backend/internal/idempotency"
	"github.com/Proton-105/users-backend/internal/lifecycle"
	"github.com/Proton-105/users-backend/internal/pagination"
	"github.com/Proton-105/users-backend/internal/ratelimit"
	"github.com/Proton-105/users-backend/internal/store"
	"github.com/Proton-105/users-backend/internal/user"
	"github.com/Proton-105/users-backend/internal/usercache"
	"github.com/Proton-105/users-backend/pkg/config"
	"github.com/Proton-105/users-backend/pkg/graceful"
	"github.com/Proton-105/users-backend/pkg/logger"
	"github.com/Proton-105/users-backend/pkg/redis"
)

const (
	idempotencyTTL         = 24 * time.Hour
	limiterCleanupInterval = time.Minute
	limiterMaxAge          = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "users-backend: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flushSentry, err := logger.InitSentry(*cfg)
	if err != nil {
		return err
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)

	config.Watch(v, func(next *config.Config) {
		logger.SetLevel(next.Logger.Level)
		log.Info("config reloaded", slog.String("log_level", next.Logger.Level))
	}, func(err error) {
		log.Warn("config reload rejected", slog.Any("error", err))
	})

	log.Info("starting users backend",
		slog.String("addr", cfg.Server.Addr()),
		slog.String("store", cfg.Store.Backend),
		slog.Bool("redis", cfg.Redis.Enabled),
	)

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("sentry", func(context.Context) error {
		flushSentry(2 * time.Second)
		return nil
	})

	status := health.NewChecker(log)
	readiness := health.NewChecker(log)

	base, db, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		shutdown.Register("database", func(context.Context) error { return db.Close() })
		status.AddCheck(health.ComponentDatabase, health.NewDBChecker(db))
		readiness.AddCheck(health.ComponentDatabase, health.NewDBChecker(db))
	}

	var users store.UserStore = store.NewInstrumented(base)
	if db == nil {
		status.AddCheck(health.ComponentUsers, health.NewUsersChecker(users))
	}

	memoryLimiter := ratelimit.NewMemoryLimiter(log)
	go memoryLimiter.RunCleanup(ctx, limiterCleanupInterval, limiterMaxAge)

	var limiter ratelimit.Limiter = memoryLimiter
	var idem idempotency.Manager

	if cfg.Redis.Enabled {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		shutdown.Register("redis", func(context.Context) error { return client.Close() })
		readiness.AddCheck(health.ComponentRedis, health.NewRedisChecker(client))

		cache := usercache.NewCache(redis.NewMetricsClient(client), cfg.Redis.CacheTTL)
		users = usercache.NewStore(users, cache, apperrors.NewCircuitBreaker(), log)

		limiter = ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(client.Client, log), memoryLimiter, log)
		idem = idempotency.NewManager(idempotency.NewRedisStore(client.Client, log), log)
	}

	log.Info("health checks registered",
		slog.Any("status", status.Names()),
		slog.Any("readiness", readiness.Names()),
	)

	rules, err := ratelimit.NewRules(cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("rate limit rules: %w", err)
	}

	svc := user.NewService(users, log,
		user.WithLimits(pagination.Limits{
			DefaultSize: cfg.Pagination.DefaultSize,
			MaxSize:     cfg.Pagination.MaxSize,
		}),
		user.WithFixture(user.FixtureFromPath(cfg.Fixture.Path)),
	)

	gin.SetMode(gin.ReleaseMode)
	handler, err := api.NewHandler(api.Deps{
		Service:        svc,
		Status:         status,
		Probes:         lifecycle.NewProbes(log, readiness),
		Errors:         apperrors.NewHandler(log, cfg.Sentry.Enabled),
		Limiter:        limiter,
		Rules:          rules,
		Idempotency:    idem,
		IdempotencyTTL: idempotencyTTL,
		TrustedProxies: cfg.RateLimit.TrustedProxies,
		Log:            log,
	})
	if err != nil {
		return err
	}

	srv := graceful.NewServer(log, &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}, cfg.Server.ShutdownTimeout)

	serveErr := srv.ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown hooks failed", slog.Any("error", err))
	}

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}

	log.Info("users backend stopped")
	return nil
}

// openStore returns the configured base store and, for the sql backend, the
// migrated database handle.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.UserStore, *sql.DB, error) {
	if cfg.Store.Backend != config.BackendSQL {
		return store.NewMemoryStore(), nil, nil
	}

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db, cfg.Database, log); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}

	return store.NewSQLStore(db, cfg.Database.Driver, log), db, nil
}
