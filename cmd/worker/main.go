// Package main is the entry point for the gamification engine worker.
//
// The worker hosts the whole engine in one process:
// - HTTP API for event ingestion and leaderboard / progress reads
// - reward pipeline (points, badges, achievements, rank deltas)
// - scheduled jobs (rank rebuilds, ledger re-verification)
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/codequest-hub/gamification-engine/config"
	"github.com/codequest-hub/gamification-engine/internal/application/eventhandler"
	"github.com/codequest-hub/gamification-engine/internal/application/query"
	"github.com/codequest-hub/gamification-engine/internal/application/reward"
	"github.com/codequest-hub/gamification-engine/internal/domain/badge"
	"github.com/codequest-hub/gamification-engine/internal/domain/points"
	"github.com/codequest-hub/gamification-engine/internal/domain/progress"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/catalog"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/ledger"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/messaging"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/observability"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/persistence/postgres"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/persistence/redis"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/scheduler"
	"github.com/codequest-hub/gamification-engine/internal/infrastructure/scheduler/jobs"
	httpapi "github.com/codequest-hub/gamification-engine/internal/interface/http"
	"github.com/codequest-hub/gamification-engine/internal/interface/http/handlers"
	"github.com/codequest-hub/gamification-engine/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ─────────────────────────────────────────────────────────────────────────
	// Stage 1: Configuration and logging
	// ─────────────────────────────────────────────────────────────────────────

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slogger := setupLogger(cfg)
	slog.SetDefault(slogger)

	slogger.Info("starting gamification engine",
		"app", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ─────────────────────────────────────────────────────────────────────────
	// Stage 2: PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────

	var (
		conn       *postgres.Connection
		pgProgress *postgres.ProgressStore
		awardRepo  *postgres.AwardRepository
	)

	if cfg.Database.URL != "" {
		conn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer conn.Close()

		migrator := postgres.NewMigrator(conn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		pgProgress = postgres.NewProgressStore(conn)
		awardRepo = postgres.NewAwardRepository(conn)
		slogger.Info("postgres connected, migrations applied")
	} else {
		slogger.Warn("DATABASE_URL not set, using in-memory progress store")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Stage 3: Redis
	// ─────────────────────────────────────────────────────────────────────────

	var (
		redisCache *redis.Cache
		rankCache  *redis.RankCache
	)

	if !cfg.Redis.Disabled {
		redisCache, err = redis.NewCache(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisCache.Close()

		rankCache = redis.NewRankCache(redisCache)
		slogger.Info("redis connected", "host", cfg.Redis.Host)
	} else {
		slogger.Warn("redis disabled, rank tracking unavailable")
	}

	// Progress store: postgres when available, wrapped in the Redis
	// read-through cache when that is up too.
	var progressStore progress.Store
	var cachedStore *redis.CachedProgressStore
	switch {
	case pgProgress != nil && redisCache != nil:
		cachedStore = redis.NewCachedProgressStore(pgProgress, redisCache)
		progressStore = cachedStore
	case pgProgress != nil:
		progressStore = pgProgress
	default:
		progressStore = progress.NewMemoryStore()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Stage 4: Badge catalog
	// ─────────────────────────────────────────────────────────────────────────

	loader := catalog.NewLoader(slogger)
	badgeCatalog, err := loader.LoadDir(cfg.Catalog.Dir)
	if err != nil {
		return fmt.Errorf("load badge catalog: %w", err)
	}
	slogger.Info("badge catalog loaded", "badges", badgeCatalog.Size())

	// ─────────────────────────────────────────────────────────────────────────
	// Stage 5: Credential ledger client
	// ─────────────────────────────────────────────────────────────────────────

	var ledgerClient *ledger.Client
	if !cfg.Ledger.Disabled && cfg.Ledger.BaseURL != "" {
		ledgerClient = ledger.NewClient(ledger.ClientConfig{
			BaseURL: cfg.Ledger.BaseURL,
			APIKey:  cfg.Ledger.APIKey,
			Timeout: cfg.Ledger.RequestTimeout,
			Logger:  slogger,
		})
		slogger.Info("credential ledger configured", "base_url", cfg.Ledger.BaseURL)
	} else {
		slogger.Warn("credential ledger disabled, awards stay pending")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Stage 6: Event bus, dispatcher, and handlers
	// ─────────────────────────────────────────────────────────────────────────

	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.WorkerPoolSize = cfg.Scoring.WorkerPoolSize
	eventBus := messaging.NewInMemoryEventBus(busConfig)
	defer eventBus.Close()

	metrics := observability.NewPrometheusMetrics()

	rankHandler := eventhandler.NewOnRankChangedHandler(
		slogger, eventhandler.DefaultRankChangedConfig())
	badgeHandler := eventhandler.NewOnBadgeAwardedHandler(
		cachedStore, metrics, slogger, eventhandler.DefaultBadgeAwardedConfig())

	dispatcher := messaging.NewDispatcher(messaging.DefaultDispatcherConfig(eventBus))
	dispatcher.Use(messaging.RecoveryMiddleware(slogger))
	dispatcher.Use(messaging.LoggingMiddleware(slogger))

	if err := dispatcher.Register(shared.EventRankChanged, "on_rank_changed", rankHandler.Handle); err != nil {
		return fmt.Errorf("register rank handler: %w", err)
	}
	if err := dispatcher.Register(shared.EventBadgeAwarded, "on_badge_awarded", badgeHandler.Handle); err != nil {
		return fmt.Errorf("register badge handler: %w", err)
	}
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	defer dispatcher.Stop()

	// ─────────────────────────────────────────────────────────────────────────
	// Stage 7: Reward orchestrator
	// ─────────────────────────────────────────────────────────────────────────

	appLogger := logger.New(logger.Options{
		Level: logger.ParseLevel(cfg.Observability.LogLevel),
	})

	orchestratorDeps := reward.Dependencies{
		Store:   progressStore,
		Points:  points.NewCalculator(points.DefaultConfig()),
		Badges:  badge.NewCalculator(badgeCatalog, badge.CalculatorConfig{}),
		Events:  eventBus,
		Metrics: metrics,
		Logger:  appLogger,
		Flags:   cfg.Features,
	}
	if awardRepo != nil {
		orchestratorDeps.Awards = awardRepo
	}
	if ledgerClient != nil {
		orchestratorDeps.Ledger = ledgerClient
	}
	if rankCache != nil {
		orchestratorDeps.Ranks = rankCache
	}

	orchestrator := reward.NewOrchestrator(orchestratorDeps, reward.Config{
		MaxBadgesPerEvent:   cfg.Scoring.MaxBadgesPerEvent,
		EnableRarityBonuses: cfg.Scoring.EnableRarityBonuses,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Stage 8: Scheduled jobs
	// ─────────────────────────────────────────────────────────────────────────

	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:         slogger,
		Timezone:       time.UTC,
		MaxHistorySize: 100,
		EnableMetrics:  true,
	})

	if pgProgress != nil && rankCache != nil {
		rebuildJob := jobs.NewRebuildRanksJob(
			pgProgress, rankCache, slogger, jobs.DefaultRebuildRanksConfig())
		if err := sched.Register(rebuildJob, scheduler.NewIntervalSchedule(1*time.Hour)); err != nil {
			return fmt.Errorf("register rebuild_ranks job: %w", err)
		}
	}

	if awardRepo != nil && ledgerClient != nil {
		reverifyJob := jobs.NewReverifyAwardsJob(
			awardRepo, ledgerClient, slogger, jobs.DefaultReverifyAwardsConfig())
		if err := sched.Register(reverifyJob, scheduler.NewIntervalSchedule(15*time.Minute)); err != nil {
			return fmt.Errorf("register reverify_awards job: %w", err)
		}
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	// ─────────────────────────────────────────────────────────────────────────
	// Stage 9: HTTP server
	// ─────────────────────────────────────────────────────────────────────────

	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	if conn != nil {
		healthChecker.AddCheck("database", handlers.NewDatabaseCheck(conn))
	}
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}
	if ledgerClient != nil {
		healthChecker.AddCheck("ledger", handlers.NewLedgerCheck(ledgerClient))
	}

	serverConfig := httpapi.DefaultConfig()
	serverConfig.EnableMetrics = cfg.Observability.MetricsEnabled
	if keys := os.Getenv("API_KEYS"); keys != "" {
		serverConfig.APIKeys = strings.Split(keys, ",")
	}

	serverDeps := httpapi.Dependencies{
		Orchestrator:           orchestrator,
		GetLeaderboardHandler:  query.NewGetLeaderboardHandler(rankCache),
		GetUserProgressHandler: query.NewGetUserProgressHandler(progressStore, awardRepo, rankCache),
		Catalog:                badgeCatalog,
		Logger:                 appLogger,
		HealthChecker:          healthChecker,
	}
	if awardRepo != nil {
		serverDeps.AwardCounts = awardRepo
	}
	server := httpapi.NewServer(serverConfig, serverDeps)

	serverErr := server.StartAsync()
	slogger.Info("http server started", "address", serverConfig.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// Stage 10: Wait for shutdown
	// ─────────────────────────────────────────────────────────────────────────

	select {
	case <-ctx.Done():
		slogger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slogger.Error("server shutdown error", "error", err)
	}

	slogger.Info("gamification engine stopped")
	return nil
}

// setupLogger builds the process-wide slog logger from configuration.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Observability.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" || cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		"app", cfg.App.Name,
		"version", cfg.App.Version,
	)
}
