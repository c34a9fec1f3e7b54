// Package main is the entry point for the progress engine API server.
//
// The server owns the synchronous surface: snapshot saves, identity
// linking, migration, completion calls, and dashboard reads. Unit
// completion and migration publish domain events; the in-process bus
// carries them to the unlock, achievement, and cache handlers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/makerpath/progress-hub/config"
	"github.com/makerpath/progress-hub/internal/application/command"
	"github.com/makerpath/progress-hub/internal/application/eventhandler"
	"github.com/makerpath/progress-hub/internal/application/query"
	"github.com/makerpath/progress-hub/internal/domain/achievement"
	"github.com/makerpath/progress-hub/internal/domain/content"
	"github.com/makerpath/progress-hub/internal/infrastructure/external/contentgen"
	"github.com/makerpath/progress-hub/internal/infrastructure/messaging"
	"github.com/makerpath/progress-hub/internal/infrastructure/persistence/postgres"
	"github.com/makerpath/progress-hub/internal/infrastructure/persistence/redis"
	httpiface "github.com/makerpath/progress-hub/internal/interface/http"
	"github.com/makerpath/progress-hub/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	})
	log.Info("starting progress engine",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─────────────────────────────────────────────────────────────────────────
	// Storage
	// ─────────────────────────────────────────────────────────────────────────

	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close()

	if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	var cache *redis.Cache
	if !cfg.Redis.Disabled {
		cache, err = redis.NewCache(redis.Config{
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
		defer cache.Close()
	}

	progressRepo := postgres.NewProgressRepository(conn)
	accountRepo := postgres.NewAccountRepository(conn)
	formRepo := postgres.NewFormResponseRepository(conn)
	checklistRepo := postgres.NewChecklistRepository(conn)
	completionRepo := postgres.NewCompletionRepository(conn)
	unlockRepo := postgres.NewUnlockRepository(conn)
	streakRepo := postgres.NewStreakRepository(conn)
	achievementRepo := postgres.NewAchievementRepository(conn)

	// ─────────────────────────────────────────────────────────────────────────
	// Domain configuration
	// ─────────────────────────────────────────────────────────────────────────

	catalogData, err := os.ReadFile(cfg.Engine.CatalogPath)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", cfg.Engine.CatalogPath, err)
	}
	catalog, err := content.ParseCatalog(catalogData)
	if err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}

	definitions := achievement.DefaultCatalog()
	engine, err := achievement.NewEngine(definitions)
	if err != nil {
		return fmt.Errorf("build achievement engine: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Event bus and handlers
	// ─────────────────────────────────────────────────────────────────────────

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
		Logger:         slog.Default(),
	})
	defer bus.Close()

	saveProgress := command.NewSaveProgressHandler(progressRepo)
	linkIdentity := command.NewLinkIdentityHandler(progressRepo, accountRepo, bus)
	migrate := command.NewMigrateProgressHandler(progressRepo, formRepo, checklistRepo, bus, log)
	unitProgress := command.NewUnitProgressHandler(catalog, completionRepo, bus, command.UnitProgressHandlerConfig{
		PassingQuizScore: cfg.Engine.PassingQuizScore,
	})
	recordActivity := command.NewRecordActivityHandler(streakRepo, accountRepo, bus, command.RecordActivityHandlerConfig{
		HistoryWindowDays: cfg.Engine.StreakHistoryDays,
	})
	evaluateUnlocks := command.NewEvaluateUnlocksHandler(catalog, completionRepo, unlockRepo, bus)
	evaluateAchievements := command.NewEvaluateAchievementsHandler(
		engine, catalog, completionRepo, streakRepo, achievementRepo, accountRepo, bus,
	)

	getProgress := query.NewGetProgressHandler(progressRepo)

	var dashboardCache query.DashboardCache
	var invalidator eventhandler.DashboardInvalidator
	if cache != nil {
		dc := redis.NewDashboardCache(cache)
		dashboardCache = dc
		invalidator = dc
	}

	getDashboard := query.NewGetDashboardHandler(
		catalog, definitions, accountRepo, completionRepo, unlockRepo,
		streakRepo, achievementRepo, dashboardCache, log,
	)

	onUnitCompleted := eventhandler.NewOnUnitCompletedHandler(
		recordActivity, evaluateUnlocks, evaluateAchievements, invalidator, log,
	)
	if err := onUnitCompleted.Register(bus); err != nil {
		return fmt.Errorf("register unit completion handler: %w", err)
	}

	onMigrationCompleted := eventhandler.NewOnMigrationCompletedHandler(
		evaluateUnlocks, evaluateAchievements, invalidator, log,
	)
	if err := onMigrationCompleted.Register(bus); err != nil {
		return fmt.Errorf("register migration handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Content generation
	// ─────────────────────────────────────────────────────────────────────────

	var generator *contentgen.CachedGenerator
	if cfg.ContentGen.BaseURL != "" && !cfg.ContentGen.Disabled {
		rlConfig := contentgen.DefaultRateLimiterConfig()
		rlConfig.RequestsPerSecond = cfg.ContentGen.RateLimit
		rlConfig.BurstSize = cfg.ContentGen.RateLimitBurst

		client := contentgen.NewClient(contentgen.ClientConfig{
			BaseURL:           cfg.ContentGen.BaseURL,
			APIKey:            cfg.ContentGen.APIKey,
			Timeout:           cfg.ContentGen.RequestTimeout,
			RateLimiterConfig: rlConfig,
		}, log)

		var contentCache contentgen.ContentCache
		if cache != nil {
			contentCache = redis.NewContentCache(cache).WithTTL(cfg.ContentGen.CacheTTL)
		}
		generator = contentgen.NewCachedGenerator(client, contentCache, log)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP server
	// ─────────────────────────────────────────────────────────────────────────

	healthCheckers := map[string]httpiface.HealthChecker{
		"postgres": conn,
	}
	if cache != nil {
		healthCheckers["redis"] = cache
	}

	server := httpiface.NewServer(httpiface.Config{
		Host:               cfg.HTTP.Host,
		Port:               cfg.HTTP.Port,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:     1 << 20,
		EnableCORS:         cfg.HTTP.EnableCORS,
		AllowedOrigins:     cfg.HTTP.AllowedOrigins,
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
		APIKeyHeader:       cfg.HTTP.APIKeyHeader,
		APIKeyHashes:       cfg.HTTP.APIKeyHashes,
	}, httpiface.Dependencies{
		SaveProgress:    saveProgress,
		LinkIdentity:    linkIdentity,
		Migrate:         migrate,
		UnitProgress:    unitProgress,
		RecordActivity:  recordActivity,
		EvaluateUnlocks: evaluateUnlocks,
		GetProgress:     getProgress,
		GetDashboard:    getDashboard,
		ContentGen:      generator,
		Logger:          log,
		HealthCheckers:  healthCheckers,
	})

	errCh := server.StartAsync()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	log.Info("progress engine stopped")
	return nil
}
