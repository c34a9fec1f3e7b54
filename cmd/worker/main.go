// Package main is the entry point for the progress engine worker.
//
// The worker owns the periodic maintenance jobs: sweeping stale unlinked
// visitor records and flushing the dashboard cache. It runs separately
// from the API server so a slow sweep never competes with request
// traffic for the connection pool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/makerpath/progress-hub/config"
	"github.com/makerpath/progress-hub/internal/infrastructure/persistence/postgres"
	"github.com/makerpath/progress-hub/internal/infrastructure/persistence/redis"
	"github.com/makerpath/progress-hub/internal/infrastructure/scheduler"
	"github.com/makerpath/progress-hub/internal/infrastructure/scheduler/jobs"
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
	log.Info("starting progress engine worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled; nothing to run")
	}

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

	// ─────────────────────────────────────────────────────────────────────────
	// Jobs
	// ─────────────────────────────────────────────────────────────────────────

	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:   log,
		Timezone: cfg.App.Location,
	})

	if cfg.Features.IsEnabled(config.FeatureVisitorSweep, nil) {
		sweep := jobs.NewSweepStaleVisitorsJob(
			postgres.NewProgressRepository(conn),
			cfg.Engine.StaleVisitorRetention,
			log,
		)
		schedule := scheduler.NewDailySchedule(cfg.Scheduler.StaleSweepHour, cfg.Scheduler.StaleSweepMinute)
		if err := sched.Register(sweep, schedule); err != nil {
			return fmt.Errorf("register sweep job: %w", err)
		}
	}

	if cache != nil && cfg.Features.IsEnabled(config.FeatureDashboardRefresh, nil) {
		refresh := jobs.NewRefreshDashboardsJob(cache, redis.PrefixDashboard+"*", log)
		schedule := scheduler.NewIntervalSchedule(cfg.Scheduler.DashboardRefreshInterval)
		if err := sched.Register(refresh, schedule); err != nil {
			return fmt.Errorf("register refresh job: %w", err)
		}
	}

	if len(sched.ListJobs()) == 0 {
		return fmt.Errorf("no jobs enabled; nothing to run")
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	if err := sched.Stop(); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}

	log.Info("worker stopped")
	return nil
}
