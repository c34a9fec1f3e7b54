package jobs

import (
	"context"
	"fmt"

	"github.com/makerpath/progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD CACHE REFRESH
// ══════════════════════════════════════════════════════════════════════════════

// PatternInvalidator drops cache entries by key pattern.
// Satisfied by the redis Cache.
type PatternInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RefreshDashboardsJob periodically drops all cached dashboard views so the
// next read rebuilds them from the stores. Event-driven invalidation keeps
// dashboards fresh during normal operation; this job is the backstop for
// invalidations lost to crashes or manual data fixes.
type RefreshDashboardsJob struct {
	invalidator PatternInvalidator
	pattern     string
	log         *logger.Logger
}

// NewRefreshDashboardsJob creates the refresh job. pattern is the cache key
// glob for dashboard entries, e.g. "dashboard:*".
func NewRefreshDashboardsJob(invalidator PatternInvalidator, pattern string, log *logger.Logger) *RefreshDashboardsJob {
	if log == nil {
		log = logger.Default()
	}
	return &RefreshDashboardsJob{
		invalidator: invalidator,
		pattern:     pattern,
		log:         log.With(logger.String("job", "refresh_dashboards")),
	}
}

// Name returns the job name.
func (j *RefreshDashboardsJob) Name() string {
	return "refresh_dashboards"
}

// Description returns a human-readable description.
func (j *RefreshDashboardsJob) Description() string {
	return "Drops cached dashboard views so reads rebuild them from the stores"
}

// Run executes the refresh.
func (j *RefreshDashboardsJob) Run(ctx context.Context) error {
	if err := j.invalidator.DeleteByPattern(ctx, j.pattern); err != nil {
		return fmt.Errorf("refresh dashboards: %w", err)
	}

	j.log.Debug("dashboard cache flushed", logger.String("pattern", j.pattern))
	return nil
}
