// Package jobs contains the scheduled jobs of the progress engine.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/makerpath/progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// STALE VISITOR SWEEP
// ══════════════════════════════════════════════════════════════════════════════

// StaleRecordDeleter removes abandoned visitor snapshots.
// Satisfied by the postgres progress repository.
type StaleRecordDeleter interface {
	DeleteStaleVisitorRecords(ctx context.Context, cutoff time.Time) (int, error)
}

// DefaultStaleAfter is how long an unlinked visitor record may sit untouched
// before the sweep removes it. Linked records are never swept: the learner
// has identified themselves and migration will claim the data.
const DefaultStaleAfter = 90 * 24 * time.Hour

// SweepStaleVisitorsJob periodically deletes visitor records that were never
// linked to an email or account and have gone quiet.
type SweepStaleVisitorsJob struct {
	deleter    StaleRecordDeleter
	staleAfter time.Duration
	log        *logger.Logger
}

// NewSweepStaleVisitorsJob creates the sweep job.
func NewSweepStaleVisitorsJob(deleter StaleRecordDeleter, staleAfter time.Duration, log *logger.Logger) *SweepStaleVisitorsJob {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if log == nil {
		log = logger.Default()
	}
	return &SweepStaleVisitorsJob{
		deleter:    deleter,
		staleAfter: staleAfter,
		log:        log.With(logger.String("job", "sweep_stale_visitors")),
	}
}

// Name returns the job name.
func (j *SweepStaleVisitorsJob) Name() string {
	return "sweep_stale_visitors"
}

// Description returns a human-readable description.
func (j *SweepStaleVisitorsJob) Description() string {
	return "Deletes unlinked visitor progress records not touched within the retention window"
}

// Run executes the sweep.
func (j *SweepStaleVisitorsJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.staleAfter)

	deleted, err := j.deleter.DeleteStaleVisitorRecords(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("sweep stale visitors: %w", err)
	}

	if deleted > 0 {
		j.log.Info("stale visitor records deleted",
			logger.Int("deleted", deleted),
			logger.Time("cutoff", cutoff),
		)
	}
	return nil
}
