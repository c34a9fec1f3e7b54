// Package eventhandler contains the domain event handlers that connect the
// write paths: a completed unit feeds the streak, the unlock graph, and the
// achievement sweep without the HTTP layer knowing about any of them.
package eventhandler

import (
	"context"

	"github.com/makerpath/progress-hub/internal/application/command"
	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON UNIT COMPLETED HANDLER
// Reacts to a first-time unit completion:
// 1. Records the activity against the account's daily streak.
// 2. Re-evaluates unlock conditions that depend on the completed unit.
// 3. Runs the achievement sweep with the fresh stats.
// 4. Drops the account's cached dashboard.
// ══════════════════════════════════════════════════════════════════════════════

// DashboardInvalidator drops cached dashboard views for an account.
type DashboardInvalidator interface {
	InvalidateDashboard(ctx context.Context, accountID shared.AccountID) error
}

// OnUnitCompletedHandler reacts to unit completion events.
type OnUnitCompletedHandler struct {
	activityHandler    *command.RecordActivityHandler
	unlockHandler      *command.EvaluateUnlocksHandler
	achievementHandler *command.EvaluateAchievementsHandler
	invalidator        DashboardInvalidator
	log                *logger.Logger
}

// NewOnUnitCompletedHandler creates a new OnUnitCompletedHandler. The
// invalidator may be nil when no cache is wired.
func NewOnUnitCompletedHandler(
	activityHandler *command.RecordActivityHandler,
	unlockHandler *command.EvaluateUnlocksHandler,
	achievementHandler *command.EvaluateAchievementsHandler,
	invalidator DashboardInvalidator,
	log *logger.Logger,
) *OnUnitCompletedHandler {
	return &OnUnitCompletedHandler{
		activityHandler:    activityHandler,
		unlockHandler:      unlockHandler,
		achievementHandler: achievementHandler,
		invalidator:        invalidator,
		log:                log.With(logger.Component("on_unit_completed")),
	}
}

// Register subscribes the handler on the bus.
func (h *OnUnitCompletedHandler) Register(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventUnitCompleted, h.Handle)
}

// Handle processes a unit completion event. Each step is independent: a
// failure is logged and the remaining steps still run, so a flaky streak
// write never withholds an earned unlock.
func (h *OnUnitCompletedHandler) Handle(event shared.Event) error {
	completed, ok := event.(shared.UnitCompletedEvent)
	if !ok {
		h.log.Warn("received unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	ctx := context.Background()
	log := h.log.With(
		logger.AccountID(completed.AccountID),
		logger.UnitSlug(completed.UnitSlug),
	)

	if _, err := h.activityHandler.Handle(ctx, command.RecordActivityCommand{
		AccountID:        completed.AccountID,
		At:               completed.OccurredAt(),
		Minutes:          completed.TimeSpentMinutes,
		LessonsCompleted: 1,
		CorrelationID:    completed.CorrelationID,
	}); err != nil {
		log.Error("failed to record activity", logger.Err(err))
	}

	unlocks, err := h.unlockHandler.Handle(ctx, command.EvaluateUnlocksCommand{
		AccountID:     completed.AccountID,
		ChangedUnit:   completed.UnitSlug,
		CorrelationID: completed.CorrelationID,
	})
	if err != nil {
		log.Error("failed to evaluate unlocks", logger.Err(err))
	} else if len(unlocks.Unlocked) > 0 {
		log.Info("units unlocked", logger.Any("unlocked", unlocks.Unlocked))
	}

	grants, err := h.achievementHandler.Handle(ctx, command.EvaluateAchievementsCommand{
		AccountID:     completed.AccountID,
		CorrelationID: completed.CorrelationID,
	})
	if err != nil {
		log.Error("failed to evaluate achievements", logger.Err(err))
	} else if len(grants.Granted) > 0 {
		log.Info("achievements granted",
			logger.Any("codes", grants.Granted),
			logger.XPAmount(grants.RewardXP))
	}

	h.invalidate(ctx, completed.AccountID, log)
	return nil
}

func (h *OnUnitCompletedHandler) invalidate(ctx context.Context, rawAccountID string, log *logger.Logger) {
	if h.invalidator == nil {
		return
	}
	accountID, err := shared.NewAccountID(rawAccountID)
	if err != nil {
		return
	}
	if err := h.invalidator.InvalidateDashboard(ctx, accountID); err != nil {
		log.Warn("failed to invalidate dashboard cache", logger.Err(err))
	}
}
