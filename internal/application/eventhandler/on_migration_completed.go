package eventhandler

import (
	"context"

	"github.com/makerpath/progress-hub/internal/application/command"
	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON MIGRATION COMPLETED HANDLER
// After a visitor's records land on an account, the account gets its default
// unlocks, a full unlock evaluation over the migrated state, and an
// achievement sweep. The dashboard cache is dropped last.
// ══════════════════════════════════════════════════════════════════════════════

// OnMigrationCompletedHandler reacts to finished migrations.
type OnMigrationCompletedHandler struct {
	unlockHandler      *command.EvaluateUnlocksHandler
	achievementHandler *command.EvaluateAchievementsHandler
	invalidator        DashboardInvalidator
	log                *logger.Logger
}

// NewOnMigrationCompletedHandler creates a new OnMigrationCompletedHandler.
func NewOnMigrationCompletedHandler(
	unlockHandler *command.EvaluateUnlocksHandler,
	achievementHandler *command.EvaluateAchievementsHandler,
	invalidator DashboardInvalidator,
	log *logger.Logger,
) *OnMigrationCompletedHandler {
	return &OnMigrationCompletedHandler{
		unlockHandler:      unlockHandler,
		achievementHandler: achievementHandler,
		invalidator:        invalidator,
		log:                log.With(logger.Component("on_migration_completed")),
	}
}

// Register subscribes the handler on the bus.
func (h *OnMigrationCompletedHandler) Register(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventMigrationCompleted, h.Handle)
}

// Handle processes a migration completion event.
func (h *OnMigrationCompletedHandler) Handle(event shared.Event) error {
	migrated, ok := event.(shared.MigrationCompletedEvent)
	if !ok {
		h.log.Warn("received unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	ctx := context.Background()
	log := h.log.With(
		logger.AccountID(migrated.AccountID),
		logger.VisitorID(migrated.VisitorID),
	)

	if err := h.unlockHandler.EnsureDefaults(ctx, migrated.AccountID, migrated.CorrelationID); err != nil {
		log.Error("failed to ensure default unlocks", logger.Err(err))
	}

	// Full evaluation: migrated records may satisfy conditions for units
	// far from any single change.
	unlocks, err := h.unlockHandler.Handle(ctx, command.EvaluateUnlocksCommand{
		AccountID:     migrated.AccountID,
		CorrelationID: migrated.CorrelationID,
	})
	if err != nil {
		log.Error("failed to evaluate unlocks", logger.Err(err))
	} else if len(unlocks.Unlocked) > 0 {
		log.Info("units unlocked after migration", logger.Any("unlocked", unlocks.Unlocked))
	}

	if _, err := h.achievementHandler.Handle(ctx, command.EvaluateAchievementsCommand{
		AccountID:     migrated.AccountID,
		CorrelationID: migrated.CorrelationID,
	}); err != nil {
		log.Error("failed to evaluate achievements", logger.Err(err))
	}

	if h.invalidator != nil {
		if accountID, err := shared.NewAccountID(migrated.AccountID); err == nil {
			if err := h.invalidator.InvalidateDashboard(ctx, accountID); err != nil {
				log.Warn("failed to invalidate dashboard cache", logger.Err(err))
			}
		}
	}

	return nil
}
