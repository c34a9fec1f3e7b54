package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/makerpath/progress-hub/internal/domain/identity"
	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ACTIVITY COMMAND
// Feeds a learning session into the account's daily streak and touches the
// account's last-activity timestamp.
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityCommand contains one learning session to record.
type RecordActivityCommand struct {
	// AccountID - the learner.
	AccountID string

	// At - when the activity happened. Defaults to now.
	At time.Time

	// Minutes - active minutes in the session.
	Minutes int

	// LessonsCompleted - units finished in the session.
	LessonsCompleted int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordActivityCommand) Validate() error {
	if c.AccountID == "" {
		return errors.New("record_activity: account id is required")
	}
	if c.Minutes < 0 {
		return errors.New("record_activity: minutes cannot be negative")
	}
	if c.LessonsCompleted < 0 {
		return errors.New("record_activity: lessons completed cannot be negative")
	}
	return nil
}

// RecordActivityResult contains the streak outcome.
type RecordActivityResult struct {
	// CurrentStreak - streak length after the activity.
	CurrentStreak int

	// LongestStreak - longest streak ever reached.
	LongestStreak int

	// Extended - the streak grew by one day.
	Extended bool

	// SameDay - the activity fell on the already-counted day.
	SameDay bool

	// StreakBroken - the streak reset with this activity.
	StreakBroken bool

	// PreviousStreak - streak length before a reset.
	PreviousStreak int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityHandlerConfig contains configuration for the handler.
type RecordActivityHandlerConfig struct {
	// HistoryWindowDays - how many daily entries to retain per account.
	HistoryWindowDays int
}

// DefaultRecordActivityHandlerConfig returns default configuration.
func DefaultRecordActivityHandlerConfig() RecordActivityHandlerConfig {
	return RecordActivityHandlerConfig{HistoryWindowDays: streak.DefaultHistoryWindow}
}

// RecordActivityHandler handles the RecordActivityCommand.
type RecordActivityHandler struct {
	streakRepo     streak.Repository
	accountRepo    identity.Repository
	eventPublisher shared.EventPublisher
	config         RecordActivityHandlerConfig
}

// NewRecordActivityHandler creates a new RecordActivityHandler.
func NewRecordActivityHandler(
	streakRepo streak.Repository,
	accountRepo identity.Repository,
	eventPublisher shared.EventPublisher,
	config RecordActivityHandlerConfig,
) *RecordActivityHandler {
	if config.HistoryWindowDays <= 0 {
		config = DefaultRecordActivityHandlerConfig()
	}
	return &RecordActivityHandler{
		streakRepo:     streakRepo,
		accountRepo:    accountRepo,
		eventPublisher: eventPublisher,
		config:         config,
	}
}

// Handle executes the record activity command.
func (h *RecordActivityHandler) Handle(ctx context.Context, cmd RecordActivityCommand) (*RecordActivityResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_activity: validation failed: %w", err)
	}

	accountID, err := shared.NewAccountID(cmd.AccountID)
	if err != nil {
		return nil, fmt.Errorf("record_activity: %w", err)
	}

	at := cmd.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	state, err := h.streakRepo.GetOrNew(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("record_activity: failed to load streak: %w", err)
	}

	outcome, err := state.Record(streak.Activity{
		At:               at,
		Minutes:          cmd.Minutes,
		LessonsCompleted: cmd.LessonsCompleted,
	}, h.config.HistoryWindowDays)
	if err != nil {
		return nil, fmt.Errorf("record_activity: %w", err)
	}

	if err := h.streakRepo.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("record_activity: failed to save streak: %w", err)
	}

	// Bookkeeping only; a failure here must not undo the recorded streak.
	_ = h.accountRepo.TouchLastActive(ctx, accountID, at)

	h.publishEvents(accountID, state, outcome, cmd.CorrelationID)

	return &RecordActivityResult{
		CurrentStreak:  state.Current,
		LongestStreak:  state.Longest,
		Extended:       outcome.Extended,
		SameDay:        outcome.SameDay,
		StreakBroken:   outcome.Reset,
		PreviousStreak: outcome.Previous,
	}, nil
}

func (h *RecordActivityHandler) publishEvents(accountID shared.AccountID, state *streak.State, outcome streak.Result, correlationID string) {
	if outcome.Reset {
		broken := shared.NewStreakBrokenEvent(accountID.String(), outcome.Previous, outcome.DaysMissed)
		if correlationID != "" {
			broken.BaseEvent = broken.BaseEvent.WithCorrelationID(correlationID)
		}
		_ = h.eventPublisher.Publish(broken)
	}

	updated := shared.NewStreakUpdatedEvent(accountID.String(), state.Current, state.Longest, outcome.Extended)
	if correlationID != "" {
		updated.BaseEvent = updated.BaseEvent.WithCorrelationID(correlationID)
	}
	_ = h.eventPublisher.Publish(updated)
}
