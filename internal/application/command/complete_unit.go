package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/makerpath/progress-hub/internal/domain/content"
	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT PROGRESS COMMANDS
// Two write paths into completion state: incremental step/quiz/time updates
// while a learner works through a unit, and the terminal unit completion
// that fires the unlock evaluation downstream.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateUnitProgressCommand records incremental progress inside a unit.
type UpdateUnitProgressCommand struct {
	// AccountID - the learner.
	AccountID string

	// UnitSlug - the unit being worked on.
	UnitSlug string

	// SubUnitID - a finished step, if any.
	SubUnitID string

	// QuizScore - a quiz result (0-100), if any.
	QuizScore *float64

	// TimeSpentMinutes - active minutes to accumulate.
	TimeSpentMinutes int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c UpdateUnitProgressCommand) Validate() error {
	if c.AccountID == "" {
		return errors.New("update_unit_progress: account id is required")
	}
	if c.UnitSlug == "" {
		return errors.New("update_unit_progress: unit slug is required")
	}
	if c.SubUnitID == "" && c.QuizScore == nil && c.TimeSpentMinutes <= 0 {
		return errors.New("update_unit_progress: nothing to record")
	}
	return nil
}

// CompleteUnitCommand marks a unit as completed.
type CompleteUnitCommand struct {
	// AccountID - the learner.
	AccountID string

	// UnitSlug - the completed unit.
	UnitSlug string

	// QuizScore - final quiz result to record alongside completion, if any.
	QuizScore *float64

	// TimeSpentMinutes - active minutes to accumulate with the completion.
	TimeSpentMinutes int

	// CompletedAt - when the unit was finished. Defaults to now.
	CompletedAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CompleteUnitCommand) Validate() error {
	if c.AccountID == "" {
		return errors.New("complete_unit: account id is required")
	}
	if c.UnitSlug == "" {
		return errors.New("complete_unit: unit slug is required")
	}
	return nil
}

// CompleteUnitResult contains the result of completing a unit.
type CompleteUnitResult struct {
	// AlreadyCompleted - the unit was completed before this call.
	AlreadyCompleted bool

	// QuizPassed - whether the recorded score met the passing threshold.
	// Nil when no score was recorded.
	QuizPassed *bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UnitProgressHandlerConfig contains configuration for the handler.
type UnitProgressHandlerConfig struct {
	// PassingQuizScore - minimum score counted as a pass.
	PassingQuizScore float64
}

// DefaultUnitProgressHandlerConfig returns default configuration.
func DefaultUnitProgressHandlerConfig() UnitProgressHandlerConfig {
	return UnitProgressHandlerConfig{PassingQuizScore: 70}
}

// UnitProgressHandler handles both unit progress commands.
type UnitProgressHandler struct {
	catalog        *content.Catalog
	completionRepo content.CompletionRepository
	eventPublisher shared.EventPublisher
	config         UnitProgressHandlerConfig
}

// NewUnitProgressHandler creates a new UnitProgressHandler.
func NewUnitProgressHandler(
	catalog *content.Catalog,
	completionRepo content.CompletionRepository,
	eventPublisher shared.EventPublisher,
	config UnitProgressHandlerConfig,
) *UnitProgressHandler {
	if config.PassingQuizScore == 0 {
		config = DefaultUnitProgressHandlerConfig()
	}
	return &UnitProgressHandler{
		catalog:        catalog,
		completionRepo: completionRepo,
		eventPublisher: eventPublisher,
		config:         config,
	}
}

// getOrStartState loads the account's state for a unit, starting one on
// first contact.
func (h *UnitProgressHandler) getOrStartState(ctx context.Context, accountID shared.AccountID, slug shared.UnitSlug) (*content.CompletionState, error) {
	state, err := h.completionRepo.Get(ctx, accountID, slug)
	if err == nil {
		return state, nil
	}
	if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load completion state: %w", err)
	}
	return content.NewCompletionState(accountID, slug)
}

// HandleUpdate executes the incremental progress command.
func (h *UnitProgressHandler) HandleUpdate(ctx context.Context, cmd UpdateUnitProgressCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("update_unit_progress: validation failed: %w", err)
	}

	slug, err := shared.NewUnitSlug(cmd.UnitSlug)
	if err != nil {
		return fmt.Errorf("update_unit_progress: %w", err)
	}
	unit, err := h.catalog.Unit(slug)
	if err != nil {
		return fmt.Errorf("update_unit_progress: %w", err)
	}
	accountID, err := shared.NewAccountID(cmd.AccountID)
	if err != nil {
		return fmt.Errorf("update_unit_progress: %w", err)
	}

	state, err := h.getOrStartState(ctx, accountID, slug)
	if err != nil {
		return fmt.Errorf("update_unit_progress: %w", err)
	}

	if cmd.SubUnitID != "" {
		if err := state.CompleteSubUnit(unit, cmd.SubUnitID); err != nil {
			return fmt.Errorf("update_unit_progress: %w", err)
		}
	}
	if cmd.QuizScore != nil {
		if err := state.RecordQuizScore(*cmd.QuizScore); err != nil {
			return fmt.Errorf("update_unit_progress: %w", err)
		}
	}
	state.AddTimeSpent(cmd.TimeSpentMinutes)

	if err := h.completionRepo.Save(ctx, state); err != nil {
		return fmt.Errorf("update_unit_progress: failed to save state: %w", err)
	}
	return nil
}

// HandleComplete executes the unit completion command. Completion is
// terminal and repeat calls are no-ops; the completion event fires only on
// the first transition so downstream unlock evaluation sees each
// completion exactly once.
func (h *UnitProgressHandler) HandleComplete(ctx context.Context, cmd CompleteUnitCommand) (*CompleteUnitResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("complete_unit: validation failed: %w", err)
	}

	slug, err := shared.NewUnitSlug(cmd.UnitSlug)
	if err != nil {
		return nil, fmt.Errorf("complete_unit: %w", err)
	}
	if _, err := h.catalog.Unit(slug); err != nil {
		return nil, fmt.Errorf("complete_unit: %w", err)
	}
	accountID, err := shared.NewAccountID(cmd.AccountID)
	if err != nil {
		return nil, fmt.Errorf("complete_unit: %w", err)
	}

	state, err := h.getOrStartState(ctx, accountID, slug)
	if err != nil {
		return nil, fmt.Errorf("complete_unit: %w", err)
	}

	result := &CompleteUnitResult{AlreadyCompleted: state.IsCompleted()}

	if cmd.QuizScore != nil {
		if err := state.RecordQuizScore(*cmd.QuizScore); err != nil {
			return nil, fmt.Errorf("complete_unit: %w", err)
		}
		passed := *cmd.QuizScore >= h.config.PassingQuizScore
		result.QuizPassed = &passed
	}
	state.AddTimeSpent(cmd.TimeSpentMinutes)

	completedAt := cmd.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}
	state.Complete(completedAt)

	if err := h.completionRepo.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("complete_unit: failed to save state: %w", err)
	}

	if !result.AlreadyCompleted {
		event := shared.NewUnitCompletedEvent(accountID.String(), slug.String(), cmd.QuizScore, cmd.TimeSpentMinutes)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(event)
	}

	return result, nil
}
