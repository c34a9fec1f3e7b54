package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/makerpath/progress-hub/internal/domain/content"
	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATE UNLOCKS COMMAND
// Turns completion-state changes into unlock records. Unlocks are monotonic:
// the repository inserts at most one record per (account, unit) and nothing
// ever removes one, even if the gating condition would no longer hold.
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateUnlocksCommand evaluates unlock conditions after a unit's state
// changed for an account.
type EvaluateUnlocksCommand struct {
	// AccountID - the learner.
	AccountID string

	// ChangedUnit - the unit whose completion state changed. Empty means
	// evaluate the whole catalog (used after migration).
	ChangedUnit string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EvaluateUnlocksCommand) Validate() error {
	if c.AccountID == "" {
		return errors.New("evaluate_unlocks: account id is required")
	}
	return nil
}

// EvaluateUnlocksResult lists the units newly unlocked by this evaluation.
type EvaluateUnlocksResult struct {
	// Unlocked - slugs of units that gained an unlock record.
	Unlocked []string
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateUnlocksHandler handles the EvaluateUnlocksCommand.
type EvaluateUnlocksHandler struct {
	catalog        *content.Catalog
	evaluator      *content.Evaluator
	completionRepo content.CompletionRepository
	unlockRepo     content.UnlockRepository
	eventPublisher shared.EventPublisher
}

// NewEvaluateUnlocksHandler creates a new EvaluateUnlocksHandler.
func NewEvaluateUnlocksHandler(
	catalog *content.Catalog,
	completionRepo content.CompletionRepository,
	unlockRepo content.UnlockRepository,
	eventPublisher shared.EventPublisher,
) *EvaluateUnlocksHandler {
	return &EvaluateUnlocksHandler{
		catalog:        catalog,
		evaluator:      content.NewEvaluator(catalog),
		completionRepo: completionRepo,
		unlockRepo:     unlockRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the unlock evaluation.
func (h *EvaluateUnlocksHandler) Handle(ctx context.Context, cmd EvaluateUnlocksCommand) (*EvaluateUnlocksResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("evaluate_unlocks: validation failed: %w", err)
	}

	accountID, err := shared.NewAccountID(cmd.AccountID)
	if err != nil {
		return nil, fmt.Errorf("evaluate_unlocks: %w", err)
	}

	states, err := h.completionRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("evaluate_unlocks: failed to list completion states: %w", err)
	}

	var candidates []*content.Unit
	if cmd.ChangedUnit == "" {
		candidates = h.evaluator.EvaluateAll(states)
	} else {
		changed, err := shared.NewUnitSlug(cmd.ChangedUnit)
		if err != nil {
			return nil, fmt.Errorf("evaluate_unlocks: %w", err)
		}
		candidates = h.evaluator.EvaluateDependents(changed, states)
	}

	result := &EvaluateUnlocksResult{}
	for _, unit := range candidates {
		inserted, err := h.unlock(ctx, accountID, unit.Slug, content.ReasonPrerequisite, cmd.CorrelationID)
		if err != nil {
			return nil, fmt.Errorf("evaluate_unlocks: %w", err)
		}
		if inserted {
			result.Unlocked = append(result.Unlocked, unit.Slug.String())
		}
	}

	return result, nil
}

// EnsureDefaults records unlock records for every condition-free unit.
// Called when an account first appears (registration or migration).
func (h *EvaluateUnlocksHandler) EnsureDefaults(ctx context.Context, rawAccountID, correlationID string) error {
	accountID, err := shared.NewAccountID(rawAccountID)
	if err != nil {
		return fmt.Errorf("evaluate_unlocks: %w", err)
	}
	for _, unit := range h.catalog.DefaultUnlocked() {
		if _, err := h.unlock(ctx, accountID, unit.Slug, content.ReasonDefault, correlationID); err != nil {
			return fmt.Errorf("evaluate_unlocks: %w", err)
		}
	}
	return nil
}

// Grant records an unlock outside the condition graph: achievement rewards
// and operator overrides.
func (h *EvaluateUnlocksHandler) Grant(ctx context.Context, rawAccountID, rawSlug string, reason content.UnlockReason, correlationID string) (bool, error) {
	accountID, err := shared.NewAccountID(rawAccountID)
	if err != nil {
		return false, fmt.Errorf("evaluate_unlocks: %w", err)
	}
	slug, err := shared.NewUnitSlug(rawSlug)
	if err != nil {
		return false, fmt.Errorf("evaluate_unlocks: %w", err)
	}
	if _, err := h.catalog.Unit(slug); err != nil {
		return false, fmt.Errorf("evaluate_unlocks: %w", err)
	}
	if reason != content.ReasonAchievement && reason != content.ReasonManual {
		return false, shared.ErrUnknownUnlockReason
	}
	return h.unlock(ctx, accountID, slug, reason, correlationID)
}

// unlock inserts one unlock record and publishes the event when it is new.
func (h *EvaluateUnlocksHandler) unlock(ctx context.Context, accountID shared.AccountID, slug shared.UnitSlug, reason content.UnlockReason, correlationID string) (bool, error) {
	record, err := content.NewUnlockRecord(accountID, slug, reason)
	if err != nil {
		return false, err
	}
	inserted, err := h.unlockRepo.Insert(ctx, record)
	if err != nil {
		return false, fmt.Errorf("failed to insert unlock for %s: %w", slug, err)
	}
	if !inserted {
		return false, nil
	}

	event := shared.NewUnitUnlockedEvent(accountID.String(), slug.String(), reason.String())
	if correlationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(correlationID)
	}
	_ = h.eventPublisher.Publish(event)
	return true, nil
}
