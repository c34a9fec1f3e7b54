package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/makerpath/progress-hub/internal/domain/achievement"
	"github.com/makerpath/progress-hub/internal/domain/content"
	"github.com/makerpath/progress-hub/internal/domain/identity"
	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATE ACHIEVEMENTS COMMAND
// Assembles the account's aggregate stats, asks the achievement engine what
// was newly earned, persists the grants at most once, and credits reward XP.
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateAchievementsCommand triggers an achievement sweep for an account.
type EvaluateAchievementsCommand struct {
	// AccountID - the learner to evaluate.
	AccountID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EvaluateAchievementsCommand) Validate() error {
	if c.AccountID == "" {
		return errors.New("evaluate_achievements: account id is required")
	}
	return nil
}

// EvaluateAchievementsResult contains the newly granted achievements.
type EvaluateAchievementsResult struct {
	// Granted - codes granted in this sweep.
	Granted []string

	// RewardXP - total XP credited for the new grants.
	RewardXP int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateAchievementsHandler handles the EvaluateAchievementsCommand.
type EvaluateAchievementsHandler struct {
	engine          *achievement.Engine
	catalog         *content.Catalog
	completionRepo  content.CompletionRepository
	streakRepo      streak.Repository
	achievementRepo achievement.Repository
	accountRepo     identity.Repository
	eventPublisher  shared.EventPublisher
}

// NewEvaluateAchievementsHandler creates a new EvaluateAchievementsHandler.
func NewEvaluateAchievementsHandler(
	engine *achievement.Engine,
	catalog *content.Catalog,
	completionRepo content.CompletionRepository,
	streakRepo streak.Repository,
	achievementRepo achievement.Repository,
	accountRepo identity.Repository,
	eventPublisher shared.EventPublisher,
) *EvaluateAchievementsHandler {
	return &EvaluateAchievementsHandler{
		engine:          engine,
		catalog:         catalog,
		completionRepo:  completionRepo,
		streakRepo:      streakRepo,
		achievementRepo: achievementRepo,
		accountRepo:     accountRepo,
		eventPublisher:  eventPublisher,
	}
}

// Handle executes the achievement sweep. Safe to run after every progress
// change: the repository's insert-if-absent plus the existing-codes guard
// keep each achievement at most once.
func (h *EvaluateAchievementsHandler) Handle(ctx context.Context, cmd EvaluateAchievementsCommand) (*EvaluateAchievementsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("evaluate_achievements: validation failed: %w", err)
	}

	accountID, err := shared.NewAccountID(cmd.AccountID)
	if err != nil {
		return nil, fmt.Errorf("evaluate_achievements: %w", err)
	}

	stats, err := h.assembleStats(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("evaluate_achievements: %w", err)
	}

	existing, err := h.achievementRepo.ListCodes(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("evaluate_achievements: failed to list grants: %w", err)
	}

	result := &EvaluateAchievementsResult{}

	for _, grant := range h.engine.Evaluate(accountID, stats, existing) {
		g := grant
		inserted, err := h.achievementRepo.Insert(ctx, &g)
		if err != nil {
			return nil, fmt.Errorf("evaluate_achievements: failed to insert grant %s: %w", g.Code, err)
		}
		if !inserted {
			// A concurrent sweep got there first.
			continue
		}

		result.Granted = append(result.Granted, g.Code)
		result.RewardXP += g.RewardXP

		event := shared.NewAchievementGrantedEvent(accountID.String(), g.Code, g.RewardXP, g.Secret)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(event)
	}

	if result.RewardXP > 0 {
		newTotal, err := h.accountRepo.AddXP(ctx, accountID, result.RewardXP)
		if err != nil {
			return nil, fmt.Errorf("evaluate_achievements: failed to credit XP: %w", err)
		}
		xpEvent := shared.NewXPGainedEvent(accountID.String(), result.RewardXP, newTotal.Int(), "achievement")
		if cmd.CorrelationID != "" {
			xpEvent.BaseEvent = xpEvent.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(xpEvent)
	}

	return result, nil
}

// assembleStats folds completion states, the streak, and the catalog into
// the aggregates the engine measures against.
func (h *EvaluateAchievementsHandler) assembleStats(ctx context.Context, accountID shared.AccountID) (achievement.Stats, error) {
	states, err := h.completionRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return achievement.Stats{}, fmt.Errorf("failed to list completion states: %w", err)
	}

	stats := achievement.Stats{TotalModuleCount: h.catalog.ModuleCount()}

	for slug, state := range states {
		stats.TotalTimeSpentMinutes += state.TimeSpentMinutes
		if state.QuizScore != nil && *state.QuizScore >= 100 {
			stats.PerfectQuizzes++
		}
		if !state.IsCompleted() {
			continue
		}
		unit, err := h.catalog.Unit(slug)
		if err != nil {
			// Unit dropped from the catalog; its completion still counts
			// as a lesson.
			stats.LessonsCompleted++
			continue
		}
		if unit.Kind == content.UnitModule {
			stats.ModulesCompleted++
		} else {
			stats.LessonsCompleted++
		}
	}

	state, err := h.streakRepo.Get(ctx, accountID)
	switch {
	case err == nil:
		stats.CurrentStreak = state.Current
	case shared.IsNotFound(err):
		// No activity yet.
	default:
		return achievement.Stats{}, fmt.Errorf("failed to load streak: %w", err)
	}

	return stats, nil
}
