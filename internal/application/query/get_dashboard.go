// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/makerpath/progress-hub/internal/domain/achievement"
	"github.com/makerpath/progress-hub/internal/domain/content"
	"github.com/makerpath/progress-hub/internal/domain/identity"
	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/internal/domain/streak"
	"github.com/makerpath/progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// Assembles everything a learner's dashboard shows in one read: account
// totals, per-unit progress and lock state, the streak, and earned
// achievements. Served cache-first; the write paths invalidate.
// ══════════════════════════════════════════════════════════════════════════════

// GetDashboardQuery contains parameters for the dashboard read.
type GetDashboardQuery struct {
	// AccountID - the learner.
	AccountID string

	// IncludeSecret - include secret achievements the account has not
	// earned yet. Earned ones always appear.
	IncludeSecret bool

	// BypassCache - skip the cache and rebuild from the stores.
	BypassCache bool
}

// Validate checks the query parameters.
func (q *GetDashboardQuery) Validate() error {
	if q.AccountID == "" {
		return errors.New("account_id is required")
	}
	return nil
}

// UnitProgressDTO is one unit row on the dashboard.
type UnitProgressDTO struct {
	Slug              string   `json:"slug"`
	Title             string   `json:"title"`
	Kind              string   `json:"kind"`
	Position          int      `json:"position"`
	Status            string   `json:"status"`
	PercentComplete   float64  `json:"percent_complete"`
	CompletedSubUnits []string `json:"completed_sub_units,omitempty"`
	QuizScore         *float64 `json:"quiz_score,omitempty"`
	TimeSpentMinutes  int      `json:"time_spent_minutes"`
	Unlocked          bool     `json:"unlocked"`
	UnlockReason      string   `json:"unlock_reason,omitempty"`
}

// AchievementDTO is one achievement row on the dashboard.
type AchievementDTO struct {
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	RewardXP    int        `json:"reward_xp"`
	Secret      bool       `json:"secret"`
	Granted     bool       `json:"granted"`
	GrantedAt   *time.Time `json:"granted_at,omitempty"`
}

// StreakDTO is the streak block on the dashboard.
type StreakDTO struct {
	Current     int    `json:"current"`
	Longest     int    `json:"longest"`
	ActiveToday bool   `json:"active_today"`
	Broken      bool   `json:"broken"`
	LastActive  string `json:"last_active,omitempty"`
}

// DashboardDTO is the full dashboard view.
type DashboardDTO struct {
	AccountID        string           `json:"account_id"`
	Email            string           `json:"email"`
	TotalXP          int              `json:"total_xp"`
	Units            []UnitProgressDTO `json:"units"`
	UnitsCompleted   int              `json:"units_completed"`
	ModulesCompleted int              `json:"modules_completed"`
	Streak           StreakDTO        `json:"streak"`
	Achievements     []AchievementDTO `json:"achievements"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// DashboardCache stores assembled dashboard views.
type DashboardCache interface {
	Get(ctx context.Context, accountID shared.AccountID) (*DashboardDTO, error)
	Set(ctx context.Context, accountID shared.AccountID, view *DashboardDTO) error
	InvalidateDashboard(ctx context.Context, accountID shared.AccountID) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetDashboardHandler handles the GetDashboardQuery.
type GetDashboardHandler struct {
	catalog         *content.Catalog
	definitions     []achievement.Definition
	accountRepo     identity.Repository
	completionRepo  content.CompletionRepository
	unlockRepo      content.UnlockRepository
	streakRepo      streak.Repository
	achievementRepo achievement.Repository
	cache           DashboardCache
	log             *logger.Logger
}

// NewGetDashboardHandler creates a new GetDashboardHandler. The cache may be
// nil; every read then rebuilds from the stores.
func NewGetDashboardHandler(
	catalog *content.Catalog,
	definitions []achievement.Definition,
	accountRepo identity.Repository,
	completionRepo content.CompletionRepository,
	unlockRepo content.UnlockRepository,
	streakRepo streak.Repository,
	achievementRepo achievement.Repository,
	cache DashboardCache,
	log *logger.Logger,
) *GetDashboardHandler {
	return &GetDashboardHandler{
		catalog:         catalog,
		definitions:     definitions,
		accountRepo:     accountRepo,
		completionRepo:  completionRepo,
		unlockRepo:      unlockRepo,
		streakRepo:      streakRepo,
		achievementRepo: achievementRepo,
		cache:           cache,
		log:             log.With(logger.Component("get_dashboard")),
	}
}

// Handle executes the dashboard query.
func (h *GetDashboardHandler) Handle(ctx context.Context, query GetDashboardQuery) (*DashboardDTO, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("get_dashboard: validation failed: %w", err)
	}

	accountID, err := shared.NewAccountID(query.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get_dashboard: %w", err)
	}

	if h.cache != nil && !query.BypassCache {
		cached, err := h.cache.Get(ctx, accountID)
		if err == nil && cached != nil {
			return cached, nil
		}
		if err != nil && !shared.IsNotFound(err) {
			h.log.Warn("dashboard cache read failed",
				logger.AccountID(accountID.String()), logger.Err(err))
		}
	}

	view, err := h.build(ctx, accountID, query.IncludeSecret)
	if err != nil {
		return nil, fmt.Errorf("get_dashboard: %w", err)
	}

	if h.cache != nil && !query.IncludeSecret {
		if err := h.cache.Set(ctx, accountID, view); err != nil {
			h.log.Warn("dashboard cache write failed",
				logger.AccountID(accountID.String()), logger.Err(err))
		}
	}

	return view, nil
}

func (h *GetDashboardHandler) build(ctx context.Context, accountID shared.AccountID, includeSecret bool) (*DashboardDTO, error) {
	account, err := h.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	states, err := h.completionRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completion states: %w", err)
	}
	unlocks, err := h.unlockRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocks: %w", err)
	}
	unlockBySlug := make(map[shared.UnitSlug]*content.UnlockRecord, len(unlocks))
	for _, u := range unlocks {
		unlockBySlug[u.Unit] = u
	}

	view := &DashboardDTO{
		AccountID:   accountID.String(),
		Email:       account.Email.String(),
		TotalXP:     account.TotalXP.Int(),
		GeneratedAt: time.Now().UTC(),
	}

	for _, unit := range h.catalog.Units() {
		row := UnitProgressDTO{
			Slug:     unit.Slug.String(),
			Title:    unit.Title,
			Kind:     unit.Kind.String(),
			Position: unit.Position,
			Status:   content.StatusNotStarted.String(),
		}
		if state, ok := states[unit.Slug]; ok {
			row.Status = state.Status.String()
			row.PercentComplete = state.PercentComplete(unit)
			row.CompletedSubUnits = state.CompletedSubUnits
			row.QuizScore = state.QuizScore
			row.TimeSpentMinutes = state.TimeSpentMinutes
			if state.IsCompleted() {
				view.UnitsCompleted++
				if unit.Kind == content.UnitModule {
					view.ModulesCompleted++
				}
			}
		}
		if unit.IsDefaultUnlocked() {
			row.Unlocked = true
			row.UnlockReason = content.ReasonDefault.String()
		}
		if record, ok := unlockBySlug[unit.Slug]; ok {
			row.Unlocked = true
			row.UnlockReason = record.Reason.String()
		}
		view.Units = append(view.Units, row)
	}

	if err := h.fillStreak(ctx, accountID, view); err != nil {
		return nil, err
	}
	if err := h.fillAchievements(ctx, accountID, includeSecret, view); err != nil {
		return nil, err
	}

	return view, nil
}

func (h *GetDashboardHandler) fillStreak(ctx context.Context, accountID shared.AccountID, view *DashboardDTO) error {
	state, err := h.streakRepo.Get(ctx, accountID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to load streak: %w", err)
	}

	now := time.Now().UTC()
	view.Streak = StreakDTO{
		Current:     state.Current,
		Longest:     state.Longest,
		ActiveToday: state.ActiveToday(now),
		Broken:      state.IsBrokenAsOf(now),
	}
	if !state.LastActiveDate.IsZero() {
		view.Streak.LastActive = state.LastActiveDate.Format("2006-01-02")
	}
	return nil
}

func (h *GetDashboardHandler) fillAchievements(ctx context.Context, accountID shared.AccountID, includeSecret bool, view *DashboardDTO) error {
	grants, err := h.achievementRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to list achievements: %w", err)
	}
	grantByCode := make(map[string]*achievement.Grant, len(grants))
	for _, g := range grants {
		grantByCode[g.Code] = g
	}

	for _, def := range h.definitions {
		grant, earned := grantByCode[def.Code]
		if def.Secret && !earned && !includeSecret {
			// Secret achievements stay hidden until earned.
			continue
		}
		row := AchievementDTO{
			Code:        def.Code,
			Name:        def.Name,
			Description: def.Description,
			RewardXP:    def.RewardXP,
			Secret:      def.Secret,
			Granted:     earned,
		}
		if earned {
			at := grant.GrantedAt
			row.GrantedAt = &at
		}
		view.Achievements = append(view.Achievements, row)
	}
	return nil
}
