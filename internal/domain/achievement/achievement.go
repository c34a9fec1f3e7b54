// Package achievement models threshold-based achievements: each definition
// names an aggregate statistic and a threshold, and an account earns the
// achievement at most once, the first time the aggregate reaches it.
package achievement

import (
	"time"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

// Kind names the aggregate statistic a definition is measured against.
type Kind string

const (
	// KindModulesCompleted - total completed modules.
	KindModulesCompleted Kind = "modules-completed"

	// KindQuizPerfect - quizzes finished with a perfect score.
	KindQuizPerfect Kind = "quiz-perfect"

	// KindStreakDays - current streak length in days.
	KindStreakDays Kind = "streak-days"

	// KindFirstCompletion - any unit completed at all.
	KindFirstCompletion Kind = "first-completion"

	// KindCourseComplete - every module in the course completed.
	KindCourseComplete Kind = "course-complete"

	// KindTimeSpent - total active minutes across the course.
	KindTimeSpent Kind = "time-spent"
)

// IsValid checks if the kind is known.
func (k Kind) IsValid() bool {
	switch k {
	case KindModulesCompleted, KindQuizPerfect, KindStreakDays,
		KindFirstCompletion, KindCourseComplete, KindTimeSpent:
		return true
	default:
		return false
	}
}

// Definition is one achievable badge.
type Definition struct {
	// Code - stable identifier, e.g. "streak-7".
	Code string

	// Name - display name.
	Name string

	// Description - what the learner did to earn it.
	Description string

	// Kind - which aggregate statistic is examined.
	Kind Kind

	// Threshold - the aggregate value that earns the achievement.
	// Ignored for course-complete, which compares against the catalog's
	// module count instead.
	Threshold int

	// RewardXP - XP credited when granted.
	RewardXP int

	// Secret - hidden from learners until earned.
	Secret bool
}

// Validate checks the definition.
func (d Definition) Validate() error {
	if d.Code == "" {
		return shared.NewDomainError("achievement", "Validate", shared.ErrEmptyValue, "achievement code is required")
	}
	if !d.Kind.IsValid() {
		return shared.ErrUnknownAchievement
	}
	if d.Threshold < 0 {
		return shared.NewDomainError("achievement", "Validate", shared.ErrNegativeValue, "threshold cannot be negative")
	}
	if d.RewardXP < 0 {
		return shared.NewDomainError("achievement", "Validate", shared.ErrNegativeValue, "reward XP cannot be negative")
	}
	return nil
}

// DefaultCatalog returns the stock achievement definitions.
func DefaultCatalog() []Definition {
	return []Definition{
		{Code: "first-steps", Name: "First Steps", Description: "Complete your first unit", Kind: KindFirstCompletion, Threshold: 1, RewardXP: 50},
		{Code: "module-1-done", Name: "Off the Ground", Description: "Complete a module", Kind: KindModulesCompleted, Threshold: 1, RewardXP: 100},
		{Code: "module-3-done", Name: "Momentum", Description: "Complete three modules", Kind: KindModulesCompleted, Threshold: 3, RewardXP: 250},
		{Code: "quiz-ace", Name: "Quiz Ace", Description: "Score 100% on a quiz", Kind: KindQuizPerfect, Threshold: 1, RewardXP: 150},
		{Code: "streak-3", Name: "Warming Up", Description: "Learn three days in a row", Kind: KindStreakDays, Threshold: 3, RewardXP: 100},
		{Code: "streak-7", Name: "On Fire", Description: "Learn seven days in a row", Kind: KindStreakDays, Threshold: 7, RewardXP: 300},
		{Code: "deep-work", Name: "Deep Work", Description: "Spend ten hours learning", Kind: KindTimeSpent, Threshold: 600, RewardXP: 200, Secret: true},
		{Code: "course-complete", Name: "Maker", Description: "Complete the whole course", Kind: KindCourseComplete, RewardXP: 1000},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS & GRANTS
// ══════════════════════════════════════════════════════════════════════════════

// Stats are the aggregates achievements are measured against. They are
// assembled from completion, streak, and catalog data at evaluation time.
type Stats struct {
	ModulesCompleted      int
	LessonsCompleted      int
	PerfectQuizzes        int
	CurrentStreak         int
	TotalTimeSpentMinutes int

	// TotalModuleCount - how many modules the course has, from the catalog.
	TotalModuleCount int
}

// Grant is the fact that an account earned an achievement.
type Grant struct {
	// AccountID - the learner.
	AccountID shared.AccountID

	// Code - the earned definition.
	Code string

	// RewardXP - XP credited with the grant.
	RewardXP int

	// Secret - copied from the definition for display filtering.
	Secret bool

	// GrantedAt - when the achievement was earned.
	GrantedAt time.Time

	// Notified - whether the learner has been shown the grant.
	Notified bool
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Engine evaluates definitions against account stats.
type Engine struct {
	definitions []Definition
}

// NewEngine creates an engine over validated definitions.
func NewEngine(definitions []Definition) (*Engine, error) {
	seen := make(map[string]bool, len(definitions))
	for _, d := range definitions {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if seen[d.Code] {
			return nil, shared.WrapError("achievement", "NewEngine", shared.ErrAlreadyExists, "duplicate achievement code "+d.Code, nil)
		}
		seen[d.Code] = true
	}
	return &Engine{definitions: definitions}, nil
}

// Definitions returns the engine's definitions.
func (e *Engine) Definitions() []Definition {
	return e.definitions
}

// Definition returns the definition with the given code.
func (e *Engine) Definition(code string) (Definition, error) {
	for _, d := range e.definitions {
		if d.Code == code {
			return d, nil
		}
	}
	return Definition{}, shared.ErrAchievementNotFound
}

// measure returns the stat value a definition is compared against, and the
// effective threshold.
func measure(d Definition, stats Stats) (value, threshold int) {
	switch d.Kind {
	case KindModulesCompleted:
		return stats.ModulesCompleted, d.Threshold
	case KindQuizPerfect:
		return stats.PerfectQuizzes, d.Threshold
	case KindStreakDays:
		return stats.CurrentStreak, d.Threshold
	case KindFirstCompletion:
		return stats.LessonsCompleted + stats.ModulesCompleted, 1
	case KindCourseComplete:
		return stats.ModulesCompleted, stats.TotalModuleCount
	case KindTimeSpent:
		return stats.TotalTimeSpentMinutes, d.Threshold
	default:
		return 0, 0
	}
}

// Evaluate returns grants for every definition whose aggregate has reached
// its threshold and which the account does not hold yet. Passing the same
// stats twice yields nothing on the second call as long as the first round
// of grants is reflected in existing.
func (e *Engine) Evaluate(accountID shared.AccountID, stats Stats, existing map[string]bool) []Grant {
	now := time.Now().UTC()
	var grants []Grant

	for _, d := range e.definitions {
		if existing[d.Code] {
			continue
		}
		value, threshold := measure(d, stats)
		if d.Kind == KindCourseComplete && threshold == 0 {
			// No catalog loaded; never grant course completion by default.
			continue
		}
		if value >= threshold && threshold > 0 {
			grants = append(grants, Grant{
				AccountID: accountID,
				Code:      d.Code,
				RewardXP:  d.RewardXP,
				Secret:    d.Secret,
				GrantedAt: now,
			})
		}
	}
	return grants
}
