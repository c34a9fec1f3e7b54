package achievement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

func newEngine(t *testing.T, defs ...Definition) *Engine {
	t.Helper()
	engine, err := NewEngine(defs)
	require.NoError(t, err)
	return engine
}

func grantCodes(grants []Grant) []string {
	codes := make([]string, 0, len(grants))
	for _, g := range grants {
		codes = append(codes, g.Code)
	}
	return codes
}

func TestEngine_ThresholdCrossing(t *testing.T) {
	engine := newEngine(t,
		Definition{Code: "module-1-done", Kind: KindModulesCompleted, Threshold: 1, RewardXP: 100},
		Definition{Code: "module-3-done", Kind: KindModulesCompleted, Threshold: 3, RewardXP: 250},
	)

	grants := engine.Evaluate("acc_1", Stats{ModulesCompleted: 0}, nil)
	assert.Empty(t, grants)

	grants = engine.Evaluate("acc_1", Stats{ModulesCompleted: 1}, nil)
	assert.Equal(t, []string{"module-1-done"}, grantCodes(grants))

	// Jumping past a threshold still earns it.
	grants = engine.Evaluate("acc_1", Stats{ModulesCompleted: 5}, nil)
	assert.ElementsMatch(t, []string{"module-1-done", "module-3-done"}, grantCodes(grants))
}

func TestEngine_AtMostOnce(t *testing.T) {
	engine := newEngine(t,
		Definition{Code: "streak-3", Kind: KindStreakDays, Threshold: 3, RewardXP: 100},
	)

	held := map[string]bool{}
	grants := engine.Evaluate("acc_1", Stats{CurrentStreak: 3}, held)
	require.Len(t, grants, 1)

	for _, g := range grants {
		held[g.Code] = true
	}

	// Re-evaluating with the grant recorded yields nothing.
	grants = engine.Evaluate("acc_1", Stats{CurrentStreak: 4}, held)
	assert.Empty(t, grants)
}

func TestEngine_FirstCompletion(t *testing.T) {
	engine := newEngine(t,
		Definition{Code: "first-steps", Kind: KindFirstCompletion, Threshold: 1, RewardXP: 50},
	)

	assert.Empty(t, engine.Evaluate("acc_1", Stats{}, nil))

	grants := engine.Evaluate("acc_1", Stats{LessonsCompleted: 1}, nil)
	assert.Equal(t, []string{"first-steps"}, grantCodes(grants))

	grants = engine.Evaluate("acc_1", Stats{ModulesCompleted: 1}, nil)
	assert.Equal(t, []string{"first-steps"}, grantCodes(grants))
}

func TestEngine_CourseComplete(t *testing.T) {
	engine := newEngine(t,
		Definition{Code: "course-complete", Kind: KindCourseComplete, RewardXP: 1000},
	)

	assert.Empty(t, engine.Evaluate("acc_1", Stats{ModulesCompleted: 5, TotalModuleCount: 6}, nil))

	grants := engine.Evaluate("acc_1", Stats{ModulesCompleted: 6, TotalModuleCount: 6}, nil)
	assert.Equal(t, []string{"course-complete"}, grantCodes(grants))

	// Without a catalog module count the badge is never granted.
	assert.Empty(t, engine.Evaluate("acc_1", Stats{ModulesCompleted: 6}, nil))
}

func TestEngine_TimeSpentAndSecret(t *testing.T) {
	engine := newEngine(t,
		Definition{Code: "deep-work", Kind: KindTimeSpent, Threshold: 600, RewardXP: 200, Secret: true},
	)

	grants := engine.Evaluate("acc_1", Stats{TotalTimeSpentMinutes: 601}, nil)
	require.Len(t, grants, 1)
	assert.True(t, grants[0].Secret)
	assert.Equal(t, 200, grants[0].RewardXP)
	assert.Equal(t, shared.AccountID("acc_1"), grants[0].AccountID)
}

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine([]Definition{{Code: "", Kind: KindStreakDays, Threshold: 1}})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = NewEngine([]Definition{{Code: "x", Kind: Kind("mystery"), Threshold: 1}})
	assert.ErrorIs(t, err, shared.ErrUnknownAchievement)

	_, err = NewEngine([]Definition{
		{Code: "dup", Kind: KindStreakDays, Threshold: 1},
		{Code: "dup", Kind: KindStreakDays, Threshold: 2},
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestDefaultCatalog_IsValid(t *testing.T) {
	engine, err := NewEngine(DefaultCatalog())
	require.NoError(t, err)
	assert.NotEmpty(t, engine.Definitions())

	_, err = engine.Definition("streak-7")
	assert.NoError(t, err)

	_, err = engine.Definition("ghost")
	assert.ErrorIs(t, err, shared.ErrAchievementNotFound)
}
