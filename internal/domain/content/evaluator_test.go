package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog([]*Unit{
		{Slug: "module-1", Kind: UnitModule, Position: 1,
			SubUnits: []string{"l1", "l2", "l3", "l4"}},
		{Slug: "module-2", Kind: UnitModule, Position: 2,
			Unlock: &UnlockCondition{Kind: ConditionModuleComplete, Target: "module-1"}},
		{Slug: "quiz-retake", Kind: UnitLesson, Position: 3,
			Unlock: &UnlockCondition{Kind: ConditionQuizScore, Target: "module-1", Threshold: 80}},
		{Slug: "sneak-peek", Kind: UnitLesson, Position: 4,
			Unlock: &UnlockCondition{Kind: ConditionPercentageComplete, Target: "module-1", Threshold: 50}},
	})
	require.NoError(t, err)
	return catalog
}

func stateFor(t *testing.T, unit shared.UnitSlug) *CompletionState {
	t.Helper()
	state, err := NewCompletionState("acc_1", unit)
	require.NoError(t, err)
	return state
}

func TestEvaluator_ModuleComplete(t *testing.T) {
	catalog := testCatalog(t)
	evaluator := NewEvaluator(catalog)

	state := stateFor(t, "module-1")
	states := map[shared.UnitSlug]*CompletionState{"module-1": state}
	module2, err := catalog.Unit("module-2")
	require.NoError(t, err)

	assert.False(t, evaluator.ConditionMet(module2.Unlock, states))

	state.Complete(time.Now())
	assert.True(t, evaluator.ConditionMet(module2.Unlock, states))
}

func TestEvaluator_QuizScore(t *testing.T) {
	catalog := testCatalog(t)
	evaluator := NewEvaluator(catalog)

	state := stateFor(t, "module-1")
	states := map[shared.UnitSlug]*CompletionState{"module-1": state}
	retake, err := catalog.Unit("quiz-retake")
	require.NoError(t, err)

	assert.False(t, evaluator.ConditionMet(retake.Unlock, states), "no quiz taken yet")

	require.NoError(t, state.RecordQuizScore(79))
	assert.False(t, evaluator.ConditionMet(retake.Unlock, states))

	require.NoError(t, state.RecordQuizScore(80))
	assert.True(t, evaluator.ConditionMet(retake.Unlock, states), "threshold is inclusive")
}

func TestEvaluator_PercentageComplete(t *testing.T) {
	catalog := testCatalog(t)
	evaluator := NewEvaluator(catalog)

	module1, err := catalog.Unit("module-1")
	require.NoError(t, err)
	peek, err := catalog.Unit("sneak-peek")
	require.NoError(t, err)

	state := stateFor(t, "module-1")
	states := map[shared.UnitSlug]*CompletionState{"module-1": state}

	require.NoError(t, state.CompleteSubUnit(module1, "l1"))
	assert.False(t, evaluator.ConditionMet(peek.Unlock, states), "25% < 50%")

	require.NoError(t, state.CompleteSubUnit(module1, "l2"))
	assert.True(t, evaluator.ConditionMet(peek.Unlock, states), "50% meets the threshold")
}

func TestEvaluator_MissingTargetState(t *testing.T) {
	catalog := testCatalog(t)
	evaluator := NewEvaluator(catalog)

	module2, err := catalog.Unit("module-2")
	require.NoError(t, err)

	assert.False(t, evaluator.ConditionMet(module2.Unlock, nil))
	assert.False(t, evaluator.ConditionMet(module2.Unlock, map[shared.UnitSlug]*CompletionState{}))
}

func TestEvaluator_EvaluateDependents(t *testing.T) {
	catalog := testCatalog(t)
	evaluator := NewEvaluator(catalog)

	module1, err := catalog.Unit("module-1")
	require.NoError(t, err)

	state := stateFor(t, "module-1")
	require.NoError(t, state.CompleteSubUnit(module1, "l1"))
	require.NoError(t, state.CompleteSubUnit(module1, "l2"))
	require.NoError(t, state.RecordQuizScore(95))
	state.Complete(time.Now())

	states := map[shared.UnitSlug]*CompletionState{"module-1": state}
	unlocked := evaluator.EvaluateDependents("module-1", states)

	slugs := make([]shared.UnitSlug, 0, len(unlocked))
	for _, u := range unlocked {
		slugs = append(slugs, u.Slug)
	}
	assert.ElementsMatch(t, []shared.UnitSlug{"module-2", "quiz-retake", "sneak-peek"}, slugs)
}

func TestEvaluator_EvaluateAll(t *testing.T) {
	catalog := testCatalog(t)
	evaluator := NewEvaluator(catalog)

	state := stateFor(t, "module-1")
	require.NoError(t, state.RecordQuizScore(85))
	states := map[shared.UnitSlug]*CompletionState{"module-1": state}

	unlocked := evaluator.EvaluateAll(states)
	require.Len(t, unlocked, 1)
	assert.Equal(t, shared.UnitSlug("quiz-retake"), unlocked[0].Slug)
}

func TestCompletionState_QuizKeepsBestScore(t *testing.T) {
	state := stateFor(t, "module-1")

	require.NoError(t, state.RecordQuizScore(90))
	require.NoError(t, state.RecordQuizScore(60))
	assert.Equal(t, 90.0, *state.QuizScore)

	assert.ErrorIs(t, state.RecordQuizScore(101), shared.ErrInvalidQuizScore)
}

func TestCompletionState_CompleteIsTerminal(t *testing.T) {
	state := stateFor(t, "module-1")

	first := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	state.Complete(first)
	state.Complete(first.Add(time.Hour))

	assert.Equal(t, first, *state.CompletedAt)
	assert.Equal(t, StatusCompleted, state.Status)
}

func TestCompletionState_SubUnits(t *testing.T) {
	catalog := testCatalog(t)
	module1, err := catalog.Unit("module-1")
	require.NoError(t, err)

	state := stateFor(t, "module-1")
	require.NoError(t, state.CompleteSubUnit(module1, "l1"))
	require.NoError(t, state.CompleteSubUnit(module1, "l1"))
	assert.Len(t, state.CompletedSubUnits, 1)

	assert.ErrorIs(t, state.CompleteSubUnit(module1, "ghost"), shared.ErrUnknownCompletionStep)
}

func TestCompletionState_PercentCompleteWithoutSubUnits(t *testing.T) {
	unit := &Unit{Slug: "module-x", Kind: UnitModule}
	state := stateFor(t, "module-x")

	assert.Equal(t, 0.0, state.PercentComplete(unit))
	state.Complete(time.Now())
	assert.Equal(t, 100.0, state.PercentComplete(unit))
}
