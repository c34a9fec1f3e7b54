package content

import (
	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK EVALUATOR
// Pure functions over the catalog and an account's completion states.
// Persistence of the resulting unlocks (and their at-most-once guarantee)
// is the repository's job.
// ══════════════════════════════════════════════════════════════════════════════

// Evaluator decides which units an account's progress has unlocked.
type Evaluator struct {
	catalog *Catalog
}

// NewEvaluator creates an evaluator over a validated catalog.
func NewEvaluator(catalog *Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// ConditionMet reports whether the condition holds for the given completion
// states. A missing target state means the condition does not hold.
func (e *Evaluator) ConditionMet(cond *UnlockCondition, states map[shared.UnitSlug]*CompletionState) bool {
	state, ok := states[cond.Target]
	if !ok {
		return false
	}

	switch cond.Kind {
	case ConditionModuleComplete:
		return state.IsCompleted()

	case ConditionQuizScore:
		return state.QuizScore != nil && *state.QuizScore >= cond.Threshold

	case ConditionPercentageComplete:
		target, err := e.catalog.Unit(cond.Target)
		if err != nil {
			return false
		}
		return state.PercentComplete(target) >= cond.Threshold

	default:
		return false
	}
}

// EvaluateDependents returns the units gated on the changed unit whose
// conditions now hold. Callers insert the results as unlock records with
// ReasonPrerequisite; already-unlocked units are deduplicated there.
func (e *Evaluator) EvaluateDependents(changed shared.UnitSlug, states map[shared.UnitSlug]*CompletionState) []*Unit {
	var unlocked []*Unit
	for _, dependent := range e.catalog.Dependents(changed) {
		if e.ConditionMet(dependent.Unlock, states) {
			unlocked = append(unlocked, dependent)
		}
	}
	return unlocked
}

// EvaluateAll returns every gated unit whose condition holds for the given
// states. Used when (re)building an account's unlock set, e.g. right after
// migration.
func (e *Evaluator) EvaluateAll(states map[shared.UnitSlug]*CompletionState) []*Unit {
	var unlocked []*Unit
	for _, u := range e.catalog.Units() {
		if u.Unlock == nil {
			continue
		}
		if e.ConditionMet(u.Unlock, states) {
			unlocked = append(unlocked, u)
		}
	}
	return unlocked
}
