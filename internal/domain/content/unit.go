// Package content models the course structure: units, the unlock dependency
// graph between them, and per-account completion state. This is the core of
// the business logic - there are no external dependencies here.
package content

import (
	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNITS
// ══════════════════════════════════════════════════════════════════════════════

// UnitKind is the granularity of a course unit.
type UnitKind string

const (
	UnitModule UnitKind = "module"
	UnitLesson UnitKind = "lesson"
	UnitDay    UnitKind = "day"
)

// IsValid checks if the unit kind is known.
func (k UnitKind) IsValid() bool {
	return k == UnitModule || k == UnitLesson || k == UnitDay
}

// String returns the string representation.
func (k UnitKind) String() string {
	return string(k)
}

// Unit is a single course unit as authored in the catalog.
type Unit struct {
	// Slug - stable identifier of the unit.
	Slug shared.UnitSlug

	// Kind - module, lesson, or day.
	Kind UnitKind

	// Title - display name.
	Title string

	// Position - ordering within the course.
	Position int

	// SubUnits - IDs of the steps inside the unit. Percentage-complete
	// conditions are measured against this list.
	SubUnits []string

	// Unlock - the condition gating this unit. Nil means unlocked for
	// everyone from the start.
	Unlock *UnlockCondition
}

// IsDefaultUnlocked reports whether the unit has no gating condition.
func (u *Unit) IsDefaultUnlocked() bool {
	return u.Unlock == nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK CONDITIONS
// ══════════════════════════════════════════════════════════════════════════════

// ConditionKind is the type of an unlock condition.
type ConditionKind string

const (
	// ConditionModuleComplete requires the target unit to be completed.
	ConditionModuleComplete ConditionKind = "module-complete"

	// ConditionQuizScore requires the target unit's quiz score to reach
	// the threshold.
	ConditionQuizScore ConditionKind = "quiz-score"

	// ConditionPercentageComplete requires the given percentage of the
	// target unit's sub-units to be completed.
	ConditionPercentageComplete ConditionKind = "percentage-complete"
)

// IsValid checks if the condition kind is known.
func (k ConditionKind) IsValid() bool {
	switch k {
	case ConditionModuleComplete, ConditionQuizScore, ConditionPercentageComplete:
		return true
	default:
		return false
	}
}

// UnlockCondition gates a unit on the state of another unit.
type UnlockCondition struct {
	// Kind - how the target's state is examined.
	Kind ConditionKind

	// Target - the unit whose completion state the condition reads.
	Target shared.UnitSlug

	// Threshold - minimum quiz score (0-100) for quiz-score conditions,
	// minimum completion percentage (0-100) for percentage-complete
	// conditions. Ignored for module-complete.
	Threshold float64
}

// Validate checks the condition in isolation (target existence is checked
// at catalog load).
func (c UnlockCondition) Validate() error {
	if !c.Kind.IsValid() {
		return shared.ErrUnknownConditionKind
	}
	if c.Target.IsEmpty() {
		return shared.NewDomainError("content", "Validate", shared.ErrEmptyValue, "unlock condition target is required")
	}
	switch c.Kind {
	case ConditionQuizScore, ConditionPercentageComplete:
		if c.Threshold < 0 || c.Threshold > 100 {
			return shared.NewDomainError("content", "Validate", shared.ErrValueOutOfRange, "threshold must be between 0 and 100")
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK REASONS & RECORDS
// ══════════════════════════════════════════════════════════════════════════════

// UnlockReason explains why a unit became available to an account.
type UnlockReason string

const (
	// ReasonDefault - the unit carries no condition.
	ReasonDefault UnlockReason = "default"

	// ReasonPrerequisite - the unit's condition was satisfied.
	ReasonPrerequisite UnlockReason = "prerequisite"

	// ReasonAchievement - granted as an achievement reward.
	ReasonAchievement UnlockReason = "achievement"

	// ReasonManual - granted by an operator.
	ReasonManual UnlockReason = "manual"
)

// IsValid checks if the reason is known.
func (r UnlockReason) IsValid() bool {
	switch r {
	case ReasonDefault, ReasonPrerequisite, ReasonAchievement, ReasonManual:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (r UnlockReason) String() string {
	return string(r)
}
