package content

import (
	"time"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION STATE
// ══════════════════════════════════════════════════════════════════════════════

// Status is the progress status of a unit for one account.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	return s == StatusNotStarted || s == StatusInProgress || s == StatusCompleted
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// CompletionState tracks one account's progress through one unit.
type CompletionState struct {
	// AccountID - the learner.
	AccountID shared.AccountID

	// Unit - the unit being worked through.
	Unit shared.UnitSlug

	// Status - not-started, in-progress, or completed.
	Status Status

	// CompletedSubUnits - IDs of the finished steps inside the unit.
	CompletedSubUnits []string

	// QuizScore - best quiz score for the unit (0-100). Nil until a quiz
	// has been taken.
	QuizScore *float64

	// TimeSpentMinutes - accumulated active time on the unit.
	TimeSpentMinutes int

	// StartedAt - first activity on the unit.
	StartedAt time.Time

	// CompletedAt - when the unit was completed. Nil until then.
	CompletedAt *time.Time

	// UpdatedAt - time of the last change.
	UpdatedAt time.Time
}

// NewCompletionState creates an in-progress state for an account starting
// a unit.
func NewCompletionState(accountID shared.AccountID, unit shared.UnitSlug) (*CompletionState, error) {
	if accountID.IsEmpty() {
		return nil, shared.ErrInvalidAccountID
	}
	if unit.IsEmpty() {
		return nil, shared.ErrInvalidUnitSlug
	}

	now := time.Now().UTC()
	return &CompletionState{
		AccountID: accountID,
		Unit:      unit,
		Status:    StatusInProgress,
		StartedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsCompleted reports whether the unit is done.
func (s *CompletionState) IsCompleted() bool {
	return s.Status == StatusCompleted
}

// CompleteSubUnit marks a step inside the unit as finished. Repeats are
// ignored. The step must belong to the unit definition.
func (s *CompletionState) CompleteSubUnit(unit *Unit, subUnitID string) error {
	found := false
	for _, id := range unit.SubUnits {
		if id == subUnitID {
			found = true
			break
		}
	}
	if !found {
		return shared.ErrUnknownCompletionStep
	}

	for _, id := range s.CompletedSubUnits {
		if id == subUnitID {
			return nil
		}
	}
	s.CompletedSubUnits = append(s.CompletedSubUnits, subUnitID)
	if s.Status == StatusNotStarted {
		s.Status = StatusInProgress
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordQuizScore stores a quiz result, keeping the best score.
func (s *CompletionState) RecordQuizScore(score float64) error {
	if score < 0 || score > 100 {
		return shared.ErrInvalidQuizScore
	}
	if s.QuizScore == nil || score > *s.QuizScore {
		s.QuizScore = &score
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// AddTimeSpent accumulates active minutes on the unit.
func (s *CompletionState) AddTimeSpent(minutes int) {
	if minutes <= 0 {
		return
	}
	s.TimeSpentMinutes += minutes
	s.UpdatedAt = time.Now().UTC()
}

// Complete marks the unit done. Completion is terminal: a completed unit
// never moves back to in-progress.
func (s *CompletionState) Complete(at time.Time) {
	if s.Status == StatusCompleted {
		return
	}
	s.Status = StatusCompleted
	t := at.UTC()
	s.CompletedAt = &t
	s.UpdatedAt = time.Now().UTC()
}

// PercentComplete returns the completed share of the unit's sub-units as a
// percentage (0-100). A completed unit is always 100%, whether or not each
// sub-unit was ticked individually; a unit with no sub-units is 0% until
// completed.
func (s *CompletionState) PercentComplete(unit *Unit) float64 {
	if s.IsCompleted() {
		return 100
	}
	if len(unit.SubUnits) == 0 {
		return 0
	}
	return float64(len(s.CompletedSubUnits)) / float64(len(unit.SubUnits)) * 100
}

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK RECORDS
// ══════════════════════════════════════════════════════════════════════════════

// UnlockRecord is the fact that a unit became available to an account.
// Unlocks are monotonic: records are inserted once and never removed,
// even if the condition would no longer hold.
type UnlockRecord struct {
	// AccountID - the learner.
	AccountID shared.AccountID

	// Unit - the unlocked unit.
	Unit shared.UnitSlug

	// Reason - why the unit unlocked.
	Reason UnlockReason

	// UnlockedAt - when the unlock was recorded.
	UnlockedAt time.Time
}

// NewUnlockRecord creates an unlock record with validation.
func NewUnlockRecord(accountID shared.AccountID, unit shared.UnitSlug, reason UnlockReason) (*UnlockRecord, error) {
	if accountID.IsEmpty() {
		return nil, shared.ErrInvalidAccountID
	}
	if unit.IsEmpty() {
		return nil, shared.ErrInvalidUnitSlug
	}
	if !reason.IsValid() {
		return nil, shared.ErrUnknownUnlockReason
	}

	return &UnlockRecord{
		AccountID:  accountID,
		Unit:       unit,
		Reason:     reason,
		UnlockedAt: time.Now().UTC(),
	}, nil
}
