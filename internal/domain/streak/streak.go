// Package streak tracks consecutive-day learning activity per account.
// Streaks are measured in calendar days: two sessions on the same day count
// once, activity on the day after the last active day extends the streak,
// and any larger gap resets it to one.
package streak

import (
	"time"

	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/pkg/timeutil"
)

// DefaultHistoryWindow is how many daily entries are retained per account.
const DefaultHistoryWindow = 30

// DayEntry is the aggregated activity of one calendar day.
type DayEntry struct {
	// Date - start of the UTC calendar day.
	Date time.Time

	// Minutes - active minutes accumulated that day.
	Minutes int

	// LessonsCompleted - units finished that day.
	LessonsCompleted int
}

// State is one account's streak bookkeeping.
type State struct {
	// AccountID - the learner.
	AccountID shared.AccountID

	// Current - length of the running streak in days.
	Current int

	// Longest - the longest streak ever reached. Never decreases.
	Longest int

	// LastActiveDate - start of the last UTC day with activity.
	// Zero for a fresh state.
	LastActiveDate time.Time

	// History - recent daily entries, oldest first, bounded by the
	// history window.
	History []DayEntry

	// UpdatedAt - time of the last change.
	UpdatedAt time.Time
}

// NewState creates an empty streak state for an account.
func NewState(accountID shared.AccountID) (*State, error) {
	if accountID.IsEmpty() {
		return nil, shared.ErrInvalidAccountID
	}
	return &State{AccountID: accountID}, nil
}

// Result describes what a recorded activity did to the streak.
type Result struct {
	// SameDay - the activity fell on the already-counted day.
	SameDay bool

	// Extended - the streak grew by one day.
	Extended bool

	// Reset - the streak was broken and restarted at one.
	Reset bool

	// Previous - streak length before a reset. Zero otherwise.
	Previous int

	// DaysMissed - gap length behind a reset. Zero otherwise.
	DaysMissed int
}

// Activity is one recorded learning session.
type Activity struct {
	// At - when the activity happened. Only its UTC calendar day matters
	// for the streak itself.
	At time.Time

	// Minutes - active minutes to add to the day's entry.
	Minutes int

	// LessonsCompleted - units finished in the session.
	LessonsCompleted int
}

// Record applies an activity to the state and reports what changed.
// window bounds the retained history; pass DefaultHistoryWindow normally.
//
// Three cases:
//   - same day as LastActiveDate: totals accumulate, streak unchanged
//   - the day right after LastActiveDate: streak extends by one
//   - anything later: streak resets to one
//
// Activity dated before the last active day is rejected: the engine only
// ever receives activity in order.
func (s *State) Record(activity Activity, window int) (Result, error) {
	if window <= 0 {
		return Result{}, shared.ErrInvalidWindowSize
	}

	day := timeutil.Day(activity.At)
	var result Result

	switch {
	case s.LastActiveDate.IsZero():
		s.Current = 1
		result.Extended = true

	case day.Equal(s.LastActiveDate):
		result.SameDay = true

	case day.Equal(s.LastActiveDate.AddDate(0, 0, 1)):
		s.Current++
		result.Extended = true

	case day.After(s.LastActiveDate):
		result.Reset = true
		result.Previous = s.Current
		result.DaysMissed = timeutil.DaysBetween(s.LastActiveDate, day) - 1
		s.Current = 1

	default:
		return Result{}, shared.ErrActivityInPast
	}

	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	s.LastActiveDate = day
	s.accumulate(day, activity, window)
	s.UpdatedAt = time.Now().UTC()

	return result, nil
}

// accumulate folds the activity into the day's history entry, evicting the
// oldest entries once the window is full.
func (s *State) accumulate(day time.Time, activity Activity, window int) {
	if n := len(s.History); n > 0 && s.History[n-1].Date.Equal(day) {
		s.History[n-1].Minutes += activity.Minutes
		s.History[n-1].LessonsCompleted += activity.LessonsCompleted
		return
	}

	s.History = append(s.History, DayEntry{
		Date:             day,
		Minutes:          activity.Minutes,
		LessonsCompleted: activity.LessonsCompleted,
	})
	if len(s.History) > window {
		s.History = s.History[len(s.History)-window:]
	}
}

// ActiveToday reports whether the streak already counts the given time's day.
func (s *State) ActiveToday(now time.Time) bool {
	return !s.LastActiveDate.IsZero() && timeutil.SameDay(s.LastActiveDate, now)
}

// IsBrokenAsOf reports whether the streak would reset if activity arrived
// at the given time. Yesterday's streak is still extendable, so only gaps
// of two days or more count as broken.
func (s *State) IsBrokenAsOf(now time.Time) bool {
	if s.LastActiveDate.IsZero() || s.Current == 0 {
		return false
	}
	return timeutil.DaysBetween(s.LastActiveDate, timeutil.Day(now)) > 1
}
