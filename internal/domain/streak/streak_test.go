package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/pkg/timeutil"
)

func day(d int) time.Time {
	return time.Date(2026, 4, d, 10, 30, 0, 0, time.UTC)
}

func newState(t *testing.T) *State {
	t.Helper()
	state, err := NewState("acc_1")
	require.NoError(t, err)
	return state
}

func TestStreak_Lifecycle(t *testing.T) {
	state := newState(t)

	// Day 1: fresh state starts at 1/1.
	res, err := state.Record(Activity{At: day(1), Minutes: 20}, DefaultHistoryWindow)
	require.NoError(t, err)
	assert.True(t, res.Extended)
	assert.Equal(t, 1, state.Current)
	assert.Equal(t, 1, state.Longest)

	// Day 2: consecutive day extends to 2/2.
	res, err = state.Record(Activity{At: day(2), Minutes: 15}, DefaultHistoryWindow)
	require.NoError(t, err)
	assert.True(t, res.Extended)
	assert.Equal(t, 2, state.Current)
	assert.Equal(t, 2, state.Longest)

	// Day 2 again: same day accumulates, streak unchanged.
	res, err = state.Record(Activity{At: day(2).Add(5 * time.Hour), Minutes: 30}, DefaultHistoryWindow)
	require.NoError(t, err)
	assert.True(t, res.SameDay)
	assert.Equal(t, 2, state.Current)
	assert.Equal(t, 2, state.Longest)

	// Day 4: one-day gap resets to 1, longest stays 2.
	res, err = state.Record(Activity{At: day(4), Minutes: 10}, DefaultHistoryWindow)
	require.NoError(t, err)
	assert.True(t, res.Reset)
	assert.Equal(t, 2, res.Previous)
	assert.Equal(t, 1, res.DaysMissed)
	assert.Equal(t, 1, state.Current)
	assert.Equal(t, 2, state.Longest)
}

func TestStreak_SameDayAccumulatesMinutes(t *testing.T) {
	state := newState(t)

	_, err := state.Record(Activity{At: day(1), Minutes: 20, LessonsCompleted: 1}, DefaultHistoryWindow)
	require.NoError(t, err)
	_, err = state.Record(Activity{At: day(1).Add(3 * time.Hour), Minutes: 25, LessonsCompleted: 2}, DefaultHistoryWindow)
	require.NoError(t, err)

	require.Len(t, state.History, 1)
	assert.Equal(t, 45, state.History[0].Minutes)
	assert.Equal(t, 3, state.History[0].LessonsCompleted)
}

func TestStreak_LongestNeverDecreases(t *testing.T) {
	state := newState(t)

	for d := 1; d <= 5; d++ {
		_, err := state.Record(Activity{At: day(d), Minutes: 5}, DefaultHistoryWindow)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, state.Longest)

	_, err := state.Record(Activity{At: day(10), Minutes: 5}, DefaultHistoryWindow)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Current)
	assert.Equal(t, 5, state.Longest)
}

func TestStreak_CrossesUTCMidnight(t *testing.T) {
	state := newState(t)

	late := time.Date(2026, 4, 1, 23, 59, 0, 0, time.UTC)
	early := time.Date(2026, 4, 2, 0, 5, 0, 0, time.UTC)

	_, err := state.Record(Activity{At: late, Minutes: 10}, DefaultHistoryWindow)
	require.NoError(t, err)
	res, err := state.Record(Activity{At: early, Minutes: 10}, DefaultHistoryWindow)
	require.NoError(t, err)

	assert.True(t, res.Extended)
	assert.Equal(t, 2, state.Current)
}

func TestStreak_HistoryWindowEvictsOldest(t *testing.T) {
	state := newState(t)
	window := 7

	for d := 1; d <= 10; d++ {
		_, err := state.Record(Activity{At: day(d), Minutes: d}, window)
		require.NoError(t, err)
	}

	require.Len(t, state.History, window)
	assert.Equal(t, timeutil.Day(day(4)), state.History[0].Date)
	assert.Equal(t, 4, state.History[0].Minutes)
	assert.Equal(t, 10, state.History[len(state.History)-1].Minutes)
}

func TestStreak_RejectsActivityInPast(t *testing.T) {
	state := newState(t)

	_, err := state.Record(Activity{At: day(5), Minutes: 10}, DefaultHistoryWindow)
	require.NoError(t, err)

	_, err = state.Record(Activity{At: day(3), Minutes: 10}, DefaultHistoryWindow)
	assert.ErrorIs(t, err, shared.ErrActivityInPast)
	assert.Equal(t, 1, state.Current)
}

func TestStreak_RejectsBadWindow(t *testing.T) {
	state := newState(t)
	_, err := state.Record(Activity{At: day(1)}, 0)
	assert.ErrorIs(t, err, shared.ErrInvalidWindowSize)
}

func TestStreak_ActiveTodayAndBroken(t *testing.T) {
	state := newState(t)
	assert.False(t, state.IsBrokenAsOf(day(1)))

	_, err := state.Record(Activity{At: day(1), Minutes: 10}, DefaultHistoryWindow)
	require.NoError(t, err)

	assert.True(t, state.ActiveToday(day(1).Add(6*time.Hour)))
	assert.False(t, state.ActiveToday(day(2)))

	assert.False(t, state.IsBrokenAsOf(day(2)), "yesterday's streak is still extendable")
	assert.True(t, state.IsBrokenAsOf(day(3)))
}
