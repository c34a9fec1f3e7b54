package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalSchedule_Next(t *testing.T) {
	schedule := NewIntervalSchedule(15 * time.Minute)

	now := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(15*time.Minute), schedule.Next(now))
	assert.Equal(t, "@every 15m0s", schedule.String())
}

func TestDailySchedule_NextSameDay(t *testing.T) {
	schedule := NewDailySchedule(4, 30)

	// Before the scheduled time: fires today.
	now := time.Date(2025, 11, 3, 2, 0, 0, 0, time.UTC)
	next := schedule.Next(now)
	assert.Equal(t, time.Date(2025, 11, 3, 4, 30, 0, 0, time.UTC), next)
}

func TestDailySchedule_NextTomorrow(t *testing.T) {
	schedule := NewDailySchedule(4, 30)

	// After the scheduled time: fires tomorrow.
	now := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	next := schedule.Next(now)
	assert.Equal(t, time.Date(2025, 11, 4, 4, 30, 0, 0, time.UTC), next)

	// Exactly at the scheduled time: also tomorrow, never the same instant.
	atTime := time.Date(2025, 11, 3, 4, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 11, 4, 4, 30, 0, 0, time.UTC), schedule.Next(atTime))
}

func TestDailySchedule_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+6", 6*3600)
	schedule := NewDailySchedule(23, 0)

	now := time.Date(2025, 11, 3, 22, 0, 0, 0, loc)
	next := schedule.Next(now)
	assert.Equal(t, loc, next.Location())
	assert.Equal(t, 23, next.Hour())
	assert.Equal(t, "@daily 23:00", schedule.String())
}
