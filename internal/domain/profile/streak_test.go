package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func TestRecordStudyDay(t *testing.T) {
	p := newTestProfile(t, "Alex")

	assert.Equal(t, StreakStarted, p.RecordStudyDay(day(2025, 3, 1, 9)))
	assert.Equal(t, 1, p.StreakDays)

	assert.Equal(t, StreakUnchanged, p.RecordStudyDay(day(2025, 3, 1, 22)))
	assert.Equal(t, 1, p.StreakDays)

	assert.Equal(t, StreakExtended, p.RecordStudyDay(day(2025, 3, 2, 7)))
	assert.Equal(t, 2, p.StreakDays)

	assert.Equal(t, StreakExtended, p.RecordStudyDay(day(2025, 3, 3, 23)))
	assert.Equal(t, 3, p.StreakDays)

	assert.Equal(t, StreakReset, p.RecordStudyDay(day(2025, 3, 6, 12)))
	assert.Equal(t, 1, p.StreakDays)
}

func TestRecordStudyDay_MonthBoundaryAndLateSessions(t *testing.T) {
	p := newTestProfile(t, "Alex")

	p.RecordStudyDay(day(2025, 2, 28, 20))
	assert.Equal(t, StreakExtended, p.RecordStudyDay(day(2025, 3, 1, 6)))
	assert.Equal(t, 2, p.StreakDays)

	// A session for an earlier day does not move the anchor back.
	assert.Equal(t, StreakUnchanged, p.RecordStudyDay(day(2025, 2, 27, 10)))
	assert.Equal(t, 2, p.StreakDays)
	assert.Equal(t, CalendarDay(day(2025, 3, 1, 0)), p.LastStudyDate)
}

func TestRecordStudyDay_UsesLocalCalendar(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	p := newTestProfile(t, "Alex")

	// 23:30 UTC on the 1st is already the 2nd in UTC+9.
	p.RecordStudyDay(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC).In(loc))
	change := p.RecordStudyDay(time.Date(2025, 5, 1, 23, 30, 0, 0, time.UTC).In(loc))

	assert.Equal(t, StreakExtended, change)
	assert.Equal(t, 2, p.StreakDays)
}

func TestExpireStreak(t *testing.T) {
	p := newTestProfile(t, "Alex")
	p.RecordStudyDay(day(2025, 3, 1, 9))
	p.RecordStudyDay(day(2025, 3, 2, 9))

	assert.False(t, p.IsStreakLapsed(day(2025, 3, 3, 9)))
	assert.Equal(t, 0, p.ExpireStreak(day(2025, 3, 3, 9)))
	assert.Equal(t, 2, p.StreakDays)

	assert.True(t, p.IsStreakLapsed(day(2025, 3, 4, 9)))
	assert.Equal(t, 2, p.ExpireStreak(day(2025, 3, 4, 9)))
	assert.Equal(t, 0, p.StreakDays)
	assert.True(t, p.UpdatedAt.Equal(day(2025, 3, 4, 9)))

	// A fresh session after expiry restarts from one.
	assert.Equal(t, StreakReset, p.RecordStudyDay(day(2025, 3, 5, 9)))
	assert.Equal(t, 1, p.StreakDays)
}

func TestCounters(t *testing.T) {
	p := newTestProfile(t, "Alex")

	p.AddStudyTime(5 * time.Minute)
	p.AddStudyTime(-time.Minute)
	p.AddFlashcardsSeen(20)
	p.AddFlashcardsSeen(0)
	p.AddTestTaken()
	p.AddPatternLearned()

	assert.Equal(t, 5*time.Minute, p.TotalStudyTime)
	assert.Equal(t, 20, p.TotalFlashcardsSeen)
	assert.Equal(t, 1, p.TotalTestsTaken)
	assert.Equal(t, 1, p.TotalPatternsLearned)
	assert.False(t, p.StudiedOn(day(2025, 1, 1, 0)))
}
