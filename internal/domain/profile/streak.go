package profile

import "time"

// StreakChange describes what a recorded study day did to the streak.
type StreakChange int

const (
	StreakUnchanged StreakChange = iota // same calendar day as the last session
	StreakStarted                       // first session ever
	StreakExtended                      // the day after the last session
	StreakReset                         // one or more days were missed
)

func (c StreakChange) String() string {
	switch c {
	case StreakStarted:
		return "started"
	case StreakExtended:
		return "extended"
	case StreakReset:
		return "reset"
	default:
		return "unchanged"
	}
}

// CalendarDay maps t to midnight UTC of its wall-clock date in t's own
// location. Two instants are on the same day iff their CalendarDay values
// are equal.
func CalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from a to b using CalendarDay.
func DaysBetween(a, b time.Time) int {
	return int(CalendarDay(b).Sub(CalendarDay(a)).Hours() / 24)
}

// RecordStudyDay updates StreakDays for a session that happened at day,
// expressed in the learner's local time.
func (p *Profile) RecordStudyDay(day time.Time) StreakChange {
	d := CalendarDay(day)

	if p.LastStudyDate.IsZero() {
		p.StreakDays = 1
		p.LastStudyDate = d
		return StreakStarted
	}

	switch diff := DaysBetween(p.LastStudyDate, d); {
	case diff <= 0:
		// Same day, or a late-arriving session for an earlier day.
		if p.StreakDays == 0 {
			p.StreakDays = 1
		}
		return StreakUnchanged
	case diff == 1:
		p.StreakDays++
		p.LastStudyDate = d
		return StreakExtended
	default:
		p.StreakDays = 1
		p.LastStudyDate = d
		return StreakReset
	}
}

// IsStreakLapsed reports whether today (local time) is more than one day
// after the last session, meaning the displayed streak is stale.
func (p *Profile) IsStreakLapsed(today time.Time) bool {
	if p.LastStudyDate.IsZero() || p.StreakDays == 0 {
		return false
	}
	return DaysBetween(p.LastStudyDate, today) > 1
}

// ExpireStreak zeroes a lapsed streak. It returns the previous value, or 0
// when nothing changed.
func (p *Profile) ExpireStreak(today time.Time) int {
	if !p.IsStreakLapsed(today) {
		return 0
	}
	prev := p.StreakDays
	p.StreakDays = 0
	p.UpdatedAt = today.UTC()
	return prev
}

// StudiedOn reports whether the last session fell on day.
func (p *Profile) StudiedOn(day time.Time) bool {
	return !p.LastStudyDate.IsZero() && CalendarDay(day).Equal(p.LastStudyDate)
}

// ══════════════════════════════════════════════════════════════════════════════
// COUNTERS
// ══════════════════════════════════════════════════════════════════════════════

// AddStudyTime adds a finalized session duration.
func (p *Profile) AddStudyTime(d time.Duration) {
	if d > 0 {
		p.TotalStudyTime += d
	}
}

// AddFlashcardsSeen adds reviewed flashcards.
func (p *Profile) AddFlashcardsSeen(n int) {
	if n > 0 {
		p.TotalFlashcardsSeen += n
	}
}

// AddTestTaken counts one completed test.
func (p *Profile) AddTestTaken() {
	p.TotalTestsTaken++
}

// AddPatternLearned counts one pattern run at passing accuracy.
func (p *Profile) AddPatternLearned() {
	p.TotalPatternsLearned++
}
