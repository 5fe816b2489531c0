package session

import "time"

// Statistics summarizes a profile's sessions.
type Statistics struct {
	TotalSessions   int
	ItemsStudied    int
	CorrectAnswers  int
	TotalDuration   time.Duration
	AverageAccuracy float64 // mean of per-session accuracy, sessions with items only
	OverallAccuracy float64 // correct / items over all sessions
	ByType          map[Type]int
	LastSessionAt   time.Time
}

// Summarize folds sessions. Unfinalized sessions are skipped.
func Summarize(sessions []*Session) Statistics {
	st := Statistics{ByType: make(map[Type]int, len(AllTypes))}
	var accSum float64
	var accN int
	for _, s := range sessions {
		if !s.Finalized {
			continue
		}
		st.TotalSessions++
		st.ItemsStudied += s.ItemsStudied
		st.CorrectAnswers += s.CorrectAnswers
		st.TotalDuration += s.Duration
		st.ByType[s.Type]++
		if s.ItemsStudied > 0 {
			accSum += s.Accuracy
			accN++
		}
		if s.EndedAt.After(st.LastSessionAt) {
			st.LastSessionAt = s.EndedAt
		}
	}
	if accN > 0 {
		st.AverageAccuracy = accSum / float64(accN)
	}
	st.OverallAccuracy = AccuracyOf(st.ItemsStudied, st.CorrectAnswers)
	return st
}

// StudyTimeOn sums durations of sessions ending on day's calendar date in loc.
func StudyTimeOn(sessions []*Session, day time.Time, loc *time.Location) time.Duration {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.In(loc).Date()
	var total time.Duration
	for _, s := range sessions {
		if !s.Finalized {
			continue
		}
		sy, sm, sd := s.EndedAt.In(loc).Date()
		if sy == y && sm == m && sd == d {
			total += s.Duration
		}
	}
	return total
}
