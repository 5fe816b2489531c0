package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

var testStart = time.Date(2025, 8, 28, 9, 0, 0, 0, time.UTC)

func completed(t *testing.T, typ Type, items, correct int, d time.Duration) *Session {
	t.Helper()
	s, err := Start("s-"+string(typ), "p1", typ, nil, testStart)
	require.NoError(t, err)
	require.NoError(t, s.Complete(testStart.Add(d), items, correct))
	return s
}

func TestAccuracyOf(t *testing.T) {
	assert.InDelta(t, 0.80, AccuracyOf(20, 16), 0.001)
	assert.Equal(t, 0.0, AccuracyOf(0, 0))
	assert.Equal(t, 1.0, AccuracyOf(5, 5))
}

func TestComplete(t *testing.T) {
	s, err := Start("s1", "p1", TypeFlashcards, []string{" kicks ", "", "kicks", "stances"}, testStart)
	require.NoError(t, err)
	assert.Equal(t, []string{"kicks", "stances"}, s.FocusAreas)

	require.NoError(t, s.Complete(testStart.Add(4*time.Minute), 20, 16))

	assert.True(t, s.Finalized)
	assert.Equal(t, 4*time.Minute, s.Duration)
	assert.InDelta(t, 0.8, s.Accuracy, 0.001)
	assert.Equal(t, testStart.Add(4*time.Minute), s.EndedAt)
}

func TestComplete_IsFinal(t *testing.T) {
	s := completed(t, TypeTesting, 10, 7, time.Minute)

	err := s.Complete(testStart.Add(time.Hour), 50, 50)

	assert.True(t, shared.IsStateConflict(err))
	assert.Equal(t, 10, s.ItemsStudied)
	assert.Equal(t, time.Minute, s.Duration)
}

func TestComplete_Rejects(t *testing.T) {
	tests := []struct {
		name           string
		items, correct int
		end            time.Time
	}{
		{"negative items", -1, 0, testStart},
		{"correct above items", 3, 4, testStart},
		{"negative correct", 3, -1, testStart},
		{"ends before start", 3, 1, testStart.Add(-time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Start("s1", "p1", TypeMixed, nil, testStart)
			require.NoError(t, err)

			err = s.Complete(tt.end, tt.items, tt.correct)

			assert.True(t, shared.IsValidation(err), "got %v", err)
			assert.False(t, s.Finalized)
		})
	}
}

func TestStart_UnknownType(t *testing.T) {
	_, err := Start("s1", "p1", "sparring", nil, testStart)
	assert.True(t, shared.IsValidation(err))
}

func TestApplyTo(t *testing.T) {
	p, err := profile.NewProfile(profile.NewProfileParams{
		ID:   "p1",
		Name: "Alex",
		Rank: belt.Rank{ID: "7th_keup", Name: "7th Keup", SortOrder: 12},
	}, testStart)
	require.NoError(t, err)

	flash := completed(t, TypeFlashcards, 20, 16, 5*time.Minute)
	test := completed(t, TypeTesting, 10, 9, 3*time.Minute)
	pattern := completed(t, TypePatterns, 5, 4, 2*time.Minute)
	weakPattern := completed(t, TypePatterns, 5, 2, time.Minute)

	for _, s := range []*Session{flash, test, pattern, weakPattern} {
		_, err := s.ApplyTo(p, time.UTC)
		require.NoError(t, err)
	}

	assert.Equal(t, 11*time.Minute, p.TotalStudyTime)
	assert.Equal(t, 20, p.TotalFlashcardsSeen)
	assert.Equal(t, 1, p.TotalTestsTaken)
	assert.Equal(t, 1, p.TotalPatternsLearned)
	assert.Equal(t, 1, p.StreakDays)
}

func TestApplyTo_Guards(t *testing.T) {
	p := &profile.Profile{ID: "other"}
	open, err := Start("s1", "p1", TypeMixed, nil, testStart)
	require.NoError(t, err)

	_, err = open.ApplyTo(p, nil)
	assert.True(t, shared.IsStateConflict(err))

	done := completed(t, TypeMixed, 1, 1, time.Second)
	_, err = done.ApplyTo(p, nil)
	assert.True(t, shared.IsValidation(err))
}

func TestSummarize(t *testing.T) {
	sessions := []*Session{
		completed(t, TypeFlashcards, 20, 16, 5*time.Minute),
		completed(t, TypeTesting, 10, 5, 3*time.Minute),
		completed(t, TypeMixed, 0, 0, time.Minute),
	}

	st := Summarize(sessions)

	assert.Equal(t, 3, st.TotalSessions)
	assert.Equal(t, 30, st.ItemsStudied)
	assert.Equal(t, 21, st.CorrectAnswers)
	assert.Equal(t, 9*time.Minute, st.TotalDuration)
	assert.InDelta(t, 0.65, st.AverageAccuracy, 0.001)
	assert.InDelta(t, 0.70, st.OverallAccuracy, 0.001)
	assert.Equal(t, 1, st.ByType[TypeTesting])
	assert.Equal(t, testStart.Add(5*time.Minute), st.LastSessionAt)
}

func TestStudyTimeOn(t *testing.T) {
	sessions := []*Session{
		completed(t, TypeFlashcards, 1, 1, 5*time.Minute),
		completed(t, TypeTesting, 1, 1, 3*time.Minute),
	}

	assert.Equal(t, 8*time.Minute, StudyTimeOn(sessions, testStart, time.UTC))
	assert.Zero(t, StudyTimeOn(sessions, testStart.AddDate(0, 0, 1), time.UTC))
}
