package profile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

var (
	testNow  = time.Date(2025, 8, 28, 14, 30, 0, 0, time.UTC)
	testRank = belt.Rank{ID: "7th_keup", Name: "7th Keup", SortOrder: 12}
)

func newTestProfile(t *testing.T, name string) *Profile {
	t.Helper()
	p, err := NewProfile(NewProfileParams{ID: "0b6f3c1e-6f2c-4c3a-9a1e-2b7f0d4c9e11", Name: name, Rank: testRank}, testNow)
	require.NoError(t, err)
	return p
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"single character", "A", nil},
		{"twenty characters", strings.Repeat("x", 20), nil},
		{"twenty multibyte characters", strings.Repeat("태", 20), nil},
		{"empty", "", shared.ErrProfileNameEmpty},
		{"whitespace only", "   ", shared.ErrProfileNameEmpty},
		{"twenty one characters", strings.Repeat("x", 21), shared.ErrProfileNameTooLong},
		{"trimmed to twenty", "  " + strings.Repeat("x", 20) + "  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, shared.IsInvalidName(err), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSameName_CaseInsensitive(t *testing.T) {
	assert.True(t, SameName("Alex", "ALEX"))
	assert.True(t, SameName("alex ", " Alex"))
	assert.False(t, SameName("Alex", "Alexa"))
}

func TestNewProfile_Defaults(t *testing.T) {
	p := newTestProfile(t, "  Dashboard User ")

	assert.Equal(t, "Dashboard User", p.Name)
	assert.False(t, p.IsActive)
	assert.Equal(t, AvatarStudent1, p.Avatar)
	assert.Equal(t, ThemeBlue, p.ColorTheme)
	assert.Equal(t, ModeProgression, p.LearningMode)
	assert.Equal(t, DefaultDailyStudyGoal, p.DailyStudyGoal)
	assert.Equal(t, testNow, p.CreatedAt)
	assert.Zero(t, p.StreakDays)
}

func TestNewProfile_Rejects(t *testing.T) {
	base := NewProfileParams{ID: "id", Name: "Alex", Rank: testRank}

	missingRank := base
	missingRank.Rank = belt.Rank{}
	_, err := NewProfile(missingRank, testNow)
	assert.True(t, shared.IsValidation(err))

	badAvatar := base
	badAvatar.Avatar = "dragon"
	_, err = NewProfile(badAvatar, testNow)
	assert.True(t, shared.IsValidation(err))

	badGoal := base
	badGoal.DailyStudyGoal = MaxDailyStudyGoal + 1
	_, err = NewProfile(badGoal, testNow)
	assert.True(t, shared.IsValidation(err))

	noID := base
	noID.ID = ""
	_, err = NewProfile(noID, testNow)
	assert.Error(t, err)
}

func TestProfile_ActivateStampsLastActive(t *testing.T) {
	p := newTestProfile(t, "Alex")
	later := testNow.Add(time.Hour)

	p.Activate(later)

	assert.True(t, p.IsActive)
	assert.Equal(t, later, p.LastActiveAt)

	p.Deactivate()
	assert.False(t, p.IsActive)
}

func TestProfile_SetRank(t *testing.T) {
	p := newTestProfile(t, "Alex")
	green := belt.Rank{ID: "6th_keup", Name: "6th Keup", SortOrder: 11}

	assert.True(t, p.SetRank(green, testNow))
	assert.Equal(t, "6th_keup", p.Rank.ID)
	assert.False(t, p.SetRank(green, testNow))
}

func TestProfile_ApplySettings(t *testing.T) {
	p := newTestProfile(t, "Alex")

	err := p.ApplySettings(Settings{Avatar: AvatarNinja, ColorTheme: ThemeRed, LearningMode: ModeMastery, DailyStudyGoal: 30}, testNow)
	require.NoError(t, err)
	assert.Equal(t, ModeMastery, p.LearningMode)

	err = p.ApplySettings(Settings{Avatar: AvatarNinja, ColorTheme: "teal", LearningMode: ModeMastery, DailyStudyGoal: 30}, testNow)
	assert.Error(t, err)
	assert.Equal(t, ThemeRed, p.ColorTheme, "failed update must not change fields")
}

func TestSummarize(t *testing.T) {
	a := newTestProfile(t, "A")
	a.TotalStudyTime = 90 * time.Second
	a.TotalFlashcardsSeen = 100
	b := newTestProfile(t, "B")
	b.TotalStudyTime = 30 * time.Second
	b.TotalTestsTaken = 2

	totals := Summarize([]*Profile{a, b})

	assert.Equal(t, 2, totals.Profiles)
	assert.Equal(t, 2*time.Minute, totals.TotalStudyTime)
	assert.Equal(t, 100, totals.Flashcards)
	assert.Equal(t, 2, totals.Tests)
}
