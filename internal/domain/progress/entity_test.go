package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkdojang/dojang/internal/domain/shared"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNewRecord_ZeroInitialized(t *testing.T) {
	r := NewRecord("r1", "p1", "terminology/ap-chagi", testNow)

	assert.Zero(t, r.CorrectCount)
	assert.Zero(t, r.IncorrectCount)
	assert.Zero(t, r.BestAccuracy)
	assert.Equal(t, StageLearning, r.Stage)
	assert.True(t, r.LastPracticedAt.IsZero())
	assert.Zero(t, r.Accuracy())
}

func TestRecord_CountsAndDerivesAccuracy(t *testing.T) {
	r := NewRecord("r1", "p1", "terminology/ap-chagi", testNow)

	r.Record(true, testNow)
	r.Record(true, testNow)
	r.Record(false, testNow.Add(time.Minute))
	r.Record(true, testNow.Add(2*time.Minute))

	assert.Equal(t, 3, r.CorrectCount)
	assert.Equal(t, 1, r.IncorrectCount)
	assert.InDelta(t, 0.75, r.Accuracy(), 0.0001)
	assert.InDelta(t, 75.0, r.ProgressPercentage(), 0.0001)
	assert.Equal(t, testNow.Add(2*time.Minute), r.LastPracticedAt)
}

func TestStageFor(t *testing.T) {
	tests := []struct {
		correct, incorrect int
		want               Stage
	}{
		{0, 0, StageLearning},
		{2, 0, StageLearning},
		{3, 0, StageFamiliar},
		{3, 3, StageFamiliar},
		{3, 4, StageLearning},
		{6, 2, StageProficient},
		{6, 3, StageFamiliar},
		{10, 1, StageMastered},
		{10, 2, StageProficient},
		{9, 0, StageProficient},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StageFor(tt.correct, tt.incorrect), "correct=%d incorrect=%d", tt.correct, tt.incorrect)
	}
}

func TestRecord_StageProgression(t *testing.T) {
	r := NewRecord("r1", "p1", "pattern/chon-ji", testNow)

	var changes []Stage
	for i := 0; i < 10; i++ {
		out := r.Record(true, testNow)
		if out.StageChanged() {
			changes = append(changes, out.Stage)
		}
	}

	assert.Equal(t, []Stage{StageFamiliar, StageProficient, StageMastered}, changes)
	assert.Equal(t, 1.0, r.BestAccuracy)

	r.Record(false, testNow)
	r.Record(false, testNow)
	assert.Equal(t, StageProficient, r.Stage)
	assert.Equal(t, 1.0, r.BestAccuracy, "best accuracy never decreases")
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	a := NewRecord("r1", "p1", "pattern/chon-ji", testNow)
	b := a.Clone()

	b.Record(true, testNow)

	assert.Zero(t, a.CorrectCount)
	assert.Equal(t, 1, b.CorrectCount)
}

func TestParseStage(t *testing.T) {
	s, err := ParseStage("proficient")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Level())

	_, err = ParseStage("expert")
	assert.True(t, shared.IsValidation(err))
}

func TestSummarize(t *testing.T) {
	a := NewRecord("a", "p1", "x", testNow)
	for i := 0; i < 3; i++ {
		a.Record(true, testNow)
	}
	b := NewRecord("b", "p1", "y", testNow)
	b.Record(false, testNow)

	s := Summarize([]*Record{a, b})

	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.ByStage[StageFamiliar])
	assert.Equal(t, 1, s.ByStage[StageLearning])
	assert.Equal(t, 4, s.Attempts)
	assert.Equal(t, 3, s.Correct)
}
