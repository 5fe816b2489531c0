// Package progress models the per-learner, per-item practice ledger.
//
// A Record belongs to exactly one (profile, content item) pair. Accuracy and
// mastery stage are always derived from the correct and incorrect counters,
// so they cannot drift from what was practiced.
package progress

import (
	"context"
	"time"

	"github.com/tkdojang/dojang/internal/domain/shared"
)

// Stage is a coarse mastery bucket.
type Stage string

const (
	StageLearning   Stage = "learning"
	StageFamiliar   Stage = "familiar"
	StageProficient Stage = "proficient"
	StageMastered   Stage = "mastered"
)

// IsValid reports whether s is a known stage.
func (s Stage) IsValid() bool {
	switch s {
	case StageLearning, StageFamiliar, StageProficient, StageMastered:
		return true
	}
	return false
}

// Level orders stages from 0 (learning) to 3 (mastered).
func (s Stage) Level() int {
	switch s {
	case StageFamiliar:
		return 1
	case StageProficient:
		return 2
	case StageMastered:
		return 3
	default:
		return 0
	}
}

// ParseStage converts a string to a Stage.
func ParseStage(v string) (Stage, error) {
	s := Stage(v)
	if !s.IsValid() {
		return "", shared.ErrInvalidStage.Detailf("%q", v)
	}
	return s, nil
}

// Stage thresholds.
const (
	minAttemptsForStage = 3

	familiarAccuracy   = 0.50
	familiarCorrect    = 3
	proficientAccuracy = 0.75
	proficientCorrect  = 6
	masteredAccuracy   = 0.90
	masteredCorrect    = 10
)

// StageFor derives the stage from counters.
func StageFor(correct, incorrect int) Stage {
	attempts := correct + incorrect
	if attempts < minAttemptsForStage {
		return StageLearning
	}
	acc := float64(shared.Ratio(correct, attempts))
	switch {
	case acc >= masteredAccuracy && correct >= masteredCorrect:
		return StageMastered
	case acc >= proficientAccuracy && correct >= proficientCorrect:
		return StageProficient
	case acc >= familiarAccuracy && correct >= familiarCorrect:
		return StageFamiliar
	default:
		return StageLearning
	}
}

// Record is the ledger entry for one (profile, item) pair.
type Record struct {
	ID              string
	ProfileID       string
	ContentID       shared.ContentID
	CorrectCount    int
	IncorrectCount  int
	BestAccuracy    float64
	Stage           Stage
	LastPracticedAt time.Time // zero until the first answer
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewRecord returns a zero-initialized record.
func NewRecord(id, profileID string, contentID shared.ContentID, now time.Time) *Record {
	now = now.UTC()
	return &Record{
		ID:        id,
		ProfileID: profileID,
		ContentID: contentID,
		Stage:     StageLearning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Attempts returns the number of answers recorded.
func (r *Record) Attempts() int {
	return r.CorrectCount + r.IncorrectCount
}

// Accuracy is correct/attempts, or 0 with no attempts.
func (r *Record) Accuracy() float64 {
	return shared.Ratio(r.CorrectCount, r.Attempts()).Float64()
}

// ProgressPercentage is Accuracy scaled to 0-100.
func (r *Record) ProgressPercentage() float64 {
	return r.Accuracy() * 100
}

// Outcome describes the effect of one Record call.
type Outcome struct {
	PreviousStage Stage
	Stage         Stage
}

// StageChanged reports whether the answer moved the record to a new stage.
func (o Outcome) StageChanged() bool {
	return o.PreviousStage != o.Stage
}

// Record counts one answer and re-derives best accuracy and stage.
func (r *Record) Record(correct bool, at time.Time) Outcome {
	prev := r.Stage
	if correct {
		r.CorrectCount++
	} else {
		r.IncorrectCount++
	}
	r.refresh()
	r.LastPracticedAt = at.UTC()
	r.UpdatedAt = at.UTC()
	return Outcome{PreviousStage: prev, Stage: r.Stage}
}

func (r *Record) refresh() {
	r.Stage = StageFor(r.CorrectCount, r.IncorrectCount)
	// Best accuracy only counts once the stage threshold is met so a lucky
	// first answer does not pin it at 100%.
	if r.Attempts() >= minAttemptsForStage && r.Accuracy() > r.BestAccuracy {
		r.BestAccuracy = r.Accuracy()
	}
}

// Clone returns an independent copy.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}

// Repository stores progress records.
type Repository interface {
	// GetOrCreate returns the record for (profileID, contentID), inserting
	// candidate when none exists. Concurrent callers for the same pair
	// observe the same record ID.
	GetOrCreate(ctx context.Context, candidate *Record) (*Record, error)

	// Get returns the record for the pair or an error matching
	// shared.ErrNotFound.
	Get(ctx context.Context, profileID string, contentID shared.ContentID) (*Record, error)

	// Update persists counters, stage and timestamps of r.
	Update(ctx context.Context, r *Record) error

	// ListByProfile returns every record owned by profileID.
	ListByProfile(ctx context.Context, profileID string) ([]*Record, error)

	// Insert stores a complete record, used when restoring exports.
	Insert(ctx context.Context, r *Record) error
}

// Summary aggregates a profile's records by stage.
type Summary struct {
	Total    int
	ByStage  map[Stage]int
	Attempts int
	Correct  int
}

// Summarize folds records.
func Summarize(records []*Record) Summary {
	s := Summary{ByStage: make(map[Stage]int, 4)}
	for _, r := range records {
		s.Total++
		s.ByStage[r.Stage]++
		s.Attempts += r.Attempts()
		s.Correct += r.CorrectCount
	}
	return s
}
