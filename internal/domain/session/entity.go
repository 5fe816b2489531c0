// Package session models study sessions and the statistics derived from them.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

// Type is the kind of study activity.
type Type string

const (
	TypeFlashcards   Type = "flashcards"
	TypeTesting      Type = "testing"
	TypePatterns     Type = "patterns"
	TypeStepSparring Type = "step_sparring"
	TypeMixed        Type = "mixed"
)

// AllTypes lists every session type.
var AllTypes = []Type{TypeFlashcards, TypeTesting, TypePatterns, TypeStepSparring, TypeMixed}

// IsValid reports whether t is a known type.
func (t Type) IsValid() bool {
	for _, v := range AllTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ParseType converts a string to a Type.
func ParseType(v string) (Type, error) {
	t := Type(v)
	if !t.IsValid() {
		return "", shared.ErrInvalidSessionType.Detailf("%q", v)
	}
	return t, nil
}

// PatternLearnedAccuracy is the accuracy a patterns session needs to count
// toward the learned-pattern total.
const PatternLearnedAccuracy = 0.8

// Session is a study session. It is mutable until Complete and frozen
// afterwards.
type Session struct {
	ID             string
	ProfileID      string
	Type           Type
	ItemsStudied   int
	CorrectAnswers int
	FocusAreas     []string
	StartedAt      time.Time
	EndedAt        time.Time
	Duration       time.Duration
	Accuracy       float64
	Finalized      bool
}

// Start opens a session.
func Start(id, profileID string, t Type, focusAreas []string, at time.Time) (*Session, error) {
	if !t.IsValid() {
		return nil, shared.WrapError("session", "Start", shared.ErrInvalidInput,
			"unknown session type", fmt.Errorf("%q", t))
	}
	return &Session{
		ID:         id,
		ProfileID:  profileID,
		Type:       t,
		FocusAreas: cleanFocusAreas(focusAreas),
		StartedAt:  at.UTC(),
	}, nil
}

// Complete finalizes the session. It fails on a second call and on counts
// outside 0 <= correct <= items.
func (s *Session) Complete(at time.Time, items, correct int) error {
	if s.Finalized {
		return shared.ErrSessionFinalized
	}
	if err := ValidateCounts(items, correct); err != nil {
		return err
	}
	at = at.UTC()
	if at.Before(s.StartedAt) {
		return shared.ErrSessionEndsEarly
	}

	s.ItemsStudied = items
	s.CorrectAnswers = correct
	s.EndedAt = at
	s.Duration = at.Sub(s.StartedAt)
	s.Accuracy = AccuracyOf(items, correct)
	s.Finalized = true
	return nil
}

// ValidateCounts checks 0 <= correct <= items.
func ValidateCounts(items, correct int) error {
	if items < 0 || correct < 0 || correct > items {
		return shared.ErrInvalidSessionCount.Detailf("items=%d correct=%d", items, correct)
	}
	return nil
}

// AccuracyOf is correct/items, or 0 when items is 0.
func AccuracyOf(items, correct int) float64 {
	return shared.Ratio(correct, items).Float64()
}

// ApplyTo folds a finalized session into the owner's counters and streak.
// local is the learner's time zone for calendar-day comparison.
func (s *Session) ApplyTo(p *profile.Profile, local *time.Location) (profile.StreakChange, error) {
	if !s.Finalized {
		return profile.StreakUnchanged, shared.NewDomainError("session", "Apply", shared.ErrInvalidState, "session is not finalized")
	}
	if p.ID != s.ProfileID {
		return profile.StreakUnchanged, shared.NewDomainError("session", "Apply", shared.ErrInvalidInput, "session belongs to another profile")
	}
	if local == nil {
		local = time.UTC
	}

	p.AddStudyTime(s.Duration)
	switch s.Type {
	case TypeFlashcards, TypeMixed:
		p.AddFlashcardsSeen(s.ItemsStudied)
	case TypeTesting:
		p.AddTestTaken()
	case TypePatterns:
		if s.ItemsStudied > 0 && s.Accuracy >= PatternLearnedAccuracy {
			p.AddPatternLearned()
		}
	}
	change := p.RecordStudyDay(s.EndedAt.In(local))
	p.UpdatedAt = time.Now().UTC()
	return change, nil
}

func cleanFocusAreas(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, f := range in {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Repository stores finalized sessions.
type Repository interface {
	// Append stores a finalized session.
	Append(ctx context.Context, s *Session) error

	// ListByProfile returns the profile's sessions, newest first. limit <= 0
	// means no limit.
	ListByProfile(ctx context.Context, profileID string, limit int) ([]*Session, error)

	// CountAll returns the number of sessions across every profile.
	CountAll(ctx context.Context) (int, error)
}
