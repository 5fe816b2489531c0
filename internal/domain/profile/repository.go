package profile

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Implementations live in infrastructure/persistence. Multi-profile rules
// are only safe when the calls below run inside one store transaction.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores learner profiles.
type Repository interface {
	// Create inserts p. Returns an error matching shared.ErrDuplicateName
	// when the backing store rejects the name key.
	Create(ctx context.Context, p *Profile) error

	// GetByID returns a profile or an error matching shared.ErrNotFound.
	GetByID(ctx context.Context, id string) (*Profile, error)

	// GetByNameKey returns the profile whose NameKey equals key.
	GetByNameKey(ctx context.Context, key string) (*Profile, error)

	// GetActive returns the active profile, or nil and no error when none is.
	GetActive(ctx context.Context) (*Profile, error)

	// List returns all profiles ordered by creation time.
	List(ctx context.Context) ([]*Profile, error)

	// Count returns the number of stored profiles.
	Count(ctx context.Context) (int, error)

	// Update replaces every mutable field of p.
	Update(ctx context.Context, p *Profile) error

	// SetActive clears the active flag on every profile and sets it on id,
	// stamping its last-active time. Returns shared.ErrNotFound for an
	// unknown id, leaving flags untouched.
	SetActive(ctx context.Context, id string, at time.Time) error

	// Delete removes the profile and everything it owns.
	Delete(ctx context.Context, id string) error
}

// Totals are folded across every profile at query time.
type Totals struct {
	Profiles       int
	TotalStudyTime time.Duration
	Flashcards     int
	Tests          int
}

// Summarize folds profile counters.
func Summarize(profiles []*Profile) Totals {
	t := Totals{Profiles: len(profiles)}
	for _, p := range profiles {
		t.TotalStudyTime += p.TotalStudyTime
		t.Flashcards += p.TotalFlashcardsSeen
		t.Tests += p.TotalTestsTaken
	}
	return t
}
