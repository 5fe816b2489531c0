package query

import (
	"context"
	"fmt"

	"github.com/tkdojang/dojang/internal/domain/store"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// ProfileQueries reads learner profiles and the belt ladder.
type ProfileQueries struct {
	store store.Store
}

// NewProfileQueries creates a new ProfileQueries.
func NewProfileQueries(st store.Store) *ProfileQueries {
	return &ProfileQueries{store: st}
}

// GetActiveProfile returns the active profile, or nil when none is active.
func (q *ProfileQueries) GetActiveProfile(ctx context.Context) (*ProfileDTO, error) {
	p, err := q.store.Profiles().GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_active_profile: %w", err)
	}
	if p == nil {
		return nil, nil
	}
	dto := NewProfileDTO(p)
	return &dto, nil
}

// GetProfile returns one profile.
func (q *ProfileQueries) GetProfile(ctx context.Context, profileID string) (*ProfileDTO, error) {
	p, err := q.store.Profiles().GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("get_profile: %w", err)
	}
	dto := NewProfileDTO(p)
	return &dto, nil
}

// ListProfiles returns every profile ordered by creation.
func (q *ProfileQueries) ListProfiles(ctx context.Context) ([]ProfileDTO, error) {
	profiles, err := q.store.Profiles().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_profiles: %w", err)
	}
	out := make([]ProfileDTO, len(profiles))
	for i, p := range profiles {
		out[i] = NewProfileDTO(p)
	}
	return out, nil
}

// ListBelts returns the belt ladder, most junior first.
func (q *ProfileQueries) ListBelts(ctx context.Context) ([]BeltDTO, error) {
	ranks, err := q.store.Belts().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_belts: %w", err)
	}
	out := make([]BeltDTO, len(ranks))
	for i, r := range ranks {
		out[i] = NewBeltDTO(r)
	}
	return out, nil
}
