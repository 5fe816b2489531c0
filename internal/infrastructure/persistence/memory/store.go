// Package memory implements the store port in process memory. It backs the
// ephemeral storage driver and the application tests.
package memory

import (
	"context"
	"sync"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/grading"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/progress"
	"github.com/tkdojang/dojang/internal/domain/session"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/internal/domain/store"
)

type progressKey struct {
	profileID string
	contentID shared.ContentID
}

type state struct {
	belts    map[string]belt.Rank
	profiles map[string]*profile.Profile
	order    []string // profile IDs by creation
	progress map[progressKey]*progress.Record
	sessions map[string][]*session.Session
	gradings map[string][]*grading.Record
}

func newState() *state {
	return &state{
		belts:    make(map[string]belt.Rank),
		profiles: make(map[string]*profile.Profile),
		progress: make(map[progressKey]*progress.Record),
		sessions: make(map[string][]*session.Session),
		gradings: make(map[string][]*grading.Record),
	}
}

// clone copies everything a transaction may mutate. Sessions and gradings
// are immutable once stored, so only their slices are copied.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.belts {
		c.belts[k] = v
	}
	for k, v := range s.profiles {
		c.profiles[k] = v.Clone()
	}
	c.order = append([]string(nil), s.order...)
	for k, v := range s.progress {
		c.progress[k] = v.Clone()
	}
	for k, v := range s.sessions {
		c.sessions[k] = append([]*session.Session(nil), v...)
	}
	for k, v := range s.gradings {
		c.gradings[k] = append([]*grading.Record(nil), v...)
	}
	return c
}

// Store is an in-memory store.Store.
type Store struct {
	mu sync.RWMutex
	st *state
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{st: newState()}
}

// WithinTx runs fn against a staged copy under the write lock and swaps it
// in when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	staged := s.st.clone()
	if err := fn(ctx, &view{store: s, st: staged, inTx: true}); err != nil {
		return err
	}
	s.st = staged
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) auto() *view { return &view{store: s} }

// Belts implements store.Repositories.
func (s *Store) Belts() belt.Repository { return beltRepo{s.auto()} }

// Profiles implements store.Repositories.
func (s *Store) Profiles() profile.Repository { return profileRepo{s.auto()} }

// Progress implements store.Repositories.
func (s *Store) Progress() progress.Repository { return progressRepo{s.auto()} }

// Sessions implements store.Repositories.
func (s *Store) Sessions() session.Repository { return sessionRepo{s.auto()} }

// Gradings implements store.Repositories.
func (s *Store) Gradings() grading.Repository { return gradingRepo{s.auto()} }

// view is either bound to a staged transaction state or, outside a
// transaction, locks the store for each call.
type view struct {
	store *Store
	st    *state
	inTx  bool
}

func (v *view) Belts() belt.Repository        { return beltRepo{v} }
func (v *view) Profiles() profile.Repository  { return profileRepo{v} }
func (v *view) Progress() progress.Repository { return progressRepo{v} }
func (v *view) Sessions() session.Repository  { return sessionRepo{v} }
func (v *view) Gradings() grading.Repository  { return gradingRepo{v} }

func (v *view) read() (*state, func()) {
	if v.inTx {
		return v.st, func() {}
	}
	v.store.mu.RLock()
	return v.store.st, v.store.mu.RUnlock
}

func (v *view) write() (*state, func()) {
	if v.inTx {
		return v.st, func() {}
	}
	v.store.mu.Lock()
	return v.store.st, v.store.mu.Unlock
}

func (st *state) resolveRank(r belt.Rank) belt.Rank {
	if stored, ok := st.belts[r.ID]; ok {
		return stored
	}
	return r
}
