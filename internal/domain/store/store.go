// Package store declares the persistence port shared by every backend.
//
// Rules that span rows (profile cap, unique names, a single active
// profile, one progress record per pair, a session plus its counter
// updates) are checked and written inside WithinTx so no other writer can
// interleave.
package store

import (
	"context"
	"time"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/grading"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/progress"
	"github.com/tkdojang/dojang/internal/domain/session"
)

// Repositories groups the repositories of one unit of work.
type Repositories interface {
	Belts() belt.Repository
	Profiles() profile.Repository
	Progress() progress.Repository
	Sessions() session.Repository
	Gradings() grading.Repository
}

// Store is a backend. Its own Repositories run each call in an implicit
// transaction; WithinTx groups calls.
type Store interface {
	Repositories

	// WithinTx runs fn in one serializable unit. fn must use only tx; any
	// error rolls back every write made through tx.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ProfilesLockKey guards every mutation that reads or writes more than one
// profile row.
const ProfilesLockKey = "profiles"

// Locker serializes mutations across processes sharing one backend. The
// returned release must be called once the guarded work is done.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// NopLocker grants every lock immediately. Single-process deployments rely
// on the backend transaction alone.
type NopLocker struct{}

// Acquire implements Locker.
func (NopLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}
