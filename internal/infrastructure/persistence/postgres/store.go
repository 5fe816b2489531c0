package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/grading"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/progress"
	"github.com/tkdojang/dojang/internal/domain/session"
	"github.com/tkdojang/dojang/internal/domain/store"
)

// Advisory lock ids. profilesLockID is taken by every store transaction so
// multi-row profile rules see a stable snapshot across API instances.
const (
	profilesLockID   int64 = 0x646f6a616e67
	migrationsLockID int64 = 0x646f6a616e68
)

// Store is a PostgreSQL store.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// NewStore wraps an open pool. Run Migrate first.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithinTx runs fn in one transaction holding the profiles advisory lock.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", profilesLockID); err != nil {
			return fmt.Errorf("postgres: acquire profiles lock: %w", err)
		}
		return fn(ctx, repos{q: tx})
	})
}

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) auto() repos { return repos{q: s.pool} }

// Belts implements store.Repositories.
func (s *Store) Belts() belt.Repository { return s.auto().Belts() }

// Profiles implements store.Repositories.
func (s *Store) Profiles() profile.Repository { return s.auto().Profiles() }

// Progress implements store.Repositories.
func (s *Store) Progress() progress.Repository { return s.auto().Progress() }

// Sessions implements store.Repositories.
func (s *Store) Sessions() session.Repository { return s.auto().Sessions() }

// Gradings implements store.Repositories.
func (s *Store) Gradings() grading.Repository { return s.auto().Gradings() }

// repos binds every repository to one querier: the pool or a transaction.
type repos struct{ q querier }

func (r repos) Belts() belt.Repository        { return &BeltRepository{q: r.q} }
func (r repos) Profiles() profile.Repository  { return &ProfileRepository{q: r.q} }
func (r repos) Progress() progress.Repository { return &ProgressRepository{q: r.q} }
func (r repos) Sessions() session.Repository  { return &SessionRepository{q: r.q} }
func (r repos) Gradings() grading.Repository  { return &GradingRepository{q: r.q} }
