package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/grading"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/progress"
	"github.com/tkdojang/dojang/internal/domain/session"
	"github.com/tkdojang/dojang/internal/domain/store"
)

// Store is a SQLite store.Store.
type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

// NewStore wraps a database returned by Open.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// OpenStore opens path and wraps it.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewStore(db), nil
}

// WithinTx runs fn in one transaction. The single pooled connection makes
// it exclusive.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, repos{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) auto() repos { return repos{q: s.db} }

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

// repos binds every repository to the database or one transaction.
type repos struct{ q sqlx.ExtContext }

func (r repos) Belts() belt.Repository        { return beltRepo{r.q} }
func (r repos) Profiles() profile.Repository  { return profileRepo{r.q} }
func (r repos) Progress() progress.Repository { return progressRepo{r.q} }
func (r repos) Sessions() session.Repository  { return sessionRepo{r.q} }
func (r repos) Gradings() grading.Repository  { return gradingRepo{r.q} }
