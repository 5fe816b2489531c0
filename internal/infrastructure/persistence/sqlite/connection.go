// Package sqlite implements the store port on an embedded SQLite database
// through sqlx. It is the on-device storage driver.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Open connects to the database file at path, creating its directory, and
// applies the schema. SQLite allows a single writer, so the pool holds one
// connection and transactions serialize on it.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	dsn := "file::memory:?_foreign_keys=on"
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: create data directory: %w", err)
			}
		}
		dsn = "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: connect: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	if err := initializeSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func initializeSchema(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS belts (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		short_name       TEXT NOT NULL DEFAULT '',
		color            TEXT NOT NULL DEFAULT '',
		sort_order       INTEGER NOT NULL CHECK (sort_order > 0),
		is_beginner_tier BOOLEAN NOT NULL DEFAULT FALSE,
		is_dan           BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id                     TEXT PRIMARY KEY,
		name                   TEXT NOT NULL,
		name_key               TEXT NOT NULL UNIQUE,
		avatar                 TEXT NOT NULL,
		color_theme            TEXT NOT NULL,
		belt_id                TEXT NOT NULL REFERENCES belts(id),
		learning_mode          TEXT NOT NULL,
		daily_study_goal       INTEGER NOT NULL,
		is_active              BOOLEAN NOT NULL DEFAULT FALSE,
		created_at             TIMESTAMP NOT NULL,
		last_active_at         TIMESTAMP NOT NULL,
		updated_at             TIMESTAMP NOT NULL,
		streak_days            INTEGER NOT NULL DEFAULT 0,
		last_study_date        TIMESTAMP,
		total_study_ns         INTEGER NOT NULL DEFAULT 0,
		total_flashcards_seen  INTEGER NOT NULL DEFAULT 0,
		total_tests_taken      INTEGER NOT NULL DEFAULT 0,
		total_patterns_learned INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS profiles_single_active ON profiles(is_active) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS progress (
		id                TEXT PRIMARY KEY,
		profile_id        TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		content_id        TEXT NOT NULL,
		correct_count     INTEGER NOT NULL DEFAULT 0,
		incorrect_count   INTEGER NOT NULL DEFAULT 0,
		best_accuracy     REAL NOT NULL DEFAULT 0,
		stage             TEXT NOT NULL,
		last_practiced_at TIMESTAMP,
		created_at        TIMESTAMP NOT NULL,
		updated_at        TIMESTAMP NOT NULL,
		UNIQUE (profile_id, content_id)
	)`,
	`CREATE TABLE IF NOT EXISTS study_sessions (
		id              TEXT PRIMARY KEY,
		profile_id      TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		session_type    TEXT NOT NULL,
		items_studied   INTEGER NOT NULL,
		correct_answers INTEGER NOT NULL,
		accuracy        REAL NOT NULL,
		focus_areas     TEXT NOT NULL DEFAULT '[]',
		started_at      TIMESTAMP NOT NULL,
		ended_at        TIMESTAMP NOT NULL,
		duration_ns     INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_profile_ended ON study_sessions(profile_id, ended_at DESC)`,
	`CREATE TABLE IF NOT EXISTS gradings (
		id               TEXT PRIMARY KEY,
		profile_id       TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		grading_date     TIMESTAMP NOT NULL,
		belt_tested_id   TEXT NOT NULL REFERENCES belts(id),
		belt_achieved_id TEXT NOT NULL REFERENCES belts(id),
		passed           BOOLEAN NOT NULL,
		grading_type     TEXT NOT NULL,
		examiner         TEXT NOT NULL DEFAULT '',
		notes            TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_gradings_profile_date ON gradings(profile_id, grading_date DESC)`,
}

// constraintFailed reports whether err is a constraint violation of the given
// extended kind mentioning target, e.g. "profiles.name_key".
func constraintFailed(err error, kind sqlite3.ErrNoExtended, target string) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return false
	}
	if se.ExtendedCode != kind {
		return false
	}
	return target == "" || strings.Contains(se.Error(), target)
}

func isUnique(err error, target string) bool {
	return constraintFailed(err, sqlite3.ErrConstraintUnique, target) ||
		constraintFailed(err, sqlite3.ErrConstraintPrimaryKey, target)
}

func isForeignKey(err error) bool {
	return constraintFailed(err, sqlite3.ErrConstraintForeignKey, "")
}
