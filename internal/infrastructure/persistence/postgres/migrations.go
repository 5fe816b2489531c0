package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{1, "create_belts_and_profiles", migration001Up},
	{2, "create_learning_records", migration002Up},
}

// Migrate applies pending schema migrations, each in its own transaction,
// and returns the versions it applied. Concurrent callers serialize on an
// advisory lock, so several instances may start at once.
func Migrate(ctx context.Context, pool *pgxpool.Pool) ([]int, error) {
	var applied []int
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationsLockID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`)
		if err != nil {
			return err
		}

		for _, m := range migrations {
			var done bool
			err := tx.QueryRow(ctx,
				"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", m.version,
			).Scan(&done)
			if err != nil {
				return err
			}
			if done {
				continue
			}
			err = pgx.BeginFunc(ctx, tx, func(step pgx.Tx) error {
				if _, err := step.Exec(ctx, m.sql); err != nil {
					return err
				}
				_, err := step.Exec(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.version, m.name)
				return err
			})
			if err != nil {
				return fmt.Errorf("migration %d %s: %w", m.version, m.name, err)
			}
			applied = append(applied, m.version)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return applied, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: BELTS AND PROFILES
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS belts (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    short_name       TEXT NOT NULL DEFAULT '',
    color            TEXT NOT NULL DEFAULT '',
    sort_order       INTEGER NOT NULL CHECK (sort_order > 0),
    is_beginner_tier BOOLEAN NOT NULL DEFAULT FALSE,
    is_dan           BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_belts_sort_order ON belts(sort_order DESC);

CREATE TABLE IF NOT EXISTS profiles (
    seq                    BIGINT GENERATED ALWAYS AS IDENTITY,
    id                     TEXT PRIMARY KEY,
    name                   VARCHAR(20) NOT NULL,
    name_key               VARCHAR(20) NOT NULL,
    avatar                 TEXT NOT NULL,
    color_theme            TEXT NOT NULL,
    belt_id                TEXT NOT NULL REFERENCES belts(id),
    learning_mode          TEXT NOT NULL,
    daily_study_goal       INTEGER NOT NULL,
    is_active              BOOLEAN NOT NULL DEFAULT FALSE,
    created_at             TIMESTAMP WITH TIME ZONE NOT NULL,
    last_active_at         TIMESTAMP WITH TIME ZONE NOT NULL,
    updated_at             TIMESTAMP WITH TIME ZONE NOT NULL,
    streak_days            INTEGER NOT NULL DEFAULT 0,
    last_study_date        TIMESTAMP WITH TIME ZONE,
    total_study_ns         BIGINT NOT NULL DEFAULT 0,
    total_flashcards_seen  INTEGER NOT NULL DEFAULT 0,
    total_tests_taken      INTEGER NOT NULL DEFAULT 0,
    total_patterns_learned INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT profiles_name_key_unique UNIQUE (name_key),
    CONSTRAINT valid_daily_goal CHECK (daily_study_goal BETWEEN 1 AND 240),
    CONSTRAINT valid_counters CHECK (
        streak_days >= 0 AND total_study_ns >= 0 AND total_flashcards_seen >= 0
        AND total_tests_taken >= 0 AND total_patterns_learned >= 0
    )
);

-- At most one row may carry is_active = TRUE.
CREATE UNIQUE INDEX IF NOT EXISTS profiles_single_active ON profiles(is_active) WHERE is_active;
CREATE INDEX IF NOT EXISTS idx_profiles_seq ON profiles(seq);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: PROGRESS, SESSIONS, GRADINGS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS progress (
    id                TEXT PRIMARY KEY,
    profile_id        TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    content_id        TEXT NOT NULL,
    correct_count     INTEGER NOT NULL DEFAULT 0 CHECK (correct_count >= 0),
    incorrect_count   INTEGER NOT NULL DEFAULT 0 CHECK (incorrect_count >= 0),
    best_accuracy     DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (best_accuracy BETWEEN 0 AND 1),
    stage             TEXT NOT NULL,
    last_practiced_at TIMESTAMP WITH TIME ZONE,
    created_at        TIMESTAMP WITH TIME ZONE NOT NULL,
    updated_at        TIMESTAMP WITH TIME ZONE NOT NULL,

    CONSTRAINT progress_profile_content_unique UNIQUE (profile_id, content_id)
);

CREATE TABLE IF NOT EXISTS study_sessions (
    id              TEXT PRIMARY KEY,
    profile_id      TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    session_type    TEXT NOT NULL,
    items_studied   INTEGER NOT NULL CHECK (items_studied >= 0),
    correct_answers INTEGER NOT NULL CHECK (correct_answers >= 0 AND correct_answers <= items_studied),
    accuracy        DOUBLE PRECISION NOT NULL CHECK (accuracy BETWEEN 0 AND 1),
    focus_areas     TEXT[] NOT NULL DEFAULT '{}',
    started_at      TIMESTAMP WITH TIME ZONE NOT NULL,
    ended_at        TIMESTAMP WITH TIME ZONE NOT NULL,
    duration_ns     BIGINT NOT NULL CHECK (duration_ns >= 0)
);

CREATE INDEX IF NOT EXISTS idx_sessions_profile_ended ON study_sessions(profile_id, ended_at DESC);

CREATE TABLE IF NOT EXISTS gradings (
    id               TEXT PRIMARY KEY,
    profile_id       TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    grading_date     TIMESTAMP WITH TIME ZONE NOT NULL,
    belt_tested_id   TEXT NOT NULL REFERENCES belts(id),
    belt_achieved_id TEXT NOT NULL REFERENCES belts(id),
    passed           BOOLEAN NOT NULL,
    grading_type     TEXT NOT NULL,
    examiner         TEXT NOT NULL DEFAULT '',
    notes            TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_gradings_profile_date ON gradings(profile_id, grading_date DESC);
`
