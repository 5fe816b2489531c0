package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/grading"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/progress"
	"github.com/tkdojang/dojang/internal/domain/session"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func fromNullTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func profileNotFound(id string) error {
	return shared.ErrProfileNotFound.Detailf("id %s", id)
}

// ══════════════════════════════════════════════════════════════════════════════
// BELT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// BeltRepository implements belt.Repository for PostgreSQL.
type BeltRepository struct {
	q querier
}

const beltColumns = `id, name, short_name, color, sort_order, is_beginner_tier, is_dan`

func scanBelt(row scanner) (belt.Rank, error) {
	var r belt.Rank
	err := row.Scan(&r.ID, &r.Name, &r.ShortName, &r.Color, &r.SortOrder, &r.IsBeginnerTier, &r.IsDan)
	return r, err
}

// Sync upserts every rank.
func (r *BeltRepository) Sync(ctx context.Context, ranks []belt.Rank) error {
	query := `
		INSERT INTO belts (` + beltColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			short_name = EXCLUDED.short_name,
			color = EXCLUDED.color,
			sort_order = EXCLUDED.sort_order,
			is_beginner_tier = EXCLUDED.is_beginner_tier,
			is_dan = EXCLUDED.is_dan
	`
	for _, rk := range ranks {
		if _, err := r.q.Exec(ctx, query, rk.ID, rk.Name, rk.ShortName, rk.Color, rk.SortOrder, rk.IsBeginnerTier, rk.IsDan); err != nil {
			return fmt.Errorf("failed to sync belt %s: %w", rk.ID, err)
		}
	}
	return nil
}

// List returns ranks, most junior first.
func (r *BeltRepository) List(ctx context.Context) ([]belt.Rank, error) {
	rows, err := r.q.Query(ctx, `SELECT `+beltColumns+` FROM belts ORDER BY sort_order DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list belts: %w", err)
	}
	defer rows.Close()

	var out []belt.Rank
	for rows.Next() {
		rk, err := scanBelt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan belt: %w", err)
		}
		out = append(out, rk)
	}
	return out, rows.Err()
}

// GetByID returns a rank.
func (r *BeltRepository) GetByID(ctx context.Context, id string) (belt.Rank, error) {
	rk, err := scanBelt(r.q.QueryRow(ctx, `SELECT `+beltColumns+` FROM belts WHERE id = $1`, id))
	if err != nil {
		if noRows(err) {
			return belt.Rank{}, shared.ErrBeltNotFound.Detailf("id %q", id)
		}
		return belt.Rank{}, fmt.Errorf("failed to get belt: %w", err)
	}
	return rk, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository implements profile.Repository for PostgreSQL.
type ProfileRepository struct {
	q querier
}

const profileSelect = `
	SELECT p.id, p.name, p.avatar, p.color_theme, p.learning_mode, p.daily_study_goal,
		   p.is_active, p.created_at, p.last_active_at, p.updated_at,
		   p.streak_days, p.last_study_date, p.total_study_ns,
		   p.total_flashcards_seen, p.total_tests_taken, p.total_patterns_learned,
		   b.id, b.name, b.short_name, b.color, b.sort_order, b.is_beginner_tier, b.is_dan
	FROM profiles p
	JOIN belts b ON b.id = p.belt_id
`

func scanProfile(row scanner) (*profile.Profile, error) {
	var (
		p                         profile.Profile
		avatar, theme, mode       string
		lastStudy                 *time.Time
		studyNS                   int64
		createdAt, activeAt, upAt time.Time
	)
	err := row.Scan(
		&p.ID, &p.Name, &avatar, &theme, &mode, &p.DailyStudyGoal,
		&p.IsActive, &createdAt, &activeAt, &upAt,
		&p.StreakDays, &lastStudy, &studyNS,
		&p.TotalFlashcardsSeen, &p.TotalTestsTaken, &p.TotalPatternsLearned,
		&p.Rank.ID, &p.Rank.Name, &p.Rank.ShortName, &p.Rank.Color, &p.Rank.SortOrder, &p.Rank.IsBeginnerTier, &p.Rank.IsDan,
	)
	if err != nil {
		return nil, err
	}
	p.Avatar = profile.Avatar(avatar)
	p.ColorTheme = profile.ColorTheme(theme)
	p.LearningMode = profile.LearningMode(mode)
	p.CreatedAt = createdAt.UTC()
	p.LastActiveAt = activeAt.UTC()
	p.UpdatedAt = upAt.UTC()
	p.LastStudyDate = fromNullTime(lastStudy)
	p.TotalStudyTime = time.Duration(studyNS)
	return &p, nil
}

func (r *ProfileRepository) one(ctx context.Context, where string, args ...interface{}) (*profile.Profile, error) {
	return scanProfile(r.q.QueryRow(ctx, profileSelect+where, args...))
}

// Create inserts a profile.
func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	query := `
		INSERT INTO profiles (
			id, name, name_key, avatar, color_theme, belt_id, learning_mode, daily_study_goal,
			is_active, created_at, last_active_at, updated_at, streak_days, last_study_date,
			total_study_ns, total_flashcards_seen, total_tests_taken, total_patterns_learned
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.Name, profile.NameKey(p.Name), string(p.Avatar), string(p.ColorTheme), p.Rank.ID,
		string(p.LearningMode), p.DailyStudyGoal, p.IsActive, p.CreatedAt, p.LastActiveAt, p.UpdatedAt,
		p.StreakDays, nullTime(p.LastStudyDate), int64(p.TotalStudyTime),
		p.TotalFlashcardsSeen, p.TotalTestsTaken, p.TotalPatternsLearned,
	)
	if err != nil {
		switch {
		case uniqueViolation(err, "profiles_name_key_unique"):
			return shared.ErrProfileNameTaken
		case uniqueViolation(err, "profiles_pkey"):
			return shared.ErrProfileExists.Detailf("id %s", p.ID)
		case foreignKeyViolation(err):
			return shared.ErrBeltNotFound.Detailf("id %q", p.Rank.ID)
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetByID returns a profile.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	p, err := r.one(ctx, `WHERE p.id = $1`, id)
	if err != nil {
		if noRows(err) {
			return nil, profileNotFound(id)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetByNameKey returns the profile holding a name key.
func (r *ProfileRepository) GetByNameKey(ctx context.Context, key string) (*profile.Profile, error) {
	p, err := r.one(ctx, `WHERE p.name_key = $1`, key)
	if err != nil {
		if noRows(err) {
			return nil, shared.ErrProfileNotFound.Detailf("name %q", key)
		}
		return nil, fmt.Errorf("failed to get profile by name: %w", err)
	}
	return p, nil
}

// GetActive returns the active profile or nil.
func (r *ProfileRepository) GetActive(ctx context.Context) (*profile.Profile, error) {
	p, err := r.one(ctx, `WHERE p.is_active`)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active profile: %w", err)
	}
	return p, nil
}

// List returns profiles in creation order.
func (r *ProfileRepository) List(ctx context.Context) ([]*profile.Profile, error) {
	rows, err := r.q.Query(ctx, profileSelect+` ORDER BY p.seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var out []*profile.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the number of profiles.
func (r *ProfileRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}

// Update replaces every mutable column.
func (r *ProfileRepository) Update(ctx context.Context, p *profile.Profile) error {
	query := `
		UPDATE profiles SET
			name = $1,
			name_key = $2,
			avatar = $3,
			color_theme = $4,
			belt_id = $5,
			learning_mode = $6,
			daily_study_goal = $7,
			is_active = $8,
			last_active_at = $9,
			updated_at = $10,
			streak_days = $11,
			last_study_date = $12,
			total_study_ns = $13,
			total_flashcards_seen = $14,
			total_tests_taken = $15,
			total_patterns_learned = $16
		WHERE id = $17
	`
	result, err := r.q.Exec(ctx, query,
		p.Name, profile.NameKey(p.Name), string(p.Avatar), string(p.ColorTheme), p.Rank.ID,
		string(p.LearningMode), p.DailyStudyGoal, p.IsActive, p.LastActiveAt, p.UpdatedAt,
		p.StreakDays, nullTime(p.LastStudyDate), int64(p.TotalStudyTime),
		p.TotalFlashcardsSeen, p.TotalTestsTaken, p.TotalPatternsLearned,
		p.ID,
	)
	if err != nil {
		if uniqueViolation(err, "profiles_name_key_unique") {
			return shared.ErrProfileNameTaken
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return profileNotFound(p.ID)
	}
	return nil
}

// SetActive moves the active flag to id. The deactivation runs first so the
// single-active index never sees two rows.
func (r *ProfileRepository) SetActive(ctx context.Context, id string, at time.Time) error {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check profile: %w", err)
	}
	if !exists {
		return profileNotFound(id)
	}
	if _, err := r.q.Exec(ctx, `UPDATE profiles SET is_active = FALSE WHERE is_active AND id <> $1`, id); err != nil {
		return fmt.Errorf("failed to deactivate profiles: %w", err)
	}
	at = at.UTC()
	if _, err := r.q.Exec(ctx,
		`UPDATE profiles SET is_active = TRUE, last_active_at = $2, updated_at = $2 WHERE id = $1`,
		id, at,
	); err != nil {
		return fmt.Errorf("failed to activate profile: %w", err)
	}
	return nil
}

// Delete removes a profile. Owned rows go with it through ON DELETE CASCADE.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return profileNotFound(id)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
type ProgressRepository struct {
	q querier
}

const progressColumns = `id, profile_id, content_id, correct_count, incorrect_count,
	best_accuracy, stage, last_practiced_at, created_at, updated_at`

func scanProgress(row scanner) (*progress.Record, error) {
	var (
		rec                progress.Record
		contentID, stage   string
		practiced          *time.Time
		createdAt, updated time.Time
	)
	err := row.Scan(&rec.ID, &rec.ProfileID, &contentID, &rec.CorrectCount, &rec.IncorrectCount,
		&rec.BestAccuracy, &stage, &practiced, &createdAt, &updated)
	if err != nil {
		return nil, err
	}
	rec.ContentID = shared.ContentID(contentID)
	rec.Stage = progress.Stage(stage)
	rec.LastPracticedAt = fromNullTime(practiced)
	rec.CreatedAt = createdAt.UTC()
	rec.UpdatedAt = updated.UTC()
	return &rec, nil
}

func progressArgs(rec *progress.Record) []interface{} {
	return []interface{}{
		rec.ID, rec.ProfileID, rec.ContentID.String(), rec.CorrectCount, rec.IncorrectCount,
		rec.BestAccuracy, string(rec.Stage), nullTime(rec.LastPracticedAt), rec.CreatedAt, rec.UpdatedAt,
	}
}

// GetOrCreate inserts candidate unless the pair exists, then returns the
// stored row. ON CONFLICT makes concurrent callers converge on one ID.
func (r *ProgressRepository) GetOrCreate(ctx context.Context, candidate *progress.Record) (*progress.Record, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO progress (`+progressColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (profile_id, content_id) DO NOTHING
	`, progressArgs(candidate)...)
	if err != nil {
		if foreignKeyViolation(err) {
			return nil, profileNotFound(candidate.ProfileID)
		}
		return nil, fmt.Errorf("failed to create progress: %w", err)
	}
	return r.Get(ctx, candidate.ProfileID, candidate.ContentID)
}

// Get returns the record for a pair.
func (r *ProgressRepository) Get(ctx context.Context, profileID string, contentID shared.ContentID) (*progress.Record, error) {
	rec, err := scanProgress(r.q.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE profile_id = $1 AND content_id = $2`,
		profileID, contentID.String(),
	))
	if err != nil {
		if noRows(err) {
			return nil, shared.ErrProgressNotFound.Detailf("%s/%s", profileID, contentID)
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return rec, nil
}

// Update persists counters and stage.
func (r *ProgressRepository) Update(ctx context.Context, rec *progress.Record) error {
	result, err := r.q.Exec(ctx, `
		UPDATE progress SET
			correct_count = $1,
			incorrect_count = $2,
			best_accuracy = $3,
			stage = $4,
			last_practiced_at = $5,
			updated_at = $6
		WHERE id = $7 AND profile_id = $8 AND content_id = $9
	`,
		rec.CorrectCount, rec.IncorrectCount, rec.BestAccuracy, string(rec.Stage),
		nullTime(rec.LastPracticedAt), rec.UpdatedAt, rec.ID, rec.ProfileID, rec.ContentID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrProgressNotFound.Detailf("id %s", rec.ID)
	}
	return nil
}

// ListByProfile returns a profile's records ordered by content ID.
func (r *ProgressRepository) ListByProfile(ctx context.Context, profileID string) ([]*progress.Record, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE profile_id = $1 ORDER BY content_id`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var out []*progress.Record
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Insert stores a complete record.
func (r *ProgressRepository) Insert(ctx context.Context, rec *progress.Record) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO progress (`+progressColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, progressArgs(rec)...)
	if err != nil {
		switch {
		case uniqueViolation(err, ""):
			return shared.ErrProgressExists.Detailf("%s/%s", rec.ProfileID, rec.ContentID)
		case foreignKeyViolation(err):
			return profileNotFound(rec.ProfileID)
		}
		return fmt.Errorf("failed to insert progress: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements session.Repository for PostgreSQL.
type SessionRepository struct {
	q querier
}

// Append stores a finalized session.
func (r *SessionRepository) Append(ctx context.Context, s *session.Session) error {
	focus := s.FocusAreas
	if focus == nil {
		focus = []string{}
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO study_sessions (
			id, profile_id, session_type, items_studied, correct_answers, accuracy,
			focus_areas, started_at, ended_at, duration_ns
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		s.ID, s.ProfileID, string(s.Type), s.ItemsStudied, s.CorrectAnswers, s.Accuracy,
		focus, s.StartedAt.UTC(), s.EndedAt.UTC(), int64(s.Duration),
	)
	if err != nil {
		if foreignKeyViolation(err) {
			return profileNotFound(s.ProfileID)
		}
		return fmt.Errorf("failed to append session: %w", err)
	}
	return nil
}

// ListByProfile returns sessions newest first. limit <= 0 returns all.
func (r *SessionRepository) ListByProfile(ctx context.Context, profileID string, limit int) ([]*session.Session, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, profile_id, session_type, items_studied, correct_answers, accuracy,
			   focus_areas, started_at, ended_at, duration_ns
		FROM study_sessions
		WHERE profile_id = $1
		ORDER BY ended_at DESC, id DESC
		LIMIT $2
	`, profileID, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		var (
			s          session.Session
			typ        string
			started    time.Time
			ended      time.Time
			durationNS int64
		)
		if err := rows.Scan(&s.ID, &s.ProfileID, &typ, &s.ItemsStudied, &s.CorrectAnswers, &s.Accuracy,
			&s.FocusAreas, &started, &ended, &durationNS); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.Type = session.Type(typ)
		s.StartedAt = started.UTC()
		s.EndedAt = ended.UTC()
		s.Duration = time.Duration(durationNS)
		s.Finalized = true
		out = append(out, &s)
	}
	return out, rows.Err()
}

// CountAll counts sessions across every profile.
func (r *SessionRepository) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM study_sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADING REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// GradingRepository implements grading.Repository for PostgreSQL.
type GradingRepository struct {
	q querier
}

// Append stores a grading record.
func (r *GradingRepository) Append(ctx context.Context, g *grading.Record) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO gradings (
			id, profile_id, grading_date, belt_tested_id, belt_achieved_id,
			passed, grading_type, examiner, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		g.ID, g.ProfileID, g.Date.UTC(), g.BeltTested.ID, g.BeltAchieved.ID,
		g.Passed, string(g.Type), g.Examiner, g.Notes, g.CreatedAt.UTC(),
	)
	if err != nil {
		if foreignKeyViolation(err) {
			return shared.WrapError("grading", "Append", shared.ErrNotFound, "profile or belt not found",
				fmt.Errorf("profile %s", g.ProfileID))
		}
		return fmt.Errorf("failed to append grading: %w", err)
	}
	return nil
}

// ListByProfile returns gradings, most recent date first.
func (r *GradingRepository) ListByProfile(ctx context.Context, profileID string) ([]*grading.Record, error) {
	rows, err := r.q.Query(ctx, `
		SELECT g.id, g.profile_id, g.grading_date, g.passed, g.grading_type, g.examiner, g.notes, g.created_at,
			   bt.id, bt.name, bt.short_name, bt.color, bt.sort_order, bt.is_beginner_tier, bt.is_dan,
			   ba.id, ba.name, ba.short_name, ba.color, ba.sort_order, ba.is_beginner_tier, ba.is_dan
		FROM gradings g
		JOIN belts bt ON bt.id = g.belt_tested_id
		JOIN belts ba ON ba.id = g.belt_achieved_id
		WHERE g.profile_id = $1
		ORDER BY g.grading_date DESC, g.created_at DESC
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list gradings: %w", err)
	}
	defer rows.Close()

	var out []*grading.Record
	for rows.Next() {
		var (
			g             grading.Record
			typ           string
			date, created time.Time
		)
		bt, ba := &g.BeltTested, &g.BeltAchieved
		if err := rows.Scan(&g.ID, &g.ProfileID, &date, &g.Passed, &typ, &g.Examiner, &g.Notes, &created,
			&bt.ID, &bt.Name, &bt.ShortName, &bt.Color, &bt.SortOrder, &bt.IsBeginnerTier, &bt.IsDan,
			&ba.ID, &ba.Name, &ba.ShortName, &ba.Color, &ba.SortOrder, &ba.IsBeginnerTier, &ba.IsDan,
		); err != nil {
			return nil, fmt.Errorf("failed to scan grading: %w", err)
		}
		g.Type = grading.Type(typ)
		g.Date = date.UTC()
		g.CreatedAt = created.UTC()
		out = append(out, &g)
	}
	return out, rows.Err()
}
