package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/grading"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/progress"
	"github.com/tkdojang/dojang/internal/domain/session"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func profileNotFound(id string) error {
	return shared.ErrProfileNotFound.Detailf("id %s", id)
}

// ══════════════════════════════════════════════════════════════════════════════
// BELTS
// ══════════════════════════════════════════════════════════════════════════════

type beltRow struct {
	ID             string `db:"id"`
	Name           string `db:"name"`
	ShortName      string `db:"short_name"`
	Color          string `db:"color"`
	SortOrder      int    `db:"sort_order"`
	IsBeginnerTier bool   `db:"is_beginner_tier"`
	IsDan          bool   `db:"is_dan"`
}

func (b beltRow) rank() belt.Rank {
	return belt.Rank{
		ID:             b.ID,
		Name:           b.Name,
		ShortName:      b.ShortName,
		Color:          b.Color,
		SortOrder:      b.SortOrder,
		IsBeginnerTier: b.IsBeginnerTier,
		IsDan:          b.IsDan,
	}
}

type beltRepo struct{ q sqlx.ExtContext }

func (r beltRepo) Sync(ctx context.Context, ranks []belt.Rank) error {
	for _, rk := range ranks {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO belts (id, name, short_name, color, sort_order, is_beginner_tier, is_dan)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				short_name = excluded.short_name,
				color = excluded.color,
				sort_order = excluded.sort_order,
				is_beginner_tier = excluded.is_beginner_tier,
				is_dan = excluded.is_dan
		`, rk.ID, rk.Name, rk.ShortName, rk.Color, rk.SortOrder, rk.IsBeginnerTier, rk.IsDan)
		if err != nil {
			return fmt.Errorf("failed to sync belt %s: %w", rk.ID, err)
		}
	}
	return nil
}

func (r beltRepo) List(ctx context.Context) ([]belt.Rank, error) {
	var rows []beltRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, `SELECT * FROM belts ORDER BY sort_order DESC`); err != nil {
		return nil, fmt.Errorf("failed to list belts: %w", err)
	}
	out := make([]belt.Rank, len(rows))
	for i, b := range rows {
		out[i] = b.rank()
	}
	return out, nil
}

func (r beltRepo) GetByID(ctx context.Context, id string) (belt.Rank, error) {
	var row beltRow
	if err := sqlx.GetContext(ctx, r.q, &row, `SELECT * FROM belts WHERE id = ?`, id); err != nil {
		if isNoRows(err) {
			return belt.Rank{}, shared.ErrBeltNotFound.Detailf("id %q", id)
		}
		return belt.Rank{}, fmt.Errorf("failed to get belt: %w", err)
	}
	return row.rank(), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILES
// ══════════════════════════════════════════════════════════════════════════════

type profileRow struct {
	ID                   string       `db:"id"`
	Name                 string       `db:"name"`
	Avatar               string       `db:"avatar"`
	ColorTheme           string       `db:"color_theme"`
	LearningMode         string       `db:"learning_mode"`
	DailyStudyGoal       int          `db:"daily_study_goal"`
	IsActive             bool         `db:"is_active"`
	CreatedAt            time.Time    `db:"created_at"`
	LastActiveAt         time.Time    `db:"last_active_at"`
	UpdatedAt            time.Time    `db:"updated_at"`
	StreakDays           int          `db:"streak_days"`
	LastStudyDate        sql.NullTime `db:"last_study_date"`
	TotalStudyNS         int64        `db:"total_study_ns"`
	TotalFlashcardsSeen  int          `db:"total_flashcards_seen"`
	TotalTestsTaken      int          `db:"total_tests_taken"`
	TotalPatternsLearned int          `db:"total_patterns_learned"`

	BeltID             string `db:"belt_id"`
	BeltName           string `db:"belt_name"`
	BeltShortName      string `db:"belt_short_name"`
	BeltColor          string `db:"belt_color"`
	BeltSortOrder      int    `db:"belt_sort_order"`
	BeltIsBeginnerTier bool   `db:"belt_is_beginner_tier"`
	BeltIsDan          bool   `db:"belt_is_dan"`
}

func (row profileRow) profile() *profile.Profile {
	return &profile.Profile{
		ID:             row.ID,
		Name:           row.Name,
		Avatar:         profile.Avatar(row.Avatar),
		ColorTheme:     profile.ColorTheme(row.ColorTheme),
		LearningMode:   profile.LearningMode(row.LearningMode),
		DailyStudyGoal: row.DailyStudyGoal,
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt.UTC(),
		LastActiveAt:   row.LastActiveAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
		Rank: beltRow{
			ID:             row.BeltID,
			Name:           row.BeltName,
			ShortName:      row.BeltShortName,
			Color:          row.BeltColor,
			SortOrder:      row.BeltSortOrder,
			IsBeginnerTier: row.BeltIsBeginnerTier,
			IsDan:          row.BeltIsDan,
		}.rank(),
		StreakDays:           row.StreakDays,
		LastStudyDate:        fromNullTime(row.LastStudyDate),
		TotalStudyTime:       time.Duration(row.TotalStudyNS),
		TotalFlashcardsSeen:  row.TotalFlashcardsSeen,
		TotalTestsTaken:      row.TotalTestsTaken,
		TotalPatternsLearned: row.TotalPatternsLearned,
	}
}

const profileSelect = `
	SELECT p.id, p.name, p.avatar, p.color_theme, p.learning_mode, p.daily_study_goal,
		   p.is_active, p.created_at, p.last_active_at, p.updated_at,
		   p.streak_days, p.last_study_date, p.total_study_ns,
		   p.total_flashcards_seen, p.total_tests_taken, p.total_patterns_learned,
		   b.id AS belt_id, b.name AS belt_name, b.short_name AS belt_short_name,
		   b.color AS belt_color, b.sort_order AS belt_sort_order,
		   b.is_beginner_tier AS belt_is_beginner_tier, b.is_dan AS belt_is_dan
	FROM profiles p
	JOIN belts b ON b.id = p.belt_id
`

type profileRepo struct{ q sqlx.ExtContext }

func (r profileRepo) one(ctx context.Context, where string, args ...interface{}) (*profile.Profile, error) {
	var row profileRow
	if err := sqlx.GetContext(ctx, r.q, &row, profileSelect+where, args...); err != nil {
		return nil, err
	}
	return row.profile(), nil
}

func (r profileRepo) Create(ctx context.Context, p *profile.Profile) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO profiles (
			id, name, name_key, avatar, color_theme, belt_id, learning_mode, daily_study_goal,
			is_active, created_at, last_active_at, updated_at, streak_days, last_study_date,
			total_study_ns, total_flashcards_seen, total_tests_taken, total_patterns_learned
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.Name, profile.NameKey(p.Name), string(p.Avatar), string(p.ColorTheme), p.Rank.ID,
		string(p.LearningMode), p.DailyStudyGoal, p.IsActive, p.CreatedAt.UTC(), p.LastActiveAt.UTC(), p.UpdatedAt.UTC(),
		p.StreakDays, nullTime(p.LastStudyDate), int64(p.TotalStudyTime),
		p.TotalFlashcardsSeen, p.TotalTestsTaken, p.TotalPatternsLearned,
	)
	if err != nil {
		switch {
		case isUnique(err, "profiles.name_key"):
			return shared.ErrProfileNameTaken
		case isUnique(err, "profiles.id"):
			return shared.ErrProfileExists.Detailf("id %s", p.ID)
		case isForeignKey(err):
			return shared.ErrBeltNotFound.Detailf("id %q", p.Rank.ID)
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r profileRepo) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	p, err := r.one(ctx, `WHERE p.id = ?`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, profileNotFound(id)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (r profileRepo) GetByNameKey(ctx context.Context, key string) (*profile.Profile, error) {
	p, err := r.one(ctx, `WHERE p.name_key = ?`, key)
	if err != nil {
		if isNoRows(err) {
			return nil, shared.ErrProfileNotFound.Detailf("name %q", key)
		}
		return nil, fmt.Errorf("failed to get profile by name: %w", err)
	}
	return p, nil
}

func (r profileRepo) GetActive(ctx context.Context) (*profile.Profile, error) {
	p, err := r.one(ctx, `WHERE p.is_active`)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active profile: %w", err)
	}
	return p, nil
}

func (r profileRepo) List(ctx context.Context) ([]*profile.Profile, error) {
	var rows []profileRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, profileSelect+` ORDER BY p.rowid`); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	out := make([]*profile.Profile, len(rows))
	for i, row := range rows {
		out[i] = row.profile()
	}
	return out, nil
}

func (r profileRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(*) FROM profiles`); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}

func (r profileRepo) Update(ctx context.Context, p *profile.Profile) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE profiles SET
			name = ?, name_key = ?, avatar = ?, color_theme = ?, belt_id = ?,
			learning_mode = ?, daily_study_goal = ?, is_active = ?, last_active_at = ?,
			updated_at = ?, streak_days = ?, last_study_date = ?, total_study_ns = ?,
			total_flashcards_seen = ?, total_tests_taken = ?, total_patterns_learned = ?
		WHERE id = ?
	`,
		p.Name, profile.NameKey(p.Name), string(p.Avatar), string(p.ColorTheme), p.Rank.ID,
		string(p.LearningMode), p.DailyStudyGoal, p.IsActive, p.LastActiveAt.UTC(),
		p.UpdatedAt.UTC(), p.StreakDays, nullTime(p.LastStudyDate), int64(p.TotalStudyTime),
		p.TotalFlashcardsSeen, p.TotalTestsTaken, p.TotalPatternsLearned,
		p.ID,
	)
	if err != nil {
		if isUnique(err, "profiles.name_key") {
			return shared.ErrProfileNameTaken
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return profileNotFound(p.ID)
	}
	return nil
}

func (r profileRepo) SetActive(ctx context.Context, id string, at time.Time) error {
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(*) FROM profiles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to check profile: %w", err)
	}
	if n == 0 {
		return profileNotFound(id)
	}
	if _, err := r.q.ExecContext(ctx, `UPDATE profiles SET is_active = FALSE WHERE is_active AND id <> ?`, id); err != nil {
		return fmt.Errorf("failed to deactivate profiles: %w", err)
	}
	at = at.UTC()
	if _, err := r.q.ExecContext(ctx,
		`UPDATE profiles SET is_active = TRUE, last_active_at = ?, updated_at = ? WHERE id = ?`,
		at, at, id,
	); err != nil {
		return fmt.Errorf("failed to activate profile: %w", err)
	}
	return nil
}

func (r profileRepo) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return profileNotFound(id)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

type progressRow struct {
	ID              string       `db:"id"`
	ProfileID       string       `db:"profile_id"`
	ContentID       string       `db:"content_id"`
	CorrectCount    int          `db:"correct_count"`
	IncorrectCount  int          `db:"incorrect_count"`
	BestAccuracy    float64      `db:"best_accuracy"`
	Stage           string       `db:"stage"`
	LastPracticedAt sql.NullTime `db:"last_practiced_at"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

func (row progressRow) record() *progress.Record {
	return &progress.Record{
		ID:              row.ID,
		ProfileID:       row.ProfileID,
		ContentID:       shared.ContentID(row.ContentID),
		CorrectCount:    row.CorrectCount,
		IncorrectCount:  row.IncorrectCount,
		BestAccuracy:    row.BestAccuracy,
		Stage:           progress.Stage(row.Stage),
		LastPracticedAt: fromNullTime(row.LastPracticedAt),
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

const progressInsert = `
	INSERT INTO progress (
		id, profile_id, content_id, correct_count, incorrect_count,
		best_accuracy, stage, last_practiced_at, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func progressArgs(rec *progress.Record) []interface{} {
	return []interface{}{
		rec.ID, rec.ProfileID, rec.ContentID.String(), rec.CorrectCount, rec.IncorrectCount,
		rec.BestAccuracy, string(rec.Stage), nullTime(rec.LastPracticedAt), rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	}
}

type progressRepo struct{ q sqlx.ExtContext }

func (r progressRepo) GetOrCreate(ctx context.Context, candidate *progress.Record) (*progress.Record, error) {
	_, err := r.q.ExecContext(ctx, progressInsert+` ON CONFLICT (profile_id, content_id) DO NOTHING`, progressArgs(candidate)...)
	if err != nil {
		if isForeignKey(err) {
			return nil, profileNotFound(candidate.ProfileID)
		}
		return nil, fmt.Errorf("failed to create progress: %w", err)
	}
	return r.Get(ctx, candidate.ProfileID, candidate.ContentID)
}

func (r progressRepo) Get(ctx context.Context, profileID string, contentID shared.ContentID) (*progress.Record, error) {
	var row progressRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT * FROM progress WHERE profile_id = ? AND content_id = ?`, profileID, contentID.String())
	if err != nil {
		if isNoRows(err) {
			return nil, shared.ErrProgressNotFound.Detailf("%s/%s", profileID, contentID)
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return row.record(), nil
}

func (r progressRepo) Update(ctx context.Context, rec *progress.Record) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE progress SET
			correct_count = ?, incorrect_count = ?, best_accuracy = ?, stage = ?,
			last_practiced_at = ?, updated_at = ?
		WHERE id = ? AND profile_id = ? AND content_id = ?
	`,
		rec.CorrectCount, rec.IncorrectCount, rec.BestAccuracy, string(rec.Stage),
		nullTime(rec.LastPracticedAt), rec.UpdatedAt.UTC(), rec.ID, rec.ProfileID, rec.ContentID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return shared.ErrProgressNotFound.Detailf("id %s", rec.ID)
	}
	return nil
}

func (r progressRepo) ListByProfile(ctx context.Context, profileID string) ([]*progress.Record, error) {
	var rows []progressRow
	if err := sqlx.SelectContext(ctx, r.q, &rows,
		`SELECT * FROM progress WHERE profile_id = ? ORDER BY content_id`, profileID); err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	out := make([]*progress.Record, len(rows))
	for i, row := range rows {
		out[i] = row.record()
	}
	return out, nil
}

func (r progressRepo) Insert(ctx context.Context, rec *progress.Record) error {
	if _, err := r.q.ExecContext(ctx, progressInsert, progressArgs(rec)...); err != nil {
		switch {
		case isUnique(err, ""):
			return shared.ErrProgressExists.Detailf("%s/%s", rec.ProfileID, rec.ContentID)
		case isForeignKey(err):
			return profileNotFound(rec.ProfileID)
		}
		return fmt.Errorf("failed to insert progress: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

type sessionRow struct {
	ID             string    `db:"id"`
	ProfileID      string    `db:"profile_id"`
	Type           string    `db:"session_type"`
	ItemsStudied   int       `db:"items_studied"`
	CorrectAnswers int       `db:"correct_answers"`
	Accuracy       float64   `db:"accuracy"`
	FocusAreas     string    `db:"focus_areas"`
	StartedAt      time.Time `db:"started_at"`
	EndedAt        time.Time `db:"ended_at"`
	DurationNS     int64     `db:"duration_ns"`
}

type sessionRepo struct{ q sqlx.ExtContext }

func (r sessionRepo) Append(ctx context.Context, s *session.Session) error {
	focus := s.FocusAreas
	if focus == nil {
		focus = []string{}
	}
	focusJSON, err := json.Marshal(focus)
	if err != nil {
		return fmt.Errorf("failed to marshal focus areas: %w", err)
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO study_sessions (
			id, profile_id, session_type, items_studied, correct_answers, accuracy,
			focus_areas, started_at, ended_at, duration_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID, s.ProfileID, string(s.Type), s.ItemsStudied, s.CorrectAnswers, s.Accuracy,
		string(focusJSON), s.StartedAt.UTC(), s.EndedAt.UTC(), int64(s.Duration),
	)
	if err != nil {
		if isForeignKey(err) {
			return profileNotFound(s.ProfileID)
		}
		return fmt.Errorf("failed to append session: %w", err)
	}
	return nil
}

func (r sessionRepo) ListByProfile(ctx context.Context, profileID string, limit int) ([]*session.Session, error) {
	if limit <= 0 {
		limit = -1
	}
	var rows []sessionRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, `
		SELECT * FROM study_sessions
		WHERE profile_id = ?
		ORDER BY ended_at DESC, rowid DESC
		LIMIT ?
	`, profileID, limit); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]*session.Session, len(rows))
	for i, row := range rows {
		var focus []string
		if err := json.Unmarshal([]byte(row.FocusAreas), &focus); err != nil {
			return nil, fmt.Errorf("failed to decode focus areas of %s: %w", row.ID, err)
		}
		out[i] = &session.Session{
			ID:             row.ID,
			ProfileID:      row.ProfileID,
			Type:           session.Type(row.Type),
			ItemsStudied:   row.ItemsStudied,
			CorrectAnswers: row.CorrectAnswers,
			Accuracy:       row.Accuracy,
			FocusAreas:     focus,
			StartedAt:      row.StartedAt.UTC(),
			EndedAt:        row.EndedAt.UTC(),
			Duration:       time.Duration(row.DurationNS),
			Finalized:      true,
		}
	}
	return out, nil
}

func (r sessionRepo) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(*) FROM study_sessions`); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADINGS
// ══════════════════════════════════════════════════════════════════════════════

type gradingRow struct {
	ID        string    `db:"id"`
	ProfileID string    `db:"profile_id"`
	Date      time.Time `db:"grading_date"`
	Passed    bool      `db:"passed"`
	Type      string    `db:"grading_type"`
	Examiner  string    `db:"examiner"`
	Notes     string    `db:"notes"`
	CreatedAt time.Time `db:"created_at"`

	TestedID             string `db:"tested_id"`
	TestedName           string `db:"tested_name"`
	TestedShortName      string `db:"tested_short_name"`
	TestedColor          string `db:"tested_color"`
	TestedSortOrder      int    `db:"tested_sort_order"`
	TestedIsBeginnerTier bool   `db:"tested_is_beginner_tier"`
	TestedIsDan          bool   `db:"tested_is_dan"`

	AchievedID             string `db:"achieved_id"`
	AchievedName           string `db:"achieved_name"`
	AchievedShortName      string `db:"achieved_short_name"`
	AchievedColor          string `db:"achieved_color"`
	AchievedSortOrder      int    `db:"achieved_sort_order"`
	AchievedIsBeginnerTier bool   `db:"achieved_is_beginner_tier"`
	AchievedIsDan          bool   `db:"achieved_is_dan"`
}

type gradingRepo struct{ q sqlx.ExtContext }

func (r gradingRepo) Append(ctx context.Context, g *grading.Record) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO gradings (
			id, profile_id, grading_date, belt_tested_id, belt_achieved_id,
			passed, grading_type, examiner, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		g.ID, g.ProfileID, g.Date.UTC(), g.BeltTested.ID, g.BeltAchieved.ID,
		g.Passed, string(g.Type), g.Examiner, g.Notes, g.CreatedAt.UTC(),
	)
	if err != nil {
		if isForeignKey(err) {
			return shared.WrapError("grading", "Append", shared.ErrNotFound, "profile or belt not found",
				fmt.Errorf("profile %s", g.ProfileID))
		}
		return fmt.Errorf("failed to append grading: %w", err)
	}
	return nil
}

func (r gradingRepo) ListByProfile(ctx context.Context, profileID string) ([]*grading.Record, error) {
	var rows []gradingRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, `
		SELECT g.id, g.profile_id, g.grading_date, g.passed, g.grading_type, g.examiner, g.notes, g.created_at,
			   bt.id AS tested_id, bt.name AS tested_name, bt.short_name AS tested_short_name,
			   bt.color AS tested_color, bt.sort_order AS tested_sort_order,
			   bt.is_beginner_tier AS tested_is_beginner_tier, bt.is_dan AS tested_is_dan,
			   ba.id AS achieved_id, ba.name AS achieved_name, ba.short_name AS achieved_short_name,
			   ba.color AS achieved_color, ba.sort_order AS achieved_sort_order,
			   ba.is_beginner_tier AS achieved_is_beginner_tier, ba.is_dan AS achieved_is_dan
		FROM gradings g
		JOIN belts bt ON bt.id = g.belt_tested_id
		JOIN belts ba ON ba.id = g.belt_achieved_id
		WHERE g.profile_id = ?
		ORDER BY g.grading_date DESC, g.created_at DESC
	`, profileID); err != nil {
		return nil, fmt.Errorf("failed to list gradings: %w", err)
	}

	out := make([]*grading.Record, len(rows))
	for i, row := range rows {
		out[i] = &grading.Record{
			ID:        row.ID,
			ProfileID: row.ProfileID,
			Date:      row.Date.UTC(),
			BeltTested: beltRow{
				ID: row.TestedID, Name: row.TestedName, ShortName: row.TestedShortName, Color: row.TestedColor,
				SortOrder: row.TestedSortOrder, IsBeginnerTier: row.TestedIsBeginnerTier, IsDan: row.TestedIsDan,
			}.rank(),
			BeltAchieved: beltRow{
				ID: row.AchievedID, Name: row.AchievedName, ShortName: row.AchievedShortName, Color: row.AchievedColor,
				SortOrder: row.AchievedSortOrder, IsBeginnerTier: row.AchievedIsBeginnerTier, IsDan: row.AchievedIsDan,
			}.rank(),
			Passed:    row.Passed,
			Type:      grading.Type(row.Type),
			Examiner:  row.Examiner,
			Notes:     row.Notes,
			CreatedAt: row.CreatedAt.UTC(),
		}
	}
	return out, nil
}
