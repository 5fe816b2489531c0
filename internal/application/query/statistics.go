package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tkdojang/dojang/internal/domain/grading"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/progress"
	"github.com/tkdojang/dojang/internal/domain/session"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/internal/domain/store"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNING QUERIES
// Progress, sessions, gradings and statistics, all folded at query time.
// ══════════════════════════════════════════════════════════════════════════════

// LearningQueries reads per-profile and system-wide learning data.
type LearningQueries struct {
	store    store.Store
	location *time.Location
}

// NewLearningQueries creates a new LearningQueries. location is used to
// decide which sessions count as today.
func NewLearningQueries(st store.Store, location *time.Location) *LearningQueries {
	if location == nil {
		location = time.UTC
	}
	return &LearningQueries{store: st, location: location}
}

// ─────────────────────────────────────────────────────────────────────────────
// Progress
// ─────────────────────────────────────────────────────────────────────────────

// GetProgress returns one ledger entry without creating it.
func (q *LearningQueries) GetProgress(ctx context.Context, profileID, contentID string) (*ProgressDTO, error) {
	cid, err := shared.NewContentID(contentID)
	if err != nil {
		return nil, fmt.Errorf("get_progress: validation failed: %w", err)
	}
	rec, err := q.store.Progress().Get(ctx, profileID, cid)
	if err != nil {
		return nil, fmt.Errorf("get_progress: %w", err)
	}
	dto := NewProgressDTO(rec)
	return &dto, nil
}

// ProgressListResult is a profile's ledger with a stage summary.
type ProgressListResult struct {
	ProfileID string         `json:"profile_id"`
	Records   []ProgressDTO  `json:"records"`
	ByStage   map[string]int `json:"by_stage"`
	Attempts  int            `json:"attempts"`
	Accuracy  float64        `json:"accuracy"`
}

// ListProgress returns every record the profile owns.
func (q *LearningQueries) ListProgress(ctx context.Context, profileID string) (*ProgressListResult, error) {
	if _, err := q.store.Profiles().GetByID(ctx, profileID); err != nil {
		return nil, fmt.Errorf("list_progress: %w", err)
	}
	records, err := q.store.Progress().ListByProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("list_progress: %w", err)
	}

	sum := progress.Summarize(records)
	out := &ProgressListResult{
		ProfileID: profileID,
		Records:   make([]ProgressDTO, len(records)),
		ByStage:   make(map[string]int, len(sum.ByStage)),
		Attempts:  sum.Attempts,
		Accuracy:  shared.Ratio(sum.Correct, sum.Attempts).Float64(),
	}
	for i, r := range records {
		out.Records[i] = NewProgressDTO(r)
	}
	for stage, n := range sum.ByStage {
		out.ByStage[string(stage)] = n
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────────────────────────────────────

// GetStudySessions returns the profile's sessions, newest first.
func (q *LearningQueries) GetStudySessions(ctx context.Context, profileID string, limit int) ([]SessionDTO, error) {
	if _, err := q.store.Profiles().GetByID(ctx, profileID); err != nil {
		return nil, fmt.Errorf("get_study_sessions: %w", err)
	}
	sessions, err := q.store.Sessions().ListByProfile(ctx, profileID, shared.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("get_study_sessions: %w", err)
	}
	out := make([]SessionDTO, len(sessions))
	for i, s := range sessions {
		out[i] = NewSessionDTO(s)
	}
	return out, nil
}

// ProfileStatistics summarizes one learner.
type ProfileStatistics struct {
	ProfileID            string         `json:"profile_id"`
	Belt                 BeltDTO        `json:"belt"`
	StreakDays           int            `json:"streak_days"`
	TotalStudySeconds    int64          `json:"total_study_seconds"`
	TotalFlashcardsSeen  int            `json:"total_flashcards_seen"`
	TotalTestsTaken      int            `json:"total_tests_taken"`
	TotalPatternsLearned int            `json:"total_patterns_learned"`
	TotalSessions        int            `json:"total_sessions"`
	AverageAccuracy      float64        `json:"average_accuracy"`
	OverallAccuracy      float64        `json:"overall_accuracy"`
	SessionsByType       map[string]int `json:"sessions_by_type"`
	StudiedToday         bool           `json:"studied_today"`
	StudiedTodaySeconds  int64          `json:"studied_today_seconds"`
	DailyGoalMet         bool           `json:"daily_goal_met"`
	ItemsTracked         int            `json:"items_tracked"`
	ItemsMastered        int            `json:"items_mastered"`
}

// GetProfileStatistics folds the profile counters, its sessions and ledger.
func (q *LearningQueries) GetProfileStatistics(ctx context.Context, profileID string, now time.Time) (*ProfileStatistics, error) {
	p, err := q.store.Profiles().GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("get_profile_statistics: %w", err)
	}
	sessions, err := q.store.Sessions().ListByProfile(ctx, profileID, 0)
	if err != nil {
		return nil, fmt.Errorf("get_profile_statistics: %w", err)
	}
	records, err := q.store.Progress().ListByProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("get_profile_statistics: %w", err)
	}
	if now.IsZero() {
		now = time.Now()
	}

	st := session.Summarize(sessions)
	ps := progress.Summarize(records)
	today := session.StudyTimeOn(sessions, now, q.location)

	out := &ProfileStatistics{
		ProfileID:            p.ID,
		Belt:                 NewBeltDTO(p.Rank),
		StreakDays:           displayedStreak(p, now.In(q.location)),
		TotalStudySeconds:    int64(p.TotalStudyTime / time.Second),
		TotalFlashcardsSeen:  p.TotalFlashcardsSeen,
		TotalTestsTaken:      p.TotalTestsTaken,
		TotalPatternsLearned: p.TotalPatternsLearned,
		TotalSessions:        st.TotalSessions,
		AverageAccuracy:      st.AverageAccuracy,
		OverallAccuracy:      st.OverallAccuracy,
		SessionsByType:       make(map[string]int, len(st.ByType)),
		StudiedToday:         p.StudiedOn(now.In(q.location)),
		StudiedTodaySeconds:  int64(today / time.Second),
		DailyGoalMet:         today >= time.Duration(p.DailyStudyGoal)*time.Minute,
		ItemsTracked:         ps.Total,
		ItemsMastered:        ps.ByStage[progress.StageMastered],
	}
	for t, n := range st.ByType {
		out.SessionsByType[string(t)] = n
	}
	return out, nil
}

// displayedStreak hides a lapsed streak that the nightly job has not zeroed
// yet.
func displayedStreak(p *profile.Profile, today time.Time) int {
	if p.IsStreakLapsed(today) {
		return 0
	}
	return p.StreakDays
}

// SystemStatistics aggregates across every profile.
type SystemStatistics struct {
	TotalProfiles     int   `json:"total_profiles"`
	TotalStudySeconds int64 `json:"total_study_seconds"`
	TotalSessions     int   `json:"total_sessions"`
	TotalFlashcards   int   `json:"total_flashcards"`
	TotalTests        int   `json:"total_tests"`
}

// GetSystemStatistics is computed from stored rows on every call.
func (q *LearningQueries) GetSystemStatistics(ctx context.Context) (*SystemStatistics, error) {
	profiles, err := q.store.Profiles().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_system_statistics: %w", err)
	}
	sessions, err := q.store.Sessions().CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_system_statistics: %w", err)
	}
	t := profile.Summarize(profiles)
	return &SystemStatistics{
		TotalProfiles:     t.Profiles,
		TotalStudySeconds: int64(t.TotalStudyTime / time.Second),
		TotalSessions:     sessions,
		TotalFlashcards:   t.Flashcards,
		TotalTests:        t.Tests,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Gradings
// ─────────────────────────────────────────────────────────────────────────────

// GradingStatistics are a profile's pass/fail counts.
type GradingStatistics struct {
	ProfileID string     `json:"profile_id"`
	Total     int        `json:"total"`
	Passed    int        `json:"passed"`
	Failed    int        `json:"failed"`
	PassRate  float64    `json:"pass_rate"`
	LastDate  *time.Time `json:"last_grading_date,omitempty"`
}

// GetGradingStatistics folds the profile's grading history.
func (q *LearningQueries) GetGradingStatistics(ctx context.Context, profileID string) (*GradingStatistics, error) {
	records, err := q.gradings(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("get_grading_statistics: %w", err)
	}
	st := grading.Summarize(records)
	out := &GradingStatistics{
		ProfileID: profileID,
		Total:     st.Total,
		Passed:    st.Passed,
		Failed:    st.Failed,
		PassRate:  st.PassRate,
	}
	if !st.LastDate.IsZero() {
		d := st.LastDate
		out.LastDate = &d
	}
	return out, nil
}

// GetGradingHistory returns gradings, most recent first.
func (q *LearningQueries) GetGradingHistory(ctx context.Context, profileID string) ([]GradingDTO, error) {
	records, err := q.gradings(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("get_grading_history: %w", err)
	}
	out := make([]GradingDTO, len(records))
	for i, g := range records {
		out[i] = NewGradingDTO(g)
	}
	return out, nil
}

func (q *LearningQueries) gradings(ctx context.Context, profileID string) ([]*grading.Record, error) {
	if _, err := q.store.Profiles().GetByID(ctx, profileID); err != nil {
		return nil, err
	}
	return q.store.Gradings().ListByProfile(ctx, profileID)
}
