// Package query contains read operations (CQRS - Queries).
package query

import (
	"time"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/content"
	"github.com/tkdojang/dojang/internal/domain/grading"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/progress"
	"github.com/tkdojang/dojang/internal/domain/session"
)

// ══════════════════════════════════════════════════════════════════════════════
// DTOs
// Read models returned by queries and serialized by the HTTP layer.
// ══════════════════════════════════════════════════════════════════════════════

// BeltDTO is a belt rank.
type BeltDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ShortName      string `json:"short_name"`
	Color          string `json:"color"`
	SortOrder      int    `json:"sort_order"`
	IsBeginnerTier bool   `json:"is_beginner_tier"`
	IsDan          bool   `json:"is_dan"`
}

// NewBeltDTO maps a rank.
func NewBeltDTO(r belt.Rank) BeltDTO {
	return BeltDTO{
		ID:             r.ID,
		Name:           r.Name,
		ShortName:      r.ShortName,
		Color:          r.Color,
		SortOrder:      r.SortOrder,
		IsBeginnerTier: r.IsBeginnerTier,
		IsDan:          r.IsDan,
	}
}

// ProfileDTO is a learner profile.
type ProfileDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Avatar         string  `json:"avatar"`
	ColorTheme     string  `json:"color_theme"`
	Belt           BeltDTO `json:"belt"`
	LearningMode   string  `json:"learning_mode"`
	DailyStudyGoal int     `json:"daily_study_goal"`
	IsActive       bool    `json:"is_active"`

	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
	LastStudyAt  *time.Time `json:"last_study_date,omitempty"`

	StreakDays           int   `json:"streak_days"`
	TotalStudySeconds    int64 `json:"total_study_seconds"`
	TotalFlashcardsSeen  int   `json:"total_flashcards_seen"`
	TotalTestsTaken      int   `json:"total_tests_taken"`
	TotalPatternsLearned int   `json:"total_patterns_learned"`
}

// NewProfileDTO maps a profile.
func NewProfileDTO(p *profile.Profile) ProfileDTO {
	dto := ProfileDTO{
		ID:                   p.ID,
		Name:                 p.Name,
		Avatar:               string(p.Avatar),
		ColorTheme:           string(p.ColorTheme),
		Belt:                 NewBeltDTO(p.Rank),
		LearningMode:         string(p.LearningMode),
		DailyStudyGoal:       p.DailyStudyGoal,
		IsActive:             p.IsActive,
		CreatedAt:            p.CreatedAt,
		LastActiveAt:         p.LastActiveAt,
		StreakDays:           p.StreakDays,
		TotalStudySeconds:    int64(p.TotalStudyTime / time.Second),
		TotalFlashcardsSeen:  p.TotalFlashcardsSeen,
		TotalTestsTaken:      p.TotalTestsTaken,
		TotalPatternsLearned: p.TotalPatternsLearned,
	}
	if !p.LastStudyDate.IsZero() {
		d := p.LastStudyDate
		dto.LastStudyAt = &d
	}
	return dto
}

// ContentItemDTO is a curriculum item.
type ContentItemDTO struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Category     string `json:"category"`
	Term         string `json:"term"`
	Romanized    string `json:"romanized,omitempty"`
	Hangul       string `json:"hangul,omitempty"`
	Definition   string `json:"definition,omitempty"`
	RequiredBelt string `json:"required_belt"`
	Moves        int    `json:"moves,omitempty"`
}

// NewContentItemDTO maps an item.
func NewContentItemDTO(it content.Item) ContentItemDTO {
	return ContentItemDTO{
		ID:           it.ID.String(),
		Kind:         string(it.Kind),
		Category:     it.Category,
		Term:         it.Term,
		Romanized:    it.Romanized,
		Hangul:       it.Hangul,
		Definition:   it.Definition,
		RequiredBelt: it.RequiredRank.ID,
		Moves:        it.Moves,
	}
}

// ProgressDTO is a ledger entry.
type ProgressDTO struct {
	ID                 string     `json:"id"`
	ProfileID          string     `json:"profile_id"`
	ContentID          string     `json:"content_id"`
	CorrectCount       int        `json:"correct_count"`
	IncorrectCount     int        `json:"incorrect_count"`
	Accuracy           float64    `json:"accuracy"`
	ProgressPercentage float64    `json:"progress_percentage"`
	BestAccuracy       float64    `json:"best_accuracy"`
	Stage              string     `json:"mastery_stage"`
	LastPracticedAt    *time.Time `json:"last_practiced_at,omitempty"`
}

// NewProgressDTO maps a record.
func NewProgressDTO(r *progress.Record) ProgressDTO {
	dto := ProgressDTO{
		ID:                 r.ID,
		ProfileID:          r.ProfileID,
		ContentID:          r.ContentID.String(),
		CorrectCount:       r.CorrectCount,
		IncorrectCount:     r.IncorrectCount,
		Accuracy:           r.Accuracy(),
		ProgressPercentage: r.ProgressPercentage(),
		BestAccuracy:       r.BestAccuracy,
		Stage:              string(r.Stage),
	}
	if !r.LastPracticedAt.IsZero() {
		t := r.LastPracticedAt
		dto.LastPracticedAt = &t
	}
	return dto
}

// SessionDTO is a finalized study session.
type SessionDTO struct {
	ID              string    `json:"id"`
	ProfileID       string    `json:"profile_id"`
	Type            string    `json:"session_type"`
	ItemsStudied    int       `json:"items_studied"`
	CorrectAnswers  int       `json:"correct_answers"`
	Accuracy        float64   `json:"accuracy"`
	FocusAreas      []string  `json:"focus_areas"`
	StartedAt       time.Time `json:"start_time"`
	EndedAt         time.Time `json:"end_time"`
	DurationSeconds int64     `json:"duration_seconds"`
}

// NewSessionDTO maps a session.
func NewSessionDTO(s *session.Session) SessionDTO {
	focus := s.FocusAreas
	if focus == nil {
		focus = []string{}
	}
	return SessionDTO{
		ID:              s.ID,
		ProfileID:       s.ProfileID,
		Type:            string(s.Type),
		ItemsStudied:    s.ItemsStudied,
		CorrectAnswers:  s.CorrectAnswers,
		Accuracy:        s.Accuracy,
		FocusAreas:      focus,
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
		DurationSeconds: int64(s.Duration / time.Second),
	}
}

// GradingDTO is a grading attempt.
type GradingDTO struct {
	ID           string    `json:"id"`
	ProfileID    string    `json:"profile_id"`
	Date         time.Time `json:"grading_date"`
	BeltTested   BeltDTO   `json:"belt_tested"`
	BeltAchieved BeltDTO   `json:"belt_achieved"`
	Passed       bool      `json:"passed"`
	Type         string    `json:"grading_type"`
	Examiner     string    `json:"examiner,omitempty"`
	Notes        string    `json:"notes,omitempty"`
}

// NewGradingDTO maps a grading record.
func NewGradingDTO(g *grading.Record) GradingDTO {
	return GradingDTO{
		ID:           g.ID,
		ProfileID:    g.ProfileID,
		Date:         g.Date,
		BeltTested:   NewBeltDTO(g.BeltTested),
		BeltAchieved: NewBeltDTO(g.BeltAchieved),
		Passed:       g.Passed,
		Type:         string(g.Type),
		Examiner:     g.Examiner,
		Notes:        g.Notes,
	}
}
