// Package exchange defines the portable .tkdprofile document used to move
// learner profiles between devices. Sealing and checksum verification live
// in the infrastructure codec; this package owns structure and validation.
package exchange

import (
	"fmt"
	"time"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/grading"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/progress"
	"github.com/tkdojang/dojang/internal/domain/session"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

const (
	// FormatVersion is written to every export and the only one accepted.
	FormatVersion = "1.0"

	// FileExtension is the conventional export file suffix.
	FileExtension = ".tkdprofile"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOCUMENT
// ══════════════════════════════════════════════════════════════════════════════

// Document is the top-level export.
type Document struct {
	ExportVersion string          `json:"exportVersion"`
	AppVersion    string          `json:"appVersion"`
	ExportedAt    time.Time       `json:"exportedAt"`
	DeviceName    string          `json:"deviceName,omitempty"`
	Profiles      []ProfileBundle `json:"profiles"`
	Checksum      string          `json:"checksum"`
}

// ProfileBundle is one profile with everything it owns.
type ProfileBundle struct {
	Profile  ProfileData    `json:"profile"`
	Progress []ProgressData `json:"progress"`
	Sessions []SessionData  `json:"sessions"`
	Gradings []GradingData  `json:"gradings"`
}

// ProfileData carries the portable profile fields. IDs are not exported;
// the importing device assigns fresh ones.
type ProfileData struct {
	Name                 string    `json:"name"`
	Avatar               string    `json:"avatar"`
	ColorTheme           string    `json:"colorTheme"`
	BeltID               string    `json:"beltId"`
	LearningMode         string    `json:"learningMode"`
	DailyStudyGoal       int       `json:"dailyStudyGoal"`
	CreatedAt            time.Time `json:"createdAt"`
	StreakDays           int       `json:"streakDays"`
	LastStudyDate        time.Time `json:"lastStudyDate,omitempty"`
	TotalStudySeconds    int64     `json:"totalStudySeconds"`
	TotalFlashcardsSeen  int       `json:"totalFlashcardsSeen"`
	TotalTestsTaken      int       `json:"totalTestsTaken"`
	TotalPatternsLearned int       `json:"totalPatternsLearned"`
}

// ProgressData is one ledger entry.
type ProgressData struct {
	ContentID       string    `json:"contentId"`
	CorrectCount    int       `json:"correctCount"`
	IncorrectCount  int       `json:"incorrectCount"`
	BestAccuracy    float64   `json:"bestAccuracy"`
	Stage           string    `json:"stage"`
	LastPracticedAt time.Time `json:"lastPracticedAt,omitempty"`
}

// SessionData is one finalized study session.
type SessionData struct {
	Type           string    `json:"type"`
	ItemsStudied   int       `json:"itemsStudied"`
	CorrectAnswers int       `json:"correctAnswers"`
	FocusAreas     []string  `json:"focusAreas,omitempty"`
	StartedAt      time.Time `json:"startedAt"`
	EndedAt        time.Time `json:"endedAt"`
	Accuracy       float64   `json:"accuracy"`
}

// GradingData is one grading attempt.
type GradingData struct {
	Date           time.Time `json:"date"`
	BeltTestedID   string    `json:"beltTestedId"`
	BeltAchievedID string    `json:"beltAchievedId"`
	Passed         bool      `json:"passed"`
	Type           string    `json:"gradingType"`
	Examiner       string    `json:"examiner,omitempty"`
	Notes          string    `json:"notes,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// BUILD
// ══════════════════════════════════════════════════════════════════════════════

// NewDocument wraps bundles in an unsealed document.
func NewDocument(appVersion, deviceName string, bundles []ProfileBundle, now time.Time) *Document {
	return &Document{
		ExportVersion: FormatVersion,
		AppVersion:    appVersion,
		ExportedAt:    now.UTC(),
		DeviceName:    deviceName,
		Profiles:      bundles,
	}
}

// Bundle captures a profile and the rows it owns.
func Bundle(p *profile.Profile, records []*progress.Record, sessions []*session.Session, gradings []*grading.Record) ProfileBundle {
	b := ProfileBundle{
		Profile: ProfileData{
			Name:                 p.Name,
			Avatar:               string(p.Avatar),
			ColorTheme:           string(p.ColorTheme),
			BeltID:               p.Rank.ID,
			LearningMode:         string(p.LearningMode),
			DailyStudyGoal:       p.DailyStudyGoal,
			CreatedAt:            p.CreatedAt,
			StreakDays:           p.StreakDays,
			LastStudyDate:        p.LastStudyDate,
			TotalStudySeconds:    int64(p.TotalStudyTime / time.Second),
			TotalFlashcardsSeen:  p.TotalFlashcardsSeen,
			TotalTestsTaken:      p.TotalTestsTaken,
			TotalPatternsLearned: p.TotalPatternsLearned,
		},
		Progress: make([]ProgressData, 0, len(records)),
		Sessions: make([]SessionData, 0, len(sessions)),
		Gradings: make([]GradingData, 0, len(gradings)),
	}
	for _, r := range records {
		b.Progress = append(b.Progress, ProgressData{
			ContentID:       r.ContentID.String(),
			CorrectCount:    r.CorrectCount,
			IncorrectCount:  r.IncorrectCount,
			BestAccuracy:    r.BestAccuracy,
			Stage:           string(r.Stage),
			LastPracticedAt: r.LastPracticedAt,
		})
	}
	for _, s := range sessions {
		b.Sessions = append(b.Sessions, SessionData{
			Type:           string(s.Type),
			ItemsStudied:   s.ItemsStudied,
			CorrectAnswers: s.CorrectAnswers,
			FocusAreas:     s.FocusAreas,
			StartedAt:      s.StartedAt,
			EndedAt:        s.EndedAt,
			Accuracy:       s.Accuracy,
		})
	}
	for _, g := range gradings {
		b.Gradings = append(b.Gradings, GradingData{
			Date:           g.Date,
			BeltTestedID:   g.BeltTested.ID,
			BeltAchievedID: g.BeltAchieved.ID,
			Passed:         g.Passed,
			Type:           string(g.Type),
			Examiner:       g.Examiner,
			Notes:          g.Notes,
		})
	}
	return b
}

// ══════════════════════════════════════════════════════════════════════════════
// VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// Validate checks version and value ranges. It does not check belts or
// capacity; those depend on the importing store.
func (d *Document) Validate() error {
	if d.ExportVersion != FormatVersion {
		return shared.WrapError("exchange", "Validate", shared.ErrInvalidFormat,
			"unsupported export version", fmt.Errorf("%q", d.ExportVersion))
	}
	if len(d.Profiles) == 0 {
		return invalid("document has no profiles")
	}
	for i, b := range d.Profiles {
		if err := b.validate(); err != nil {
			return fmt.Errorf("profile %d: %w", i, err)
		}
	}
	return nil
}

func (b ProfileBundle) validate() error {
	p := b.Profile
	if err := profile.ValidateName(p.Name); err != nil {
		return err
	}
	if p.BeltID == "" {
		return invalid("belt id is required")
	}
	if p.StreakDays < 0 || p.TotalStudySeconds < 0 || p.TotalFlashcardsSeen < 0 ||
		p.TotalTestsTaken < 0 || p.TotalPatternsLearned < 0 {
		return invalid("profile counters must not be negative")
	}

	seen := make(map[string]struct{}, len(b.Progress))
	for _, r := range b.Progress {
		if _, err := shared.NewContentID(r.ContentID); err != nil {
			return err
		}
		if _, dup := seen[r.ContentID]; dup {
			return invalid("duplicate progress for " + r.ContentID)
		}
		seen[r.ContentID] = struct{}{}
		if r.CorrectCount < 0 || r.IncorrectCount < 0 {
			return invalid("progress counters must not be negative")
		}
		if !shared.Accuracy(r.BestAccuracy).IsValid() {
			return invalid("best accuracy must be within [0,1]")
		}
		if _, err := progress.ParseStage(r.Stage); err != nil {
			return err
		}
	}
	for _, s := range b.Sessions {
		if _, err := session.ParseType(s.Type); err != nil {
			return err
		}
		if err := session.ValidateCounts(s.ItemsStudied, s.CorrectAnswers); err != nil {
			return err
		}
		if !shared.Accuracy(s.Accuracy).IsValid() {
			return invalid("session accuracy must be within [0,1]")
		}
		if s.EndedAt.Before(s.StartedAt) {
			return shared.ErrSessionEndsEarly
		}
	}
	for _, g := range b.Gradings {
		if g.BeltTestedID == "" {
			return invalid("grading belt is required")
		}
		if g.Type != "" && !grading.Type(g.Type).IsValid() {
			return shared.ErrInvalidGradingType
		}
	}
	return nil
}

func invalid(msg string) error {
	return shared.WrapError("exchange", "Validate", shared.ErrInvalidInput, "export payload failed validation", fmt.Errorf("%s", msg))
}

// ══════════════════════════════════════════════════════════════════════════════
// RESTORE
// ══════════════════════════════════════════════════════════════════════════════

// RankResolver looks a belt up by ID.
type RankResolver func(id string) (belt.Rank, error)

// Restored holds the entities rebuilt from one bundle.
type Restored struct {
	Profile  *profile.Profile
	Progress []*progress.Record
	Sessions []*session.Session
	Gradings []*grading.Record
}

// Restore rebuilds entities under fresh IDs from newID. Stages are
// re-derived from counters rather than trusted.
func (b ProfileBundle) Restore(newID func() string, resolve RankResolver, now time.Time) (*Restored, error) {
	rank, err := resolve(b.Profile.BeltID)
	if err != nil {
		return nil, err
	}
	p, err := profile.NewProfile(profile.NewProfileParams{
		ID:             newID(),
		Name:           b.Profile.Name,
		Avatar:         profile.Avatar(b.Profile.Avatar),
		ColorTheme:     profile.ColorTheme(b.Profile.ColorTheme),
		Rank:           rank,
		LearningMode:   profile.LearningMode(b.Profile.LearningMode),
		DailyStudyGoal: b.Profile.DailyStudyGoal,
	}, now)
	if err != nil {
		return nil, err
	}
	if !b.Profile.CreatedAt.IsZero() {
		p.CreatedAt = b.Profile.CreatedAt.UTC()
	}
	p.StreakDays = b.Profile.StreakDays
	if !b.Profile.LastStudyDate.IsZero() {
		p.LastStudyDate = profile.CalendarDay(b.Profile.LastStudyDate)
	}
	p.TotalStudyTime = time.Duration(b.Profile.TotalStudySeconds) * time.Second
	p.TotalFlashcardsSeen = b.Profile.TotalFlashcardsSeen
	p.TotalTestsTaken = b.Profile.TotalTestsTaken
	p.TotalPatternsLearned = b.Profile.TotalPatternsLearned

	out := &Restored{Profile: p}
	for _, r := range b.Progress {
		rec := progress.NewRecord(newID(), p.ID, shared.ContentID(r.ContentID), now)
		rec.CorrectCount = r.CorrectCount
		rec.IncorrectCount = r.IncorrectCount
		rec.BestAccuracy = r.BestAccuracy
		rec.Stage = progress.StageFor(r.CorrectCount, r.IncorrectCount)
		rec.LastPracticedAt = r.LastPracticedAt.UTC()
		out.Progress = append(out.Progress, rec)
	}
	for _, s := range b.Sessions {
		sess, err := session.Start(newID(), p.ID, session.Type(s.Type), s.FocusAreas, s.StartedAt)
		if err != nil {
			return nil, err
		}
		if err := sess.Complete(s.EndedAt, s.ItemsStudied, s.CorrectAnswers); err != nil {
			return nil, err
		}
		out.Sessions = append(out.Sessions, sess)
	}
	for _, g := range b.Gradings {
		tested, err := resolve(g.BeltTestedID)
		if err != nil {
			return nil, err
		}
		var achieved belt.Rank
		if g.BeltAchievedID != "" {
			if achieved, err = resolve(g.BeltAchievedID); err != nil {
				return nil, err
			}
		}
		rec, err := grading.NewRecord(grading.NewRecordParams{
			ID:           newID(),
			ProfileID:    p.ID,
			Date:         g.Date,
			BeltTested:   tested,
			BeltAchieved: achieved,
			Passed:       g.Passed,
			Type:         grading.Type(g.Type),
			Examiner:     g.Examiner,
			Notes:        g.Notes,
		}, now)
		if err != nil {
			return nil, err
		}
		out.Gradings = append(out.Gradings, rec)
	}
	return out, nil
}
