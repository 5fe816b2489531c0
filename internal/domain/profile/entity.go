package profile

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIMITS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// MaxProfiles is the number of profiles a device may hold.
	MaxProfiles = 6

	// MinNameLength and MaxNameLength bound the trimmed name, in characters.
	MinNameLength = 1
	MaxNameLength = 20

	// DefaultDailyStudyGoal is in minutes.
	DefaultDailyStudyGoal = 20
	MaxDailyStudyGoal     = 240
)

// ══════════════════════════════════════════════════════════════════════════════
// VOCABULARIES
// ══════════════════════════════════════════════════════════════════════════════

// Avatar is the picture selector shown next to a profile.
type Avatar string

const (
	AvatarStudent1 Avatar = "student1"
	AvatarStudent2 Avatar = "student2"
	AvatarStudent3 Avatar = "student3"
	AvatarStudent4 Avatar = "student4"
	AvatarNinja    Avatar = "ninja"
	AvatarMaster   Avatar = "master"
)

// IsValid reports whether a is a known avatar.
func (a Avatar) IsValid() bool {
	switch a {
	case AvatarStudent1, AvatarStudent2, AvatarStudent3, AvatarStudent4, AvatarNinja, AvatarMaster:
		return true
	}
	return false
}

// ColorTheme is the accent color of a profile.
type ColorTheme string

const (
	ThemeBlue   ColorTheme = "blue"
	ThemeRed    ColorTheme = "red"
	ThemeGreen  ColorTheme = "green"
	ThemePurple ColorTheme = "purple"
	ThemeOrange ColorTheme = "orange"
	ThemePink   ColorTheme = "pink"
)

// IsValid reports whether c is a known theme.
func (c ColorTheme) IsValid() bool {
	switch c {
	case ThemeBlue, ThemeRed, ThemeGreen, ThemePurple, ThemeOrange, ThemePink:
		return true
	}
	return false
}

// LearningMode is a stored study preference. It does not change which
// content is eligible.
type LearningMode string

const (
	ModeProgression LearningMode = "progression"
	ModeMastery     LearningMode = "mastery"
)

// IsValid reports whether m is a known mode.
func (m LearningMode) IsValid() bool {
	return m == ModeProgression || m == ModeMastery
}

// ══════════════════════════════════════════════════════════════════════════════
// NAME RULES
// ══════════════════════════════════════════════════════════════════════════════

// NormalizeName trims surrounding whitespace.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// NameKey is the case-insensitive identity of a name.
func NameKey(name string) string {
	return strings.ToLower(NormalizeName(name))
}

// ValidateName checks the length of the normalized name.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(NormalizeName(name))
	switch {
	case n < MinNameLength:
		return shared.ErrProfileNameEmpty
	case n > MaxNameLength:
		return shared.ErrProfileNameTooLong.Detailf("%d characters, max %d", n, MaxNameLength)
	}
	return nil
}

// SameName reports whether two names collide.
func SameName(a, b string) bool {
	return NameKey(a) == NameKey(b)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Profile is a learner on the device.
type Profile struct {
	ID             string
	Name           string
	Avatar         Avatar
	ColorTheme     ColorTheme
	Rank           belt.Rank
	LearningMode   LearningMode
	DailyStudyGoal int // minutes
	IsActive       bool

	CreatedAt    time.Time
	LastActiveAt time.Time
	UpdatedAt    time.Time

	StreakDays           int
	LastStudyDate        time.Time // calendar day of the last session, zero if none
	TotalStudyTime       time.Duration
	TotalFlashcardsSeen  int
	TotalTestsTaken      int
	TotalPatternsLearned int
}

// NewProfileParams holds creation input. Zero optional fields take defaults.
type NewProfileParams struct {
	ID             string
	Name           string
	Avatar         Avatar
	ColorTheme     ColorTheme
	Rank           belt.Rank
	LearningMode   LearningMode
	DailyStudyGoal int
}

// NewProfile validates params and returns an inactive profile.
func NewProfile(params NewProfileParams, now time.Time) (*Profile, error) {
	if params.ID == "" {
		return nil, shared.NewDomainError("profile", "New", shared.ErrInvalidID, "profile id is required")
	}
	if err := ValidateName(params.Name); err != nil {
		return nil, err
	}
	if params.Avatar == "" {
		params.Avatar = AvatarStudent1
	}
	if params.ColorTheme == "" {
		params.ColorTheme = ThemeBlue
	}
	if params.LearningMode == "" {
		params.LearningMode = ModeProgression
	}
	if params.DailyStudyGoal == 0 {
		params.DailyStudyGoal = DefaultDailyStudyGoal
	}
	if err := validateSettings(params.Avatar, params.ColorTheme, params.LearningMode, params.DailyStudyGoal); err != nil {
		return nil, err
	}
	if params.Rank.IsZero() {
		return nil, shared.NewDomainError("profile", "New", shared.ErrInvalidInput, "belt rank is required")
	}

	now = now.UTC()
	return &Profile{
		ID:             params.ID,
		Name:           NormalizeName(params.Name),
		Avatar:         params.Avatar,
		ColorTheme:     params.ColorTheme,
		Rank:           params.Rank,
		LearningMode:   params.LearningMode,
		DailyStudyGoal: params.DailyStudyGoal,
		CreatedAt:      now,
		LastActiveAt:   now,
		UpdatedAt:      now,
	}, nil
}

func validateSettings(a Avatar, c ColorTheme, m LearningMode, goal int) error {
	if !a.IsValid() {
		return shared.ErrInvalidAvatar.Detailf("%q", a)
	}
	if !c.IsValid() {
		return shared.ErrInvalidColorTheme.Detailf("%q", c)
	}
	if !m.IsValid() {
		return shared.ErrInvalidLearningMode.Detailf("%q", m)
	}
	if goal < 1 || goal > MaxDailyStudyGoal {
		return shared.ErrInvalidStudyGoal.Detailf("%d minutes", goal)
	}
	return nil
}

// Activate marks the profile active and stamps LastActiveAt.
func (p *Profile) Activate(now time.Time) {
	p.IsActive = true
	p.LastActiveAt = now.UTC()
	p.UpdatedAt = now.UTC()
}

// Deactivate clears the active flag.
func (p *Profile) Deactivate() {
	p.IsActive = false
}

// Rename validates and sets a new name. Uniqueness is the caller's job.
func (p *Profile) Rename(name string, now time.Time) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	p.Name = NormalizeName(name)
	p.UpdatedAt = now.UTC()
	return nil
}

// Settings are the user-editable display and study preferences.
type Settings struct {
	Avatar         Avatar
	ColorTheme     ColorTheme
	LearningMode   LearningMode
	DailyStudyGoal int
}

// ApplySettings validates and replaces the preferences.
func (p *Profile) ApplySettings(s Settings, now time.Time) error {
	if err := validateSettings(s.Avatar, s.ColorTheme, s.LearningMode, s.DailyStudyGoal); err != nil {
		return err
	}
	p.Avatar = s.Avatar
	p.ColorTheme = s.ColorTheme
	p.LearningMode = s.LearningMode
	p.DailyStudyGoal = s.DailyStudyGoal
	p.UpdatedAt = now.UTC()
	return nil
}

// Settings returns the current preferences.
func (p *Profile) Settings() Settings {
	return Settings{
		Avatar:         p.Avatar,
		ColorTheme:     p.ColorTheme,
		LearningMode:   p.LearningMode,
		DailyStudyGoal: p.DailyStudyGoal,
	}
}

// SetRank replaces the current rank. It reports whether the rank changed.
func (p *Profile) SetRank(r belt.Rank, now time.Time) bool {
	if p.Rank.ID == r.ID {
		return false
	}
	p.Rank = r
	p.UpdatedAt = now.UTC()
	return true
}

// Clone returns an independent copy.
func (p *Profile) Clone() *Profile {
	c := *p
	return &c
}
