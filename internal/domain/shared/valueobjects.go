// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// ProfileID identifies a learner profile. Profiles use UUID strings.
type ProfileID string

// IsValid checks that the ID is a canonical UUID string.
func (p ProfileID) IsValid() bool {
	if len(p) != 36 {
		return false
	}
	_, err := uuid.Parse(string(p))
	return err == nil
}

// String returns the string representation.
func (p ProfileID) String() string {
	return string(p)
}

// NewProfileID validates and creates a ProfileID.
func NewProfileID(id string) (ProfileID, error) {
	pid := ProfileID(strings.TrimSpace(id))
	if !pid.IsValid() {
		return "", NewDomainError("shared", "NewProfileID", ErrInvalidID, fmt.Sprintf("invalid profile id %q", id))
	}
	return pid, nil
}

// ContentID identifies a curriculum item. IDs are stable slugs such as
// "terminology/front-kick" and survive content reloads.
type ContentID string

var contentIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-./]{0,127}$`)

// IsValid checks the slug format.
func (c ContentID) IsValid() bool {
	return contentIDPattern.MatchString(string(c))
}

// String returns the string representation.
func (c ContentID) String() string {
	return string(c)
}

// NewContentID validates and creates a ContentID.
func NewContentID(id string) (ContentID, error) {
	cid := ContentID(strings.ToLower(strings.TrimSpace(id)))
	if !cid.IsValid() {
		return "", NewDomainError("shared", "NewContentID", ErrInvalidID, fmt.Sprintf("invalid content id %q", id))
	}
	return cid, nil
}

// Slugify turns free text into a ContentID fragment.
func Slugify(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ═══════════════════════════════════════════════════════════════════════════
// Accuracy Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Accuracy is a ratio in [0, 1].
type Accuracy float64

// Ratio returns correct/total, or 0 when total is 0.
func Ratio(correct, total int) Accuracy {
	if total <= 0 {
		return 0
	}
	return Accuracy(float64(correct) / float64(total))
}

// IsValid checks the range.
func (a Accuracy) IsValid() bool {
	f := float64(a)
	return !math.IsNaN(f) && f >= 0 && f <= 1
}

// Float64 returns the raw value.
func (a Accuracy) Float64() float64 {
	return float64(a)
}

// Percent returns the value scaled to 0-100.
func (a Accuracy) Percent() float64 {
	return float64(a) * 100
}

// NewAccuracy validates and creates an Accuracy.
func NewAccuracy(v float64) (Accuracy, error) {
	a := Accuracy(v)
	if !a.IsValid() {
		return 0, NewDomainError("shared", "NewAccuracy", ErrValueOutOfRange, fmt.Sprintf("accuracy %v outside [0,1]", v))
	}
	return a, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a time period.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks if the time range is valid.
func (t TimeRange) IsValid() bool {
	return !t.From.IsZero() && !t.To.IsZero() && !t.From.After(t.To)
}

// Duration returns the duration of the time range.
func (t TimeRange) Duration() time.Duration {
	return t.To.Sub(t.From)
}

// Contains checks if a time is within the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return (tm.Equal(t.From) || tm.After(t.From)) && (tm.Equal(t.To) || tm.Before(t.To))
}

// NewTimeRange creates a new TimeRange with validation.
func NewTimeRange(from, to time.Time) (TimeRange, error) {
	tr := TimeRange{From: from, To: to}
	if !tr.IsValid() {
		return TimeRange{}, NewDomainError("shared", "NewTimeRange", ErrInvalidInput, "'from' must be before 'to'")
	}
	return tr, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Limit Value Object
// ═══════════════════════════════════════════════════════════════════════════

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// NormalizeLimit clamps a requested list size into [1, MaxListLimit],
// substituting DefaultListLimit for non-positive values.
func NormalizeLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultListLimit
	case n > MaxListLimit:
		return MaxListLimit
	default:
		return n
	}
}
