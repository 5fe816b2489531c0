// Package grading models belt grading attempts and pass-rate statistics.
package grading

import (
	"context"
	"time"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

// Type distinguishes colored-belt gradings from dan gradings.
type Type string

const (
	TypeRegular Type = "regular"
	TypeDan     Type = "dan"
)

// IsValid reports whether t is known.
func (t Type) IsValid() bool {
	return t == TypeRegular || t == TypeDan
}

// Record is an immutable grading attempt.
type Record struct {
	ID           string
	ProfileID    string
	Date         time.Time
	BeltTested   belt.Rank
	BeltAchieved belt.Rank
	Passed       bool
	Type         Type
	Examiner     string
	Notes        string
	CreatedAt    time.Time
}

// NewRecordParams is the input for NewRecord.
type NewRecordParams struct {
	ID           string
	ProfileID    string
	Date         time.Time
	BeltTested   belt.Rank
	BeltAchieved belt.Rank
	Passed       bool
	Type         Type
	Examiner     string
	Notes        string
}

// NewRecord validates and builds a grading record. On a fail the achieved
// belt may be left zero; it then defaults to the belt tested.
func NewRecord(params NewRecordParams, now time.Time) (*Record, error) {
	if params.BeltTested.IsZero() {
		return nil, shared.NewDomainError("grading", "New", shared.ErrInvalidInput, "belt tested is required")
	}
	if params.BeltAchieved.IsZero() {
		if params.Passed {
			return nil, shared.NewDomainError("grading", "New", shared.ErrInvalidInput, "belt achieved is required for a pass")
		}
		params.BeltAchieved = params.BeltTested
	}
	if params.Type == "" {
		params.Type = TypeRegular
		if params.BeltTested.IsDan {
			params.Type = TypeDan
		}
	}
	if !params.Type.IsValid() {
		return nil, shared.ErrInvalidGradingType.Detailf("%q", params.Type)
	}
	if params.Date.IsZero() {
		params.Date = now
	}

	return &Record{
		ID:           params.ID,
		ProfileID:    params.ProfileID,
		Date:         params.Date.UTC(),
		BeltTested:   params.BeltTested,
		BeltAchieved: params.BeltAchieved,
		Passed:       params.Passed,
		Type:         params.Type,
		Examiner:     params.Examiner,
		Notes:        params.Notes,
		CreatedAt:    now.UTC(),
	}, nil
}

// ApplyTo moves the owner to the achieved belt on a pass. A fail leaves the
// profile untouched. It reports whether the rank changed.
func (r *Record) ApplyTo(p *profile.Profile, now time.Time) bool {
	if !r.Passed || p.ID != r.ProfileID {
		return false
	}
	return p.SetRank(r.BeltAchieved, now)
}

// Statistics are derived from a profile's records.
type Statistics struct {
	Total    int
	Passed   int
	Failed   int
	PassRate float64
	LastDate time.Time
}

// Summarize folds records. Failed is Total-Passed by construction.
func Summarize(records []*Record) Statistics {
	st := Statistics{Total: len(records)}
	for _, r := range records {
		if r.Passed {
			st.Passed++
		}
		if r.Date.After(st.LastDate) {
			st.LastDate = r.Date
		}
	}
	st.Failed = st.Total - st.Passed
	st.PassRate = shared.Ratio(st.Passed, st.Total).Float64()
	return st
}

// Repository stores grading records.
type Repository interface {
	// Append stores a record.
	Append(ctx context.Context, r *Record) error

	// ListByProfile returns the profile's records, most recent date first.
	ListByProfile(ctx context.Context, profileID string) ([]*Record, error)
}
