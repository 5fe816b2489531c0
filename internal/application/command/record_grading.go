package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/grading"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/internal/domain/store"
	"github.com/tkdojang/dojang/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD GRADING COMMAND
// Appends a grading attempt. A pass moves the profile to the achieved belt.
// ══════════════════════════════════════════════════════════════════════════════

// RecordGradingCommand contains one grading attempt.
type RecordGradingCommand struct {
	ProfileID    string
	Date         time.Time
	BeltTestedID string

	// BeltAchievedID is the belt awarded on a pass. Empty means the rank
	// directly above BeltTestedID.
	BeltAchievedID string
	Passed         bool
	Type           grading.Type
	Examiner       string
	Notes          string
	CorrelationID  string
}

// Validate validates the command.
func (c RecordGradingCommand) Validate() error {
	if err := requireID("record_grading", "profile_id", c.ProfileID); err != nil {
		return err
	}
	return requireID("record_grading", "belt_tested_id", c.BeltTestedID)
}

// RecordGradingResult contains the stored record and updated owner.
type RecordGradingResult struct {
	Record       *grading.Record
	Profile      *profile.Profile
	PreviousRank belt.Rank
	Promoted     bool
}

// RecordGradingHandler handles the RecordGradingCommand.
type RecordGradingHandler struct {
	store          store.Store
	eventPublisher shared.EventPublisher
}

// NewRecordGradingHandler creates a new RecordGradingHandler.
func NewRecordGradingHandler(st store.Store, eventPublisher shared.EventPublisher) *RecordGradingHandler {
	return &RecordGradingHandler{store: st, eventPublisher: orNopPublisher(eventPublisher)}
}

// Handle executes the record grading command.
func (h *RecordGradingHandler) Handle(ctx context.Context, cmd RecordGradingCommand) (*RecordGradingResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_grading: validation failed: %w", err)
	}

	now := time.Now().UTC()
	result := &RecordGradingResult{}
	err := h.store.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
		p, err := tx.Profiles().GetByID(ctx, cmd.ProfileID)
		if err != nil {
			return err
		}
		tested, err := tx.Belts().GetByID(ctx, cmd.BeltTestedID)
		if err != nil {
			return err
		}
		var achieved belt.Rank
		switch {
		case cmd.BeltAchievedID != "":
			if achieved, err = tx.Belts().GetByID(ctx, cmd.BeltAchievedID); err != nil {
				return err
			}
		case cmd.Passed:
			if achieved, err = nextRank(ctx, tx.Belts(), tested); err != nil {
				return err
			}
		}

		rec, err := grading.NewRecord(grading.NewRecordParams{
			ID:           uuid.New().String(),
			ProfileID:    p.ID,
			Date:         cmd.Date,
			BeltTested:   tested,
			BeltAchieved: achieved,
			Passed:       cmd.Passed,
			Type:         cmd.Type,
			Examiner:     cmd.Examiner,
			Notes:        cmd.Notes,
		}, now)
		if err != nil {
			return err
		}
		if err := tx.Gradings().Append(ctx, rec); err != nil {
			return err
		}

		result.Record = rec
		result.PreviousRank = p.Rank
		result.Profile = p
		if rec.ApplyTo(p, now) {
			result.Promoted = true
			return tx.Profiles().Update(ctx, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record_grading: %w", err)
	}

	rec := result.Record
	events := []shared.Event{
		shared.NewGradingRecordedEvent(cmd.ProfileID, rec.ID, rec.BeltTested.ID, rec.BeltAchieved.ID, rec.Passed),
	}
	if result.Promoted {
		events = append(events, shared.NewRankPromotedEvent(cmd.ProfileID, result.PreviousRank.ID, result.Profile.Rank.ID))
		logger.FromContext(ctx).Info("rank updated by grading",
			logger.ProfileID(cmd.ProfileID),
			logger.String("from", result.PreviousRank.ID),
			logger.String("to", result.Profile.Rank.ID),
		)
	}
	publish(ctx, h.eventPublisher, events...)
	return result, nil
}

// nextRank returns the rank awarded for passing a grading at tested.
func nextRank(ctx context.Context, belts belt.Repository, tested belt.Rank) (belt.Rank, error) {
	ranks, err := belts.List(ctx)
	if err != nil {
		return belt.Rank{}, err
	}
	cat, err := belt.NewCatalog(ranks)
	if err != nil {
		return belt.Rank{}, err
	}
	next, ok := cat.Next(tested)
	if !ok {
		return belt.Rank{}, shared.NewDomainError("record_grading", "Validate", shared.ErrInvalidInput,
			"belt_achieved_id is required when grading at the most advanced rank")
	}
	return next, nil
}
