package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tkdojang/dojang/internal/domain/content"
	"github.com/tkdojang/dojang/internal/domain/progress"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/internal/domain/store"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET OR CREATE PROGRESS COMMAND
// Progress records are created lazily on first access.
// ══════════════════════════════════════════════════════════════════════════════

// GetOrCreateProgressCommand identifies a (profile, item) pair.
type GetOrCreateProgressCommand struct {
	ProfileID string
	ContentID string
}

// Validate validates the command.
func (c GetOrCreateProgressCommand) Validate() error {
	if err := requireID("get_or_create_progress", "profile_id", c.ProfileID); err != nil {
		return err
	}
	_, err := shared.NewContentID(c.ContentID)
	return err
}

// ProgressHandler handles progress commands.
type ProgressHandler struct {
	store          store.Store
	content        content.Source
	eventPublisher shared.EventPublisher
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(st store.Store, source content.Source, eventPublisher shared.EventPublisher) *ProgressHandler {
	return &ProgressHandler{store: st, content: source, eventPublisher: orNopPublisher(eventPublisher)}
}

// GetOrCreate returns the pair's record, inserting a zero record when none
// exists. Unknown profiles and items are NotFound.
func (h *ProgressHandler) GetOrCreate(ctx context.Context, cmd GetOrCreateProgressCommand) (*progress.Record, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("get_or_create_progress: validation failed: %w", err)
	}
	cid, err := h.knownItem(ctx, cmd.ContentID)
	if err != nil {
		return nil, fmt.Errorf("get_or_create_progress: %w", err)
	}

	var rec *progress.Record
	err = h.store.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
		var err error
		rec, err = getOrCreate(ctx, tx, cmd.ProfileID, cid, time.Now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get_or_create_progress: %w", err)
	}
	return rec, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD PRACTICE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RecordPracticeCommand counts one answer for a (profile, item) pair.
type RecordPracticeCommand struct {
	ProfileID string
	ContentID string
	Correct   bool

	// AnsweredAt defaults to now.
	AnsweredAt time.Time
}

// RecordPracticeResult contains the updated record.
type RecordPracticeResult struct {
	Record  *progress.Record
	Outcome progress.Outcome
}

// RecordPractice increments a counter and re-derives stage and best
// accuracy in one transaction.
func (h *ProgressHandler) RecordPractice(ctx context.Context, cmd RecordPracticeCommand) (*RecordPracticeResult, error) {
	if err := (GetOrCreateProgressCommand{ProfileID: cmd.ProfileID, ContentID: cmd.ContentID}).Validate(); err != nil {
		return nil, fmt.Errorf("record_practice: validation failed: %w", err)
	}
	cid, err := h.knownItem(ctx, cmd.ContentID)
	if err != nil {
		return nil, fmt.Errorf("record_practice: %w", err)
	}
	at := cmd.AnsweredAt
	if at.IsZero() {
		at = time.Now()
	}

	result := &RecordPracticeResult{}
	err = h.store.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
		rec, err := getOrCreate(ctx, tx, cmd.ProfileID, cid, at)
		if err != nil {
			return err
		}
		result.Outcome = rec.Record(cmd.Correct, at)
		result.Record = rec
		return tx.Progress().Update(ctx, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("record_practice: %w", err)
	}

	events := []shared.Event{
		shared.NewPracticeRecordedEvent(cmd.ProfileID, cid.String(), cmd.Correct, result.Record.Accuracy()),
	}
	if result.Outcome.StageChanged() {
		events = append(events, shared.NewStageChangedEvent(cmd.ProfileID, cid.String(),
			string(result.Outcome.PreviousStage), string(result.Outcome.Stage)))
	}
	publish(ctx, h.eventPublisher, events...)
	return result, nil
}

func (h *ProgressHandler) knownItem(ctx context.Context, raw string) (shared.ContentID, error) {
	cid, err := shared.NewContentID(raw)
	if err != nil {
		return "", err
	}
	cat, err := h.content.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("load catalog: %w", err)
	}
	if _, err := cat.Get(cid); err != nil {
		return "", err
	}
	return cid, nil
}

func getOrCreate(ctx context.Context, tx store.Repositories, profileID string, cid shared.ContentID, now time.Time) (*progress.Record, error) {
	if _, err := tx.Profiles().GetByID(ctx, profileID); err != nil {
		return nil, err
	}
	return tx.Progress().GetOrCreate(ctx, progress.NewRecord(uuid.New().String(), profileID, cid, now))
}
