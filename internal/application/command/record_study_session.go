package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/session"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/internal/domain/store"
	"github.com/tkdojang/dojang/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD STUDY SESSION COMMAND
// Stores a finished session and folds it into the owner's counters and
// streak in the same transaction.
// ══════════════════════════════════════════════════════════════════════════════

// RecordStudySessionCommand contains a finished session.
type RecordStudySessionCommand struct {
	ProfileID      string
	Type           session.Type
	ItemsStudied   int
	CorrectAnswers int
	FocusAreas     []string

	// EndedAt defaults to now. StartedAt defaults to EndedAt.
	StartedAt time.Time
	EndedAt   time.Time

	CorrelationID string
}

// Validate checks the caller contract before any store access.
func (c RecordStudySessionCommand) Validate() error {
	if err := requireID("record_study_session", "profile_id", c.ProfileID); err != nil {
		return err
	}
	if !c.Type.IsValid() {
		return shared.ErrInvalidSessionType.Detailf("%q", c.Type)
	}
	return session.ValidateCounts(c.ItemsStudied, c.CorrectAnswers)
}

// RecordStudySessionResult contains the stored session and updated owner.
type RecordStudySessionResult struct {
	Session      *session.Session
	Profile      *profile.Profile
	StreakChange profile.StreakChange
}

// RecordStudySessionHandler handles the RecordStudySessionCommand.
type RecordStudySessionHandler struct {
	store          store.Store
	location       *time.Location
	eventPublisher shared.EventPublisher
}

// NewRecordStudySessionHandler creates a new handler. location is the
// learner's time zone for streak days; nil means UTC.
func NewRecordStudySessionHandler(st store.Store, location *time.Location, eventPublisher shared.EventPublisher) *RecordStudySessionHandler {
	if location == nil {
		location = time.UTC
	}
	return &RecordStudySessionHandler{store: st, location: location, eventPublisher: orNopPublisher(eventPublisher)}
}

// Handle executes the record study session command.
func (h *RecordStudySessionHandler) Handle(ctx context.Context, cmd RecordStudySessionCommand) (*RecordStudySessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_study_session: validation failed: %w", err)
	}

	ended := cmd.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}
	started := cmd.StartedAt
	if started.IsZero() {
		started = ended
	}

	sess, err := session.Start(uuid.New().String(), cmd.ProfileID, cmd.Type, cmd.FocusAreas, started)
	if err != nil {
		return nil, fmt.Errorf("record_study_session: %w", err)
	}
	if err := sess.Complete(ended, cmd.ItemsStudied, cmd.CorrectAnswers); err != nil {
		return nil, fmt.Errorf("record_study_session: %w", err)
	}

	result := &RecordStudySessionResult{Session: sess}
	var previousStreak int
	err = h.store.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
		p, err := tx.Profiles().GetByID(ctx, cmd.ProfileID)
		if err != nil {
			return err
		}
		previousStreak = p.StreakDays
		change, err := sess.ApplyTo(p, h.location)
		if err != nil {
			return err
		}
		if err := tx.Sessions().Append(ctx, sess); err != nil {
			return err
		}
		result.Profile = p
		result.StreakChange = change
		return tx.Profiles().Update(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("record_study_session: %w", err)
	}

	events := []shared.Event{
		shared.NewSessionRecordedEvent(cmd.ProfileID, sess.ID, string(sess.Type),
			sess.ItemsStudied, sess.CorrectAnswers, sess.Accuracy, sess.Duration),
	}
	switch result.StreakChange {
	case profile.StreakStarted, profile.StreakExtended:
		events = append(events, shared.NewStreakUpdatedEvent(cmd.ProfileID, result.Profile.StreakDays))
	case profile.StreakReset:
		events = append(events,
			shared.NewStreakBrokenEvent(cmd.ProfileID, previousStreak),
			shared.NewStreakUpdatedEvent(cmd.ProfileID, result.Profile.StreakDays),
		)
	}
	publish(ctx, h.eventPublisher, events...)

	logger.FromContext(ctx).Debug("study session recorded",
		logger.ProfileID(cmd.ProfileID),
		logger.SessionID(sess.ID),
		logger.Int("streak_days", result.Profile.StreakDays),
	)
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE STREAKS COMMAND
// Zeroes streaks whose last study day is more than one day old. Run daily.
// ══════════════════════════════════════════════════════════════════════════════

// ExpireStreaksCommand carries the reference time, defaulting to now.
type ExpireStreaksCommand struct {
	Now time.Time
}

// ExpireStreaksResult lists the profiles whose streak lapsed.
type ExpireStreaksResult struct {
	Checked int
	Expired []string
}

// ExpireStreaksHandler handles the ExpireStreaksCommand.
type ExpireStreaksHandler struct {
	store          store.Store
	location       *time.Location
	eventPublisher shared.EventPublisher
}

// NewExpireStreaksHandler creates a new ExpireStreaksHandler.
func NewExpireStreaksHandler(st store.Store, location *time.Location, eventPublisher shared.EventPublisher) *ExpireStreaksHandler {
	if location == nil {
		location = time.UTC
	}
	return &ExpireStreaksHandler{store: st, location: location, eventPublisher: orNopPublisher(eventPublisher)}
}

// Handle executes the expire streaks command.
func (h *ExpireStreaksHandler) Handle(ctx context.Context, cmd ExpireStreaksCommand) (*ExpireStreaksResult, error) {
	now := cmd.Now
	if now.IsZero() {
		now = time.Now()
	}
	today := now.In(h.location)

	result := &ExpireStreaksResult{Expired: make([]string, 0)}
	var events []shared.Event
	err := h.store.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
		profiles, err := tx.Profiles().List(ctx)
		if err != nil {
			return err
		}
		result.Checked = len(profiles)
		for _, p := range profiles {
			prev := p.ExpireStreak(today)
			if prev == 0 {
				continue
			}
			if err := tx.Profiles().Update(ctx, p); err != nil {
				return err
			}
			result.Expired = append(result.Expired, p.ID)
			events = append(events, shared.NewStreakBrokenEvent(p.ID, prev))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("expire_streaks: %w", err)
	}

	publish(ctx, h.eventPublisher, events...)
	return result, nil
}
