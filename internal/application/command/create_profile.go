// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/internal/domain/store"
	"github.com/tkdojang/dojang/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE PROFILE COMMAND
// Adds a learner to the device. The first profile becomes active.
// ══════════════════════════════════════════════════════════════════════════════

// CreateProfileCommand contains the data to create a profile.
type CreateProfileCommand struct {
	Name         string
	Avatar       profile.Avatar
	ColorTheme   profile.ColorTheme
	LearningMode profile.LearningMode

	// RankID is the starting belt. Empty means the most junior belt.
	RankID string

	// DailyStudyGoal in minutes. Zero means the default.
	DailyStudyGoal int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate checks the name before any store access.
func (c CreateProfileCommand) Validate() error {
	return profile.ValidateName(c.Name)
}

// CreateProfileResult contains the created profile.
type CreateProfileResult struct {
	Profile   *profile.Profile
	Activated bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CreateProfileHandler handles the CreateProfileCommand.
type CreateProfileHandler struct {
	store          store.Store
	locker         store.Locker
	eventPublisher shared.EventPublisher
}

// NewCreateProfileHandler creates a new CreateProfileHandler. locker and
// eventPublisher may be nil.
func NewCreateProfileHandler(
	st store.Store,
	locker store.Locker,
	eventPublisher shared.EventPublisher,
) *CreateProfileHandler {
	return &CreateProfileHandler{
		store:          st,
		locker:         orNopLocker(locker),
		eventPublisher: orNopPublisher(eventPublisher),
	}
}

// Handle executes the create profile command.
func (h *CreateProfileHandler) Handle(ctx context.Context, cmd CreateProfileCommand) (*CreateProfileResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_profile: validation failed: %w", err)
	}

	now := time.Now().UTC()
	var created *profile.Profile
	var activated bool

	err := withLock(ctx, h.locker, store.ProfilesLockKey, func() error {
		return h.store.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
			rank, err := resolveStartingRank(ctx, tx.Belts(), cmd.RankID)
			if err != nil {
				return err
			}
			p, err := profile.NewProfile(profile.NewProfileParams{
				ID:             uuid.New().String(),
				Name:           cmd.Name,
				Avatar:         cmd.Avatar,
				ColorTheme:     cmd.ColorTheme,
				Rank:           rank,
				LearningMode:   cmd.LearningMode,
				DailyStudyGoal: cmd.DailyStudyGoal,
			}, now)
			if err != nil {
				return err
			}
			activated, err = insertProfile(ctx, tx.Profiles(), p, now)
			created = p
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create_profile: %w", err)
	}

	publish(ctx, h.eventPublisher, shared.NewProfileCreatedEvent(created.ID, created.Name, created.Rank.ID, activated))
	logger.FromContext(ctx).Info("profile created",
		logger.ProfileID(created.ID),
		logger.BeltID(created.Rank.ID),
		logger.Bool("activated", activated),
	)

	return &CreateProfileResult{Profile: created, Activated: activated}, nil
}

// insertProfile applies the multi-row creation rules: capacity, unique name
// key, and auto-activation of the first profile. It must run inside a
// transaction.
func insertProfile(ctx context.Context, repo profile.Repository, p *profile.Profile, now time.Time) (bool, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count profiles: %w", err)
	}
	if count >= profile.MaxProfiles {
		return false, shared.ErrProfileLimitReached
	}

	if _, err := repo.GetByNameKey(ctx, profile.NameKey(p.Name)); err == nil {
		return false, shared.ErrProfileNameTaken
	} else if !shared.IsNotFound(err) {
		return false, fmt.Errorf("check name: %w", err)
	}

	if err := repo.Create(ctx, p); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := repo.SetActive(ctx, p.ID, now); err != nil {
		return false, fmt.Errorf("activate first profile: %w", err)
	}
	p.Activate(now)
	return true, nil
}

func resolveStartingRank(ctx context.Context, belts belt.Repository, id string) (belt.Rank, error) {
	if id != "" {
		return belts.GetByID(ctx, id)
	}
	ranks, err := belts.List(ctx)
	if err != nil {
		return belt.Rank{}, err
	}
	if len(ranks) == 0 {
		return belt.Rank{}, shared.ErrEmptyBeltCatalog
	}
	return ranks[0], nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func withLock(ctx context.Context, l store.Locker, key string, fn func() error) error {
	// zero selects the locker's own TTL
	release, err := l.Acquire(ctx, key, 0)
	if err != nil {
		return fmt.Errorf("acquire %s lock: %w", key, err)
	}
	defer release()
	return fn()
}

// publish sends events after commit. Failures are logged, never returned:
// the write has already happened.
func publish(ctx context.Context, p shared.EventPublisher, events ...shared.Event) {
	for _, e := range events {
		if err := p.Publish(e); err != nil {
			logger.FromContext(ctx).Warn("event publish failed",
				logger.String("event_type", string(e.EventType())),
				logger.Err(err),
			)
		}
	}
}

func orNopLocker(l store.Locker) store.Locker {
	if l == nil {
		return store.NopLocker{}
	}
	return l
}

func orNopPublisher(p shared.EventPublisher) shared.EventPublisher {
	if p == nil {
		return shared.NopPublisher{}
	}
	return p
}

func requireID(op, field, value string) error {
	if value == "" {
		return shared.NewDomainError(op, "Validate", shared.ErrInvalidInput, field+" is required")
	}
	return nil
}
