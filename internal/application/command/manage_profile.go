package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/internal/domain/store"
	"github.com/tkdojang/dojang/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVATE PROFILE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ActivateProfileCommand switches the active learner.
type ActivateProfileCommand struct {
	ProfileID     string
	CorrelationID string
}

// Validate validates the command.
func (c ActivateProfileCommand) Validate() error {
	return requireID("activate_profile", "profile_id", c.ProfileID)
}

// ActivateProfileResult contains the newly active profile.
type ActivateProfileResult struct {
	Profile    *profile.Profile
	PreviousID string
}

// ActivateProfileHandler handles the ActivateProfileCommand.
type ActivateProfileHandler struct {
	store          store.Store
	locker         store.Locker
	eventPublisher shared.EventPublisher
}

// NewActivateProfileHandler creates a new ActivateProfileHandler.
func NewActivateProfileHandler(st store.Store, locker store.Locker, eventPublisher shared.EventPublisher) *ActivateProfileHandler {
	return &ActivateProfileHandler{store: st, locker: orNopLocker(locker), eventPublisher: orNopPublisher(eventPublisher)}
}

// Handle clears every active flag and sets the target's in one transaction.
func (h *ActivateProfileHandler) Handle(ctx context.Context, cmd ActivateProfileCommand) (*ActivateProfileResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("activate_profile: validation failed: %w", err)
	}

	now := time.Now().UTC()
	result := &ActivateProfileResult{}

	err := withLock(ctx, h.locker, store.ProfilesLockKey, func() error {
		return h.store.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
			prev, err := tx.Profiles().GetActive(ctx)
			if err != nil {
				return err
			}
			if prev != nil {
				result.PreviousID = prev.ID
			}
			if err := tx.Profiles().SetActive(ctx, cmd.ProfileID, now); err != nil {
				return err
			}
			result.Profile, err = tx.Profiles().GetByID(ctx, cmd.ProfileID)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("activate_profile: %w", err)
	}

	publish(ctx, h.eventPublisher, shared.NewProfileActivatedEvent(cmd.ProfileID, result.PreviousID))
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE PROFILE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteProfileCommand removes a learner and everything it owns.
type DeleteProfileCommand struct {
	ProfileID     string
	CorrelationID string
}

// Validate validates the command.
func (c DeleteProfileCommand) Validate() error {
	return requireID("delete_profile", "profile_id", c.ProfileID)
}

// DeleteProfileResult describes the removed profile.
type DeleteProfileResult struct {
	ProfileID string
	Name      string
	WasActive bool
}

// DeleteProfileHandler handles the DeleteProfileCommand.
type DeleteProfileHandler struct {
	store          store.Store
	locker         store.Locker
	eventPublisher shared.EventPublisher
}

// NewDeleteProfileHandler creates a new DeleteProfileHandler.
func NewDeleteProfileHandler(st store.Store, locker store.Locker, eventPublisher shared.EventPublisher) *DeleteProfileHandler {
	return &DeleteProfileHandler{store: st, locker: orNopLocker(locker), eventPublisher: orNopPublisher(eventPublisher)}
}

// Handle deletes the profile. Deleting the active profile leaves no profile
// active; the caller picks the next one.
func (h *DeleteProfileHandler) Handle(ctx context.Context, cmd DeleteProfileCommand) (*DeleteProfileResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("delete_profile: validation failed: %w", err)
	}

	result := &DeleteProfileResult{ProfileID: cmd.ProfileID}
	err := withLock(ctx, h.locker, store.ProfilesLockKey, func() error {
		return h.store.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
			p, err := tx.Profiles().GetByID(ctx, cmd.ProfileID)
			if err != nil {
				return err
			}
			result.Name = p.Name
			result.WasActive = p.IsActive
			return tx.Profiles().Delete(ctx, cmd.ProfileID)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("delete_profile: %w", err)
	}

	publish(ctx, h.eventPublisher, shared.NewProfileDeletedEvent(result.ProfileID, result.Name, result.WasActive))
	logger.FromContext(ctx).Info("profile deleted",
		logger.ProfileID(result.ProfileID),
		logger.Bool("was_active", result.WasActive),
	)
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE PROFILE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateProfileCommand changes name and preferences. nil means unchanged.
type UpdateProfileCommand struct {
	ProfileID      string
	Name           *string
	Avatar         *profile.Avatar
	ColorTheme     *profile.ColorTheme
	LearningMode   *profile.LearningMode
	DailyStudyGoal *int
	CorrelationID  string
}

// Validate checks inputs that need no store access.
func (c UpdateProfileCommand) Validate() error {
	if err := requireID("update_profile", "profile_id", c.ProfileID); err != nil {
		return err
	}
	if c.Name != nil {
		return profile.ValidateName(*c.Name)
	}
	return nil
}

// UpdateProfileResult contains the stored profile and what changed.
type UpdateProfileResult struct {
	Profile       *profile.Profile
	ChangedFields []string
}

// UpdateProfileHandler handles the UpdateProfileCommand.
type UpdateProfileHandler struct {
	store          store.Store
	locker         store.Locker
	eventPublisher shared.EventPublisher
}

// NewUpdateProfileHandler creates a new UpdateProfileHandler.
func NewUpdateProfileHandler(st store.Store, locker store.Locker, eventPublisher shared.EventPublisher) *UpdateProfileHandler {
	return &UpdateProfileHandler{store: st, locker: orNopLocker(locker), eventPublisher: orNopPublisher(eventPublisher)}
}

// Handle applies the changes. A rename is checked against every other
// profile's name key.
func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) (*UpdateProfileResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_profile: validation failed: %w", err)
	}

	now := time.Now().UTC()
	result := &UpdateProfileResult{ChangedFields: make([]string, 0)}

	err := withLock(ctx, h.locker, store.ProfilesLockKey, func() error {
		return h.store.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
			p, err := tx.Profiles().GetByID(ctx, cmd.ProfileID)
			if err != nil {
				return err
			}

			if cmd.Name != nil && profile.NormalizeName(*cmd.Name) != p.Name {
				other, err := tx.Profiles().GetByNameKey(ctx, profile.NameKey(*cmd.Name))
				switch {
				case err == nil && other.ID != p.ID:
					return shared.ErrProfileNameTaken
				case err != nil && !shared.IsNotFound(err):
					return err
				}
				if err := p.Rename(*cmd.Name, now); err != nil {
					return err
				}
				result.ChangedFields = append(result.ChangedFields, "name")
			}

			settings := p.Settings()
			if cmd.Avatar != nil && *cmd.Avatar != settings.Avatar {
				settings.Avatar = *cmd.Avatar
				result.ChangedFields = append(result.ChangedFields, "avatar")
			}
			if cmd.ColorTheme != nil && *cmd.ColorTheme != settings.ColorTheme {
				settings.ColorTheme = *cmd.ColorTheme
				result.ChangedFields = append(result.ChangedFields, "color_theme")
			}
			if cmd.LearningMode != nil && *cmd.LearningMode != settings.LearningMode {
				settings.LearningMode = *cmd.LearningMode
				result.ChangedFields = append(result.ChangedFields, "learning_mode")
			}
			if cmd.DailyStudyGoal != nil && *cmd.DailyStudyGoal != settings.DailyStudyGoal {
				settings.DailyStudyGoal = *cmd.DailyStudyGoal
				result.ChangedFields = append(result.ChangedFields, "daily_study_goal")
			}
			if err := p.ApplySettings(settings, now); err != nil {
				return err
			}

			result.Profile = p
			if len(result.ChangedFields) == 0 {
				return nil
			}
			return tx.Profiles().Update(ctx, p)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("update_profile: %w", err)
	}

	if len(result.ChangedFields) > 0 {
		publish(ctx, h.eventPublisher, shared.NewProfileUpdatedEvent(cmd.ProfileID, result.ChangedFields))
	}
	return result, nil
}
