package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/exchange"
	"github.com/tkdojang/dojang/internal/domain/profile"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/internal/domain/store"
	"github.com/tkdojang/dojang/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// IMPORT PROFILES COMMAND
// Restores profiles from a verified export. All or nothing.
// ══════════════════════════════════════════════════════════════════════════════

// ImportProfilesCommand carries a document whose checksum has already been
// verified by the codec.
type ImportProfilesCommand struct {
	Document      *exchange.Document
	CorrelationID string
}

// Validate checks the document structure and ranges.
func (c ImportProfilesCommand) Validate() error {
	if c.Document == nil {
		return shared.ErrInvalidExportPayload
	}
	return c.Document.Validate()
}

// ImportProfilesResult lists the created profiles.
type ImportProfilesResult struct {
	Profiles []*profile.Profile
}

// ImportProfilesHandler handles the ImportProfilesCommand.
type ImportProfilesHandler struct {
	store          store.Store
	locker         store.Locker
	eventPublisher shared.EventPublisher
}

// NewImportProfilesHandler creates a new ImportProfilesHandler.
func NewImportProfilesHandler(st store.Store, locker store.Locker, eventPublisher shared.EventPublisher) *ImportProfilesHandler {
	return &ImportProfilesHandler{store: st, locker: orNopLocker(locker), eventPublisher: orNopPublisher(eventPublisher)}
}

// Handle creates every profile in the document under the normal creation
// rules, with fresh IDs, together with the rows it owns.
func (h *ImportProfilesHandler) Handle(ctx context.Context, cmd ImportProfilesCommand) (*ImportProfilesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("import_profiles: validation failed: %w", err)
	}

	now := time.Now().UTC()
	result := &ImportProfilesResult{}
	newID := func() string { return uuid.New().String() }

	err := withLock(ctx, h.locker, store.ProfilesLockKey, func() error {
		return h.store.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
			resolve := func(id string) (belt.Rank, error) { return tx.Belts().GetByID(ctx, id) }
			for _, bundle := range cmd.Document.Profiles {
				restored, err := bundle.Restore(newID, resolve, now)
				if err != nil {
					return fmt.Errorf("profile %q: %w", bundle.Profile.Name, err)
				}
				if _, err := insertProfile(ctx, tx.Profiles(), restored.Profile, now); err != nil {
					return fmt.Errorf("profile %q: %w", bundle.Profile.Name, err)
				}
				for _, rec := range restored.Progress {
					if err := tx.Progress().Insert(ctx, rec); err != nil {
						return err
					}
				}
				for _, s := range restored.Sessions {
					if err := tx.Sessions().Append(ctx, s); err != nil {
						return err
					}
				}
				for _, g := range restored.Gradings {
					if err := tx.Gradings().Append(ctx, g); err != nil {
						return err
					}
				}
				result.Profiles = append(result.Profiles, restored.Profile)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("import_profiles: %w", err)
	}

	ids := make([]string, len(result.Profiles))
	for i, p := range result.Profiles {
		ids[i] = p.ID
	}
	publish(ctx, h.eventPublisher, shared.NewProfilesImportedEvent(ids, cmd.Document.DeviceName))
	logger.FromContext(ctx).Info("profiles imported",
		logger.Int("count", len(ids)),
		logger.String("device", cmd.Document.DeviceName),
	)
	return result, nil
}
