package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tkdojang/dojang/internal/domain/exchange"
	"github.com/tkdojang/dojang/internal/domain/store"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPORT PROFILE QUERY
// Builds an unsealed .tkdprofile document. The codec adds the checksum.
// ══════════════════════════════════════════════════════════════════════════════

// ExportProfilesQuery selects profiles to export. Empty means all.
type ExportProfilesQuery struct {
	ProfileIDs []string
	DeviceName string
}

// ExportHandler handles the ExportProfilesQuery.
type ExportHandler struct {
	store      store.Store
	appVersion string
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(st store.Store, appVersion string) *ExportHandler {
	return &ExportHandler{store: st, appVersion: appVersion}
}

// Handle reads every selected profile with its rows from one consistent
// view.
func (h *ExportHandler) Handle(ctx context.Context, q ExportProfilesQuery) (*exchange.Document, error) {
	var bundles []exchange.ProfileBundle
	err := h.store.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
		ids := q.ProfileIDs
		if len(ids) == 0 {
			all, err := tx.Profiles().List(ctx)
			if err != nil {
				return err
			}
			for _, p := range all {
				ids = append(ids, p.ID)
			}
		}
		for _, id := range ids {
			p, err := tx.Profiles().GetByID(ctx, id)
			if err != nil {
				return err
			}
			records, err := tx.Progress().ListByProfile(ctx, id)
			if err != nil {
				return err
			}
			sessions, err := tx.Sessions().ListByProfile(ctx, id, 0)
			if err != nil {
				return err
			}
			gradings, err := tx.Gradings().ListByProfile(ctx, id)
			if err != nil {
				return err
			}
			bundles = append(bundles, exchange.Bundle(p, records, sessions, gradings))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export_profiles: %w", err)
	}
	if len(bundles) == 0 {
		bundles = []exchange.ProfileBundle{}
	}
	return exchange.NewDocument(h.appVersion, q.DeviceName, bundles, time.Now()), nil
}
