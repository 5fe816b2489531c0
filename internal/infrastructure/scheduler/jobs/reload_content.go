package jobs

import (
	"context"
	"fmt"

	"github.com/tkdojang/dojang/internal/domain/belt"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/internal/infrastructure/curriculum"
	"github.com/tkdojang/dojang/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RELOAD CONTENT JOB
// Re-reads the curriculum directory and announces a new catalog version.
// ══════════════════════════════════════════════════════════════════════════════

// Reloader is satisfied by *curriculum.Library.
type Reloader interface {
	Reload(ctx context.Context) (*curriculum.ReloadResult, error)
	Belts() *belt.Catalog
}

// CacheInvalidator drops cached eligibility lists of one catalog version.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, version string) error
}

// ReloadContentJob reloads the curriculum, syncs the belt ladder into the
// store and, when the catalog changed, evicts the old cache entries and
// publishes ContentReloaded.
type ReloadContentJob struct {
	library   Reloader
	belts     belt.Repository
	cache     CacheInvalidator
	publisher shared.EventPublisher
	log       *logger.Logger
}

// NewReloadContentJob creates the job. cache and publisher may be nil.
func NewReloadContentJob(
	library Reloader,
	belts belt.Repository,
	cache CacheInvalidator,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *ReloadContentJob {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ReloadContentJob{
		library:   library,
		belts:     belts,
		cache:     cache,
		publisher: publisher,
		log:       log.Named("reload_content"),
	}
}

// Name implements scheduler.Job.
func (j *ReloadContentJob) Name() string { return "reload_content" }

// Description implements scheduler.Job.
func (j *ReloadContentJob) Description() string {
	return "Reloads belts and curriculum files from the content directory"
}

// Run implements scheduler.Job.
func (j *ReloadContentJob) Run(ctx context.Context) error {
	res, err := j.library.Reload(ctx)
	if err != nil {
		return fmt.Errorf("reload_content: %w", err)
	}
	if err := j.belts.Sync(ctx, j.library.Belts().Ordered()); err != nil {
		return fmt.Errorf("reload_content: sync belts: %w", err)
	}
	if !res.Changed {
		return nil
	}

	if j.cache != nil && res.PreviousVersion != "" {
		if err := j.cache.Invalidate(ctx, res.PreviousVersion); err != nil {
			j.log.Warn("failed to invalidate eligible content cache",
				logger.String("version", res.PreviousVersion),
				logger.Err(err),
			)
		}
	}
	if err := j.publisher.Publish(shared.NewContentReloadedEvent(res.Version, res.Items)); err != nil {
		j.log.Warn("failed to publish content reload", logger.Err(err))
	}
	return nil
}
