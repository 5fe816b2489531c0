// Package jobs contains the scheduled maintenance jobs.
package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tkdojang/dojang/internal/application/command"
	"github.com/tkdojang/dojang/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE STREAKS JOB
// Zeroes the streak of every profile that missed a calendar day.
// ══════════════════════════════════════════════════════════════════════════════

// StreakExpirer is satisfied by command.ExpireStreaksHandler.
type StreakExpirer interface {
	Handle(ctx context.Context, cmd command.ExpireStreaksCommand) (*command.ExpireStreaksResult, error)
}

// ExpireStreaksStats contains the outcome of the last run.
type ExpireStreaksStats struct {
	LastRunAt time.Time
	Checked   int
	Expired   int
	Runs      int64
}

// ExpireStreaksJob runs the streak audit.
type ExpireStreaksJob struct {
	handler StreakExpirer
	log     *logger.Logger
	now     func() time.Time

	stats atomic.Value // ExpireStreaksStats
	runs  atomic.Int64
}

// NewExpireStreaksJob creates the job.
func NewExpireStreaksJob(handler StreakExpirer, log *logger.Logger) *ExpireStreaksJob {
	if log == nil {
		log = logger.Nop()
	}
	j := &ExpireStreaksJob{handler: handler, log: log.Named("expire_streaks"), now: time.Now}
	j.stats.Store(ExpireStreaksStats{})
	return j
}

// Name implements scheduler.Job.
func (j *ExpireStreaksJob) Name() string { return "expire_streaks" }

// Description implements scheduler.Job.
func (j *ExpireStreaksJob) Description() string {
	return "Resets study streaks for profiles that skipped a day"
}

// Run implements scheduler.Job.
func (j *ExpireStreaksJob) Run(ctx context.Context) error {
	now := j.now()
	res, err := j.handler.Handle(ctx, command.ExpireStreaksCommand{Now: now})
	if err != nil {
		return err
	}

	runs := j.runs.Add(1)
	j.stats.Store(ExpireStreaksStats{
		LastRunAt: now,
		Checked:   res.Checked,
		Expired:   len(res.Expired),
		Runs:      runs,
	})
	if len(res.Expired) > 0 {
		j.log.Info("streaks expired",
			logger.Int("checked", res.Checked),
			logger.Strings("profiles", res.Expired),
		)
	}
	return nil
}

// Stats returns the outcome of the last successful run.
func (j *ExpireStreaksJob) Stats() ExpireStreaksStats {
	return j.stats.Load().(ExpireStreaksStats)
}
