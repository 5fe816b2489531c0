// Package main is the entry point for the dojang background worker.
//
// The worker runs periodic maintenance against the same storage as the API:
// it zeroes streaks that lapsed overnight and reloads curriculum files so
// content edits go live without a restart.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tkdojang/dojang/config"
	"github.com/tkdojang/dojang/internal/application/command"
	"github.com/tkdojang/dojang/internal/bootstrap"
	"github.com/tkdojang/dojang/internal/infrastructure/scheduler"
	"github.com/tkdojang/dojang/internal/infrastructure/scheduler/jobs"
	"github.com/tkdojang/dojang/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration & logging
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewFromConfig(cfg.Log.Mode, cfg.Log.Level).Named("worker")
	logger.SetDefault(log)
	defer log.Sync()

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Runtime
	// ─────────────────────────────────────────────────────────────────────────
	rt, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Scheduler & jobs
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:         log,
		Timezone:       cfg.App.Location,
		MaxHistorySize: cfg.Scheduler.HistorySize,
		EnableMetrics:  true,
	})
	sched.OnJobComplete(func(r scheduler.JobResult) {
		if !r.Success {
			log.Warn("job failed", logger.String("job", r.JobName), logger.Err(r.Error))
		}
	})

	expire := jobs.NewExpireStreaksJob(
		command.NewExpireStreaksHandler(rt.Store, cfg.App.Location, rt.Bus), log)
	if err := sched.Register(expire, cfg.Scheduler.ExpireStreaksSpec); err != nil {
		return fmt.Errorf("register %s: %w", expire.Name(), err)
	}

	var invalidator jobs.CacheInvalidator
	if rt.ContentCache != nil {
		invalidator = rt.ContentCache
	}
	reload := jobs.NewReloadContentJob(rt.Library, rt.Store.Belts(), invalidator, rt.Bus, log)
	if err := sched.Register(reload, cfg.Scheduler.ReloadContentSpec); err != nil {
		return fmt.Errorf("register %s: %w", reload.Name(), err)
	}

	flags := cfg.Features
	for name, flag := range map[string]string{
		expire.Name(): config.FeatureJobExpireStreaks,
		reload.Name(): config.FeatureJobReloadContent,
	} {
		if err := sched.SetEnabled(name, flags.IsEnabled(flag)); err != nil {
			return err
		}
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	for _, info := range sched.ListJobs() {
		log.Info("job scheduled",
			logger.String("job", info.Name),
			logger.Bool("enabled", info.Enabled),
			logger.Time("next_run", info.NextRun),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("received shutdown signal")
	if err := sched.Stop(); err != nil {
		log.Warn("scheduler stop", logger.Err(err))
	}
	log.Info("shutdown completed")
	return nil
}
