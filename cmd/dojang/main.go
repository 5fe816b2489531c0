// Package main is the entry point for the dojang API server.
//
// The server exposes learner profiles, belt-gated curriculum, progress,
// study sessions and gradings over HTTP. Storage is SQLite by default,
// PostgreSQL for shared deployments, with Redis as an optional accelerator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/tkdojang/dojang/config"
	"github.com/tkdojang/dojang/internal/application/command"
	"github.com/tkdojang/dojang/internal/application/query"
	"github.com/tkdojang/dojang/internal/bootstrap"
	httpserver "github.com/tkdojang/dojang/internal/interface/http"
	"github.com/tkdojang/dojang/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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

	log := logger.NewFromConfig(cfg.Log.Mode, cfg.Log.Level).Named(cfg.App.Name)
	logger.SetDefault(log)
	defer log.Sync()

	log.Info("starting dojang API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("storage", string(cfg.Storage.Driver)),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Runtime: storage, redis, event bus, curriculum
	// ─────────────────────────────────────────────────────────────────────────
	rt, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Application handlers
	// ─────────────────────────────────────────────────────────────────────────
	st, bus, loc := rt.Store, rt.Bus, cfg.App.Location
	deps := httpserver.Dependencies{
		CreateProfile:   command.NewCreateProfileHandler(st, rt.Locker, bus),
		UpdateProfile:   command.NewUpdateProfileHandler(st, rt.Locker, bus),
		ActivateProfile: command.NewActivateProfileHandler(st, rt.Locker, bus),
		DeleteProfile:   command.NewDeleteProfileHandler(st, rt.Locker, bus),
		Progress:        command.NewProgressHandler(st, rt.Library, bus),
		RecordSession:   command.NewRecordStudySessionHandler(st, loc, bus),
		RecordGrading:   command.NewRecordGradingHandler(st, bus),
		ImportProfiles:  command.NewImportProfilesHandler(st, rt.Locker, bus),

		Profiles:        query.NewProfileQueries(st),
		Learning:        query.NewLearningQueries(st, loc),
		EligibleContent: query.NewEligibleContentHandler(st, rt.Library, rt.ContentCacheOrNil()),
		Export:          query.NewExportHandler(st, cfg.App.Version),

		Codec:    rt.Codec,
		Location: loc,
		Health:   rt.Health,
		Logger:   log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	server := httpserver.NewServer(httpserver.Config{
		Addr:         cfg.HTTP.Addr(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  2 * cfg.HTTP.WriteTimeout,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Debug:        cfg.IsDevelopment(),
		Version:      cfg.App.Version,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
	}, deps)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Serve until signal or listener failure, then drain
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown completed")
	return nil
}
