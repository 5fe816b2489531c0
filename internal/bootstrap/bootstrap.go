// Package bootstrap assembles the runtime shared by the API server and the
// worker: storage backend, optional Redis services, event bus, curriculum.
package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tkdojang/dojang/config"
	"github.com/tkdojang/dojang/internal/application/eventhandler"
	"github.com/tkdojang/dojang/internal/domain/content"
	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/internal/domain/store"
	"github.com/tkdojang/dojang/internal/infrastructure/curriculum"
	"github.com/tkdojang/dojang/internal/infrastructure/exchange"
	"github.com/tkdojang/dojang/internal/infrastructure/messaging"
	"github.com/tkdojang/dojang/internal/infrastructure/persistence/memory"
	"github.com/tkdojang/dojang/internal/infrastructure/persistence/postgres"
	"github.com/tkdojang/dojang/internal/infrastructure/persistence/redis"
	"github.com/tkdojang/dojang/internal/infrastructure/persistence/sqlite"
	"github.com/tkdojang/dojang/internal/interface/http/health"
	"github.com/tkdojang/dojang/pkg/circuitbreaker"
	"github.com/tkdojang/dojang/pkg/logger"
	"github.com/tkdojang/dojang/pkg/retry"
)

// Runtime holds every long-lived dependency of a process.
type Runtime struct {
	Config  *config.Config
	Log     *logger.Logger
	Store   store.Store
	Library *curriculum.Library
	Bus     shared.EventBus
	Codec   exchange.Codec
	Health  *health.Composite

	// Locker is store.NopLocker{} unless the Redis profile lock is on.
	Locker store.Locker

	// ContentCache is nil unless the Redis content cache is on.
	ContentCache *redis.ContentCache

	redis   *redis.Cache
	closers []func()
}

// Open builds the runtime. On error everything opened so far is closed.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (rt *Runtime, err error) {
	rt = &Runtime{
		Config: cfg,
		Log:    log,
		Locker: store.NopLocker{},
		Codec:  exchange.NewCodec(),
		Health: health.NewComposite(cfg.App.Version),
	}
	defer func() {
		if err != nil {
			rt.Close()
			rt = nil
		}
	}()
	rt.Codec.VerifyChecksum = cfg.Features.IsEnabled(config.FeatureExportChecksum)

	if rt.Store, err = openStore(ctx, cfg.Storage, log); err != nil {
		return rt, err
	}
	rt.onClose(func() { _ = rt.Store.Close() })
	rt.Health.AddCheck("store", health.PingCheck(rt.Store))

	rt.openRedis(ctx)

	if err = rt.openBus(); err != nil {
		return rt, err
	}

	if err = rt.loadCurriculum(ctx); err != nil {
		return rt, err
	}
	return rt, nil
}

// ContentCacheOrNil returns the eligibility cache as its port, or a nil
// interface when none is configured.
func (rt *Runtime) ContentCacheOrNil() content.Cache {
	if rt.ContentCache == nil {
		return nil
	}
	return rt.ContentCache
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

func (rt *Runtime) onClose(fn func()) {
	rt.closers = append(rt.closers, fn)
}

// ══════════════════════════════════════════════════════════════════════════════
// STORAGE
// ══════════════════════════════════════════════════════════════════════════════

func openStore(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (store.Store, error) {
	log = log.With(logger.String("driver", string(cfg.Driver)))

	switch cfg.Driver {
	case config.StorageMemory:
		log.Warn("using in-memory storage, data is lost on exit")
		return memory.New(), nil

	case config.StorageSQLite:
		st, err := sqlite.OpenStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info("sqlite store ready", logger.String("path", cfg.SQLitePath))
		return st, nil

	case config.StoragePostgres:
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = cfg.PostgresURL
		if cfg.PostgresMaxConns > 0 {
			pgCfg.MaxConns = cfg.PostgresMaxConns
		}

		var pool *pgxpool.Pool
		err := connectPolicy(cfg.ConnectAttempts, log).Do(ctx, func(ctx context.Context) error {
			var err error
			pool, err = postgres.Open(ctx, pgCfg)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		applied, err := postgres.Migrate(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("postgres store ready", logger.Any("migrations_applied", applied))
		return postgres.NewStore(pool), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func connectPolicy(attempts int, log *logger.Logger) retry.Policy {
	return retry.Connect(attempts, func(attempt int, err error, delay time.Duration) {
		log.Warn("backend not reachable, retrying",
			logger.Int("attempt", attempt), logger.Err(err), logger.Duration("delay", delay))
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS
// ══════════════════════════════════════════════════════════════════════════════

// openRedis connects the optional Redis services. Redis is an accelerator:
// when it cannot be reached the process runs without it.
func (rt *Runtime) openRedis(ctx context.Context) {
	cfg := rt.Config.Redis
	if !cfg.Enabled {
		return
	}
	log := rt.Log.Named("redis")

	rcfg := redis.DefaultConfig()
	rcfg.Host = cfg.Host
	rcfg.Port = cfg.Port
	rcfg.Password = cfg.Password
	rcfg.DB = cfg.DB
	if cfg.PoolSize > 0 {
		rcfg.PoolSize = cfg.PoolSize
	}
	if cfg.Namespace != "" {
		rcfg.Namespace = cfg.Namespace
	}
	if cfg.DialTimeout > 0 {
		rcfg.DialTimeout = cfg.DialTimeout
	}

	var cache *redis.Cache
	err := connectPolicy(rt.Config.Storage.ConnectAttempts, log).Do(ctx, func(context.Context) error {
		var err error
		cache, err = redis.NewCache(rcfg)
		return err
	})
	if err != nil {
		log.Warn("redis unavailable, continuing without it", logger.Err(err), logger.String("addr", rcfg.Addr()))
		return
	}
	rt.redis = cache
	rt.onClose(func() { _ = cache.Close() })
	rt.Health.AddCheck("redis", health.PingCheck(cache))

	flags := rt.Config.Features
	if flags.IsEnabled(config.FeatureRedisContentCache) {
		breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name), logger.String("from", from.String()), logger.String("to", to.String()))
		})
		rt.ContentCache = redis.NewContentCache(cache, cfg.CacheTTL).WithBreaker(breaker)
	}
	if flags.IsEnabled(config.FeatureRedisProfileLock) {
		rt.Locker = redis.NewLocker(cache, retry.Lock(), log).WithTTL(cfg.LockTTL)
	}
	log.Info("redis connected",
		logger.String("addr", rcfg.Addr()),
		logger.Bool("content_cache", rt.ContentCache != nil),
		logger.Bool("profile_lock", flags.IsEnabled(config.FeatureRedisProfileLock)),
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS
// ══════════════════════════════════════════════════════════════════════════════

func (rt *Runtime) openBus() error {
	local := messaging.DefaultLocalBusConfig()
	local.Logger = rt.Log

	if rt.redis != nil && rt.Config.Features.IsEnabled(config.FeatureRedisEventFanout) {
		bus, err := messaging.NewRelayBus(messaging.RelayBusConfig{
			Transport: redis.NewPubSub(rt.redis),
			Local:     local,
			Logger:    rt.Log,
		})
		if err != nil {
			return fmt.Errorf("start relay bus: %w", err)
		}
		rt.Bus = bus
		rt.onClose(func() { _ = bus.Close() })
	} else {
		bus := messaging.NewLocalBus(local)
		rt.Bus = bus
		rt.onClose(func() { _ = bus.Close() })
	}

	tracker := eventhandler.NewLogTracker(rt.Log)
	if rt.Config.Features.IsEnabled(config.FeatureAchievements) {
		return eventhandler.Register(rt.Bus, tracker, rt.Log)
	}
	return eventhandler.RegisterActivity(rt.Bus, tracker, rt.Log)
}

// ══════════════════════════════════════════════════════════════════════════════
// CURRICULUM
// ══════════════════════════════════════════════════════════════════════════════

// loadCurriculum reads the belt ladder and content, then syncs the ladder
// into the store so profiles and gradings can reference it.
func (rt *Runtime) loadCurriculum(ctx context.Context) error {
	cfg := rt.Config.Content
	var fsys fs.FS
	if cfg.Dir == "" {
		fsys = curriculum.Defaults()
	} else {
		fsys = os.DirFS(cfg.Dir)
	}

	sheet := curriculum.DefaultSheetConfig()
	sheet.SheetName = cfg.SheetName
	if cfg.SheetHeaderRow > 0 {
		sheet.HeaderRow = cfg.SheetHeaderRow
	}
	rt.Library = curriculum.NewLibrary(fsys, rt.Log).WithSheetConfig(sheet)

	res, err := rt.Library.Reload(ctx)
	if err != nil {
		return fmt.Errorf("load curriculum: %w", err)
	}
	if err := rt.Store.Belts().Sync(ctx, rt.Library.Belts().Ordered()); err != nil {
		return fmt.Errorf("sync belts: %w", err)
	}
	rt.Log.Info("curriculum loaded",
		logger.String("version", res.Version),
		logger.Int("items", res.Items),
		logger.Int("skipped_rows", len(res.RowErrors)),
	)

	rt.Health.AddCheck("content", func(ctx context.Context) error {
		_, err := rt.Library.Snapshot(ctx)
		return err
	})
	return nil
}
