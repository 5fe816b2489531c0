// Package messaging carries domain events from committed commands to their
// handlers. LocalBus serves a single process; RelayBus also forwards events
// to other processes sharing a Redis server.
package messaging

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/pkg/logger"
)

var (
	// ErrBusClosed is returned by Publish and Subscribe after Close.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrHandlerPanic wraps a recovered handler panic.
	ErrHandlerPanic = errors.New("event handler panicked")

	errNilHandler = errors.New("handler cannot be nil")
	errNilEvent   = errors.New("event cannot be nil")
)

// ══════════════════════════════════════════════════════════════════════════════
// LOCAL BUS
// ══════════════════════════════════════════════════════════════════════════════

// LocalBusConfig configures a LocalBus.
type LocalBusConfig struct {
	// Async runs handlers on a bounded pool instead of inside Publish.
	Async bool
	// Workers bounds concurrent async handlers. Defaults to 10.
	Workers int
	Logger  *logger.Logger
}

// DefaultLocalBusConfig returns the configuration the server runs with.
func DefaultLocalBusConfig() LocalBusConfig {
	return LocalBusConfig{Async: true, Workers: 10}
}

// LocalBus fans each event out to the handlers subscribed to its type and to
// every SubscribeAll handler. Handler errors and panics are logged and
// counted, never returned to the publisher.
type LocalBus struct {
	mu     sync.RWMutex
	byType map[shared.EventType][]shared.EventHandler
	all    []shared.EventHandler
	closed bool

	async    bool
	slots    chan struct{}
	done     chan struct{}
	inflight sync.WaitGroup

	stats *familyStats
	log   *logger.Logger
}

var _ shared.EventPublisher = (*LocalBus)(nil)

// NewLocalBus creates a LocalBus.
func NewLocalBus(cfg LocalBusConfig) *LocalBus {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	return &LocalBus{
		byType: make(map[shared.EventType][]shared.EventHandler),
		async:  cfg.Async,
		slots:  make(chan struct{}, cfg.Workers),
		done:   make(chan struct{}),
		stats:  newFamilyStats(),
		log:    cfg.Logger.Named("events"),
	}
}

// Subscribe registers handler for one event type.
func (b *LocalBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.add(handler, func() { b.byType[eventType] = append(b.byType[eventType], handler) })
}

// SubscribeAll registers handler for every event.
func (b *LocalBus) SubscribeAll(handler shared.EventHandler) error {
	return b.add(handler, func() { b.all = append(b.all, handler) })
}

func (b *LocalBus) add(handler shared.EventHandler, register func()) error {
	if handler == nil {
		return errNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	register()
	return nil
}

// Publish delivers event. In async mode it returns before handlers run.
func (b *LocalBus) Publish(event shared.Event) error {
	if event == nil {
		return errNilEvent
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	typed := b.byType[event.EventType()]
	handlers := make([]shared.EventHandler, 0, len(typed)+len(b.all))
	handlers = append(handlers, typed...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	family := event.EventType().Family()
	b.stats.published(family)

	for _, h := range handlers {
		if !b.async {
			b.deliver(family, event, h)
			continue
		}
		b.inflight.Add(1)
		go func(h shared.EventHandler) {
			defer b.inflight.Done()
			select {
			case b.slots <- struct{}{}:
				defer func() { <-b.slots }()
			case <-b.done:
				return
			}
			b.deliver(family, event, h)
		}(h)
	}
	return nil
}

func (b *LocalBus) deliver(family string, event shared.Event, h shared.EventHandler) {
	err := safeCall(event, h)
	b.stats.handled(family, err == nil)
	if err != nil {
		b.log.Error("event handler failed",
			logger.String("event_type", string(event.EventType())),
			logger.String("aggregate_id", event.AggregateID()),
			logger.Err(err),
		)
	}
}

func safeCall(event shared.Event, h shared.EventHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, event.EventType(), r)
		}
	}()
	return h(event)
}

// Wait blocks until every async handler started so far returns.
func (b *LocalBus) Wait() {
	b.inflight.Wait()
}

// Close stops accepting events, drops async handlers still waiting for a
// worker, waits for running ones and logs per-family delivery counts.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.inflight.Wait()

	stats := b.Stats()
	families := make([]string, 0, len(stats))
	for f := range stats {
		families = append(families, f)
	}
	sort.Strings(families)
	for _, f := range families {
		s := stats[f]
		b.log.Info("event family totals",
			logger.String("family", f),
			logger.Int64("published", s.Published),
			logger.Int64("handled", s.Handled),
			logger.Int64("failed", s.Failed),
		)
	}
	b.log.Info("event bus closed")
	return nil
}

// Stats returns delivery counts keyed by event family ("profile",
// "progress", "session", "grading", "system").
func (b *LocalBus) Stats() map[string]FamilyStats {
	return b.stats.snapshot()
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS
// ══════════════════════════════════════════════════════════════════════════════

// FamilyStats counts events of one family since the bus started.
type FamilyStats struct {
	Published int64 `json:"published"`
	Handled   int64 `json:"handled"`
	Failed    int64 `json:"failed"`
}

type familyStats struct {
	mu sync.Mutex
	m  map[string]FamilyStats
}

func newFamilyStats() *familyStats {
	return &familyStats{m: make(map[string]FamilyStats)}
}

func (s *familyStats) published(family string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs := s.m[family]
	fs.Published++
	s.m[family] = fs
}

func (s *familyStats) handled(family string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs := s.m[family]
	fs.Handled++
	if !ok {
		fs.Failed++
	}
	s.m[family] = fs
}

func (s *familyStats) snapshot() map[string]FamilyStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]FamilyStats, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}
