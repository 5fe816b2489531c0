// Package circuitbreaker stops an optional backend, such as the shared
// content cache, from adding latency to every request while it is down.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the position of a breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets a single trial call through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned instead of running fn while the breaker
// rejects calls. A second caller arriving during a half-open trial gets it
// too.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config tunes a Breaker.
type Config struct {
	// Threshold is the number of consecutive failures that opens the circuit.
	Threshold int
	// Cooldown is how long the circuit stays open before a trial call.
	Cooldown time.Duration
	// OnStateChange, when set, is called under the breaker lock.
	OnStateChange func(name string, from, to State)

	now func() time.Time
}

// Breaker counts consecutive failures of one backend.
type Breaker struct {
	name string
	cfg  Config

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trial    bool
}

// New creates a closed Breaker. A non-positive Threshold or Cooldown falls
// back to 5 failures and 30 seconds.
func New(name string, cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &Breaker{name: name, cfg: cfg}
}

// CacheBreaker guards the shared eligibility cache. The cache is optional,
// so it opens after three failures and retries after fifteen seconds.
func CacheBreaker(onStateChange func(name string, from, to State)) *Breaker {
	return New("content-cache", Config{
		Threshold:     3,
		Cooldown:      15 * time.Second,
		OnStateChange: onStateChange,
	})
}

// Execute runs fn unless the circuit is open. fn's error is returned as is.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err == nil)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.cfg.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
		b.trial = true
		return nil
	default:
		if b.trial {
			return ErrCircuitOpen
		}
		b.trial = true
		return nil
	}
}

func (b *Breaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ok {
		b.failures = 0
		b.trial = false
		b.transition(StateClosed)
		return
	}

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.cfg.Threshold {
		b.trial = false
		b.openedAt = b.cfg.now()
		b.transition(StateOpen)
	}
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}
