package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RELAY BUS
// ══════════════════════════════════════════════════════════════════════════════

// DefaultChannel is the pub/sub channel a RelayBus uses when none is set.
const DefaultChannel = "events"

// Transport is the pub/sub surface a RelayBus needs. Payloads are JSON
// envelopes. The channel returned by Subscribe closes when ctx ends.
type Transport interface {
	Publish(ctx context.Context, channel, payload string) error
	Subscribe(ctx context.Context, channel string) (<-chan string, error)
}

// RelayBusConfig configures a RelayBus.
type RelayBusConfig struct {
	Transport Transport
	Channel   string
	// Instance tags outgoing envelopes so a process ignores its own events.
	// Defaults to a random id.
	Instance string
	Local    LocalBusConfig
	Logger   *logger.Logger
}

// RelayBus delivers every event locally and forwards it over Transport.
// Events received from other instances are delivered to local handlers
// only, so each instance handles each event once.
type RelayBus struct {
	*LocalBus

	transport Transport
	channel   string
	instance  string
	log       *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRelayBus subscribes to the relay channel and starts forwarding.
func NewRelayBus(cfg RelayBusConfig) (*RelayBus, error) {
	if cfg.Transport == nil {
		return nil, errors.New("relay bus: transport is required")
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Instance == "" {
		cfg.Instance = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	if cfg.Local.Logger == nil {
		cfg.Local.Logger = cfg.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	in, err := cfg.Transport.Subscribe(ctx, cfg.Channel)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("relay bus: subscribe %s: %w", cfg.Channel, err)
	}

	b := &RelayBus{
		LocalBus:  NewLocalBus(cfg.Local),
		transport: cfg.Transport,
		channel:   cfg.Channel,
		instance:  cfg.Instance,
		log:       cfg.Logger.Named("events.relay").With(logger.String("instance", cfg.Instance)),
		ctx:       ctx,
		cancel:    cancel,
	}
	b.wg.Add(1)
	go b.receive(in)
	return b, nil
}

// Publish delivers event locally and forwards it. A transport failure is
// logged; local handlers still run.
func (b *RelayBus) Publish(event shared.Event) error {
	if event == nil {
		return errNilEvent
	}
	if err := b.LocalBus.Publish(event); err != nil {
		return err
	}

	data, err := json.Marshal(envelope{
		Instance:    b.instance,
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("relay bus: encode %s: %w", event.EventType(), err)
	}
	if err := b.transport.Publish(b.ctx, b.channel, string(data)); err != nil {
		b.log.Warn("event not relayed",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}
	return nil
}

func (b *RelayBus) receive(in <-chan string) {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case payload, ok := <-in:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(payload), &env); err != nil {
				b.log.Warn("undecodable relayed event", logger.Err(err))
				continue
			}
			if env.Instance == b.instance {
				continue
			}
			if err := b.LocalBus.Publish(remoteEvent{env: env}); err != nil && !errors.Is(err, ErrBusClosed) {
				b.log.Error("relayed event not delivered", logger.Err(err))
			}
		}
	}
}

// Close stops the receiver, then closes the local bus.
func (b *RelayBus) Close() error {
	b.once.Do(func() {
		b.cancel()
		b.wg.Wait()
	})
	return b.LocalBus.Close()
}

// envelope is the wire form of an event on the relay channel.
type envelope struct {
	Instance    string           `json:"instance"`
	Type        shared.EventType `json:"event_type"`
	AggregateID string           `json:"aggregate_id"`
	OccurredAt  time.Time        `json:"occurred_at"`
	Payload     map[string]any   `json:"payload"`
}

// remoteEvent is an event rebuilt from another instance's envelope. Typed
// handlers that switch on concrete event structs do not match it; they see
// only its type, aggregate and payload.
type remoteEvent struct{ env envelope }

func (e remoteEvent) EventType() shared.EventType { return e.env.Type }
func (e remoteEvent) AggregateID() string         { return e.env.AggregateID }
func (e remoteEvent) OccurredAt() time.Time       { return e.env.OccurredAt }
func (e remoteEvent) Payload() map[string]any     { return e.env.Payload }
