package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/pkg/logger"
)

func syncBus() *LocalBus {
	return NewLocalBus(LocalBusConfig{Logger: logger.Nop()})
}

func TestLocalBus_RoutesByTypeAndAll(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var typed, all []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventProfileCreated, func(e shared.Event) error {
		typed = append(typed, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewProfileCreatedEvent("p1", "Mina", "10th_keup", true)))
	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("p1", 2)))

	assert.Equal(t, []shared.EventType{shared.EventProfileCreated}, typed)
	assert.Equal(t, []shared.EventType{shared.EventProfileCreated, shared.EventStreakUpdated}, all)
}

func TestLocalBus_StatsByFamily(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventStreakBroken, func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return nil }))

	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("p1", 2)))
	require.NoError(t, bus.Publish(shared.NewStreakBrokenEvent("p1", 4)))
	require.NoError(t, bus.Publish(shared.NewRankPromotedEvent("p1", "10th_keup", "9th_keup")))

	assert.Equal(t, map[string]FamilyStats{
		"session": {Published: 2, Handled: 3, Failed: 1},
		"grading": {Published: 1, Handled: 1},
	}, bus.Stats())
}

func TestLocalBus_HandlerFailuresDoNotReachPublisher(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("bad handler") }))

	assert.NoError(t, bus.Publish(shared.NewStreakBrokenEvent("p1", 4)))
	assert.Equal(t, FamilyStats{Published: 1, Handled: 2, Failed: 2}, bus.Stats()["session"])
}

func TestLocalBus_AsyncDelivers(t *testing.T) {
	bus := NewLocalBus(LocalBusConfig{Async: true, Workers: 2, Logger: logger.Nop()})

	var n atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		n.Add(1)
		return nil
	}))
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("p1", i)))
	}
	bus.Wait()
	assert.EqualValues(t, 5, n.Load())

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(shared.NewStreakUpdatedEvent("p1", 1)), ErrBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrBusClosed)
	assert.NoError(t, bus.Close(), "second close is a no-op")
}

func TestLocalBus_RejectsNil(t *testing.T) {
	bus := syncBus()
	defer bus.Close()
	assert.Error(t, bus.Publish(nil))
	assert.Error(t, bus.Subscribe(shared.EventProfileCreated, nil))
}

// fakeTransport is an in-process pub/sub shared by several buses.
type fakeTransport struct {
	mu        sync.Mutex
	subs      []chan string
	published []string
	fail      bool
}

func (f *fakeTransport) Publish(_ context.Context, _, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("redis down")
	}
	f.published = append(f.published, payload)
	for _, ch := range f.subs {
		ch <- payload
	}
	return nil
}

func (f *fakeTransport) Subscribe(context.Context, string) (<-chan string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan string, 16)
	f.subs = append(f.subs, ch)
	return ch, nil
}

func relayBus(t *testing.T, tr Transport, instance string) *RelayBus {
	t.Helper()
	bus, err := NewRelayBus(RelayBusConfig{
		Transport: tr,
		Instance:  instance,
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { bus.Close() })
	return bus
}

func TestRelayBus_DeliversToOtherInstancesOnce(t *testing.T) {
	tr := &fakeTransport{}
	api := relayBus(t, tr, "api")
	worker := relayBus(t, tr, "worker")

	var apiSeen, workerSeen atomic.Int32
	got := make(chan shared.Event, 1)
	require.NoError(t, api.SubscribeAll(func(shared.Event) error { apiSeen.Add(1); return nil }))
	require.NoError(t, worker.SubscribeAll(func(e shared.Event) error {
		workerSeen.Add(1)
		got <- e
		return nil
	}))

	require.NoError(t, api.Publish(shared.NewRankPromotedEvent("p1", "10th_keup", "9th_keup")))

	select {
	case e := <-got:
		assert.Equal(t, shared.EventRankPromoted, e.EventType())
		assert.Equal(t, "p1", e.AggregateID())
		assert.Equal(t, "9th_keup", e.Payload()["new_belt_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("remote instance did not receive the event")
	}
	assert.EqualValues(t, 1, apiSeen.Load(), "own events are handled locally only")
	assert.EqualValues(t, 1, workerSeen.Load())
	assert.Equal(t, int64(1), worker.Stats()["grading"].Published)

	var env envelope
	require.NoError(t, json.Unmarshal([]byte(tr.published[0]), &env))
	assert.Equal(t, "api", env.Instance)
}

func TestRelayBus_LocalDeliveryWhenTransportFails(t *testing.T) {
	bus := relayBus(t, &fakeTransport{fail: true}, "solo")

	var n atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { n.Add(1); return nil }))
	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("p1", 3)))
	assert.EqualValues(t, 1, n.Load())
}

func TestNewRelayBus_RequiresTransport(t *testing.T) {
	_, err := NewRelayBus(RelayBusConfig{})
	assert.Error(t, err)
}
