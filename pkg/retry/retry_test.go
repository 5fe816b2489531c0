package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("busy")

func fast(attempts int) Policy {
	return Policy{Attempts: attempts, Initial: time.Millisecond, Max: 2 * time.Millisecond}
}

func TestDo_RetriesRetryableUntilSuccess(t *testing.T) {
	calls := 0
	var retries []int
	p := fast(5)
	p.OnRetry = func(attempt int, err error, _ time.Duration) {
		assert.Same(t, errBusy, err)
		retries = append(retries, attempt)
	}
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errBusy)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDo_ExhaustedReturnsUnwrapped(t *testing.T) {
	calls := 0
	err := fast(3).Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errBusy)
	})
	assert.Equal(t, 3, calls)
	assert.Same(t, errBusy, err)
}

func TestDo_PlainAndPermanentErrorsStop(t *testing.T) {
	calls := 0
	err := fast(3).Do(context.Background(), func(context.Context) error {
		calls++
		return errBusy
	})
	assert.Equal(t, 1, calls)
	assert.Same(t, errBusy, err)

	calls = 0
	p := fast(3)
	p.RetryAny = true
	err = p.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errBusy)
	})
	assert.Equal(t, 1, calls)
	assert.Same(t, errBusy, err)
}

func TestDo_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{Attempts: 10, Initial: time.Hour}
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return Retryable(errBusy)
	})
	assert.Equal(t, 1, calls)
	assert.Same(t, errBusy, err)
}

func TestDelay_GrowsAndCaps(t *testing.T) {
	p := Policy{Initial: 100 * time.Millisecond, Max: 300 * time.Millisecond, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, p.delay(1))
	assert.Equal(t, 200*time.Millisecond, p.delay(2))
	assert.Equal(t, 300*time.Millisecond, p.delay(5))

	lock := Lock()
	lock.Jitter = 0
	assert.Equal(t, 37500*time.Microsecond, lock.delay(2))
}

func TestConnect_RetriesAnyError(t *testing.T) {
	p := Connect(0, nil)
	assert.Equal(t, 5, p.Attempts)
	p.Initial, p.Max = time.Millisecond, time.Millisecond

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errBusy
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
