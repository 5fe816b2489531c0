// Package retry backs infrastructure calls with exponential backoff: lock
// acquisition and startup connections. Rule operations never retry.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable marks err as worth another attempt.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as final, even under a policy with RetryAny.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Policy describes how often and how patiently an operation is retried.
// Errors returned by Do have their Retryable or Permanent mark removed.
type Policy struct {
	// Attempts includes the first call. Values below 1 mean 1.
	Attempts int
	// Initial is the delay before the second attempt; Max caps later delays.
	Initial time.Duration
	Max     time.Duration
	// Multiplier grows the delay between attempts. Values below 1 mean 2.
	Multiplier float64
	// Jitter spreads each delay by up to this fraction either way.
	Jitter float64
	// RetryAny retries unmarked errors too. Otherwise only Retryable ones are.
	RetryAny bool
	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Lock is the policy for contended lock acquisition.
func Lock() Policy {
	return Policy{
		Attempts:   20,
		Initial:    25 * time.Millisecond,
		Max:        500 * time.Millisecond,
		Multiplier: 1.5,
		Jitter:     0.2,
	}
}

// Connect is the policy for reaching a backend at startup. Every error is
// retried. attempts <= 0 means 5.
func Connect(attempts int, onRetry func(attempt int, err error, delay time.Duration)) Policy {
	if attempts <= 0 {
		attempts = 5
	}
	return Policy{
		Attempts:   attempts,
		Initial:    500 * time.Millisecond,
		Max:        8 * time.Second,
		Multiplier: 2,
		Jitter:     0.1,
		RetryAny:   true,
		OnRetry:    onRetry,
	}
}

// Do calls op until it succeeds, returns an error the policy does not
// retry, runs out of attempts or ctx ends. On cancellation the last error
// from op wins over ctx.Err().
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	var last error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return last
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		last = unmark(err)

		if !p.retries(err) || attempt == attempts {
			return last
		}

		delay := p.delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, last, delay)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return last
		case <-t.C:
		}
	}
}

func (p Policy) retries(err error) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	var re *retryableError
	return p.RetryAny || errors.As(err, &re)
}

func unmark(err error) error {
	switch e := err.(type) {
	case *retryableError:
		return e.err
	case *permanentError:
		return e.err
	}
	return err
}

func (p Policy) delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}
	d := float64(p.Initial) * math.Pow(mult, float64(attempt-1))
	if p.Max > 0 && d > float64(p.Max) {
		d = float64(p.Max)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(max(d, 0))
}
