package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/internal/domain/store"
	"github.com/tkdojang/dojang/pkg/logger"
	"github.com/tkdojang/dojang/pkg/retry"
)

// releaseScript deletes the lock only while it still holds our token, so an
// expired holder never frees a lock someone else has since taken.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements store.Locker with SET NX PX and a per-holder token.
type Locker struct {
	cache  *Cache
	policy retry.Policy
	log    *logger.Logger
	ttl    time.Duration
}

var _ store.Locker = (*Locker)(nil)

// NewLocker creates a Locker. A zero policy selects retry.Lock.
func NewLocker(cache *Cache, policy retry.Policy, log *logger.Logger) *Locker {
	if policy.Attempts == 0 {
		policy = retry.Lock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Locker{cache: cache, policy: policy, log: log.Named("redis.lock"), ttl: TTLDistributedLock}
}

// WithTTL sets the expiry used when Acquire is called with ttl <= 0.
func (l *Locker) WithTTL(ttl time.Duration) *Locker {
	if ttl > 0 {
		l.ttl = ttl
	}
	return l
}

// Acquire blocks until key is held, the policy gives up or ctx ends. A
// lock that is never released expires after ttl.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if ttl <= 0 {
		ttl = l.ttl
	}
	token := uuid.NewString()
	redisKey := l.cache.lockKey(key)

	err := l.policy.Do(ctx, func(ctx context.Context) error {
		ok, err := l.cache.SetNX(ctx, redisKey, token, ttl)
		if err != nil {
			return retry.Permanent(err)
		}
		if !ok {
			return retry.Retryable(shared.ErrLockNotAcquired)
		}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrLockNotAcquired), ctx.Err() != nil:
		return nil, shared.WrapError("lock", "Acquire", shared.ErrLockNotAcquired, key, err)
	default:
		return nil, shared.WrapError("lock", "Acquire", shared.ErrServiceUnavailable, key, err)
	}

	release := func() {
		// The caller's context may already be done; release on a fresh one.
		rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.cache.client, []string{redisKey}, token).Err(); err != nil {
			l.log.Warn("lock release failed", logger.String("key", key), logger.Err(err))
		}
	}
	return release, nil
}
