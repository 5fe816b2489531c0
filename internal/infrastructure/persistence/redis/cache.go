// Package redis holds the optional helpers for deployments that share a
// Redis server: the eligibility cache, the profile mutation lock and the
// transport for relayed events.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes under the configured namespace.
const (
	PrefixContent = "content:"
	PrefixLock    = "lock:"
	PrefixPubSub  = "pubsub:"
)

const (
	// TTLEligibleContent bounds how long an eligibility result is served.
	// Results are keyed by catalog version, so expiry only reclaims memory.
	TTLEligibleContent = 30 * time.Minute

	// TTLDistributedLock is the lock expiry when none is configured.
	TTLDistributedLock = 10 * time.Second
)

var (
	// ErrCacheMiss is returned by Get when the key does not exist.
	ErrCacheMiss = errors.New("redis: key not found")

	errEmptyKey = errors.New("redis: key cannot be empty")
)

// Config holds the connection settings bootstrap reads from REDIS_*.
type Config struct {
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	// Namespace prefixes every key and channel so several deployments can
	// share one server.
	Namespace string
}

// DefaultConfig returns a local, unauthenticated server under "dojang:".
func DefaultConfig() Config {
	return Config{
		Host:        "localhost",
		Port:        6379,
		PoolSize:    10,
		DialTimeout: 5 * time.Second,
		Namespace:   "dojang:",
	}
}

// Addr returns "host:port".
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Cache stores JSON values under namespaced keys.
type Cache struct {
	client    *redis.Client
	namespace string
}

// NewCache connects and pings the server.
func NewCache(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr(), err)
	}
	return &Cache{client: client, namespace: cfg.Namespace}, nil
}

// Close closes the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping backs the readiness check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Set stores value as JSON. A zero ttl means no expiry.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if key == "" {
		return errEmptyKey
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", key, err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Get decodes the JSON stored at key into dest.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if key == "" {
		return errEmptyKey
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("redis decode %s: %w", key, err)
	}
	return nil
}

// SetNX stores token at key unless the key exists.
func (c *Cache) SetNX(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, token, ttl).Result()
}

// DeleteByPattern removes every key matching pattern in batches of 100.
func (c *Cache) DeleteByPattern(ctx context.Context, pattern string) error {
	if pattern == "" {
		return errEmptyKey
	}
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Key prefixes key with the namespace.
func (c *Cache) Key(key string) string {
	return c.namespace + key
}

func (c *Cache) lockKey(resource string) string {
	return c.Key(PrefixLock + resource)
}

func (c *Cache) channel(topic string) string {
	return c.Key(PrefixPubSub + topic)
}
