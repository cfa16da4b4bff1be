// Package cache holds the fast, lossy side of the cache-aside pair: a Redis
// adapter used in production and an in-memory substitute for tests. Nothing
// here is authoritative; every entry can vanish at any moment and callers
// must treat a miss and an error the same way.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent. Callers fall through to the
// durable store on any error, ErrMiss included; the distinction only matters
// for logging severity.
var ErrMiss = errors.New("cache miss")

const (
	urlKeyPrefix   = "url:"
	clickKeyPrefix = "clicks:"

	// DefaultTTL bounds how long a cached mapping can outlive a store-side
	// delete or expiry.
	DefaultTTL = time.Hour

	// DefaultTimeout caps every Redis round trip so a sick cache degrades
	// the redirect path to store-only latency instead of hanging it.
	DefaultTimeout = 100 * time.Millisecond
)

// Redis caches slug lookups and per-slug click counters.
type Redis struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

func NewRedis(client *redis.Client, ttl, timeout time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Redis{
		client:  client,
		ttl:     ttl,
		timeout: timeout,
	}
}

// URL returns the cached target for slug, or ErrMiss.
func (r *Redis) URL(ctx context.Context, slug string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	val, err := r.client.Get(ctx, urlKeyPrefix+slug).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		return "", err
	}
	return val, nil
}

// SetURL caches slug -> original URL with the configured TTL.
func (r *Redis) SetURL(ctx context.Context, slug, originalURL string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.client.Set(ctx, urlKeyPrefix+slug, originalURL, r.ttl).Err()
}

// DeleteURL drops the cached mapping for slug, if any.
func (r *Redis) DeleteURL(ctx context.Context, slug string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.client.Del(ctx, urlKeyPrefix+slug).Err()
}

// IncrClicks bumps the informational click counter for slug. The returned
// value may diverge from the store's click_count and must never be read as
// ground truth.
func (r *Redis) IncrClicks(ctx context.Context, slug string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.client.Incr(ctx, clickKeyPrefix+slug).Result()
}

func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.client.Ping(ctx).Err()
}
