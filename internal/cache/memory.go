package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process cache with the same contract as Redis. It backs
// tests and single-node deployments without a Redis instance. TTL checks go
// through an injectable clock so tests can advance time deterministically.
type Memory struct {
	mu     sync.Mutex
	urls   map[string]memEntry
	clicks map[string]int64
	ttl    time.Duration

	// Now is the clock used for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

type memEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Memory{
		urls:   make(map[string]memEntry),
		clicks: make(map[string]int64),
		ttl:    ttl,
		Now:    time.Now,
	}
}

func (m *Memory) URL(_ context.Context, slug string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.urls[slug]
	if !ok {
		return "", ErrMiss
	}
	if m.Now().After(e.expiresAt) {
		delete(m.urls, slug)
		return "", ErrMiss
	}
	return e.value, nil
}

func (m *Memory) SetURL(_ context.Context, slug, originalURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.urls[slug] = memEntry{
		value:     originalURL,
		expiresAt: m.Now().Add(m.ttl),
	}
	return nil
}

func (m *Memory) DeleteURL(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.urls, slug)
	return nil
}

func (m *Memory) IncrClicks(_ context.Context, slug string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clicks[slug]++
	return m.clicks[slug], nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

// Contains reports whether slug currently has a live cached mapping. Tests
// use it to assert that expired or deleted slugs were not re-cached.
func (m *Memory) Contains(slug string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.urls[slug]
	return ok && !m.Now().After(e.expiresAt)
}
