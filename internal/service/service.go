// Package service owns the slug resolution core: cache-aside lookups against
// a durable store and a fast cache, unique slug allocation under concurrent
// creates, and click analytics that stay off the redirect critical path.
//
// The store is the source of truth. The cache is advisory: every cache
// failure is absorbed here and degrades the operation to store-only, never
// surfacing to the caller.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"microurl/internal/cache"
	"microurl/internal/repo"
)

// maxSlugAttempts bounds the generate-and-insert retry loop for automatic
// slugs. Five collisions in a row at 62^7 slug space means something is very
// wrong, so the loop fails with ErrSlugSpaceExhausted instead of spinning.
const maxSlugAttempts = 5

// Store is the durable side of the cache-aside pair. *repo.Repository
// implements it against Postgres; tests substitute an in-memory fake.
type Store interface {
	CreateURL(ctx context.Context, u repo.ShortURL) (*repo.ShortURL, error)
	URLBySlug(ctx context.Context, slug string) (*repo.ShortURL, error)
	DeleteURL(ctx context.Context, slug string) error
	ListURLs(ctx context.Context, offset, limit int) ([]repo.ShortURL, int64, error)
	AddClick(ctx context.Context, c repo.Click) (*repo.Click, error)
	ClicksByURL(ctx context.Context, shortURLID int64) ([]repo.Click, error)
	Ping(ctx context.Context) error
}

// Cache is the fast, lossy side. *cache.Redis implements it; *cache.Memory
// substitutes it in tests with deterministic TTL behavior.
type Cache interface {
	URL(ctx context.Context, slug string) (string, error)
	SetURL(ctx context.Context, slug, originalURL string) error
	DeleteURL(ctx context.Context, slug string) error
	IncrClicks(ctx context.Context, slug string) (int64, error)
	Ping(ctx context.Context) error
}

type Service struct {
	store Store
	cache Cache
	log   *zerolog.Logger
	now   func() time.Time
}

func New(store Store, c Cache, log *zerolog.Logger) *Service {
	return &Service{
		store: store,
		cache: c,
		log:   log,
		now:   time.Now,
	}
}

// Create allocates a slug for originalURL and persists the mapping.
//
// A custom slug is validated and claimed as-is; the store's unique index is
// the real conflict arbiter, so a lost race comes back as repo.ErrSlugTaken
// even when the pre-insert existence check passed. Without a custom slug,
// generated candidates are inserted under a bounded retry loop.
//
// The cache populate afterwards is best effort; its failure never fails the
// create.
func (s *Service) Create(ctx context.Context, originalURL, customSlug string, expiresAt *time.Time) (*URL, error) {
	if err := ValidateURL(originalURL); err != nil {
		return nil, err
	}

	var created *repo.ShortURL
	if customSlug != "" {
		if err := ValidateSlug(customSlug); err != nil {
			return nil, err
		}
		if _, err := s.store.URLBySlug(ctx, customSlug); err == nil {
			return nil, repo.ErrSlugTaken
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("slug existence check: %w", err)
		}

		u, err := s.store.CreateURL(ctx, repo.ShortURL{
			OriginalURL: originalURL,
			Slug:        customSlug,
			ExpiresAt:   expiresAt,
		})
		if err != nil {
			return nil, err
		}
		created = u
	} else {
		for attempt := 0; attempt < maxSlugAttempts; attempt++ {
			slug, err := NewSlug(DefaultSlugLength)
			if err != nil {
				return nil, err
			}

			u, err := s.store.CreateURL(ctx, repo.ShortURL{
				OriginalURL: originalURL,
				Slug:        slug,
				ExpiresAt:   expiresAt,
			})
			if errors.Is(err, repo.ErrSlugTaken) {
				s.log.Warn().Str("slug", slug).Int("attempt", attempt+1).Msg("generated slug collided, retrying")
				continue
			}
			if err != nil {
				return nil, err
			}
			created = u
			break
		}
		if created == nil {
			return nil, ErrSlugSpaceExhausted
		}
	}

	if err := s.cache.SetURL(ctx, created.Slug, created.OriginalURL); err != nil {
		s.log.Warn().Err(err).Str("slug", created.Slug).Msg("failed to cache new mapping")
	}

	return urlFromEntity(created), nil
}

// Resolve maps a slug to its target URL using the cache-aside protocol:
// cache hit returns immediately (TTL bounds staleness); on a miss the store
// row is checked for the active flag and expiry, and only a live mapping is
// re-cached. Absent, inactive and expired slugs all come back as
// repo.ErrNotFound so callers cannot tell them apart.
func (s *Service) Resolve(ctx context.Context, slug string) (string, error) {
	target, err := s.cache.URL(ctx, slug)
	if err == nil {
		return target, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn().Err(err).Str("slug", slug).Msg("cache unavailable, falling back to store")
	}

	u, err := s.store.URLBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", repo.ErrNotFound
		}
		return "", fmt.Errorf("resolve %q: %w", slug, err)
	}
	if !u.IsActive {
		return "", repo.ErrNotFound
	}
	if u.Expired(s.now()) {
		// An expired mapping must not be put back into the cache.
		return "", repo.ErrNotFound
	}

	if err := s.cache.SetURL(ctx, slug, u.OriginalURL); err != nil {
		s.log.Warn().Err(err).Str("slug", slug).Msg("failed to repopulate cache")
	}

	return u.OriginalURL, nil
}

// Delete removes the mapping and, via cascade, its click history. The store
// row goes first so a racing Resolve cannot repopulate the cache from a row
// about to vanish; a stale cache entry left by that race dies with its TTL.
func (s *Service) Delete(ctx context.Context, slug string) error {
	if err := s.store.DeleteURL(ctx, slug); err != nil {
		return err
	}

	if err := s.cache.DeleteURL(ctx, slug); err != nil {
		s.log.Warn().Err(err).Str("slug", slug).Msg("failed to evict deleted slug from cache")
	}

	return nil
}

// List returns one page of mappings, newest first.
func (s *Service) List(ctx context.Context, page, perPage int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	entities, total, err := s.store.ListURLs(ctx, (page-1)*perPage, perPage)
	if err != nil {
		return nil, fmt.Errorf("list urls: %w", err)
	}

	urls := make([]URL, 0, len(entities))
	for i := range entities {
		urls = append(urls, *urlFromEntity(&entities[i]))
	}

	return &Page{
		URLs:    urls,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

// Health reports store and cache reachability. Only the store is load
// bearing; a dead cache leaves the service degraded but correct.
func (s *Service) Health(ctx context.Context) (storeOK, cacheOK bool) {
	storeOK = s.store.Ping(ctx) == nil
	cacheOK = s.cache.Ping(ctx) == nil
	return storeOK, cacheOK
}

// ValidateURL checks that raw is an absolute http(s) URL of at most 2048
// bytes.
func ValidateURL(raw string) error {
	if raw == "" || len(raw) > 2048 {
		return ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}

	return nil
}
