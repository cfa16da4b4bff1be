package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microurl/internal/cache"
	"microurl/internal/dto"
	"microurl/internal/repo"
	"microurl/internal/service"
)

// stubStore implements service.Store with just enough behavior to exercise
// the HTTP mapping.
type stubStore struct {
	mu     sync.Mutex
	nextID int64
	urls   map[string]*repo.ShortURL
	clicks map[int64][]repo.Click
}

func newStubStore() *stubStore {
	return &stubStore{
		urls:   make(map[string]*repo.ShortURL),
		clicks: make(map[int64][]repo.Click),
	}
}

func (s *stubStore) CreateURL(_ context.Context, u repo.ShortURL) (*repo.ShortURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.urls[u.Slug]; ok {
		return nil, repo.ErrSlugTaken
	}
	s.nextID++
	stored := u
	stored.ID = s.nextID
	stored.IsActive = true
	stored.CreatedAt = time.Now()
	s.urls[u.Slug] = &stored
	out := stored
	return &out, nil
}

func (s *stubStore) URLBySlug(_ context.Context, slug string) (*repo.ShortURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.urls[slug]
	if !ok {
		return nil, repo.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *stubStore) DeleteURL(_ context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.urls[slug]; !ok {
		return repo.ErrNotFound
	}
	delete(s.urls, slug)
	return nil
}

func (s *stubStore) ListURLs(_ context.Context, _, _ int) ([]repo.ShortURL, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []repo.ShortURL
	for _, u := range s.urls {
		all = append(all, *u)
	}
	return all, int64(len(all)), nil
}

func (s *stubStore) AddClick(_ context.Context, c repo.Click) (*repo.Click, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	stored := c
	stored.ID = s.nextID
	stored.ClickedAt = time.Now()
	s.clicks[c.ShortURLID] = append(s.clicks[c.ShortURLID], stored)
	for _, u := range s.urls {
		if u.ID == c.ShortURLID {
			u.ClickCount++
		}
	}
	out := stored
	return &out, nil
}

func (s *stubStore) ClicksByURL(_ context.Context, shortURLID int64) ([]repo.Click, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]repo.Click(nil), s.clicks[shortURLID]...), nil
}

func (s *stubStore) Ping(context.Context) error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *stubStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newStubStore()
	log := zerolog.Nop()
	svc := service.New(store, cache.NewMemory(time.Hour), &log)

	app := NewRouters(&Routers{
		Service: svc,
		BaseURL: "http://short.test",
		Log:     &log,
	})
	return app, store
}

func doJSON(t *testing.T, app *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)
	return w
}

func TestShortenAndRedirect(t *testing.T) {
	app, _ := newTestRouter(t)

	w := doJSON(t, app, http.MethodPost, "/api/v1/shorten", gin.H{
		"original_url": "https://example.com/page",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Status string               `json:"status"`
		Data   dto.ShortURLResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data.Slug, 7)
	assert.Equal(t, "http://short.test/s/"+resp.Data.Slug, resp.Data.ShortURL)

	w = doJSON(t, app, http.MethodGet, "/s/"+resp.Data.Slug, nil)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://example.com/page", w.Header().Get("Location"))
}

func TestShortenValidation(t *testing.T) {
	app, _ := newTestRouter(t)

	w := doJSON(t, app, http.MethodPost, "/api/v1/shorten", gin.H{
		"original_url": "https://example.com",
		"custom_slug":  "ab",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, app, http.MethodPost, "/api/v1/shorten", gin.H{
		"original_url": "not a url",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShortenConflict(t *testing.T) {
	app, _ := newTestRouter(t)

	w := doJSON(t, app, http.MethodPost, "/api/v1/shorten", gin.H{
		"original_url": "https://first.example.com",
		"custom_slug":  "promo",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, app, http.MethodPost, "/api/v1/shorten", gin.H{
		"original_url": "https://second.example.com",
		"custom_slug":  "promo",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRedirectUnknownSlug(t *testing.T) {
	app, _ := newTestRouter(t)

	w := doJSON(t, app, http.MethodGet, "/s/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteURL(t *testing.T) {
	app, _ := newTestRouter(t)

	w := doJSON(t, app, http.MethodPost, "/api/v1/shorten", gin.H{
		"original_url": "https://example.com",
		"custom_slug":  "doomed",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, app, http.MethodDelete, "/api/v1/urls/doomed", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, app, http.MethodGet, "/s/doomed", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, app, http.MethodDelete, "/api/v1/urls/doomed", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	app, store := newTestRouter(t)

	w := doJSON(t, app, http.MethodPost, "/api/v1/shorten", gin.H{
		"original_url": "https://example.com",
		"custom_slug":  "tracked",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	u, err := store.URLBySlug(context.Background(), "tracked")
	require.NoError(t, err)
	country := "US"
	_, err = store.AddClick(context.Background(), repo.Click{ShortURLID: u.ID, Country: &country})
	require.NoError(t, err)

	w = doJSON(t, app, http.MethodGet, "/api/v1/stats/tracked", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data service.Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Data.TotalClicks)
	assert.Equal(t, int64(1), resp.Data.ByCountry["US"])

	w = doJSON(t, app, http.MethodGet, "/api/v1/stats/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := newTestRouter(t)

	w := doJSON(t, app, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "connected", resp.Store)
	assert.Equal(t, "connected", resp.Cache)
}
