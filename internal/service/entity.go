package service

import (
	"errors"
	"fmt"
	"time"

	"microurl/internal/repo"
)

var (
	// ErrValidation marks input rejected before any store is touched.
	// Specific validation failures wrap it.
	ErrValidation = errors.New("validation failed")

	ErrInvalidURL  = fmt.Errorf("%w: original_url must be an absolute http(s) URL of at most 2048 bytes", ErrValidation)
	ErrInvalidSlug = fmt.Errorf("%w: slug must be 3-50 characters of [A-Za-z0-9_-]", ErrValidation)

	// ErrSlugSpaceExhausted is returned when the generate-and-insert retry
	// budget runs out. At 62^7 slugs this is an operational alarm, not a
	// user input problem.
	ErrSlugSpaceExhausted = errors.New("slug space exhausted")
)

// URL is a slug mapping as exposed to the transport layer.
type URL struct {
	ID          int64      `json:"id"`
	OriginalURL string     `json:"original_url"`
	Slug        string     `json:"slug"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsActive    bool       `json:"is_active"`
	ClickCount  int64      `json:"click_count"`
}

// Click is a recorded visit with its user-agent derived fields.
type Click struct {
	ID         int64     `json:"id"`
	ClickedAt  time.Time `json:"clicked_at"`
	IPAddress  *string   `json:"ip_address,omitempty"`
	Referrer   *string   `json:"referrer,omitempty"`
	Country    *string   `json:"country,omitempty"`
	City       *string   `json:"city,omitempty"`
	DeviceType *string   `json:"device_type,omitempty"`
	Browser    *string   `json:"browser,omitempty"`
	OS         *string   `json:"os,omitempty"`
}

// Page is one page of mappings ordered by creation time descending.
type Page struct {
	URLs    []URL `json:"urls"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

// Stats aggregates the click history of one slug.
//
// TotalClicks reports the stored click_count, not a recount of click rows;
// the two may diverge under partial failures and that is accepted.
type Stats struct {
	Slug         string           `json:"slug"`
	OriginalURL  string           `json:"original_url"`
	TotalClicks  int64            `json:"total_clicks"`
	ByCountry    map[string]int64 `json:"clicks_by_country"`
	ByDevice     map[string]int64 `json:"clicks_by_device"`
	ByBrowser    map[string]int64 `json:"clicks_by_browser"`
	ByOS         map[string]int64 `json:"clicks_by_os"`
	OverTime     []DayCount       `json:"clicks_over_time"`
	TopReferrers []ReferrerCount  `json:"top_referrers"`
}

// DayCount is one calendar day of the click time series.
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// ReferrerCount is one entry of the top-referrers ranking.
type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

func urlFromEntity(e *repo.ShortURL) *URL {
	return &URL{
		ID:          e.ID,
		OriginalURL: e.OriginalURL,
		Slug:        e.Slug,
		CreatedAt:   e.CreatedAt,
		ExpiresAt:   e.ExpiresAt,
		IsActive:    e.IsActive,
		ClickCount:  e.ClickCount,
	}
}

func clickFromEntity(e *repo.Click) *Click {
	return &Click{
		ID:         e.ID,
		ClickedAt:  e.ClickedAt,
		IPAddress:  e.IPAddress,
		Referrer:   e.Referrer,
		Country:    e.Country,
		City:       e.City,
		DeviceType: e.DeviceType,
		Browser:    e.Browser,
		OS:         e.OS,
	}
}
