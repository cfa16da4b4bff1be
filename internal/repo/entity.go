package repo

import "time"

// ShortURL is a row of the short_urls table. It is the source of truth for a
// slug mapping; cache entries are a disposable shadow of it.
type ShortURL struct {
	ID          int64      `db:"id"`
	OriginalURL string     `db:"original_url"`
	Slug        string     `db:"slug"`
	CreatedAt   time.Time  `db:"created_at"`
	ExpiresAt   *time.Time `db:"expires_at"`
	IsActive    bool       `db:"is_active"`
	ClickCount  int64      `db:"click_count"`
}

// Expired reports whether the mapping has passed its expiry at time now.
// A nil ExpiresAt never expires.
func (u *ShortURL) Expired(now time.Time) bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(now)
}

// Click is a row of the clicks table. Rows are immutable once inserted and
// are removed only by the cascade delete of their owning ShortURL.
type Click struct {
	ID         int64     `db:"id"`
	ShortURLID int64     `db:"short_url_id"`
	ClickedAt  time.Time `db:"clicked_at"`
	IPAddress  *string   `db:"ip_address"`
	UserAgent  *string   `db:"user_agent"`
	Referrer   *string   `db:"referrer"`
	Country    *string   `db:"country"`
	City       *string   `db:"city"`
	DeviceType *string   `db:"device_type"`
	Browser    *string   `db:"browser"`
	OS         *string   `db:"os"`
}
