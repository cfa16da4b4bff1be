package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when no row matches the requested slug.
	ErrNotFound = errors.New("short url not found")
	// ErrSlugTaken is returned when an insert loses against the unique
	// index on short_urls.slug. It is the authoritative conflict signal;
	// any pre-insert existence check is only an optimization.
	ErrSlugTaken = errors.New("slug already taken")
)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

// Repository is the durable store for slug mappings and click events.
type Repository struct {
	db  *sql.DB
	log *zerolog.Logger
}

func NewRepository(db *sql.DB, log *zerolog.Logger) (*Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return &Repository{
		db:  db,
		log: log,
	}, nil
}

func (r *Repository) MigrateUp(ctx context.Context, migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *Repository) MigrateDown(ctx context.Context, migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

// CreateURL inserts a new slug mapping. A unique-index violation on slug is
// translated to ErrSlugTaken so callers can retry generated slugs.
func (r *Repository) CreateURL(ctx context.Context, u ShortURL) (*ShortURL, error) {
	query := `
		INSERT INTO short_urls (original_url, slug, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, original_url, slug, created_at, expires_at, is_active, click_count
	`

	row := r.db.QueryRowContext(ctx, query, u.OriginalURL, u.Slug, u.ExpiresAt)

	var out ShortURL
	if err := scanShortURL(row, &out); err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to insert short url: %w", err)
	}

	return &out, nil
}

// URLBySlug loads a mapping by slug regardless of its active flag or expiry.
// Filtering on those is a caller policy: the redirect path hides inactive and
// expired rows, the stats path does not.
func (r *Repository) URLBySlug(ctx context.Context, slug string) (*ShortURL, error) {
	query := `
		SELECT id, original_url, slug, created_at, expires_at, is_active, click_count
		FROM short_urls
		WHERE slug = $1
	`

	row := r.db.QueryRowContext(ctx, query, slug)

	var out ShortURL
	if err := scanShortURL(row, &out); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query short url: %w", err)
	}

	return &out, nil
}

// DeleteURL hard-deletes a mapping; the foreign key cascade removes its
// click rows in the same statement.
func (r *Repository) DeleteURL(ctx context.Context, slug string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM short_urls WHERE slug = $1`, slug)
	if err != nil {
		return fmt.Errorf("failed to delete short url: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListURLs returns a page of mappings ordered by creation time descending,
// plus the total row count for pagination.
func (r *Repository) ListURLs(ctx context.Context, offset, limit int) ([]ShortURL, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM short_urls`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count short urls: %w", err)
	}

	query := `
		SELECT id, original_url, slug, created_at, expires_at, is_active, click_count
		FROM short_urls
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list short urls: %w", err)
	}
	defer rows.Close()

	var urls []ShortURL
	for rows.Next() {
		var u ShortURL
		if err := scanShortURL(rows, &u); err != nil {
			return nil, 0, fmt.Errorf("failed to scan short url: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration failed: %w", err)
	}

	return urls, total, nil
}

// AddClick inserts a click row and bumps the owner's click_count inside one
// transaction. Either both writes land or neither does.
func (r *Repository) AddClick(ctx context.Context, c Click) (*Click, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin click tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO clicks (short_url_id, ip_address, user_agent, referrer, country, city, device_type, browser, os)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, clicked_at
	`

	out := c
	err = tx.QueryRowContext(ctx, query,
		c.ShortURLID,
		c.IPAddress,
		c.UserAgent,
		c.Referrer,
		c.Country,
		c.City,
		c.DeviceType,
		c.Browser,
		c.OS,
	).Scan(&out.ID, &out.ClickedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert click: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE short_urls SET click_count = click_count + 1 WHERE id = $1`,
		c.ShortURLID,
	); err != nil {
		return nil, fmt.Errorf("failed to increment click count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit click tx: %w", err)
	}

	return &out, nil
}

// ClicksByURL loads every click row for one mapping, oldest first.
func (r *Repository) ClicksByURL(ctx context.Context, shortURLID int64) ([]Click, error) {
	query := `
		SELECT id, short_url_id, clicked_at, ip_address, user_agent, referrer, country, city, device_type, browser, os
		FROM clicks
		WHERE short_url_id = $1
		ORDER BY clicked_at
	`

	rows, err := r.db.QueryContext(ctx, query, shortURLID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clicks: %w", err)
	}
	defer rows.Close()

	var clicks []Click
	for rows.Next() {
		var c Click
		if err := rows.Scan(
			&c.ID,
			&c.ShortURLID,
			&c.ClickedAt,
			&c.IPAddress,
			&c.UserAgent,
			&c.Referrer,
			&c.Country,
			&c.City,
			&c.DeviceType,
			&c.Browser,
			&c.OS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		clicks = append(clicks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return clicks, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanShortURL(s scanner, u *ShortURL) error {
	return s.Scan(
		&u.ID,
		&u.OriginalURL,
		&u.Slug,
		&u.CreatedAt,
		&u.ExpiresAt,
		&u.IsActive,
		&u.ClickCount,
	)
}
