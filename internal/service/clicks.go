package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mssola/useragent"

	"microurl/internal/repo"
)

// ClickInput carries the visitor attributes of one redirect. Empty strings
// mean "not provided" and are stored as NULL.
type ClickInput struct {
	IPAddress string
	UserAgent string
	Referrer  string
	Country   string
	City      string
}

// RecordClick appends a click event for slug and bumps the owner's
// click_count; the store makes the two writes one atomic unit. The cache
// counter increment afterwards is informational and its failure is
// swallowed. Store failure is the caller's problem; the transport layer
// logs it instead of surfacing it to the redirected visitor.
func (s *Service) RecordClick(ctx context.Context, slug string, in ClickInput) (*Click, error) {
	u, err := s.store.URLBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	device, browser, osName := ParseUserAgent(in.UserAgent)

	saved, err := s.store.AddClick(ctx, repo.Click{
		ShortURLID: u.ID,
		IPAddress:  optional(in.IPAddress),
		UserAgent:  optional(in.UserAgent),
		Referrer:   optional(in.Referrer),
		Country:    optional(in.Country),
		City:       optional(in.City),
		DeviceType: device,
		Browser:    browser,
		OS:         osName,
	})
	if err != nil {
		return nil, fmt.Errorf("record click for %q: %w", slug, err)
	}

	if _, err := s.cache.IncrClicks(ctx, slug); err != nil {
		s.log.Debug().Err(err).Str("slug", slug).Msg("failed to bump cached click counter")
	}

	return clickFromEntity(saved), nil
}

// ParseUserAgent derives (device_type, browser, os) from a raw User-Agent
// string. It is a pure function: empty or unrecognizable input yields all
// fields unset, never an error.
func ParseUserAgent(raw string) (deviceType, browser, osName *string) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil, nil
	}

	ua := useragent.New(raw)

	switch {
	case isTablet(raw):
		deviceType = ptr("tablet")
	case ua.Mobile():
		deviceType = ptr("mobile")
	case ua.Bot():
		deviceType = ptr("other")
	default:
		if name, _ := ua.Browser(); name != "" || ua.OS() != "" {
			deviceType = ptr("desktop")
		} else {
			deviceType = ptr("other")
		}
	}

	if name, version := ua.Browser(); name != "" {
		browser = ptr(strings.TrimSpace(name + " " + version))
	}

	if info := ua.OSInfo(); info.Name != "" {
		osName = ptr(strings.TrimSpace(info.Name + " " + info.Version))
	}

	return deviceType, browser, osName
}

func isTablet(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func ptr(s string) *string { return &s }
