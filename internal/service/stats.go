package service

import (
	"context"
	"fmt"
	"sort"

	"microurl/internal/repo"
)

// unknownBucket collects clicks whose attribute was absent or unparseable.
const unknownBucket = "Unknown"

// topReferrerLimit caps the referrer ranking.
const topReferrerLimit = 10

// Stats aggregates the full click history of one slug.
//
// Unlike the redirect path, this lookup does not filter on is_active: a
// disabled mapping still reports its history. TotalClicks comes from the
// stored click_count and may disagree with the sum of the grouped counts
// after partial failures; that divergence is accepted, not reconciled.
func (s *Service) Stats(ctx context.Context, slug string) (*Stats, error) {
	u, err := s.store.URLBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	clicks, err := s.store.ClicksByURL(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("load clicks for %q: %w", slug, err)
	}

	st := &Stats{
		Slug:        u.Slug,
		OriginalURL: u.OriginalURL,
		TotalClicks: u.ClickCount,
		ByCountry:   make(map[string]int64),
		ByDevice:    make(map[string]int64),
		ByBrowser:   make(map[string]int64),
		ByOS:        make(map[string]int64),
	}

	byDay := make(map[string]int64)
	byReferrer := make(map[string]int64)

	for i := range clicks {
		c := &clicks[i]
		st.ByCountry[bucket(c.Country)]++
		st.ByDevice[bucket(c.DeviceType)]++
		st.ByBrowser[bucket(c.Browser)]++
		st.ByOS[bucket(c.OS)]++

		byDay[c.ClickedAt.Format("2006-01-02")]++

		if c.Referrer != nil {
			byReferrer[*c.Referrer]++
		}
	}

	st.OverTime = dailySeries(byDay)
	st.TopReferrers = rankReferrers(byReferrer, topReferrerLimit)

	return st, nil
}

func bucket(v *string) string {
	if v == nil || *v == "" {
		return unknownBucket
	}
	return *v
}

// dailySeries flattens per-day counts into a series ordered by calendar day
// ascending. The date strings sort lexicographically in date order.
func dailySeries(byDay map[string]int64) []DayCount {
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	series := make([]DayCount, 0, len(days))
	for _, day := range days {
		series = append(series, DayCount{Date: day, Count: byDay[day]})
	}
	return series
}

// rankReferrers orders referrers by click count descending, ties broken by
// referrer string ascending so the ranking is deterministic, and truncates
// to limit.
func rankReferrers(byReferrer map[string]int64, limit int) []ReferrerCount {
	ranked := make([]ReferrerCount, 0, len(byReferrer))
	for ref, count := range byReferrer {
		ranked = append(ranked, ReferrerCount{Referrer: ref, Count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Referrer < ranked[j].Referrer
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
