package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// TimeRange narrows search results to a recency window. Providers that
// support it apply the filter server-side; providers that do not are
// expected to ignore it silently.
type TimeRange string

const (
	TimeRangeNone  TimeRange = ""
	TimeRangeDay   TimeRange = "day"
	TimeRangeMonth TimeRange = "month"
	TimeRangeYear  TimeRange = "year"
)

// ParseTimeRange maps user input to a TimeRange. Empty and "none" mean
// no filter.
func ParseTimeRange(s string) (TimeRange, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "null":
		return TimeRangeNone, nil
	case "day":
		return TimeRangeDay, nil
	case "month":
		return TimeRangeMonth, nil
	case "year":
		return TimeRangeYear, nil
	}
	return TimeRangeNone, fmt.Errorf("%w: time range %q (want day, month or year)", ErrInvalidQuery, s)
}

// Query is a validated search request.
type Query struct {
	Terms       string
	TimeRange   TimeRange
	MaxResults  int
	FullContent bool
}

// ErrInvalidQuery marks queries rejected before any network activity.
var ErrInvalidQuery = errors.New("invalid query")

// ErrNoProviderAvailable is surfaced when every provider in the chain
// failed. Callers should test with errors.Is; the wrapped message names
// the providers tried.
var ErrNoProviderAvailable = errors.New("no search provider available")

// Validate rejects malformed queries synchronously.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Terms) == "" {
		return fmt.Errorf("%w: empty terms", ErrInvalidQuery)
	}
	if q.MaxResults < 1 {
		return fmt.Errorf("%w: max results %d (want >= 1)", ErrInvalidQuery, q.MaxResults)
	}
	switch q.TimeRange {
	case TimeRangeNone, TimeRangeDay, TimeRangeMonth, TimeRangeYear:
	default:
		return fmt.Errorf("%w: time range %q", ErrInvalidQuery, q.TimeRange)
	}
	return nil
}

// Result represents a single search hit from any provider. Rank is the
// provider-assigned position (1-based), recorded during normalization
// before any filtering, and never recomputed.
type Result struct {
	Title   string
	URL     string
	Snippet string
	Rank    int
	Source  string // provider name for observability
}

// Provider is a minimal interface for search providers.
type Provider interface {
	Search(ctx context.Context, q Query) ([]Result, error)
	Name() string
}

// DomainPolicy filters results by host. Denylist takes precedence over
// Allowlist; an empty Allowlist permits every host not denied.
// Subdomains of a listed domain match.
type DomainPolicy struct {
	Allowlist []string
	Denylist  []string
}

// Allows reports whether the result URL's host passes the policy.
func (p DomainPolicy) Allows(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range p.Denylist {
		if hostMatches(host, d) {
			return false
		}
	}
	if len(p.Allowlist) == 0 {
		return true
	}
	for _, d := range p.Allowlist {
		if hostMatches(host, d) {
			return true
		}
	}
	return false
}

func hostMatches(host, domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
