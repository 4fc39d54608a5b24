package search

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// pinger is implemented by providers that can cheaply report liveness
// before a full search attempt (SearxNG exposes /config for this).
type pinger interface {
	Ping(ctx context.Context) error
}

// Fallback chains a primary and a secondary provider. Each is tried at
// most once per query: a connectivity failure, a provider error, or an
// empty result set moves on to the next. This is deliberately a guarded
// two-element sequence, not a retry framework.
type Fallback struct {
	Primary   Provider
	Secondary Provider
	Policy    DomainPolicy
}

func (f *Fallback) Name() string { return "fallback" }

// Search validates the query, runs the chain, and normalizes the
// winning provider's output into the common schema. When every provider
// fails the returned error wraps ErrNoProviderAvailable; individual
// provider errors appear only in its message.
func (f *Fallback) Search(ctx context.Context, q Query) ([]Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var lastErr error
	var answered bool
	tried := make([]string, 0, 2)
	for _, p := range []Provider{f.Primary, f.Secondary} {
		if p == nil {
			continue
		}
		tried = append(tried, p.Name())
		if pg, ok := p.(pinger); ok {
			if err := pg.Ping(ctx); err != nil {
				log.Warn().Err(err).Str("provider", p.Name()).Msg("provider liveness probe failed; falling back")
				lastErr = err
				continue
			}
		}
		results, err := p.Search(ctx, q)
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Name()).Msg("search provider failed; falling back")
			lastErr = err
			continue
		}
		answered = true
		if len(results) == 0 {
			log.Debug().Str("provider", p.Name()).Str("query", q.Terms).Msg("provider returned no results")
			continue
		}
		log.Debug().Str("provider", p.Name()).Int("results", len(results)).Msg("search answered")
		return Normalize(results, q, f.Policy), nil
	}

	if answered {
		// At least one provider was reachable and simply had no hits;
		// that is an empty answer, not an availability failure.
		return []Result{}, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w (tried: %v): %v", ErrNoProviderAvailable, tried, lastErr)
	}
	return nil, fmt.Errorf("%w: no providers configured", ErrNoProviderAvailable)
}
