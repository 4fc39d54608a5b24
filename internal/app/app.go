// Package app wires the search chain and the resolution engine behind
// the two operations everything else consumes: search and batch fetch.
package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gofetch/internal/classify"
	"github.com/hyperifyio/gofetch/internal/fetch"
	"github.com/hyperifyio/gofetch/internal/render"
	"github.com/hyperifyio/gofetch/internal/resolve"
	"github.com/hyperifyio/gofetch/internal/search"
)

// Item is one search result as surfaced to callers, optionally
// enriched with the fully resolved page content.
type Item struct {
	Rank        int    `json:"rank"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Snippet     string `json:"snippet,omitempty"`
	FullContent string `json:"full_content,omitempty"`
}

type App struct {
	cfg      Config
	searcher *search.Fallback
	engine   *resolve.Engine
	browser  *render.Browser
}

// New builds an App from cfg. The headless browser is not launched
// here; it boots lazily the first time a target actually escalates.
func New(cfg Config) (*App, error) {
	ApplyDefaults(&cfg)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	httpClient := newSharedHTTPClient()
	browser := &render.Browser{
		UserAgent:   cfg.UserAgent,
		NavTimeout:  cfg.RenderTimeout,
		StableWait:  cfg.StableWait,
		MaxSessions: cfg.RenderConcurrency,
	}
	engine := &resolve.Engine{
		Probe: &classify.Prober{
			HTTPClient: httpClient,
			UserAgent:  cfg.UserAgent,
			Timeout:    cfg.ProbeTimeout,
		},
		Fetcher: &fetch.Client{
			HTTPClient:        httpClient,
			UserAgent:         cfg.UserAgent,
			MaxAttempts:       1,
			PerRequestTimeout: cfg.FetchTimeout,
			MaxConcurrent:     cfg.Concurrency,
		},
		Renderer: browser,
		Budget:   cfg.TargetBudget,
		Markdown: cfg.Markdown,
	}

	var primary, secondary search.Provider
	if cfg.SearchFile != "" {
		primary = &search.FileProvider{Path: cfg.SearchFile}
	} else {
		primary = &search.SearxNG{BaseURL: cfg.SearxURL, APIKey: cfg.SearxKey, HTTPClient: httpClient, UserAgent: cfg.UserAgent}
		secondary = &search.DuckDuckGo{HTTPClient: httpClient, UserAgent: cfg.UserAgent}
	}
	searcher := &search.Fallback{
		Primary:   primary,
		Secondary: secondary,
		Policy:    search.DomainPolicy{Allowlist: cfg.DomainAllowlist, Denylist: cfg.DomainDenylist},
	}

	return &App{cfg: cfg, searcher: searcher, engine: engine, browser: browser}, nil
}

// Search runs the provider chain for q. When q.FullContent is set, each
// result is enriched with the resolved page text; targets that fail to
// resolve simply keep an empty FullContent.
func (a *App) Search(ctx context.Context, q search.Query) ([]Item, error) {
	if q.MaxResults == 0 {
		q.MaxResults = a.cfg.MaxResults
	}
	results, err := a.searcher.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("terms", q.Terms).Int("results", len(results)).Msg("search answered")

	items := make([]Item, 0, len(results))
	for _, r := range results {
		items = append(items, Item{Rank: r.Rank, Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	if q.FullContent && len(items) > 0 {
		urls := make([]string, len(items))
		for i := range items {
			urls[i] = items[i].URL
		}
		outcomes, err := a.engine.ResolveAll(ctx, urls, a.cfg.Concurrency)
		if err != nil {
			return items, nil
		}
		for i, out := range outcomes {
			if out.Status == resolve.StatusOK {
				items[i].FullContent = out.Text
			} else {
				log.Debug().Str("url", out.URL).Str("kind", out.ErrorKind).Msg("enrichment failed for result")
			}
		}
	}
	return items, nil
}

// Fetch resolves every URL in the batch into text or a terminal error,
// one outcome per input index.
func (a *App) Fetch(ctx context.Context, urls []string) ([]resolve.Outcome, error) {
	return a.engine.ResolveAll(ctx, urls, a.cfg.Concurrency)
}

// Close releases the headless browser if one was ever launched.
func (a *App) Close() {
	if a.browser != nil {
		a.browser.Close()
	}
}
