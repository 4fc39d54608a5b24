package app

import (
	"errors"
	"time"
)

// Built-in defaults. The user agent matches a mainstream desktop
// browser because several targets serve degraded or blocked content to
// obvious bots.
const (
	defaultSearxURL      = "http://127.0.0.1:8080"
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
	defaultMaxResults    = 5
	defaultProbeTimeout  = 10 * time.Second
	defaultFetchTimeout  = 30 * time.Second
	defaultRenderTimeout = 20 * time.Second
	defaultStableWait    = 500 * time.Millisecond
	defaultTargetBudget  = 60 * time.Second
	defaultConcurrency   = 4
	defaultRenderLimit   = 2
)

// Config holds runtime configuration for the application.
type Config struct {
	// Search
	SearxURL   string
	SearxKey   string
	SearchFile string

	// Fetching
	UserAgent     string
	ProbeTimeout  time.Duration
	FetchTimeout  time.Duration
	RenderTimeout time.Duration
	StableWait    time.Duration

	// Resolution
	TargetBudget      time.Duration
	Concurrency       int
	RenderConcurrency int
	Markdown          bool

	// Result shaping
	MaxResults      int
	DomainAllowlist []string
	DomainDenylist  []string

	// Behavior
	Verbose bool
}

// ApplyDefaults fills zero-valued fields with built-in defaults.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.SearxURL == "" {
		cfg.SearxURL = DefaultSearxURL()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = defaultMaxResults
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.RenderTimeout == 0 {
		cfg.RenderTimeout = defaultRenderTimeout
	}
	if cfg.StableWait == 0 {
		cfg.StableWait = defaultStableWait
	}
	if cfg.TargetBudget == 0 {
		cfg.TargetBudget = defaultTargetBudget
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.RenderConcurrency == 0 {
		cfg.RenderConcurrency = defaultRenderLimit
	}
}

// ValidateConfig performs minimal schema validation for required settings.
func ValidateConfig(cfg Config) error {
	if trim(cfg.SearxURL) == "" && trim(cfg.SearchFile) == "" {
		return errors.New("config: a search backend is required (searx.url or search.file)")
	}
	if cfg.MaxResults < 0 {
		return errors.New("config: negative max.results is not allowed")
	}
	if cfg.Concurrency < 0 || cfg.RenderConcurrency < 0 {
		return errors.New("config: negative concurrency limits are not allowed")
	}
	if cfg.RenderConcurrency > cfg.Concurrency && cfg.Concurrency > 0 {
		return errors.New("config: render.concurrency must not exceed concurrency")
	}
	if cfg.TargetBudget < 0 || cfg.ProbeTimeout < 0 || cfg.FetchTimeout < 0 || cfg.RenderTimeout < 0 {
		return errors.New("config: negative timeouts are not allowed")
	}
	return nil
}

func trim(s string) string {
	i := 0
	j := len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t' || s[j-1] == '\n' || s[j-1] == '\r') {
		j--
	}
	return s[i:j]
}
