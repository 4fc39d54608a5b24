package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections improve readability and map naturally to flags/env.
type FileConfig struct {
	Searx struct {
		URL string `yaml:"url" json:"url"`
		Key string `yaml:"key" json:"key"`
	} `yaml:"searx" json:"searx"`

	Search struct {
		File       string `yaml:"file" json:"file"`
		MaxResults int    `yaml:"maxResults" json:"maxResults"`
	} `yaml:"search" json:"search"`

	Fetch struct {
		UA           string        `yaml:"ua" json:"ua"`
		Timeout      time.Duration `yaml:"timeout" json:"timeout"`
		ProbeTimeout time.Duration `yaml:"probeTimeout" json:"probeTimeout"`
	} `yaml:"fetch" json:"fetch"`

	Render struct {
		Timeout     time.Duration `yaml:"timeout" json:"timeout"`
		StableWait  time.Duration `yaml:"stableWait" json:"stableWait"`
		Concurrency int           `yaml:"concurrency" json:"concurrency"`
	} `yaml:"render" json:"render"`

	Resolve struct {
		Budget      time.Duration `yaml:"budget" json:"budget"`
		Concurrency int           `yaml:"concurrency" json:"concurrency"`
		Markdown    bool          `yaml:"markdown" json:"markdown"`
	} `yaml:"resolve" json:"resolve"`

	Domains struct {
		Allow []string `yaml:"allow" json:"allow"`
		Deny  []string `yaml:"deny" json:"deny"`
	} `yaml:"domains" json:"domains"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset or still at their built-in default. Flags should already
// have been parsed; this lets file config supply defaults while preserving
// explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}

	if (cfg.SearxURL == "" || cfg.SearxURL == DefaultSearxURL()) && fc.Searx.URL != "" {
		cfg.SearxURL = fc.Searx.URL
	}
	if cfg.SearxKey == "" && fc.Searx.Key != "" {
		cfg.SearxKey = fc.Searx.Key
	}
	if cfg.SearchFile == "" && fc.Search.File != "" {
		cfg.SearchFile = fc.Search.File
	}
	if (cfg.MaxResults == 0 || cfg.MaxResults == defaultMaxResults) && fc.Search.MaxResults > 0 {
		cfg.MaxResults = fc.Search.MaxResults
	}

	if (cfg.UserAgent == "" || cfg.UserAgent == defaultUserAgent) && fc.Fetch.UA != "" {
		cfg.UserAgent = fc.Fetch.UA
	}
	if cfg.FetchTimeout == 0 && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if cfg.ProbeTimeout == 0 && fc.Fetch.ProbeTimeout > 0 {
		cfg.ProbeTimeout = fc.Fetch.ProbeTimeout
	}

	if cfg.RenderTimeout == 0 && fc.Render.Timeout > 0 {
		cfg.RenderTimeout = fc.Render.Timeout
	}
	if cfg.StableWait == 0 && fc.Render.StableWait > 0 {
		cfg.StableWait = fc.Render.StableWait
	}
	if cfg.RenderConcurrency == 0 && fc.Render.Concurrency > 0 {
		cfg.RenderConcurrency = fc.Render.Concurrency
	}

	if cfg.TargetBudget == 0 && fc.Resolve.Budget > 0 {
		cfg.TargetBudget = fc.Resolve.Budget
	}
	if cfg.Concurrency == 0 && fc.Resolve.Concurrency > 0 {
		cfg.Concurrency = fc.Resolve.Concurrency
	}
	if !cfg.Markdown && fc.Resolve.Markdown {
		cfg.Markdown = true
	}

	if len(cfg.DomainAllowlist) == 0 && len(fc.Domains.Allow) > 0 {
		cfg.DomainAllowlist = append([]string{}, fc.Domains.Allow...)
	}
	if len(cfg.DomainDenylist) == 0 && len(fc.Domains.Deny) > 0 {
		cfg.DomainDenylist = append([]string{}, fc.Domains.Deny...)
	}

	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}
