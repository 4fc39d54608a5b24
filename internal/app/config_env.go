package app

import (
	"errors"
	"os"
	"strings"
)

// DefaultSearxURL returns the primary search backend base URL, honoring
// the SEARXNG_HOST environment variable when set.
func DefaultSearxURL() string {
	if v := os.Getenv("SEARXNG_HOST"); v != "" {
		return v
	}
	return defaultSearxURL
}

// ApplyEnvOverrides re-asserts environment-provided settings over file
// config values. Callers keep flags highest precedence by skipping this
// for fields that were set explicitly on the command line.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := os.Getenv("SEARXNG_HOST"); v != "" {
		cfg.SearxURL = v
	}
}

// LoadEnvFiles loads one or more dotenv files of KEY=VALUE pairs into
// the process environment. Later files override earlier ones. Missing
// files are skipped. Lines starting with '#', blank lines and lines
// without '=' are ignored; values are not expanded.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		for _, line := range strings.Split(string(b), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			eq := strings.IndexByte(line, '=')
			if eq <= 0 {
				continue
			}
			key := strings.TrimSpace(line[:eq])
			val := unquoteEnvValue(strings.TrimSpace(line[eq+1:]))
			_ = os.Setenv(key, val)
		}
	}
	return nil
}

func unquoteEnvValue(val string) string {
	if len(val) >= 2 {
		if (val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'') {
			return val[1 : len(val)-1]
		}
	}
	return val
}
