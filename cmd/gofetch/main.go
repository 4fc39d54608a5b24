package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gofetch/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Dotenv files feed the env-aware flag defaults, so they load first.
	_ = app.LoadEnvFiles(".env", ".env.local")

	root := newRootCmd()
	root.SetArgs(defaultToSearch(os.Args[1:]))

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// defaultToSearch keeps `gofetch "some query"` working: anything that
// is not a known command is treated as search terms.
func defaultToSearch(args []string) []string {
	if len(args) == 0 {
		return args
	}
	switch args[0] {
	case "search", "scrape", "mcp", "version", "help", "completion", "-h", "--help":
		return args
	}
	return append([]string{"search"}, args...)
}
