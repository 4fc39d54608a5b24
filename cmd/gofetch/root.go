package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/gofetch/internal/app"
	"github.com/hyperifyio/gofetch/internal/mcptool"
	"github.com/hyperifyio/gofetch/internal/search"
)

type rootOptions struct {
	configPath   string
	searxURL     string
	searxKey     string
	searchFile   string
	userAgent    string
	markdown     bool
	timeout      time.Duration
	concurrency  int
	renderLimit  int
	domainsAllow string
	domainsDeny  string
	verbose      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "gofetch",
		Short: "Web search and content retrieval with automatic render escalation",
		Long: "gofetch searches the web through SearxNG with a DuckDuckGo fallback\n" +
			"and resolves URLs into clean text, escalating from static extraction\n" +
			"to a headless browser only when a page needs scripts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to YAML or JSON config file")
	pf.StringVar(&opts.searxURL, "searx.url", app.DefaultSearxURL(), "SearxNG base URL")
	pf.StringVar(&opts.searxKey, "searx.key", os.Getenv("SEARX_KEY"), "SearxNG API key (optional)")
	pf.StringVar(&opts.searchFile, "search.file", os.Getenv("SEARCH_FILE"), "Path to JSON file for the offline file-based search provider")
	pf.StringVar(&opts.userAgent, "ua", "", "User-Agent for probes, fetches and rendering")
	pf.BoolVar(&opts.markdown, "markdown", false, "Prefer markdown-shaped text for HTML documents")
	pf.DurationVar(&opts.timeout, "timeout", 0, "Wall-clock budget per target (default 60s)")
	pf.IntVar(&opts.concurrency, "concurrency", 0, "Concurrent target resolutions (default 4)")
	pf.IntVar(&opts.renderLimit, "render.concurrency", 0, "Concurrent browser sessions (default 2)")
	pf.StringVar(&opts.domainsAllow, "domains.allow", os.Getenv("DOMAINS_ALLOW"), "Comma-separated allowlist of hosts/domains; if set, only these are returned (subdomains included)")
	pf.StringVar(&opts.domainsDeny, "domains.deny", os.Getenv("DOMAINS_DENY"), "Comma-separated denylist of hosts/domains; takes precedence over allow")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newScrapeCmd(opts))
	cmd.AddCommand(newMCPCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// config resolves the effective configuration. Precedence: explicit
// flags, then environment, then config file, then built-in defaults.
func (o *rootOptions) config(cmd *cobra.Command) (app.Config, error) {
	cfg := app.Config{
		SearxURL:          o.searxURL,
		SearxKey:          o.searxKey,
		SearchFile:        o.searchFile,
		UserAgent:         o.userAgent,
		TargetBudget:      o.timeout,
		Concurrency:       o.concurrency,
		RenderConcurrency: o.renderLimit,
		Markdown:          o.markdown,
		DomainAllowlist:   splitHostList(o.domainsAllow),
		DomainDenylist:    splitHostList(o.domainsDeny),
		Verbose:           o.verbose,
	}
	if o.configPath != "" {
		fc, err := app.LoadConfigFile(o.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", o.configPath, err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	if !cmd.Flags().Changed("searx.url") {
		app.ApplyEnvOverrides(&cfg)
	}
	return cfg, nil
}

func buildApp(cmd *cobra.Command, opts *rootOptions) (*app.App, error) {
	cfg, err := opts.config(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}

func splitHostList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			list = append(list, v)
		}
	}
	return list
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		timeRange string
		limit     int
		scrape    bool
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the web (default command)",
		Long:  "Search the web. To scrape specific URLs without searching, use 'gofetch scrape'.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := search.ParseTimeRange(timeRange)
			if err != nil {
				return err
			}
			q := search.Query{
				Terms:       strings.Join(args, " "),
				TimeRange:   tr,
				FullContent: scrape,
			}
			if cmd.Flags().Changed("limit") {
				q.MaxResults = limit
			}

			a, err := buildApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.Search(cmd.Context(), q)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), items)
			}
			renderSearchResults(cmd.OutOrStdout(), items)
			return nil
		},
	}
	cmd.Flags().StringVarP(&timeRange, "time", "t", "", "Time range: day, month or year")
	cmd.Flags().IntVarP(&limit, "limit", "l", 5, "Max results")
	cmd.Flags().BoolVarP(&scrape, "scrape", "s", false, "Scrape content of results")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output raw JSON")
	return cmd
}

func newScrapeCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scrape <url> [url...]",
		Short: "Resolve URLs directly into text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			outcomes, err := a.Fetch(cmd.Context(), args)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), keyedOutcomes(outcomes))
			}
			renderScrapeOutcomes(cmd.OutOrStdout(), outcomes)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output raw JSON")
	return cmd
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	var httpAddr string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve web_search and get_url_content as MCP tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := mcptool.New(a, app.BuildVersion)
			if httpAddr != "" {
				log.Info().Str("addr", httpAddr).Msg("serving MCP over streamable HTTP")
				return (&http.Server{Addr: httpAddr, Handler: srv.HTTPHandler()}).ListenAndServe()
			}
			log.Info().Msg("serving MCP over stdio")
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve over streamable HTTP on this address instead of stdio")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "gofetch %s (commit %s, built %s)\n",
				app.BuildVersion, app.BuildCommit, app.BuildDate)
			return nil
		},
	}
}
