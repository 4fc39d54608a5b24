// Package mcptool exposes the search and content-retrieval operations
// as Model Context Protocol tools for consumption by agent runtimes.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gofetch/internal/app"
	"github.com/hyperifyio/gofetch/internal/resolve"
	"github.com/hyperifyio/gofetch/internal/search"
)

// Server wraps an MCP server with the two gofetch tools registered.
type Server struct {
	app *app.App
	mcp *mcp.Server
}

// New builds the tool server around an already-configured App.
func New(a *app.App, version string) *Server {
	impl := &mcp.Implementation{
		Name:    "gofetch",
		Version: version,
	}
	s := &Server{app: a, mcp: mcp.NewServer(impl, nil)}
	s.registerTools()
	return s
}

type webSearchArgs struct {
	Query string `json:"query"`
	// The remaining fields arrive loosely typed from LLM callers and
	// are coerced, never rejected for shape.
	TimeRange   any `json:"time_range,omitempty"`
	FullContent any `json:"full_content,omitempty"`
	MaxResults  any `json:"max_results,omitempty"`
}

type getURLContentArgs struct {
	URLs any `json:"urls"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "web_search",
		Description: "Performs a web search and returns ranked results as JSON. " +
			"Set full_content to also visit each result and extract its text. " +
			"time_range filters by recency: day, month or year.",
	}, s.handleWebSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_url_content",
		Description: "Extracts text content from one or multiple URLs. " +
			"Handles PDFs, HTML, and JS-rendered pages automatically. " +
			"urls accepts a single URL string or a list of URL strings.",
	}, s.handleGetURLContent)
}

func (s *Server) handleWebSearch(ctx context.Context, req *mcp.CallToolRequest, input webSearchArgs) (*mcp.CallToolResult, any, error) {
	if input.Query == "" {
		return errorResult("query is required"), nil, nil
	}
	timeRange, err := search.ParseTimeRange(coerceString(input.TimeRange))
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	q := search.Query{
		Terms:       input.Query,
		TimeRange:   timeRange,
		MaxResults:  coerceInt(input.MaxResults, 0),
		FullContent: coerceBool(input.FullContent),
	}
	log.Debug().Str("tool", "web_search").Str("query", q.Terms).
		Bool("full_content", q.FullContent).Msg("tool call received")

	items, err := s.app.Search(ctx, q)
	if err != nil {
		log.Warn().Err(err).Str("tool", "web_search").Msg("search failed")
		return errorResult(err.Error()), nil, nil
	}
	if len(items) == 0 {
		return textResult("No results found."), nil, nil
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode results: %w", err)
	}
	return textResult(string(b)), nil, nil
}

func (s *Server) handleGetURLContent(ctx context.Context, req *mcp.CallToolRequest, input getURLContentArgs) (*mcp.CallToolResult, any, error) {
	urls := coerceStringList(input.URLs)
	if len(urls) == 0 {
		return errorResult("urls must be a URL string or a list of URL strings"), nil, nil
	}
	log.Debug().Str("tool", "get_url_content").Int("targets", len(urls)).Msg("tool call received")

	outcomes, err := s.app.Fetch(ctx, urls)
	if err != nil {
		log.Warn().Err(err).Str("tool", "get_url_content").Msg("fetch failed")
		return errorResult(err.Error()), nil, nil
	}

	// A single successful target answers with bare text; everything
	// else answers with the index-keyed outcome mapping so callers can
	// see per-target error kinds.
	if len(outcomes) == 1 && outcomes[0].Status == resolve.StatusOK {
		return textResult(outcomes[0].Text), nil, nil
	}
	keyed := make(map[string]resolve.Outcome, len(outcomes))
	for i, out := range outcomes {
		keyed[strconv.Itoa(i)] = out
	}
	b, err := json.MarshalIndent(keyed, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode outcomes: %w", err)
	}
	return textResult(string(b)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

// Run serves the tools over stdio until the client disconnects or ctx
// is cancelled. Logging stays on stderr, so the protocol stream is not
// polluted.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns a stateless streamable-HTTP handler for serving
// the same tools over HTTP.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.mcp
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}
