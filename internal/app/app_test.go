package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/gofetch/internal/resolve"
	"github.com/hyperifyio/gofetch/internal/search"
)

const articlePage = `<!DOCTYPE html>
<html><head><title>Scheduling Work Across Machines</title></head>
<body>
<main>
<h1>Scheduling Work Across Machines</h1>
<p>Distributing jobs over a fleet starts with an honest accounting of what each
machine can absorb. A scheduler that only counts running tasks will overload
hosts with slow disks and starve hosts with fast ones, because task count is a
poor proxy for actual load.</p>
<p>The usual fix is to let every worker report a small set of utilization
signals and to treat placement as a scoring problem rather than a queue. Scores
age quickly, so the scheduler refreshes them on every heartbeat and discards
anything older than two intervals. Placement then becomes a ranked choice among
the machines that reported recently enough to trust.</p>
</main>
</body></html>`

type fileEntry struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

func writeResultsFile(t *testing.T, entries []fileEntry) string {
	t.Helper()
	b, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal results: %v", err)
	}
	path := filepath.Join(t.TempDir(), "results.json")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatalf("write results: %v", err)
	}
	return path
}

func testConfig(searchFile string) Config {
	return Config{
		SearchFile:        searchFile,
		UserAgent:         "gofetch-test",
		ProbeTimeout:      5 * time.Second,
		FetchTimeout:      5 * time.Second,
		TargetBudget:      10 * time.Second,
		Concurrency:       2,
		RenderConcurrency: 1,
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"negative concurrency", Config{SearchFile: "x.json", Concurrency: -1}},
		{"render above total", Config{SearchFile: "x.json", Concurrency: 1, RenderConcurrency: 3}},
		{"negative timeout", Config{SearchFile: "x.json", FetchTimeout: -time.Second}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err == nil {
				t.Fatalf("expected config error, got nil")
			}
		})
	}
}

func TestNew_BuildsAndCloses(t *testing.T) {
	app, err := New(testConfig("results.json"))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	// No target escalated, so no browser was ever launched; Close must
	// still be safe to call.
	app.Close()
}

func TestSearch_FileProviderRanksResults(t *testing.T) {
	path := writeResultsFile(t, []fileEntry{
		{Title: "Kernel bypass networking", URL: "https://a.example.com/one", Snippet: "zero copy"},
		{Title: "Kernel scheduling latency", URL: "https://b.example.com/two", Snippet: "run queues"},
	})
	app, err := New(testConfig(path))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer app.Close()

	items, err := app.Search(context.Background(), search.Query{Terms: "kernel", MaxResults: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Rank != 1 || items[1].Rank != 2 {
		t.Fatalf("ranks %d,%d, want 1,2", items[0].Rank, items[1].Rank)
	}
	if items[0].Title != "Kernel bypass networking" {
		t.Fatalf("items[0].Title=%q", items[0].Title)
	}
	for i, it := range items {
		if it.FullContent != "" {
			t.Fatalf("items[%d].FullContent populated without full_content request", i)
		}
	}
}

func TestSearch_DefaultsMaxResults(t *testing.T) {
	entries := make([]fileEntry, 0, 7)
	for i := 0; i < 7; i++ {
		entries = append(entries, fileEntry{
			Title: "Kernel note " + string(rune('a'+i)),
			URL:   "https://example.com/note/" + string(rune('a'+i)),
		})
	}
	app, err := New(testConfig(writeResultsFile(t, entries)))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer app.Close()

	items, err := app.Search(context.Background(), search.Query{Terms: "kernel"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != defaultMaxResults {
		t.Fatalf("got %d items, want default cap %d", len(items), defaultMaxResults)
	}
}

func TestSearch_FullContentEnrichment(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	path := writeResultsFile(t, []fileEntry{
		{Title: "Scheduling work across machines", URL: srv.URL + "/article", Snippet: "placement scoring"},
		{Title: "Scheduling mirrors", URL: "ftp://mirror.example.com/scheduling", Snippet: "unreachable scheme"},
	})
	app, err := New(testConfig(path))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer app.Close()

	items, err := app.Search(context.Background(), search.Query{
		Terms:       "scheduling",
		MaxResults:  5,
		FullContent: true,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if !strings.Contains(items[0].FullContent, "placement as a scoring problem") {
		t.Fatalf("items[0].FullContent missing article prose: %q", items[0].FullContent)
	}
	// The second target fails validation inside the resolver; the item
	// survives with its snippet and an empty FullContent.
	if items[1].FullContent != "" {
		t.Fatalf("items[1].FullContent=%q, want empty for unresolvable target", items[1].FullContent)
	}
	if hits.Load() == 0 {
		t.Fatalf("enrichment never touched the article server")
	}
}

func TestSearch_DenylistFilters(t *testing.T) {
	path := writeResultsFile(t, []fileEntry{
		{Title: "Kernel digest", URL: "https://spam.example.com/digest"},
	})
	cfg := testConfig(path)
	cfg.DomainDenylist = []string{"spam.example.com"}
	app, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer app.Close()

	items, err := app.Search(context.Background(), search.Query{Terms: "kernel", MaxResults: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("denylisted host leaked through: %+v", items)
	}
}

func TestFetch_BatchOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	app, err := New(testConfig("unused.json"))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer app.Close()

	outcomes, err := app.Fetch(context.Background(), []string{srv.URL + "/article", "not a url"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	if outcomes[0].Status != resolve.StatusOK || outcomes[0].Strategy != resolve.StrategyStatic {
		t.Fatalf("outcomes[0]: %+v", outcomes[0])
	}
	if outcomes[1].Status != resolve.StatusError || outcomes[1].ErrorKind != resolve.KindInvalidInput {
		t.Fatalf("outcomes[1]: %+v", outcomes[1])
	}
}
