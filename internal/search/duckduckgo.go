package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// defaultDuckDuckGoURL is the HTML (non-JS) results page, which is the
// only DuckDuckGo surface that can be parsed without a browser.
const defaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// ddgTimeParam maps TimeRange values to the SERP's df parameter.
var ddgTimeParam = map[TimeRange]string{
	TimeRangeDay:   "d",
	TimeRangeMonth: "m",
	TimeRangeYear:  "y",
}

// DuckDuckGo implements Provider by scraping the DuckDuckGo HTML SERP.
// It requires no local infrastructure, which makes it the natural
// fallback when the configured SearxNG instance is down.
type DuckDuckGo struct {
	BaseURL    string // defaults to defaultDuckDuckGoURL
	HTTPClient *http.Client
	UserAgent  string
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query Query) ([]Result, error) {
	limit := query.MaxResults
	if limit <= 0 {
		limit = 10
	}
	base := d.BaseURL
	if base == "" {
		base = defaultDuckDuckGoURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query.Terms)
	if p, ok := ddgTimeParam[query.TimeRange]; ok {
		q.Set("df", p)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	// The HTML SERP serves a captcha to clients that do not look like a
	// browser, so send a plausible desktop header set.
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	hc := d.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("duckduckgo status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo response: %w", err)
	}

	out := make([]Result, 0, limit)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		anchor := s.Find("a.result__a").First()
		title := strings.TrimSpace(anchor.Text())
		href, ok := anchor.Attr("href")
		if title == "" || !ok {
			return true
		}
		target := unwrapRedirect(strings.TrimSpace(href))
		if target == "" {
			return true
		}
		out = append(out, Result{
			Title:   title,
			URL:     target,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
			Source:  d.Name(),
		})
		return len(out) < limit
	})
	return out, nil
}

// unwrapRedirect resolves DuckDuckGo's /l/?uddg=<target> indirection to
// the destination URL. Non-redirect links pass through unchanged.
func unwrapRedirect(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && u.Host == "" {
		// Relative SERP-internal link, not a result.
		return ""
	}
	return href
}
