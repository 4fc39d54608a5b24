package search

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// maxSnippetRunes caps snippet length after markup stripping. Counted in
// runes so multi-byte text is not cut mid-character.
const maxSnippetRunes = 500

// Normalize converts raw provider output into the common result schema:
// ranks are assigned in provider order before any filtering, URLs are
// canonicalized and de-duplicated, snippets are stripped of markup and
// truncated, the domain policy is applied, and the list is cut to the
// query's MaxResults. Rank gaps after filtering are intentional; they
// preserve the provider's original ordering information.
func Normalize(results []Result, q Query, policy DomainPolicy) []Result {
	seen := map[string]struct{}{}
	out := make([]Result, 0, len(results))
	for i, r := range results {
		r.Rank = i + 1
		if r.URL == "" || r.Title == "" {
			continue
		}
		u, err := url.Parse(r.URL)
		if err != nil || u.Hostname() == "" {
			continue
		}
		canonicalizeURL(u)
		key := u.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		r.URL = key
		if !policy.Allows(r.URL) {
			continue
		}
		r.Snippet = cleanSnippet(r.Snippet)
		out = append(out, r)
		if q.MaxResults > 0 && len(out) >= q.MaxResults {
			break
		}
	}
	return out
}

func canonicalizeURL(u *url.URL) {
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	q := u.Query()
	// Remove common tracking params
	for _, p := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id", "gclid", "fbclid"} {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
}

// cleanSnippet strips any markup providers leave in result snippets
// (SearxNG passes through <strong> highlights, the DDG SERP nests
// spans), collapses whitespace, and truncates by rune count.
func cleanSnippet(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		s = stripMarkup(s)
	}
	s = collapseSnippetSpaces(s)
	runes := []rune(s)
	if len(runes) <= maxSnippetRunes {
		return s
	}
	return strings.TrimSpace(string(runes[:maxSnippetRunes])) + "…"
}

func stripMarkup(s string) string {
	node, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return b.String()
}

func collapseSnippetSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
