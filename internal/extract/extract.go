// Package extract turns fetched documents into clean text. HTML goes
// through the Readability algorithm first, with a DOM walker fallback
// for pages the algorithm rejects or reduces to almost nothing. PDF
// handling lives in pdf.go.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

const (
	// readabilityMinWords is the acceptance bar for the Readability
	// path; below it the DOM walker decides instead.
	readabilityMinWords = 50
	// lowSignalMinWords marks an extraction as too thin to trust.
	lowSignalMinWords = 10
)

// Document is a simplified representation of extracted page content.
type Document struct {
	Title string
	Text  string
}

// LowSignal reports whether extracted text is too thin to be useful,
// which usually means the page assembles its content client-side.
func LowSignal(s string) bool {
	return len(strings.Fields(s)) < lowSignalMinWords
}

// FromHTML extracts readable text from HTML. pageURL resolves relative
// references during article detection and may be empty.
func FromHTML(input []byte, pageURL string) Document {
	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(input), parsedURL)
	if err == nil && article.Node != nil {
		var buf bytes.Buffer
		_ = article.RenderText(&buf)
		text := normalizeWhitespace(buf.String())
		if len(strings.Fields(text)) >= readabilityMinWords {
			return Document{Title: strings.TrimSpace(article.Title()), Text: text}
		}
	}
	return fallbackFromDOM(input)
}

// Markdown extracts the main article and renders it as markdown,
// preserving headings, lists, tables, and code blocks. It returns an
// error when no article can be detected or the result is too thin;
// callers fall back to FromHTML.
func Markdown(input []byte, pageURL string) (Document, error) {
	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(input), parsedURL)
	if err != nil {
		return Document{}, fmt.Errorf("detect article: %w", err)
	}
	if article.Node == nil {
		return Document{}, errors.New("no article detected")
	}
	md, err := htmltomarkdown.ConvertNode(article.Node)
	if err != nil {
		return Document{}, fmt.Errorf("convert to markdown: %w", err)
	}
	text := normalizeMarkdown(string(md))
	if len(strings.Fields(text)) < readabilityMinWords {
		return Document{}, errors.New("markdown conversion produced too little text")
	}
	return Document{Title: strings.TrimSpace(article.Title()), Text: text}, nil
}

// fallbackFromDOM walks the raw DOM, preferring <main> or <article>
// and falling back to <body>. It preserves headings, paragraphs, list
// items, and pre/code blocks, while skipping obvious boilerplate like
// <nav> and <footer>.
func fallbackFromDOM(input []byte) Document {
	node, err := html.Parse(bytes.NewReader(input))
	if err != nil || node == nil {
		return Document{}
	}

	title := strings.TrimSpace(findTitle(node))
	content := findFirst(node, "main")
	if content == nil {
		content = findFirst(node, "article")
	}
	if content == nil {
		content = findFirst(node, "body")
	}
	var b strings.Builder
	if content != nil {
		collectText(&b, content, false)
	}
	return Document{Title: title, Text: normalizeWhitespace(b.String())}
}

func findTitle(n *html.Node) string {
	head := findFirst(n, "head")
	if head == nil {
		return ""
	}
	t := findFirst(head, "title")
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return t.FirstChild.Data
}

func findFirst(n *html.Node, tag string) *html.Node {
	var res *html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if res != nil {
			return
		}
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, tag) {
			res = cur
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
			if res != nil {
				return
			}
		}
	}
	dfs(n)
	return res
}

func collectText(b *strings.Builder, n *html.Node, inPre bool) {
	if n.Type == html.ElementNode {
		// Skip known boilerplate containers like cookie/consent banners
		if isBoilerplateContainer(n) {
			return
		}
		name := strings.ToLower(n.Data)
		switch name {
		case "script", "style", "noscript", "nav", "footer", "aside", "iframe":
			return
		case "pre", "code":
			inPre = true
		case "br", "hr":
			b.WriteString("\n")
		case "p", "h1", "h2", "h3", "h4", "h5", "h6", "li":
			// Add a newline before block starts to ensure separation
			b.WriteString("\n")
		case "ul", "ol":
			b.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		data := n.Data
		if !inPre {
			data = strings.ReplaceAll(data, "\t", " ")
			data = strings.ReplaceAll(data, "\r", " ")
		}
		b.WriteString(data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, inPre)
	}

	if n.Type == html.ElementNode {
		name := strings.ToLower(n.Data)
		switch name {
		case "p", "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n\n")
		case "li":
			b.WriteString("\n")
		case "pre", "code":
			inPre = false
			b.WriteString("\n")
		}
	}
}

// isBoilerplateContainer returns true if the element looks like a cookie/consent banner.
func isBoilerplateContainer(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if key != "id" && key != "class" && !strings.HasPrefix(key, "data-") && key != "aria-label" && key != "role" {
			continue
		}
		val := strings.ToLower(attr.Val)
		if containsAny(val, []string{"cookie", "consent", "gdpr"}) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// normalizeWhitespace collapses space runs and blank-line runs, trims
// line edges, and composes the result to NFC so equivalent byte
// sequences compare equal downstream.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			// Keep at most one consecutive blank
			if len(out) > 0 && out[len(out)-1] == "" {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, collapseSpaces(trimmed))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	return norm.NFC.String(strings.Join(out, "\n"))
}

// normalizeMarkdown is a gentler pass for markdown output where line
// indentation is structural and must survive.
func normalizeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return norm.NFC.String(strings.TrimSpace(s))
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
