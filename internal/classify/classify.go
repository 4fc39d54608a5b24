// Package classify decides, cheaply, what kind of document a URL points
// at before any full fetch happens: a PDF, static HTML that a plain
// extractor can handle, or a script-dependent shell that only renders
// inside a browser.
package classify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Class is the verdict of a classification probe.
type Class int

const (
	// ClassUnknown means neither probe produced a usable signal.
	ClassUnknown Class = iota
	// ClassPDF means the target is a PDF document.
	ClassPDF
	// ClassHTMLStatic means the target is HTML whose content is present
	// in the raw markup.
	ClassHTMLStatic
	// ClassHTMLJSRequired means the target is an HTML shell that needs
	// scripts to run before its content exists.
	ClassHTMLJSRequired
)

func (c Class) String() string {
	switch c {
	case ClassPDF:
		return "pdf"
	case ClassHTMLStatic:
		return "html_static"
	case ClassHTMLJSRequired:
		return "html_js_required"
	default:
		return "unknown"
	}
}

const (
	defaultProbeTimeout = 10 * time.Second
	defaultSniffBytes   = 4096
)

// jsMarkers are phrases that script-dependent shells ship in their
// static markup while the real content is assembled client-side. The
// match is case-insensitive and best-effort; an unlisted shell still
// gets caught later when its extraction comes back empty.
var jsMarkers = []string{
	"enable javascript",
	"javascript is required",
	"javascript is disabled",
	"requires javascript",
	"javascript to run this app",
	"turn on javascript",
}

// emptyShells are markup fragments typical of single-page apps whose
// body is a bare mount point. Compared against whitespace-collapsed,
// lowercased markup.
var emptyShells = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
}

// RequiresScripts reports whether s carries a marker indicating the
// page needs scripts to produce its content. It accepts either raw
// markup or already-extracted text.
func RequiresScripts(s string) bool {
	lower := strings.ToLower(s)
	for _, m := range jsMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	collapsed := strings.ToLower(strings.Join(strings.Fields(s), ""))
	for _, shell := range emptyShells {
		if strings.Contains(collapsed, strings.Join(strings.Fields(shell), "")) {
			return true
		}
	}
	return false
}

// Prober classifies URLs with at most two light requests: a HEAD for
// the declared content type, then a ranged GET for a prefix sniff.
type Prober struct {
	HTTPClient *http.Client
	UserAgent  string
	// Timeout bounds each probe request. Zero means default (10s).
	Timeout time.Duration
	// SniffBytes is how much of the body prefix to read. Zero means
	// default (4096).
	SniffBytes int
}

// Classify probes rawURL and returns its class. The returned error is
// non-nil only when both probes failed; the class is then ClassUnknown
// and the caller decides how to proceed.
func (p *Prober) Classify(ctx context.Context, rawURL string) (Class, error) {
	headErr := error(nil)
	if class, err := p.headProbe(ctx, rawURL); err == nil {
		if class != ClassUnknown {
			return class, nil
		}
	} else {
		headErr = err
	}

	class, err := p.sniffProbe(ctx, rawURL)
	if err != nil {
		if headErr != nil {
			return ClassUnknown, fmt.Errorf("classify %s: head: %v; sniff: %w", rawURL, headErr, err)
		}
		return ClassUnknown, fmt.Errorf("classify %s: sniff: %w", rawURL, err)
	}
	return class, nil
}

// headProbe issues a HEAD request and decides only the PDF case from
// the declared content type. Everything else defers to the sniff.
func (p *Prober) headProbe(ctx context.Context, rawURL string) (Class, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return ClassUnknown, err
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
	resp, err := p.httpClient().Do(req)
	if err != nil {
		return ClassUnknown, err
	}
	defer resp.Body.Close()

	// Servers that reject HEAD (405 and friends) fall through to the
	// sniff without counting as a probe failure.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ClassUnknown, nil
	}
	if isPDFContentType(resp.Header.Get("Content-Type")) {
		return ClassPDF, nil
	}
	return ClassUnknown, nil
}

// sniffProbe fetches the first SniffBytes of the body with a Range
// request and classifies from magic bytes and markup markers. Servers
// that ignore Range are fine; the read is capped either way.
func (p *Prober) sniffProbe(ctx context.Context, rawURL string) (Class, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ClassUnknown, err
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
	n := p.SniffBytes
	if n <= 0 {
		n = defaultSniffBytes
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", n-1))

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return ClassUnknown, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ClassUnknown, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	prefix, err := io.ReadAll(io.LimitReader(resp.Body, int64(n)))
	if err != nil {
		return ClassUnknown, fmt.Errorf("read prefix: %w", err)
	}
	if isPDFContentType(resp.Header.Get("Content-Type")) {
		return ClassPDF, nil
	}
	return classifyPrefix(prefix), nil
}

// classifyPrefix inspects a body prefix. Magic bytes beat whatever the
// server declared.
func classifyPrefix(prefix []byte) Class {
	if bytes.HasPrefix(prefix, []byte("%PDF-")) {
		return ClassPDF
	}
	detected := http.DetectContentType(prefix)
	switch {
	case strings.HasPrefix(detected, "application/pdf"):
		return ClassPDF
	case strings.HasPrefix(detected, "text/"):
		if RequiresScripts(string(prefix)) {
			return ClassHTMLJSRequired
		}
		return ClassHTMLStatic
	default:
		return ClassUnknown
	}
}

func isPDFContentType(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "pdf")
}

func (p *Prober) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return defaultProbeTimeout
}

func (p *Prober) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return http.DefaultClient
}
