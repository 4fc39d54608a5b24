// Package resolve turns a URL into clean extracted text by escalating
// through two strategies: a cheap static fetch first, then a full
// browser rendering session for pages the static path cannot crack.
// Escalation happens at most once per target.
package resolve

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gofetch/internal/classify"
	"github.com/hyperifyio/gofetch/internal/extract"
	"github.com/hyperifyio/gofetch/internal/render"
)

// defaultBudget is the wall-clock allowance for one target across
// classification, the static attempt, and the rendering attempt.
const defaultBudget = 60 * time.Second

// Status says whether a target produced text.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Strategy names the extraction path that produced (or last attempted
// to produce) the outcome.
type Strategy string

const (
	StrategyStatic  Strategy = "static"
	StrategyPDF     Strategy = "pdf"
	StrategyBrowser Strategy = "browser"
)

// Error kinds reported in Outcome.ErrorKind.
const (
	KindNetworkError        = "NetworkError"
	KindExtractionFailed    = "ExtractionFailed"
	KindLowSignalExtraction = "LowSignalExtraction"
	KindRenderError         = "RenderError"
	KindNavigationTimeout   = "NavigationTimeout"
	KindBlockedByTarget     = "BlockedByTarget"
	KindTimeout             = "Timeout"
	KindInvalidInput        = "InvalidInput"
)

// Outcome is the terminal result for one target. It is created once by
// the engine and never mutated afterwards.
type Outcome struct {
	URL       string   `json:"url"`
	Status    Status   `json:"status"`
	Text      string   `json:"text,omitempty"`
	ErrorKind string   `json:"error_kind,omitempty"`
	Strategy  Strategy `json:"strategy_used,omitempty"`
}

// state is the engine's position in the escalation machine. Keeping it
// an explicit enum makes the single-escalation invariant structural
// rather than a property of branch nesting.
type state int

const (
	stateClassify state = iota
	stateFastAttempt
	stateEscalate
	stateDeepAttempt
)

// Prober classifies a target before any full download happens.
type Prober interface {
	Classify(ctx context.Context, url string) (classify.Class, error)
}

// Fetcher downloads a document without executing scripts.
type Fetcher interface {
	Get(ctx context.Context, url string) (body []byte, contentType string, err error)
}

// Renderer loads a page in a scripted browser session and returns the
// rendered HTML.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// blockMarkers are phrases typical of bot-interstitial pages. When the
// rendered text amounts to one of these, the target blocked us and the
// outcome must say so instead of shipping challenge-page prose.
var blockMarkers = []string{
	"verify you are human",
	"verifying you are human",
	"are you a robot",
	"checking your browser",
	"enable cookies and reload",
	"complete the captcha",
	"unusual traffic from your network",
	"access denied",
	"attention required",
}

// Engine resolves single targets. All dependencies are interfaces so
// tests can substitute fakes for the network and the browser.
type Engine struct {
	Probe    Prober
	Fetcher  Fetcher
	Renderer Renderer
	// Budget is the wall-clock allowance per target. Zero means
	// default (60s).
	Budget time.Duration
	// Markdown asks for markdown-shaped text for HTML documents when
	// an article can be detected, plain text otherwise.
	Markdown bool
}

// Resolve runs one target through the escalation machine and returns
// its terminal outcome. It never returns an error; failures are
// encoded in the outcome so batch siblings stay unaffected.
func (e *Engine) Resolve(ctx context.Context, rawURL string) Outcome {
	if !validTargetURL(rawURL) {
		return Outcome{URL: rawURL, Status: StatusError, ErrorKind: KindInvalidInput}
	}

	ctx, cancel := context.WithTimeout(ctx, e.budget())
	defer cancel()

	var (
		st        = stateClassify
		class     classify.Class
		attempted Strategy
	)
	for {
		if ctx.Err() != nil {
			return Outcome{URL: rawURL, Status: StatusError, ErrorKind: KindTimeout, Strategy: attempted}
		}
		switch st {
		case stateClassify:
			c, err := e.Probe.Classify(ctx, rawURL)
			if err != nil {
				log.Debug().Str("url", rawURL).Err(err).Msg("classification probes failed")
			}
			class = c
			log.Debug().Str("url", rawURL).Str("class", class.String()).Msg("classified target")
			if class == classify.ClassHTMLJSRequired {
				st = stateDeepAttempt
			} else {
				st = stateFastAttempt
			}
		case stateFastAttempt:
			out, escalate := e.fastAttempt(ctx, rawURL, class)
			attempted = out.Strategy
			if !escalate {
				return out
			}
			log.Debug().Str("url", rawURL).Str("trigger", out.ErrorKind).Msg("escalating to browser rendering")
			st = stateEscalate
		case stateEscalate:
			st = stateDeepAttempt
		case stateDeepAttempt:
			attempted = StrategyBrowser
			return e.deepAttempt(ctx, rawURL)
		}
	}
}

// fastAttempt downloads the target and extracts text without running
// scripts. When escalate is true the returned outcome is provisional
// and the deep path takes over; otherwise it is terminal.
func (e *Engine) fastAttempt(ctx context.Context, rawURL string, class classify.Class) (out Outcome, escalate bool) {
	strategy := StrategyStatic
	if class == classify.ClassPDF {
		strategy = StrategyPDF
	}

	body, contentType, err := e.Fetcher.Get(ctx, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{URL: rawURL, Status: StatusError, ErrorKind: KindTimeout, Strategy: strategy}, false
		}
		return Outcome{URL: rawURL, Status: StatusError, ErrorKind: KindNetworkError, Strategy: strategy}, true
	}

	// The classifier can be fooled by lying headers; the body decides.
	isPDF := class == classify.ClassPDF ||
		strings.Contains(strings.ToLower(contentType), "pdf") ||
		bytes.HasPrefix(body, []byte("%PDF-"))

	if isPDF {
		doc, err := extract.FromPDF(body)
		if err != nil {
			// A browser cannot parse a broken PDF either; terminal.
			log.Debug().Str("url", rawURL).Err(err).Msg("pdf extraction failed")
			return Outcome{URL: rawURL, Status: StatusError, ErrorKind: KindExtractionFailed, Strategy: StrategyPDF}, false
		}
		return Outcome{URL: rawURL, Status: StatusOK, Text: doc.Text, Strategy: StrategyPDF}, false
	}

	doc := e.extractHTML(body, rawURL)
	if extract.LowSignal(doc.Text) || classify.RequiresScripts(doc.Text) {
		return Outcome{URL: rawURL, Status: StatusError, ErrorKind: KindLowSignalExtraction, Strategy: StrategyStatic}, true
	}
	return Outcome{URL: rawURL, Status: StatusOK, Text: doc.Text, Strategy: StrategyStatic}, false
}

// deepAttempt renders the target in a browser session. It runs at most
// once per target and its outcome is always terminal.
func (e *Engine) deepAttempt(ctx context.Context, rawURL string) Outcome {
	html, err := e.Renderer.Render(ctx, rawURL)
	if err != nil {
		return Outcome{URL: rawURL, Status: StatusError, ErrorKind: renderErrorKind(ctx, err), Strategy: StrategyBrowser}
	}

	doc := e.extractHTML([]byte(html), rawURL)
	if blocked(doc.Text) {
		log.Debug().Str("url", rawURL).Msg("rendered text looks like a bot interstitial")
		return Outcome{URL: rawURL, Status: StatusError, ErrorKind: KindBlockedByTarget, Strategy: StrategyBrowser}
	}
	// Thin text after a successful render is still the page's honest
	// content; there is no further strategy to escalate to.
	return Outcome{URL: rawURL, Status: StatusOK, Text: doc.Text, Strategy: StrategyBrowser}
}

// renderErrorKind maps a rendering failure onto the outcome taxonomy.
// Chromium surfaces unreachable hosts as net:: navigation errors, which
// are transport failures, not rendering ones.
func renderErrorKind(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return KindTimeout
	}
	if errors.Is(err, render.ErrNavigationTimeout) {
		return KindNavigationTimeout
	}
	if strings.Contains(err.Error(), "net::ERR") {
		return KindNetworkError
	}
	return KindRenderError
}

func (e *Engine) extractHTML(body []byte, rawURL string) extract.Document {
	if e.Markdown {
		if doc, err := extract.Markdown(body, rawURL); err == nil {
			return doc
		}
	}
	return extract.FromHTML(body, rawURL)
}

func blocked(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range blockMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func validTargetURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

func (e *Engine) budget() time.Duration {
	if e.Budget > 0 {
		return e.Budget
	}
	return defaultBudget
}
