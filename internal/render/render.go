// Package render drives a headless Chromium instance for pages whose
// content only exists after scripts run. The browser process is
// launched lazily on first use so batches that never escalate pay
// nothing for it.
package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const (
	defaultNavTimeout  = 20 * time.Second
	defaultStableWait  = 500 * time.Millisecond
	defaultMaxSessions = 2
)

// ErrNavigationTimeout reports that a page failed to load and settle
// within the render window.
var ErrNavigationTimeout = errors.New("navigation timeout")

// blockedResourceTypes lists network resource types the renderer skips
// to save bandwidth and speed up page loads. Text extraction needs
// none of them.
var blockedResourceTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeImage,
	proto.NetworkResourceTypeFont,
	proto.NetworkResourceTypeStylesheet,
	proto.NetworkResourceTypeMedia,
}

// Browser renders script-dependent pages via a shared headless
// Chromium process managed by Rod. The zero value is usable; call
// Close when done.
type Browser struct {
	// UserAgent overrides the browser default when non-empty.
	UserAgent string
	// NavTimeout bounds one render from navigation to DOM capture.
	// Zero means default (20s).
	NavTimeout time.Duration
	// StableWait is how long the DOM must stop changing before the
	// page counts as settled. Zero means default (500ms).
	StableWait time.Duration
	// MaxSessions caps concurrently open pages. Zero means default (2).
	MaxSessions int

	mu      sync.Mutex
	browser *rod.Browser

	sem     chan struct{}
	semOnce sync.Once
}

// Render navigates to pageURL, waits for scripts to execute and the
// DOM to stabilize, then returns the rendered HTML. The browser is
// launched on the first call.
func (b *Browser) Render(ctx context.Context, pageURL string) (string, error) {
	if err := b.acquire(ctx); err != nil {
		return "", err
	}
	defer b.release()

	browser, err := b.ensure()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return "", fmt.Errorf("create tab: %w", err)
	}
	defer page.Close()

	if b.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.UserAgent}); err != nil {
			return "", fmt.Errorf("set user agent: %w", err)
		}
	}

	renderCtx, cancel := context.WithTimeout(ctx, b.navTimeout())
	defer cancel()
	page = page.Context(renderCtx)

	// Block resources that cannot contribute to extracted text.
	router := page.HijackRequests()
	for _, rt := range blockedResourceTypes {
		rt := rt
		_ = router.Add("*", rt, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
	}
	go router.Run()
	defer func() { _ = router.Stop() }()

	if err := page.Navigate(pageURL); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %s", ErrNavigationTimeout, b.navTimeout(), pageURL)
		}
		return "", fmt.Errorf("navigate to %s: %w", pageURL, err)
	}

	// WaitStable returns once the DOM stops changing for the window;
	// a timeout here still leaves whatever has rendered so far.
	_ = page.WaitStable(b.stableWait())

	html, err := page.HTML()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if renderCtx.Err() != nil {
			return "", fmt.Errorf("%w: %s", ErrNavigationTimeout, pageURL)
		}
		return "", fmt.Errorf("capture dom from %s: %w", pageURL, err)
	}
	return html, nil
}

// Close shuts down the headless browser process if one was launched.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		_ = b.browser.Close()
		b.browser = nil
	}
}

// ensure launches and connects the browser on first use. A failed
// launch is not cached; the next call retries.
func (b *Browser) ensure() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	u, err := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch headless browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to headless browser: %w", err)
	}
	b.browser = browser
	return browser, nil
}

func (b *Browser) acquire(ctx context.Context) error {
	b.semOnce.Do(func() {
		b.sem = make(chan struct{}, b.maxSessions())
	})
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Browser) release() {
	<-b.sem
}

func (b *Browser) navTimeout() time.Duration {
	if b.NavTimeout > 0 {
		return b.NavTimeout
	}
	return defaultNavTimeout
}

func (b *Browser) stableWait() time.Duration {
	if b.StableWait > 0 {
		return b.StableWait
	}
	return defaultStableWait
}

func (b *Browser) maxSessions() int {
	if b.MaxSessions > 0 {
		return b.MaxSessions
	}
	return defaultMaxSessions
}
