package resolve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestResolveAll_EmptyBatchRejected(t *testing.T) {
	eng := newEngine(&fakeRenderer{})
	out, err := eng.ResolveAll(context.Background(), nil, 4)
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
	if out != nil {
		t.Fatalf("expected no outcomes, got %d", len(out))
	}
}

func TestResolveAll_OneOutcomePerTarget(t *testing.T) {
	staticSrv := serveHTML(t, staticPage)
	defer staticSrv.Close()
	shellSrv := serveHTML(t, jsShell)
	defer shellSrv.Close()
	corruptSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 then only garbage"))
	}))
	defer corruptSrv.Close()

	unreachable := "http://127.0.0.1:1/down"
	renderer := &routeRenderer{
		pages: map[string]string{shellSrv.URL: renderedArticle},
		errs:  map[string]error{unreachable: errors.New("navigate: net::ERR_CONNECTION_REFUSED")},
	}
	eng := newEngine(renderer)

	urls := []string{staticSrv.URL, shellSrv.URL, corruptSrv.URL, "not a url", unreachable}
	outcomes, err := eng.ResolveAll(context.Background(), urls, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcomes) != len(urls) {
		t.Fatalf("expected %d outcomes, got %d", len(urls), len(outcomes))
	}
	for i, out := range outcomes {
		if out.URL != urls[i] {
			t.Fatalf("outcome %d carries %q, want %q", i, out.URL, urls[i])
		}
		if out.Status != StatusOK && out.Status != StatusError {
			t.Fatalf("outcome %d has no terminal status", i)
		}
	}

	if outcomes[0].Status != StatusOK || outcomes[0].Strategy != StrategyStatic {
		t.Fatalf("static target: got %+v", outcomes[0])
	}
	if outcomes[1].Status != StatusOK || outcomes[1].Strategy != StrategyBrowser {
		t.Fatalf("shell target: got %+v", outcomes[1])
	}
	if outcomes[2].ErrorKind != KindExtractionFailed {
		t.Fatalf("corrupt pdf target: got %+v", outcomes[2])
	}
	if outcomes[3].ErrorKind != KindInvalidInput {
		t.Fatalf("malformed target: got %+v", outcomes[3])
	}
	if outcomes[4].ErrorKind != KindNetworkError {
		t.Fatalf("unreachable target: got %+v", outcomes[4])
	}
}

func TestResolveAll_MixedBatchUnderBudget(t *testing.T) {
	staticSrv := serveHTML(t, staticPage)
	defer staticSrv.Close()
	shellSrv := serveHTML(t, jsShell)
	defer shellSrv.Close()

	unreachable := "http://127.0.0.1:1/"
	renderer := &routeRenderer{
		pages: map[string]string{shellSrv.URL: renderedArticle},
		errs:  map[string]error{unreachable: errors.New("navigate to " + unreachable + ": net::ERR_CONNECTION_REFUSED")},
	}
	eng := newEngine(renderer)
	eng.Budget = 5 * time.Second

	urls := []string{staticSrv.URL, shellSrv.URL, unreachable}
	start := time.Now()
	outcomes, err := eng.ResolveAll(context.Background(), urls, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 6*time.Second {
		t.Fatalf("batch exceeded budget window: %v", elapsed)
	}

	if outcomes[0].Status != StatusOK || outcomes[0].Strategy != StrategyStatic {
		t.Fatalf("index 0: want ok/static, got %s/%s (%s)", outcomes[0].Status, outcomes[0].Strategy, outcomes[0].ErrorKind)
	}
	if outcomes[1].Status != StatusOK || outcomes[1].Strategy != StrategyBrowser {
		t.Fatalf("index 1: want ok/browser, got %s/%s (%s)", outcomes[1].Status, outcomes[1].Strategy, outcomes[1].ErrorKind)
	}
	if outcomes[2].Status != StatusError || outcomes[2].ErrorKind != KindNetworkError {
		t.Fatalf("index 2: want error/NetworkError, got %s/%s", outcomes[2].Status, outcomes[2].ErrorKind)
	}

	if got := renderer.callCount(shellSrv.URL); got != 1 {
		t.Fatalf("shell target rendered %d times, want 1", got)
	}
	if got := renderer.callCount(unreachable); got != 1 {
		t.Fatalf("unreachable target rendered %d times, want 1", got)
	}
}

func TestResolveAll_ConcurrencyBound(t *testing.T) {
	var inFlight int32
	var maxObserved int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		curr := atomic.AddInt32(&inFlight, 1)
		for {
			prev := atomic.LoadInt32(&maxObserved)
			if curr > prev {
				if atomic.CompareAndSwapInt32(&maxObserved, prev, curr) {
					break
				}
				continue
			}
			break
		}
		time.Sleep(30 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(staticPage))
		atomic.AddInt32(&inFlight, -1)
	}))
	defer srv.Close()

	eng := newEngine(&fakeRenderer{})
	urls := make([]string, 6)
	for i := range urls {
		urls[i] = srv.URL + "/" + string(rune('a'+i))
	}

	outcomes, err := eng.ResolveAll(context.Background(), urls, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcomes) != len(urls) {
		t.Fatalf("expected %d outcomes, got %d", len(urls), len(outcomes))
	}
	if atomic.LoadInt32(&maxObserved) > 2 {
		t.Fatalf("expected at most 2 concurrent requests, observed %d", maxObserved)
	}
}
