package resolve

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// defaultConcurrency bounds simultaneous target resolutions. Rendering
// sessions are capped more tightly by the renderer itself.
const defaultConcurrency = 4

// ErrEmptyBatch rejects a batch with no targets before any network
// activity happens.
var ErrEmptyBatch = errors.New("empty target list")

// ResolveAll runs every target through Resolve under the concurrency
// bound and returns one outcome per input index. A target's failure
// never affects its siblings; the call itself fails only on an empty
// target list. Output order always matches input order.
func (e *Engine) ResolveAll(ctx context.Context, urls []string, concurrency int) ([]Outcome, error) {
	if len(urls) == 0 {
		return nil, ErrEmptyBatch
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	outcomes := make([]Outcome, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			// Each index is owned by exactly one task; no two tasks
			// ever write the same slot.
			outcomes[i] = e.Resolve(gctx, u)
			return nil
		})
	}
	// Workers never return errors; partial failure lives in outcomes.
	_ = g.Wait()
	return outcomes, nil
}
