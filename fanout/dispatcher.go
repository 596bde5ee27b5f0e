// Package fanout dispatches one call per requested provider concurrently
// and aggregates the results in the caller's requested order.
package fanout

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/basui01/promptgate/llm"
	"github.com/basui01/promptgate/types"
)

// Result is one slot's outcome. Exactly one of Response/Err is set.
type Result struct {
	Provider types.ProviderID
	Response *llm.ChatResponse
	Err      error
}

// Dispatcher launches one ProviderClient.Invoke per requested provider, each
// under FallbackEngine's cooldown guard, and aggregates into an
// order-preserving slice. Grounded on the teacher's
// guardrails.ValidatorChain.validateParallel: an errgroup.Go per slot that
// always returns nil so one provider's failure never cancels the others,
// with results captured into a pre-sized slice indexed by the original
// position rather than relying on goroutine completion order.
type Dispatcher struct {
	engine *llm.FallbackEngine
}

// New builds a Dispatcher backed by engine.
func New(engine *llm.FallbackEngine) *Dispatcher {
	return &Dispatcher{engine: engine}
}

// Dispatch calls one provider per entry in providers with req, each bounded
// by perCallTimeout, and returns results in the same order as providers.
// Per spec.md §4.10, an individual failure is captured into that slot's
// Result.Err and never propagates to the other slots or the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, providers []types.ProviderID, req *llm.ChatRequest, perCallTimeout time.Duration) []Result {
	results := make([]Result, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, provider := range providers {
		i, provider := i, provider
		g.Go(func() error {
			callCtx := gctx
			var cancel context.CancelFunc
			if perCallTimeout > 0 {
				callCtx, cancel = context.WithTimeout(gctx, perCallTimeout)
				defer cancel()
			}

			resp, err := d.engine.InvokeProvider(callCtx, provider, req)
			results[i] = Result{Provider: provider, Response: resp, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
