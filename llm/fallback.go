package llm

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/basui01/promptgate/internal/metrics"
	"github.com/basui01/promptgate/llm/circuitbreaker"
	"github.com/basui01/promptgate/types"
)

// ProviderState is FallbackEngine's mutable view of one provider slot:
// availability, consecutive error count, and the cooldown window computed
// from it. It is guarded by its own mutex so FallbackEngine can read/update
// one provider's state without blocking calls against the others.
type ProviderState struct {
	mu            sync.Mutex
	Available     bool
	ErrorCount    int
	CooldownUntil time.Time
	LastUsed      time.Time
	lastSuccess   bool
}

// Status is the READY/COOLDOWN/DISABLED classification spec'd for a
// provider slot at a point in time.
type Status string

const (
	StatusReady     Status = "ready"
	StatusCooldown  Status = "cooldown"
	StatusDisabled  Status = "disabled"
)

func (s *ProviderState) status(now time.Time) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Available {
		return StatusDisabled
	}
	if now.Before(s.CooldownUntil) {
		return StatusCooldown
	}
	return StatusReady
}

func (s *ProviderState) recordSuccess(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ErrorCount = 0
	s.LastUsed = now
	s.lastSuccess = true
	s.CooldownUntil = time.Time{}
}

func (s *ProviderState) recordFailure(now time.Time, baseCooldown time.Duration, cooldownNow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ErrorCount++
	s.lastSuccess = false
	if cooldownNow {
		backoff := math.Min(math.Pow(2, float64(s.ErrorCount)), 8)
		s.CooldownUntil = now.Add(time.Duration(float64(baseCooldown) * backoff))
	}
}

func (s *ProviderState) wasLastSuccess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSuccess
}

// providerSlot bundles one provider's client, config, key rotator, circuit
// breaker and mutable state together.
type providerSlot struct {
	id      types.ProviderID
	client  ProviderClient
	cfg     types.ProviderConfig
	keys    *KeyRotator
	state   *ProviderState
	breaker circuitbreaker.CircuitBreaker
}

// FallbackEngine selects among the gateway's configured providers, retries
// transient failures, rotates API keys on rate limiting, and puts a
// provider into cooldown after repeated failure, per the closed-set
// ProviderID state machine (READY/COOLDOWN/DISABLED).
type FallbackEngine struct {
	logger  *zap.Logger
	metrics *metrics.Collector

	mu       sync.RWMutex
	slots    map[types.ProviderID]*providerSlot
	order    []types.ProviderID
	lastGood types.ProviderID
}

// SetMetrics attaches a metrics collector so every provider attempt records
// llm_requests_total/llm_tokens_used_total/llm_cost_total. Optional; a
// FallbackEngine with no collector attached simply skips recording.
func (e *FallbackEngine) SetMetrics(c *metrics.Collector) {
	e.metrics = c
}

// NewFallbackEngine builds an engine over the given providers, in the
// preference order they are supplied. clients must contain an entry for
// every id present in configs.
func NewFallbackEngine(configs []types.ProviderConfig, clients map[types.ProviderID]ProviderClient, logger *zap.Logger) (*FallbackEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	eng := &FallbackEngine{
		logger: logger,
		slots:  make(map[types.ProviderID]*providerSlot, len(configs)),
	}
	for _, cfg := range configs {
		client, ok := clients[cfg.Provider]
		if !ok {
			return nil, fmt.Errorf("fallback: no provider client registered for %q", cfg.Provider)
		}
		breaker := circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
			Threshold:        cfg.RetryAttempts + 1,
			Timeout:          cfg.Timeout(),
			ResetTimeout:     cfg.Cooldown(),
			HalfOpenMaxCalls: 1,
		}, logger.With(zap.String("provider", string(cfg.Provider))))

		eng.slots[cfg.Provider] = &providerSlot{
			id:      cfg.Provider,
			client:  client,
			cfg:     cfg,
			keys:    NewKeyRotatorFromConfig(cfg),
			state:   &ProviderState{Available: true},
			breaker: breaker,
		}
		eng.order = append(eng.order, cfg.Provider)
	}
	return eng, nil
}

// Status reports the current READY/COOLDOWN/DISABLED classification of a
// provider. Returns "" if the id is not configured.
func (e *FallbackEngine) Status(id types.ProviderID) Status {
	e.mu.RLock()
	slot, ok := e.slots[id]
	e.mu.RUnlock()
	if !ok {
		return ""
	}
	return slot.state.status(time.Now())
}

// candidates returns the slots eligible for a call attempt this round,
// ordered by preference: the last-successful provider first (if READY),
// then the remaining configured providers in fixed order, each filtered to
// READY and holding at least one API key. skip, if non-empty, excludes a
// provider from consideration (used by GetFallbackResponse).
func (e *FallbackEngine) candidates(skip types.ProviderID) []*providerSlot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := time.Now()
	seen := make(map[types.ProviderID]bool, len(e.order))
	var out []*providerSlot

	addIfEligible := func(id types.ProviderID) {
		if seen[id] || id == skip {
			return
		}
		slot, ok := e.slots[id]
		if !ok {
			return
		}
		if slot.state.status(now) != StatusReady {
			return
		}
		if !slot.keys.HasKeys() {
			return
		}
		seen[id] = true
		out = append(out, slot)
	}

	if e.lastGood != "" {
		addIfEligible(e.lastGood)
	}
	for _, id := range e.order {
		addIfEligible(id)
	}
	return out
}

// aggregatedError wraps per-provider failures into one error when every
// candidate has been exhausted.
type aggregatedError struct {
	attempts map[types.ProviderID]error
}

func (a *aggregatedError) Error() string {
	msg := "all providers exhausted:"
	for id, err := range a.attempts {
		msg += fmt.Sprintf(" %s=%v;", id, err)
	}
	return msg
}

// Invoke runs req against providers in fallback order, retrying each
// provider up to cfg.RetryAttempts+1 times with exponential backoff, and
// falling through to the next candidate on terminal-for-call errors or
// retry exhaustion.
func (e *FallbackEngine) Invoke(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	candidates := e.candidates("")
	if len(candidates) == 0 {
		return nil, types.NewError(types.ErrProviderExhausted, "no providers are ready").WithHTTPStatus(503)
	}

	attempts := make(map[types.ProviderID]error, len(candidates))
	for _, slot := range candidates {
		resp, err := e.invokeOne(ctx, slot, req)
		if err == nil {
			e.mu.Lock()
			e.lastGood = slot.id
			e.mu.Unlock()
			return resp, nil
		}
		attempts[slot.id] = err
	}
	return nil, &aggregatedError{attempts: attempts}
}

// GetFallbackResponse behaves like Invoke but never considers primary,
// forcing the call onto one of the other configured providers.
func (e *FallbackEngine) GetFallbackResponse(ctx context.Context, req *ChatRequest, primary types.ProviderID) (*ChatResponse, error) {
	candidates := e.candidates(primary)
	if len(candidates) == 0 {
		return nil, types.NewError(types.ErrProviderExhausted, "no fallback providers are ready").WithHTTPStatus(503)
	}
	attempts := make(map[types.ProviderID]error, len(candidates))
	for _, slot := range candidates {
		resp, err := e.invokeOne(ctx, slot, req)
		if err == nil {
			e.mu.Lock()
			e.lastGood = slot.id
			e.mu.Unlock()
			return resp, nil
		}
		attempts[slot.id] = err
	}
	return nil, &aggregatedError{attempts: attempts}
}

// InvokeProvider runs req against exactly one named provider, honoring its
// cooldown/retry guard but never falling over to another provider on
// failure. Used by fanout.Dispatcher, where the caller explicitly wants a
// result (or error) per requested provider rather than a single best
// answer.
func (e *FallbackEngine) InvokeProvider(ctx context.Context, id types.ProviderID, req *ChatRequest) (*ChatResponse, error) {
	e.mu.RLock()
	slot, ok := e.slots[id]
	e.mu.RUnlock()
	if !ok {
		return nil, types.NewError(types.ErrProviderExhausted, fmt.Sprintf("provider %q is not configured", id)).WithHTTPStatus(503)
	}
	if slot.state.status(time.Now()) != StatusReady {
		return nil, types.NewError(types.ErrProviderExhausted, fmt.Sprintf("provider %q is in cooldown", id)).WithHTTPStatus(503)
	}
	return e.invokeOne(ctx, slot, req)
}

// invokeOne performs the retry loop for a single provider slot: up to
// RetryAttempts+1 tries, each timeout-bounded, sleeping 2^attempt between
// tries. A terminal-for-call error kind aborts the loop immediately.
func (e *FallbackEngine) invokeOne(ctx context.Context, slot *providerSlot, req *ChatRequest) (*ChatResponse, error) {
	maxAttempts := slot.cfg.RetryAttempts + 1
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		callReq := *req
		callReq.Model = slot.cfg.ModelName
		callReq.APIKey = slot.keys.Current()

		start := time.Now()
		// The breaker enforces the per-call timeout (goroutine+select,
		// matching the teacher's CallWithResult) and treats
		// terminal-for-call errors as non-failures so one bad request
		// doesn't trip it the way transient upstream errors should.
		result, err := slot.breaker.CallWithResult(ctx, func() (any, error) {
			return slot.client.Invoke(ctx, &callReq)
		})
		duration := time.Since(start)
		var resp *ChatResponse
		if err == nil {
			resp = result.(*ChatResponse)
		}

		if err == nil {
			slot.state.recordSuccess(time.Now())
			slot.keys.Advance()
			if e.metrics != nil {
				e.metrics.RecordLLMRequest(string(slot.id), callReq.Model, "success", duration,
					resp.Usage.PromptTokens, resp.Usage.CompletionTokens, 0)
			}
			return resp, nil
		}

		lastErr = err
		kind := Classify(err)
		terminal := kind.Terminal() || attempt == maxAttempts-1
		slot.state.recordFailure(time.Now(), slot.cfg.Cooldown(), terminal)
		if e.metrics != nil {
			e.metrics.RecordLLMRequest(string(slot.id), callReq.Model, "error", duration, 0, 0, 0)
		}

		if kind == types.ErrorKindRateLimit {
			slot.keys.Advance()
		}
		if kind.Terminal() {
			break
		}
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(math.Pow(2, float64(attempt))) * time.Second):
			}
		}
	}
	return nil, lastErr
}

// Stream behaves like Invoke but commits to the first candidate that
// delivers its first chunk without error; once chosen, the stream is not
// retried or failed over mid-flight.
func (e *FallbackEngine) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, types.ProviderID, error) {
	return e.streamAmong(ctx, e.candidates(""), req)
}

// StreamWithHint behaves like Stream but, when hint names a currently
// eligible provider, tries it first instead of the normal preference order
// — matching spec.md §4.8 Phase 5's "selected provider (chosen by user
// hint, else by ScoringEngine/FallbackEngine)". An ineligible or empty hint
// falls through to ordinary Stream behavior unchanged.
func (e *FallbackEngine) StreamWithHint(ctx context.Context, hint types.ProviderID, req *ChatRequest) (<-chan StreamChunk, types.ProviderID, error) {
	if hint == "" {
		return e.Stream(ctx, req)
	}
	candidates := e.candidates("")
	ordered := make([]*providerSlot, 0, len(candidates))
	var hinted *providerSlot
	for _, slot := range candidates {
		if slot.id == hint {
			hinted = slot
			continue
		}
		ordered = append(ordered, slot)
	}
	if hinted != nil {
		ordered = append([]*providerSlot{hinted}, ordered...)
	}
	return e.streamAmong(ctx, ordered, req)
}

// streamAmong commits to the first candidate in order that delivers its
// first chunk without error; once chosen, the stream is not retried or
// failed over mid-flight.
func (e *FallbackEngine) streamAmong(ctx context.Context, candidates []*providerSlot, req *ChatRequest) (<-chan StreamChunk, types.ProviderID, error) {
	if len(candidates) == 0 {
		return nil, "", types.NewError(types.ErrProviderExhausted, "no providers are ready").WithHTTPStatus(503)
	}

	attempts := make(map[types.ProviderID]error, len(candidates))
	for _, slot := range candidates {
		callReq := *req
		callReq.Model = slot.cfg.ModelName
		callReq.APIKey = slot.keys.Current()

		ch, err := slot.client.Stream(ctx, &callReq)
		if err != nil {
			attempts[slot.id] = err
			kind := Classify(err)
			slot.state.recordFailure(time.Now(), slot.cfg.Cooldown(), kind.Terminal())
			if kind == types.ErrorKindRateLimit {
				slot.keys.Advance()
			}
			continue
		}

		slot.state.recordSuccess(time.Now())
		slot.keys.Advance()
		e.mu.Lock()
		e.lastGood = slot.id
		e.mu.Unlock()
		return ch, slot.id, nil
	}
	return nil, "", &aggregatedError{attempts: attempts}
}

