// Package router implements RouterCore, the streaming enhancement pipeline:
// relevance planning, token accounting, parallel context gathering, prompt
// assembly, streaming generation, post-stream validation, and finalization,
// per spec.md §4.8.
package router

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/basui01/promptgate/api"
	"github.com/basui01/promptgate/contextstore"
	"github.com/basui01/promptgate/internal/accounting"
	"github.com/basui01/promptgate/internal/tokenizer"
	"github.com/basui01/promptgate/llm"
	"github.com/basui01/promptgate/relevance"
	"github.com/basui01/promptgate/scoring"
	"github.com/basui01/promptgate/strategy"
	"github.com/basui01/promptgate/types"
	"github.com/basui01/promptgate/websearch"
)

// sourceThreshold is the fixed relevance-score cutoff of spec.md §4.8 Phase
// 3 above which a source is fetched.
const sourceThreshold = 0.6

// emitFunc delivers one SSE event to whatever is consuming the pipeline. It
// returns false if the consumer is gone (request context cancelled), which
// callers treat as a cue to stop producing further events.
type emitFunc func(context.Context, SSEEvent) bool

// Core wires together every other subsystem into the enhancement pipeline.
// It holds no per-request state; all of it is owned by a pipeline run via
// the unexported process method.
type Core struct {
	planner       *relevance.Planner
	accountingCli *accounting.Client
	webSearch     *websearch.Client
	strategies    *strategy.Store
	contexts      *contextstore.Store
	scorer        *scoring.Engine
	fallback      *llm.FallbackEngine
	logger        *zap.Logger

	perCallTokenCost int
	maxChunks        int
	maxRetries       int
	contextTopK      int
}

// New builds a Core from its fully-constructed dependencies. A nil
// *accounting.Client, *websearch.Client, *strategy.Store, or
// *contextstore.Store is valid and simply means that source is always
// absent — RouterCore degrades gracefully rather than failing to start.
func New(
	planner *relevance.Planner,
	accountingCli *accounting.Client,
	webSearch *websearch.Client,
	strategies *strategy.Store,
	contexts *contextstore.Store,
	scorer *scoring.Engine,
	fallback *llm.FallbackEngine,
	logger *zap.Logger,
) *Core {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Core{
		planner:          planner,
		accountingCli:    accountingCli,
		webSearch:        webSearch,
		strategies:       strategies,
		contexts:         contexts,
		scorer:           scorer,
		fallback:         fallback,
		logger:           logger,
		perCallTokenCost: 500,
		maxChunks:        4096,
		maxRetries:       2,
		contextTopK:      3,
	}
}

// Enhance runs the full pipeline as a streaming generator, returning a
// channel of SSEEvent values the HTTP layer pulls from and writes out (see
// WriteSSE). The channel is closed once a terminal `complete` or `error`
// event has been sent, or the context is cancelled mid-stream.
func (c *Core) Enhance(ctx context.Context, req *api.EnhancementRequest, requestID string) <-chan SSEEvent {
	out := make(chan SSEEvent)
	emit := func(ctx context.Context, ev SSEEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	go func() {
		defer close(out)
		c.process(ctx, req, requestID, emit, true)
	}()
	return out
}

// EnhanceSync runs the same pipeline without emitting SSE events, for the
// non-streaming /enhance handler. Phase 6's re-enhancement retries only ever run on
// this path, per spec.md §4.8 Phase 6.
func (c *Core) EnhanceSync(ctx context.Context, req *api.EnhancementRequest, requestID string) (*api.EnhancedPromptResult, error) {
	noop := func(context.Context, SSEEvent) bool { return true }
	return c.process(ctx, req, requestID, noop, false)
}

// process is the 9-phase pipeline itself, shared by the streaming and
// non-streaming entry points. streaming controls whether content deltas
// and status/complete/error events are actually emitted — the phase logic
// (including which path Phase 6 retries take) is identical either way.
func (c *Core) process(ctx context.Context, req *api.EnhancementRequest, requestID string, emit emitFunc, streaming bool) (*api.EnhancedPromptResult, error) {
	phaseTimes := map[string]int64{}
	overallStart := time.Now()

	// Phase 0 — parse & validate.
	if verr := validateRequest(req); verr != nil {
		emit(ctx, newErrorEvent(requestID, verr))
		return nil, verr
	}
	emit(ctx, newStatusEvent("initializing", "validating request"))

	// Phase 1 — relevance planning.
	phaseStart := time.Now()
	sources := c.buildSourceCatalog(req)
	report := c.plan(ctx, req.Prompt, sources)
	phaseTimes["relevance_planning_ms"] = time.Since(phaseStart).Milliseconds()
	emit(ctx, newStatusEvent("analyzing", "overall strategy: "+string(report.OverallStrategy)))

	// Phase 2 — token accounting precheck.
	if c.accountingCli != nil && req.UserID != "" && req.UserID != accounting.FreeTrialUserID {
		if err := c.accountingCli.Precheck(ctx, req.UserID, c.perCallTokenCost); err != nil {
			emit(ctx, newErrorEvent(requestID, err))
			return nil, err
		}
	}

	// Phase 3 — parallel context gathering.
	phaseStart = time.Now()
	gathered := c.gatherContext(ctx, req, report)
	phaseTimes["context_gathering_ms"] = time.Since(phaseStart).Milliseconds()
	emit(ctx, newStatusEvent("processing", "context gathering complete"))

	// Phase 4 — prompt assembly.
	limit, hasLimit := hardCharLimit(req.Context)
	if !hasLimit {
		limit = 0
	}
	systemMsg := buildSystemMessage(gathered, req.Settings, limit)
	userMsg := buildUserMessage(req.Prompt, gathered, req.WritingStyle)

	// Phase 5 — streaming generation.
	emit(ctx, newStatusEvent("enhancing", "generating response"))
	phaseStart = time.Now()
	enhancedText, provider, err := c.generate(ctx, requestID, req, systemMsg, userMsg, emit, streaming)
	phaseTimes["generation_ms"] = time.Since(phaseStart).Milliseconds()
	if err != nil {
		emit(ctx, newErrorEvent(requestID, err))
		return nil, err
	}
	if ctx.Err() != nil {
		// Phase 8 — client disconnected mid-stream: no further events, no
		// finalization side-effects.
		return nil, ctx.Err()
	}

	// Phase 6 — post-stream validation & retry (non-streaming path only).
	violations := validateOutput(enhancedText, req.Settings)
	if len(violations) > 0 {
		if streaming {
			c.logger.Warn("enhanced output violated settings constraints",
				zap.Strings("violations", violations), zap.String("request_id", requestID))
		} else {
			enhancedText = c.retryUntilValid(ctx, provider, systemMsg, userMsg, req.Settings, enhancedText, violations)
		}
	}

	// Phase 7 — finalization.
	phaseTimes["total_ms"] = time.Since(overallStart).Milliseconds()
	result := c.finalize(req, requestID, report, gathered, provider, enhancedText, limit, hasLimit, phaseTimes)
	emit(ctx, newCompleteEvent(*result))

	if c.accountingCli != nil && req.UserID != "" && req.UserID != accounting.FreeTrialUserID {
		tokens := tokenizer.Count(enhancedText)
		c.accountingCli.Deduct(req.UserID, tokens)
		result.Metadata.TokensDeducted = tokens
	}
	return result, nil
}

func (c *Core) buildSourceCatalog(req *api.EnhancementRequest) []relevance.Source {
	sources := []relevance.Source{
		{Name: "web_context", Description: "live web search results relevant to the prompt"},
		{Name: "strategy", Description: "a pre-indexed prompt-engineering strategy for the target domain and provider"},
		{Name: "chat_history", Description: "prior conversation turns relevant to this prompt"},
	}
	if req.ContextID != "" {
		sources = append(sources, relevance.Source{
			Name:        "document_context",
			Description: "the user's uploaded document or image, retrieved by similarity to the prompt",
		})
	}
	return sources
}

func (c *Core) plan(ctx context.Context, prompt string, sources []relevance.Source) relevance.Report {
	if c.planner == nil {
		return relevance.Report{}
	}
	return c.planner.Plan(ctx, prompt, sources)
}

// gatherContext implements Phase 3: every source whose relevance score
// clears sourceThreshold is fetched concurrently; document_context is
// always fetched when context_id is present regardless of score. A single
// failed source never aborts the others.
func (c *Core) gatherContext(ctx context.Context, req *api.EnhancementRequest, report relevance.Report) map[string]string {
	gathered := make(map[string]string)
	var mu sync.Mutex
	set := func(name, text string) {
		if text == "" {
			return
		}
		mu.Lock()
		gathered[name] = text
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	relevant := func(name string) bool {
		return report.Scores[name] > sourceThreshold
	}

	if c.webSearch != nil && relevant("web_context") {
		g.Go(func() error {
			results := c.webSearch.Search(gctx, req.Prompt, websearch.SearchTypeWeb, 5)
			set("web_context", websearch.FormatBlock(results))
			return nil
		})
	}

	if c.strategies != nil && relevant("strategy") {
		g.Go(func() error {
			target := types.ProviderID(req.LLM)
			set("strategy", c.strategies.Query(gctx, target, req.Domain, req.Prompt))
			return nil
		})
	}

	if relevant("chat_history") {
		g.Go(func() error {
			set("chat_history", req.Context["chat_history"])
			return nil
		})
	}

	if c.contexts != nil && req.ContextID != "" {
		g.Go(func() error {
			set("document_context", c.fetchDocumentContext(gctx, req.ContextID, req.Prompt))
			return nil
		})
	}

	_ = g.Wait()
	return gathered
}

// fetchDocumentContext retrieves the most relevant chunks for a prompt from
// an uploaded ContextID, falling back to the entry's first chunk if
// retrieval fails — "the upload is not ignored", per spec.md §4.8 Phase 3.
func (c *Core) fetchDocumentContext(ctx context.Context, contextID, prompt string) string {
	chunks, err := c.contexts.Retrieve(ctx, contextID, prompt, c.contextTopK)
	if err != nil || len(chunks) == 0 {
		entry, ok := c.contexts.Get(contextID)
		if !ok || len(entry.Chunks) == 0 {
			return ""
		}
		return entry.Chunks[0]
	}
	var sb strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(chunk.Text)
	}
	return sb.String()
}

// generate implements Phase 5: stream from the selected provider, strip
// backend brand names from every chunk, forward content events when
// streaming is requested, and enforce the chunk-count safety cap.
func (c *Core) generate(
	ctx context.Context,
	requestID string,
	req *api.EnhancementRequest,
	systemMsg, userMsg string,
	emit emitFunc,
	streaming bool,
) (string, types.ProviderID, error) {
	chatReq := &llm.ChatRequest{
		TraceID: requestID,
		UserID:  req.UserID,
		Messages: []llm.Message{
			{Role: types.RoleSystem, Content: systemMsg},
			{Role: types.RoleUser, Content: userMsg},
		},
	}

	hint := types.ProviderID(req.LLM)
	stream, provider, err := c.fallback.StreamWithHint(ctx, hint, chatReq)
	if err != nil {
		return "", "", err
	}

	var buf strings.Builder
	count := 0
	for chunk := range stream {
		count++
		if count > c.maxChunks {
			c.logger.Warn("stream chunk safety cap reached", zap.Int("cap", c.maxChunks), zap.String("request_id", requestID))
			break
		}
		if chunk.Err != nil {
			return "", provider, chunk.Err
		}
		clean := stripBrandNames(chunk.Delta.Content)
		buf.WriteString(clean)
		if streaming {
			if !emit(ctx, newContentEvent(clean)) {
				return buf.String(), provider, nil
			}
		}
	}
	return buf.String(), provider, nil
}

// retryUntilValid implements Phase 6's non-streaming retry loop: up to
// maxRetries re-enhancement attempts with a progressively strengthened
// system message. A retry that itself fails (e.g. provider cooldown)
// simply stops the loop and keeps the most recent text produced so far
// (each successful retry replaces it, whether or not it validates better).
func (c *Core) retryUntilValid(
	ctx context.Context,
	provider types.ProviderID,
	systemMsg, userMsg string,
	settings api.Settings,
	best string,
	violations []string,
) string {
	for attempt := 1; attempt <= c.maxRetries && len(violations) > 0; attempt++ {
		retryReq := &llm.ChatRequest{
			Messages: []llm.Message{
				{Role: types.RoleSystem, Content: strengthenSystemMessage(systemMsg, attempt)},
				{Role: types.RoleUser, Content: userMsg},
			},
		}
		resp, err := c.fallback.InvokeProvider(ctx, provider, retryReq)
		if err != nil || len(resp.Choices) == 0 {
			break
		}
		candidate := stripBrandNames(resp.Choices[0].Message.Content)
		best = candidate
		violations = validateOutput(candidate, settings)
	}
	return best
}

func (c *Core) finalize(
	req *api.EnhancementRequest,
	requestID string,
	report relevance.Report,
	gathered map[string]string,
	provider types.ProviderID,
	enhancedText string,
	hardLimit int,
	hasHardLimit bool,
	phaseTimes map[string]int64,
) *api.EnhancedPromptResult {
	domain := req.Domain
	if domain == "" {
		domain = string(scoring.ClassifyTask(req.Prompt))
	}

	var compliant *bool
	charCount := len(enhancedText)
	if hasHardLimit {
		ok := charCount <= hardLimit
		compliant = &ok
	}

	return &api.EnhancedPromptResult{
		EnhancedPrompt:    enhancedText,
		SuggestedLLM:      string(provider),
		Domain:            domain,
		RelevanceAnalysis: report,
		Metadata: api.EnhancedPromptResultMetadata{
			ProcessingTimeMS:    phaseTimes,
			EnhancementMethod:   string(report.OverallStrategy),
			StrategySource:      strategySourceLabel(gathered),
			SettingsApplied:     settingsApplied(req.Settings),
			HardLimitCompliant:  compliant,
			CharacterCount:      charCount,
			DocumentContextUsed: gathered["document_context"] != "",
		},
	}
}

func strategySourceLabel(gathered map[string]string) string {
	if gathered["strategy"] != "" {
		return "strategy_store"
	}
	if gathered["document_context"] != "" || gathered["web_context"] != "" {
		return "context_enriched"
	}
	return "standard"
}

func settingsApplied(settings api.Settings) []string {
	var applied []string
	if settings.WordCount > 0 {
		applied = append(applied, "word_count")
	}
	if settings.Language != "" {
		applied = append(applied, "language")
	}
	if settings.ComplexityLevel != "" {
		applied = append(applied, "complexity_level")
	}
	if settings.OutputFormat != "" {
		applied = append(applied, "output_format")
	}
	if settings.CustomInstructions != "" {
		applied = append(applied, "custom_instructions")
	}
	if settings.Template != "" {
		applied = append(applied, "template")
	}
	return applied
}
