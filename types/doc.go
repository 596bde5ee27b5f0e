// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types provides the gateway's shared type definitions. It has zero
dependencies on other promptgate packages, so every other package can
import it without risking an import cycle.

# Core types

  - ProviderID / ProviderConfig — the closed four-provider set (A/B/C/D,
    mapped to claude/gemini/deepseek/qwen) and each one's fallback-chain
    settings
  - Message / Role / ToolCall / ImageContent — the conversation wire shape
    ProviderClient implementations exchange
  - Error / ErrorCode / ErrorKind — structured errors with HTTP status,
    retryability, and a recovery hint, shared by the HTTP layer and the
    fallback engine
  - TokenUsage — per-call prompt/completion/cost accounting

# Context propagation

WithTraceID / WithTenantID / WithUserID / WithRunID / WithLLMModel /
WithPromptBundleVersion attach request-scoped identifiers; their matching
accessors (TraceID, TenantID, ...) read them back.

# Error construction

	err := types.NewError(types.ErrRateLimit, "quota exceeded").
	    WithHTTPStatus(http.StatusTooManyRequests).
	    WithRetryable(true)

IsRetryable and GetErrorCode inspect an arbitrary error by asserting it
directly to *types.Error; a *types.Error wrapped inside another error is not
found (both then report false / "").
*/
package types
