// Package llm provides the provider abstraction, API key rotation, and the
// fallback engine that routes chat requests across the gateway's four
// configured LLM backends.
package llm

import (
	"context"
	"time"

	"github.com/basui01/promptgate/types"
)

// Re-exported core types, so callers only need to import llm for chat-level
// work and types for the data model shared with the rest of the gateway.
type (
	Message      = types.Message
	Role         = types.Role
	TokenUsage   = types.TokenUsage
	Error        = types.Error
	ErrorCode    = types.ErrorCode
	ErrorKind    = types.ErrorKind
	ImageContent = types.ImageContent
	ProviderID   = types.ProviderID
)

const (
	RoleSystem    = types.RoleSystem
	RoleUser      = types.RoleUser
	RoleAssistant = types.RoleAssistant
	RoleTool      = types.RoleTool
)

const (
	ErrInvalidRequest      = types.ErrInvalidRequest
	ErrAuthentication      = types.ErrAuthentication
	ErrUnauthorized        = types.ErrUnauthorized
	ErrForbidden           = types.ErrForbidden
	ErrRateLimit           = types.ErrRateLimit
	ErrRateLimited         = types.ErrRateLimited
	ErrQuotaExceeded       = types.ErrQuotaExceeded
	ErrModelNotFound       = types.ErrModelNotFound
	ErrModelOverloaded     = types.ErrModelOverloaded
	ErrContextTooLong      = types.ErrContextTooLong
	ErrContentFiltered     = types.ErrContentFiltered
	ErrUpstreamError       = types.ErrUpstreamError
	ErrUpstreamTimeout     = types.ErrUpstreamTimeout
	ErrTimeout             = types.ErrTimeout
	ErrInternalError       = types.ErrInternalError
	ErrServiceUnavailable  = types.ErrServiceUnavailable
	ErrProviderUnavailable = types.ErrProviderUnavailable
	ErrProviderExhausted   = types.ErrProviderExhausted
)

// ProviderClient is the uniform adapter every concrete backend (claude,
// gemini, deepseek, qwen) implements. FallbackEngine only ever talks to
// this interface; it never knows which vendor it is calling.
type ProviderClient interface {
	// Invoke sends a synchronous chat request and waits for the full
	// response.
	Invoke(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Stream sends a chat request and returns a channel of incremental
	// chunks. The channel is closed when the stream ends, whether
	// successfully or with an error delivered on the final chunk's Err
	// field.
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)

	// HealthCheck performs a lightweight upstream health probe.
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// Name returns the provider's identity, e.g. "claude".
	Name() string

	// ProviderID returns the closed-set identity (A/B/C/D) this client
	// answers for.
	ProviderID() ProviderID

	// ListModels returns the models available from this provider.
	ListModels(ctx context.Context) ([]Model, error)
}

// HealthStatus represents a provider health check result.
type HealthStatus struct {
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
	ErrorRate float64       `json:"error_rate"`
}

// ChatRequest represents a chat completion request sent to a ProviderClient.
type ChatRequest struct {
	TraceID     string            `json:"trace_id"`
	UserID      string            `json:"user_id,omitempty"`
	Model       string            `json:"model"`
	Messages    []Message         `json:"messages"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature float32           `json:"temperature,omitempty"`
	TopP        float32           `json:"top_p,omitempty"`
	Stop        []string          `json:"stop,omitempty"`
	Timeout     time.Duration     `json:"timeout,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`

	// APIKey is the key FallbackEngine selected from the provider's
	// KeyRotator for this attempt. Never logged or serialized.
	APIKey string `json:"-"`
}

// ChatResponse represents a chat completion response.
type ChatResponse struct {
	ID        string       `json:"id,omitempty"`
	Provider  string       `json:"provider,omitempty"`
	Model     string       `json:"model"`
	Choices   []ChatChoice `json:"choices"`
	Usage     ChatUsage    `json:"usage"`
	CreatedAt time.Time    `json:"created_at"`
}

// ChatChoice represents a single choice in the response.
type ChatChoice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason,omitempty"`
	Message      Message `json:"message"`
}

// ChatUsage represents token usage in a response.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk represents a streaming response chunk.
type StreamChunk struct {
	ID           string     `json:"id,omitempty"`
	Provider     string     `json:"provider,omitempty"`
	Model        string     `json:"model,omitempty"`
	Index        int        `json:"index,omitempty"`
	Delta        Message    `json:"delta"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *ChatUsage `json:"usage,omitempty"`
	Err          *Error     `json:"error,omitempty"`
}

// Model represents a model available from a provider.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}
