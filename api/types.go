// Package api defines the gateway's HTTP request/response wire types.
package api

import (
	"time"

	"github.com/basui01/promptgate/relevance"
)

// =============================================================================
// Response Envelope
// =============================================================================

// Response is the canonical envelope every non-streaming handler writes.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// ErrorInfo is the error shape nested inside a failed Response.
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable,omitempty"`
	HTTPStatus int    `json:"http_status,omitempty"`
}

// =============================================================================
// Prompt Enhancement Types
// =============================================================================

// Settings carries the optional hard constraints an EnhancementRequest may
// impose on the final enhanced prompt. Each non-zero field becomes a CRITICAL
// imperative in the assembled system message.
type Settings struct {
	WordCount          int    `json:"word_count,omitempty"`
	Language           string `json:"language,omitempty"`
	ComplexityLevel    string `json:"complexity_level,omitempty"`
	OutputFormat       string `json:"output_format,omitempty"` // "plain" or "tabular"
	CustomInstructions string `json:"custom_instructions,omitempty"`
	Template           string `json:"template,omitempty"`
}

// EnhancementRequest is the POST /enhance (and /enhance/stream) request body.
type EnhancementRequest struct {
	Prompt            string            `json:"prompt" binding:"required"`
	ContextID         string            `json:"context_id,omitempty"`
	LLM               string            `json:"llm,omitempty"`
	Domain            string            `json:"domain,omitempty"`
	WritingStyle      string            `json:"writing_style,omitempty"`
	Intent            string            `json:"intent,omitempty"`
	IntentDescription string            `json:"intent_description,omitempty"`
	UserID            string            `json:"user_id,omitempty"`
	AuthToken         string            `json:"auth_token,omitempty"`
	Context           map[string]string `json:"context,omitempty"`
	Settings          Settings          `json:"settings,omitempty"`
}

// EnhancedPromptResultMetadata is the metadata block of EnhancedPromptResult.
type EnhancedPromptResultMetadata struct {
	ProcessingTimeMS    map[string]int64 `json:"processing_time_ms"`
	EnhancementMethod   string           `json:"enhancement_method"`
	StrategySource      string           `json:"strategy_source,omitempty"`
	SettingsApplied     []string         `json:"settings_applied,omitempty"`
	TokensDeducted      int              `json:"tokens_deducted,omitempty"`
	HardLimitCompliant  *bool            `json:"hard_limit_compliant,omitempty"`
	CharacterCount      int              `json:"character_count,omitempty"`
	DocumentContextUsed bool             `json:"document_context_used,omitempty"`
}

// EnhancedPromptResult is the terminal payload of /enhance/stream's `complete`
// event, and the full body of the non-streaming enhancement path.
type EnhancedPromptResult struct {
	EnhancedPrompt    string                       `json:"enhanced_prompt"`
	SuggestedLLM      string                       `json:"suggested_llm"`
	Domain            string                       `json:"domain"`
	RelevanceAnalysis relevance.Report             `json:"relevance_analysis"`
	Metadata          EnhancedPromptResultMetadata `json:"metadata"`
}
