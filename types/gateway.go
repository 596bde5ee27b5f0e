package types

import "time"

// ProviderID identifies one of the gateway's four configured LLM backends.
// The set is closed: a fifth value is never introduced without a matching
// ProviderClient implementation.
type ProviderID string

const (
	ProviderA ProviderID = "A" // claude
	ProviderB ProviderID = "B" // gemini
	ProviderC ProviderID = "C" // deepseek
	ProviderD ProviderID = "D" // qwen
)

// AllProviderIDs returns the closed set in fixed preference order.
func AllProviderIDs() []ProviderID {
	return []ProviderID{ProviderA, ProviderB, ProviderC, ProviderD}
}

// Valid reports whether p is one of the four known provider identities.
func (p ProviderID) Valid() bool {
	switch p {
	case ProviderA, ProviderB, ProviderC, ProviderD:
		return true
	default:
		return false
	}
}

// ProviderConfig is the static, YAML-loaded configuration for one provider
// slot. It never changes at runtime; rotation and health state live
// separately in llm.ProviderState.
type ProviderConfig struct {
	Provider      ProviderID    `yaml:"provider" json:"provider"`
	ModelName     string        `yaml:"model_name" json:"model_name"`
	APIKeys       []string      `yaml:"api_keys" json:"api_keys"`
	Temperature   float64       `yaml:"temperature" json:"temperature"`
	MaxTokens     int           `yaml:"max_tokens" json:"max_tokens"`
	TimeoutMS     int           `yaml:"timeout_ms" json:"timeout_ms"`
	RetryAttempts int           `yaml:"retry_attempts" json:"retry_attempts"`
	CooldownMS    int           `yaml:"cooldown_ms" json:"cooldown_ms"`
	BaseURL       string        `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// Timeout returns the configured per-call timeout as a time.Duration.
func (c ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Cooldown returns the configured base cooldown as a time.Duration.
func (c ProviderConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMS) * time.Millisecond
}

// ErrorKind is a closed classification of provider call failures, used by
// FallbackEngine to decide whether a failure is terminal-for-call,
// retryable, or cooldown-triggering, independent of any one provider's own
// status code vocabulary.
type ErrorKind string

const (
	ErrorKindAPIKey        ErrorKind = "api_key"
	ErrorKindTimeout       ErrorKind = "timeout"
	ErrorKindConnection    ErrorKind = "connection"
	ErrorKindRateLimit     ErrorKind = "rate_limit"
	ErrorKindContentPolicy ErrorKind = "content_policy"
	ErrorKindValidation    ErrorKind = "validation"
	ErrorKindModel         ErrorKind = "model"
	ErrorKindInternal      ErrorKind = "internal"
	ErrorKindUnknown       ErrorKind = "unknown"
)

// RecoveryHint describes, in one short phrase, what the caller should do
// in response to an error of this kind.
func (k ErrorKind) RecoveryHint() string {
	switch k {
	case ErrorKindAPIKey:
		return "rotate to the next API key"
	case ErrorKindTimeout:
		return "retry with backoff or fail over to the next provider"
	case ErrorKindConnection:
		return "retry with backoff"
	case ErrorKindRateLimit:
		return "rotate API key and back off"
	case ErrorKindContentPolicy:
		return "do not retry; surface to caller"
	case ErrorKindValidation:
		return "do not retry; fix the request"
	case ErrorKindModel:
		return "do not retry on this provider; try a different one"
	case ErrorKindInternal:
		return "retry once, then fail over"
	default:
		return "fail over to the next provider"
	}
}

// Terminal reports whether this error kind should end the current call
// attempt immediately (no further retries against the same provider) rather
// than being retried in place.
func (k ErrorKind) Terminal() bool {
	switch k {
	case ErrorKindAPIKey, ErrorKindContentPolicy, ErrorKindRateLimit, ErrorKindModel, ErrorKindValidation:
		return true
	default:
		return false
	}
}
