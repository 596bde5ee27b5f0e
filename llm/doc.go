// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package llm defines the ProviderClient contract every vendor adapter
implements, and FallbackEngine, which invokes the configured provider chain
in preference order with cooldown-aware failover.

# Provider Interface

	type ProviderClient interface {
	    Invoke(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	    Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)
	    HealthCheck(ctx context.Context) (*HealthStatus, error)
	    Name() string
	    ProviderID() ProviderID
	    ListModels(ctx context.Context) ([]Model, error)
	}

Concrete adapters for Claude, Gemini, DeepSeek, and Qwen live under the
top-level providers package, built via llm/factory.BuildClients from the
closed types.ProviderID set.

# Fallback

FallbackEngine tracks each provider's status (ready, cooldown, disabled)
and walks the configured chain on failure, skipping providers mid-cooldown:

	fallback, err := llm.NewFallbackEngine(cfg.Providers, clients, logger)
	resp, err := fallback.Invoke(ctx, &llm.ChatRequest{
	    Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hello!"}},
	})

Stream and StreamWithHint give the same failover behavior for streaming
responses.

# Key Rotation

KeyRotator round-robins a provider's configured API key pool so a single
rate-limited key doesn't stall the whole provider:

	rotator := llm.NewKeyRotatorFromConfig(providerConfig)
	key := rotator.Current()

# Error Classification

Classify maps a provider error (HTTP status, message, or wrapped error) to
a types.ErrorKind the fallback engine uses to decide whether to retry,
fail over, or surface the error as-is.

See the subpackages for additional functionality:
  - llm/factory: vendor client construction from VendorConfig
  - providers: per-vendor HTTP adapters (Claude, Gemini, DeepSeek, Qwen)
  - llm/embedding: Gemini embedding adapter for contextstore and strategy
  - llm/circuitbreaker: per-provider circuit breaker backing FallbackEngine
  - llm/tokenizer: per-model token counting (tiktoken and a CJK-aware estimator)
*/
package llm
