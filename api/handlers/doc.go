// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers implements the gateway's HTTP endpoints: prompt
enhancement (sync and SSE streaming) and health checks. All handlers
follow the standard net/http interface and share a common response
envelope.

# Core types

  - EnhanceHandler  — prompt-enhancement endpoints, backed by router.Core
  - HealthHandler   — service health checks (/health, /healthz, /ready)
  - Response        — unified JSON response envelope (success + data + error + timestamp)
  - ErrorInfo       — structured error info with code, message, retryable flag
  - ResponseWriter  — wraps http.ResponseWriter to capture the status code
  - HealthCheck     — pluggable health check interface

# Shared helpers

  - WriteSuccess / WriteError / WriteJSON response helpers
  - DecodeJSONBody (1 MB limit, strict unknown-field rejection), ValidateContentType
  - ErrorCode -> HTTP status mapping (4xx/5xx)
  - RegisterCheck to add custom HealthCheck implementations
*/
package handlers
