// Package api defines the gateway's HTTP wire types and OpenAPI annotations.
//
// # API Overview
//
// promptgate exposes a small REST surface for prompt enhancement:
//   - POST /enhance        — synchronous enhancement, single JSON response
//   - POST /enhance/stream — streaming enhancement over SSE
//   - GET  /health, /healthz, /ready, /readyz, /version — operational probes
//
// # Authentication
//
// Endpoints other than the health/version probes require a bearer API key:
//
//	Authorization: Bearer your-api-key
//
// # Generating Documentation
//
// Handler methods carry swag-compatible @Summary/@Router annotations. To
// regenerate the OpenAPI spec:
//
//	swag init -g cmd/gateway/main.go -o api --parseDependency --parseInternal
package api
