package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type quotaExceededBody struct {
	Error       string   `json:"error"`
	Message     string   `json:"message"`
	RetryAfter  int      `json:"retry_after"`
	Suggestions []string `json:"suggestions"`
}

// Middleware wraps an http.Handler with a per-identity quota check, writing
// a 429 with a Retry-After header and a JSON body carrying suggestions, per
// spec.md §5/§6's rate-limit contract.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := KeyFunc(r)
			decision := limiter.Allow(r.Context(), key)
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			retryAfterSeconds := int(decision.RetryAfter.Seconds())
			if retryAfterSeconds < 1 {
				retryAfterSeconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(quotaExceededBody{
				Error:      "rate_limit_exceeded",
				Message:    "too many requests, slow down",
				RetryAfter: retryAfterSeconds,
				Suggestions: []string{
					"wait before retrying",
					"batch multiple prompts into a single request where possible",
					"contact support to request a higher quota",
				},
			})
		})
	}
}
