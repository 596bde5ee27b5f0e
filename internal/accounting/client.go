// Package accounting adapts the external token-accounting webhook: a
// balance precheck (synchronous, fatal for paid users on failure) and a
// post-success deduction call (asynchronous, failure logged only).
package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// FreeTrialUserID is the sentinel user identity exempt from accounting,
// per spec.md §4.8 Phase 2: "If user_id is present and not the free-trial
// sentinel".
const FreeTrialUserID = "free-trial"

// ErrInsufficientBalance is returned by Precheck when the account holds
// fewer tokens than the requested cost.
var ErrInsufficientBalance = errors.New("accounting: insufficient token balance")

// Client is a thin HTTP adapter over the external accounting webhook. It
// performs no billing logic of its own — spec.md explicitly treats
// "external billing/token-deduction webhooks" as an out-of-scope external
// collaborator.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New builds a Client. An empty baseURL disables accounting entirely:
// Precheck always succeeds and Deduct is a no-op, matching deployments that
// don't meter usage.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}, logger: logger}
}

type precheckRequest struct {
	UserID string `json:"user_id"`
	Cost   int    `json:"cost"`
}

type precheckResponse struct {
	RemainingTokens int `json:"remaining_tokens"`
}

// Precheck fetches remaining balance for userID and compares it against
// cost. Per spec.md §4.8 Phase 2, accounting failures (transport, non-2xx,
// decode) are treated as fatal for paid users — this method never swallows
// an error the way WebSearch or StrategyStore do.
func (c *Client) Precheck(ctx context.Context, userID string, cost int) error {
	if c.baseURL == "" || userID == "" || userID == FreeTrialUserID {
		return nil
	}

	body, err := json.Marshal(precheckRequest{UserID: userID, Cost: cost})
	if err != nil {
		return fmt.Errorf("accounting: encoding precheck request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/precheck", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("accounting: building precheck request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("accounting: precheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("accounting: precheck returned status %d", resp.StatusCode)
	}

	var pr precheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return fmt.Errorf("accounting: decoding precheck response: %w", err)
	}
	if pr.RemainingTokens < cost {
		return ErrInsufficientBalance
	}
	return nil
}

type deductRequest struct {
	UserID string `json:"user_id"`
	Tokens int    `json:"tokens"`
}

// Deduct schedules an asynchronous deduction call for userID, per spec.md
// §4.8 Phase 7: "Schedule an asynchronous token-deduction call for paid
// users; its failure must not affect the client response." The caller's
// own context is deliberately not threaded through — the call must survive
// client disconnect/cancellation, so it gets a fresh background context
// bounded only by the client's own timeout.
func (c *Client) Deduct(userID string, tokens int) {
	if c.baseURL == "" || userID == "" || userID == FreeTrialUserID {
		return
	}

	go func() {
		body, err := json.Marshal(deductRequest{UserID: userID, Tokens: tokens})
		if err != nil {
			c.logger.Warn("accounting: encoding deduction request failed", zap.Error(err))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.http.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/deduct", bytes.NewReader(body))
		if err != nil {
			c.logger.Warn("accounting: building deduction request failed", zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Warn("accounting: deduction request failed, client unaffected", zap.String("user_id", userID), zap.Error(err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			c.logger.Warn("accounting: deduction returned error status, client unaffected",
				zap.String("user_id", userID), zap.Int("status", resp.StatusCode))
		}
	}()
}
