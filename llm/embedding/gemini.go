// Package embedding adapts Google's Gemini embedding API into the narrow
// Embedder contract contextstore and strategy depend on: one piece of text
// in, one dense vector out.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config configures the Gemini embedding provider.
type Config struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultConfig returns the default Gemini embedding configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		Model:   "gemini-embedding-001",
		Timeout: 30 * time.Second,
	}
}

// Provider embeds text via Gemini's :embedContent endpoint. It satisfies
// both contextstore.Embedder and strategy.Embedder.
type Provider struct {
	cfg    Config
	client *http.Client
}

// New creates a Gemini embedding provider, filling in defaults for any
// zero-valued config fields.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-embedding-001"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Provider{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

// Dimensions reports the vector width gemini-embedding-001 returns.
func (p *Provider) Dimensions() int { return 3072 }

type geminiEmbedRequest struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"taskType,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// Embed calls Gemini's embedContent endpoint for a single piece of text,
// tagged as RETRIEVAL_DOCUMENT — the task type contextstore and strategy
// both use since they embed content to be searched against later, not
// search queries themselves.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	body := geminiEmbedRequest{
		Model:    fmt.Sprintf("models/%s", p.cfg.Model),
		Content:  geminiContent{Parts: []geminiPart{{Text: text}}},
		TaskType: "RETRIEVAL_DOCUMENT",
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:embedContent", strings.TrimRight(p.cfg.BaseURL, "/"), p.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	// Gemini authenticates via a custom header, not a Bearer token.
	httpReq.Header.Set("x-goog-api-key", p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedding: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("embedding: gemini error: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var gResp geminiEmbedResponse
	if err := json.Unmarshal(respBody, &gResp); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(gResp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding: gemini returned no values")
	}
	return gResp.Embedding.Values, nil
}
