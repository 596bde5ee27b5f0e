// Package websearch adapts an external web search provider into the
// single-string-block format RouterCore assembles into its prompt.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SearchType selects the kind of search to perform; "web" is the only
// type the gateway currently exercises.
type SearchType string

const SearchTypeWeb SearchType = "web"

// Result is one search hit.
type Result struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// Client is a thin HTTP adapter over an external search API. Errors
// degrade to an empty result set; callers never see transport failures.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// New builds a websearch Client. timeout bounds every search call per
// spec.md's "single-digit seconds" budget.
func New(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: &http.Client{Timeout: timeout}, logger: logger}
}

type searchRequest struct {
	Query string     `json:"query"`
	Type  SearchType `json:"type"`
	TopK  int        `json:"top_k"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Search returns up to topK results for query. Any transport, status, or
// decode error is logged and an empty slice is returned — the caller's
// pipeline continues with the source simply absent, per spec.md §4.6.
func (c *Client) Search(ctx context.Context, query string, searchType SearchType, topK int) []Result {
	if c.baseURL == "" {
		return nil
	}
	body, err := json.Marshal(searchRequest{Query: query, Type: searchType, TopK: topK})
	if err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("web search request failed, degrading to empty context", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.logger.Warn("web search returned error status, degrading to empty context", zap.Int("status", resp.StatusCode))
		return nil
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		c.logger.Warn("web search response decode failed, degrading to empty context", zap.Error(err))
		return nil
	}
	return sr.Results
}

// FormatBlock concatenates results into the single string block RouterCore
// appends to its assembled prompt: "--- Source: {source} ---\n{content}"
// per result, joined with blank lines.
func FormatBlock(results []Result) string {
	var buf bytes.Buffer
	for i, r := range results {
		if i > 0 {
			buf.WriteString("\n\n")
		}
		source := r.Metadata["source"]
		if source == "" {
			source = "unknown"
		}
		fmt.Fprintf(&buf, "--- Source: %s ---\n%s", source, r.Content)
	}
	return buf.String()
}
