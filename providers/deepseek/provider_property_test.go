package deepseek

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/basui01/promptgate/llm"
	"github.com/basui01/promptgate/providers"
)

// TestInvoke_APIKeyPriority validates that a per-request APIKey (set by
// FallbackEngine from the provider's KeyRotator) takes precedence over the
// provider's static config key.
func TestInvoke_APIKeyPriority(t *testing.T) {
	testCases := []struct {
		name           string
		configAPIKey   string
		requestAPIKey  string
		expectedAPIKey string
	}{
		{"request key overrides config", "config-key-123", "rotated-key-456", "rotated-key-456"},
		{"empty request key falls back to config", "config-key-123", "", "config-key-123"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var capturedAPIKey string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				authHeader := r.Header.Get("Authorization")
				if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
					capturedAPIKey = authHeader[7:]
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(openAIResponse{
					ID:    "test-id",
					Model: "deepseek-chat",
					Choices: []openAIChoice{
						{Index: 0, FinishReason: "stop", Message: openAIMessage{Role: "assistant", Content: "test response"}},
					},
				})
			}))
			defer server.Close()

			cfg := providers.DeepSeekConfig{APIKey: tc.configAPIKey, BaseURL: server.URL}
			client := New(cfg, zap.NewNop())

			req := &llm.ChatRequest{
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "test"}},
				APIKey:   tc.requestAPIKey,
			}

			_, err := client.Invoke(context.Background(), req)
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedAPIKey, capturedAPIKey)
		})
	}
}

func TestStream_APIKeyPriority(t *testing.T) {
	var capturedAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			capturedAPIKey = authHeader[7:]
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		data := openAIResponse{
			ID:    "test-id",
			Model: "deepseek-chat",
			Choices: []openAIChoice{
				{Index: 0, Delta: &openAIMessage{Role: "assistant", Content: "test"}},
			},
		}
		jsonData, _ := json.Marshal(data)
		w.Write([]byte("data: "))
		w.Write(jsonData)
		w.Write([]byte("\n\ndata: [DONE]\n\n"))
	}))
	defer server.Close()

	cfg := providers.DeepSeekConfig{APIKey: "config-key", BaseURL: server.URL}
	client := New(cfg, zap.NewNop())

	req := &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "test"}},
		APIKey:   "rotated-key",
	}

	ch, err := client.Stream(context.Background(), req)
	assert.NoError(t, err)

	for chunk := range ch {
		assert.Nil(t, chunk.Err)
	}
	assert.Equal(t, "rotated-key", capturedAPIKey)
}

func TestInvoke_MapsUpstreamErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(openAIErrorResp{})
	}))
	defer server.Close()

	client := New(providers.DeepSeekConfig{APIKey: "key", BaseURL: server.URL}, zap.NewNop())
	_, err := client.Invoke(context.Background(), &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}})
	assert.Error(t, err)

	var typedErr *llm.Error
	assert.ErrorAs(t, err, &typedErr)
	assert.Equal(t, llm.ErrUnauthorized, typedErr.Code)
}

func TestName_ProviderID(t *testing.T) {
	client := New(providers.DeepSeekConfig{APIKey: "key"}, zap.NewNop())
	assert.Equal(t, "deepseek", client.Name())
	assert.Equal(t, llm.ProviderID("C"), client.ProviderID())
}
