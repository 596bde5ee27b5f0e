package qwen

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

// TestInvoke_MessageConversion validates that llm.Message slices are
// translated into the OpenAI-compatible wire format DashScope expects,
// preserving role and content across system/user/assistant turns.
func TestInvoke_MessageConversion(t *testing.T) {
	testCases := []struct {
		name     string
		messages []llm.Message
	}{
		{
			name:     "simple user message",
			messages: []llm.Message{{Role: llm.RoleUser, Content: "Hello"}},
		},
		{
			name: "system and user messages",
			messages: []llm.Message{
				{Role: llm.RoleSystem, Content: "You are a helpful assistant"},
				{Role: llm.RoleUser, Content: "Hello"},
			},
		},
		{
			name: "multi-turn conversation",
			messages: []llm.Message{
				{Role: llm.RoleUser, Content: "What's the weather?"},
				{Role: llm.RoleAssistant, Content: "Which city?"},
				{Role: llm.RoleUser, Content: "Beijing"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var captured openAIRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&captured)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(openAIResponse{
					ID:    "test-id",
					Model: "qwen-plus",
					Choices: []openAIChoice{
						{Index: 0, FinishReason: "stop", Message: openAIMessage{Role: "assistant", Content: "test response"}},
					},
				})
			}))
			defer server.Close()

			cfg := providers.QwenConfig{APIKey: "test-key", BaseURL: server.URL}
			client := New(cfg, zap.NewNop())

			req := &llm.ChatRequest{Messages: tc.messages}
			_, err := client.Invoke(context.Background(), req)
			assert.NoError(t, err)

			assert.Equal(t, len(tc.messages), len(captured.Messages))
			for i, msg := range tc.messages {
				assert.Equal(t, string(msg.Role), captured.Messages[i].Role)
				assert.Equal(t, msg.Content, captured.Messages[i].Content)
			}
		})
	}
}

func TestInvoke_ModelPriority(t *testing.T) {
	var captured openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAIResponse{ID: "id", Model: "qwen-plus", Choices: []openAIChoice{{Message: openAIMessage{Role: "assistant", Content: "ok"}}}})
	}))
	defer server.Close()

	client := New(providers.QwenConfig{APIKey: "key", BaseURL: server.URL, Model: "qwen-max"}, zap.NewNop())
	_, err := client.Invoke(context.Background(), &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, Model: "qwen-turbo"})
	assert.NoError(t, err)
	assert.Equal(t, "qwen-turbo", captured.Model)
}

func TestInvoke_MapsUpstreamErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(openAIErrorResp{})
	}))
	defer server.Close()

	client := New(providers.QwenConfig{APIKey: "key", BaseURL: server.URL}, zap.NewNop())
	_, err := client.Invoke(context.Background(), &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}})
	assert.Error(t, err)

	var typedErr *llm.Error
	assert.ErrorAs(t, err, &typedErr)
	assert.Equal(t, llm.ErrRateLimited, typedErr.Code)
	assert.True(t, typedErr.Retryable)
}

func TestName_ProviderID(t *testing.T) {
	client := New(providers.QwenConfig{APIKey: "key"}, zap.NewNop())
	assert.Equal(t, "qwen", client.Name())
	assert.Equal(t, llm.ProviderID("D"), client.ProviderID())
}
