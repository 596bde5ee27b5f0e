package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/basui01/promptgate/api"
	"github.com/basui01/promptgate/llm"
	"github.com/basui01/promptgate/router"
	"github.com/basui01/promptgate/types"
)

type enhanceStubClient struct {
	id     types.ProviderID
	chunks []string
}

func (s *enhanceStubClient) Invoke(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Choices: []llm.ChatChoice{{Message: llm.Message{Content: strings.Join(s.chunks, "")}}}}, nil
}

func (s *enhanceStubClient) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk, len(s.chunks))
	for _, c := range s.chunks {
		ch <- llm.StreamChunk{Delta: llm.Message{Content: c}}
	}
	close(ch)
	return ch, nil
}

func (s *enhanceStubClient) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) { return nil, nil }
func (s *enhanceStubClient) Name() string                                              { return string(s.id) }
func (s *enhanceStubClient) ProviderID() llm.ProviderID                                { return s.id }
func (s *enhanceStubClient) ListModels(ctx context.Context) ([]llm.Model, error)        { return nil, nil }

func newEnhanceHandler(t *testing.T) *EnhanceHandler {
	t.Helper()
	client := &enhanceStubClient{id: types.ProviderA, chunks: []string{"an enhanced answer"}}
	engine, err := llm.NewFallbackEngine(
		[]types.ProviderConfig{{
			Provider:      types.ProviderA,
			ModelName:     "test-model",
			APIKeys:       []string{"key"},
			TimeoutMS:     1000,
			RetryAttempts: 0,
			CooldownMS:    1000,
		}},
		map[types.ProviderID]llm.ProviderClient{types.ProviderA: client},
		zap.NewNop(),
	)
	require.NoError(t, err)
	core := router.New(nil, nil, nil, nil, nil, nil, engine, zap.NewNop())
	return NewEnhanceHandler(core, zap.NewNop())
}

func TestEnhanceHandler_HandleSync_ReturnsEnhancedPrompt(t *testing.T) {
	h := newEnhanceHandler(t)
	body, _ := json.Marshal(api.EnhancementRequest{Prompt: "explain recursion"})
	req := httptest.NewRequest(http.MethodPost, "/enhance", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleSync(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestEnhanceHandler_HandleSync_RejectsEmptyPrompt(t *testing.T) {
	h := newEnhanceHandler(t)
	body, _ := json.Marshal(api.EnhancementRequest{Prompt: "   "})
	req := httptest.NewRequest(http.MethodPost, "/enhance", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleSync(w, req)

	assert.NotEqual(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
}

func TestEnhanceHandler_HandleStream_EmitsSSEEvents(t *testing.T) {
	h := newEnhanceHandler(t)
	body, _ := json.Marshal(api.EnhancementRequest{Prompt: "explain recursion"})
	req := httptest.NewRequest(http.MethodPost, "/enhance/stream", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleStream(w, req)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	scanner := bufio.NewScanner(w.Body)
	var dataLines []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		}
	}
	require.NotEmpty(t, dataLines)

	var sawComplete bool
	for _, line := range dataLines {
		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &payload))
		if payload["type"] == "complete" {
			sawComplete = true
		}
	}
	assert.True(t, sawComplete)
}
