package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "embedContent")
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req geminiEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "RETRIEVAL_DOCUMENT", req.TaskType)
		assert.Equal(t, "hello", req.Content.Parts[0].Text)

		json.NewEncoder(w).Encode(geminiEmbedResponse{
			Embedding: struct {
				Values []float64 `json:"values"`
			}{Values: []float64{0.7, 0.8}},
		})
	}))
	defer srv.Close()

	p := New(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "gemini-embedding-001"})

	vec, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.7, 0.8}, vec)
}

func TestProvider_Embed_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"forbidden"}`))
	}))
	defer srv.Close()

	p := New(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Embed(context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestProvider_Embed_EmptyValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(geminiEmbedResponse{})
	}))
	defer srv.Close()

	p := New(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Embed(context.Background(), "test")
	require.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{APIKey: "k"})
	assert.Equal(t, "gemini-embedding-001", p.cfg.Model)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta", p.cfg.BaseURL)
	assert.Equal(t, 3072, p.Dimensions())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "gemini-embedding-001", cfg.Model)
	assert.NotEmpty(t, cfg.BaseURL)
}
