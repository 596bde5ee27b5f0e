package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basui01/promptgate/types"
)

// --- DefaultConfig aggregate ---

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotEqual(t, ServerConfig{}, cfg.Server)
	assert.NotEmpty(t, cfg.Providers)
	assert.NotEqual(t, EmbeddingConfig{}, cfg.Embedding)
	assert.NotEqual(t, ContextStoreConfig{}, cfg.ContextStore)
	assert.NotEqual(t, WebSearchConfig{}, cfg.WebSearch)
	assert.NotEqual(t, StrategyConfig{}, cfg.Strategy)
	assert.NotEqual(t, RateLimitConfig{}, cfg.RateLimit)
	assert.NotEqual(t, AccountingConfig{}, cfg.Accounting)
	assert.NotEqual(t, RelevanceConfig{}, cfg.Relevance)
	assert.NotEqual(t, LogConfig{}, cfg.Log)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
}

// --- Individual Default*Config functions ---

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9091, cfg.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
}

func TestDefaultProviders(t *testing.T) {
	providers := DefaultProviders()
	require.Len(t, providers, 4)

	ids := make(map[types.ProviderID]bool)
	for _, p := range providers {
		ids[p.Provider] = true
		assert.NotEmpty(t, p.ModelName)
		assert.Greater(t, p.TimeoutMS, 0)
		assert.Greater(t, p.CooldownMS, 0)
	}
	assert.True(t, ids[types.ProviderA])
	assert.True(t, ids[types.ProviderB])
	assert.True(t, ids[types.ProviderC])
	assert.True(t, ids[types.ProviderD])
}

func TestDefaultVendorConfig(t *testing.T) {
	cfg := DefaultVendorConfig()
	assert.NotEmpty(t, cfg.Claude.BaseURL)
	assert.NotEmpty(t, cfg.Gemini.BaseURL)
	assert.NotEmpty(t, cfg.DeepSeek.BaseURL)
	assert.NotEmpty(t, cfg.Qwen.BaseURL)
}

func TestDefaultEmbeddingConfig(t *testing.T) {
	cfg := DefaultEmbeddingConfig()
	assert.Equal(t, "gemini-embedding-001", cfg.Model)
	assert.NotEmpty(t, cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestDefaultContextStoreConfig(t *testing.T) {
	cfg := DefaultContextStoreConfig()
	assert.NotEmpty(t, cfg.SnapshotDir)
}

func TestDefaultWebSearchConfig(t *testing.T) {
	cfg := DefaultWebSearchConfig()
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestDefaultStrategyConfig(t *testing.T) {
	cfg := DefaultStrategyConfig()
	assert.Equal(t, 256, cfg.CacheSize)
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	assert.Equal(t, 100, cfg.Limit)
	assert.Equal(t, time.Minute, cfg.Window)
}

func TestDefaultAccountingConfig(t *testing.T) {
	cfg := DefaultAccountingConfig()
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestDefaultRelevanceConfig(t *testing.T) {
	cfg := DefaultRelevanceConfig()
	assert.Equal(t, types.ProviderA, cfg.Provider)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
	assert.True(t, cfg.EnableCaller)
	assert.False(t, cfg.EnableStacktrace)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "promptgate", cfg.ServiceName)
	assert.InDelta(t, 0.1, cfg.SampleRate, 0.001)
}
