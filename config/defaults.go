// =============================================================================
// 📦 promptgate 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/basui01/promptgate/llm/factory"
	"github.com/basui01/promptgate/providers"
	"github.com/basui01/promptgate/types"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:       DefaultServerConfig(),
		Providers:    DefaultProviders(),
		Vendors:      DefaultVendorConfig(),
		Embedding:    DefaultEmbeddingConfig(),
		ContextStore: DefaultContextStoreConfig(),
		WebSearch:    DefaultWebSearchConfig(),
		Strategy:     DefaultStrategyConfig(),
		RateLimit:    DefaultRateLimitConfig(),
		Accounting:   DefaultAccountingConfig(),
		Relevance:    DefaultRelevanceConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultProviders returns the four-provider fallback chain in the closed
// ProviderID preference order, each with conservative timeout/retry/cooldown
// values. API keys are always empty here — they arrive via env vars or the
// YAML file, never as defaults.
func DefaultProviders() []types.ProviderConfig {
	return []types.ProviderConfig{
		{Provider: types.ProviderA, ModelName: "claude-sonnet-4-5", Temperature: 0.7, MaxTokens: 4096, TimeoutMS: 30000, RetryAttempts: 2, CooldownMS: 10000},
		{Provider: types.ProviderB, ModelName: "gemini-2.5-pro", Temperature: 0.7, MaxTokens: 4096, TimeoutMS: 30000, RetryAttempts: 2, CooldownMS: 10000},
		{Provider: types.ProviderC, ModelName: "deepseek-chat", Temperature: 0.7, MaxTokens: 4096, TimeoutMS: 30000, RetryAttempts: 2, CooldownMS: 10000},
		{Provider: types.ProviderD, ModelName: "qwen-max", Temperature: 0.7, MaxTokens: 4096, TimeoutMS: 30000, RetryAttempts: 2, CooldownMS: 10000},
	}
}

// DefaultVendorConfig 返回默认的供应商 HTTP 客户端配置
func DefaultVendorConfig() factory.VendorConfig {
	return factory.VendorConfig{
		Claude:   providers.ClaudeConfig{BaseURL: "https://api.anthropic.com", Timeout: 30 * time.Second},
		Gemini:   providers.GeminiConfig{BaseURL: "https://generativelanguage.googleapis.com", Timeout: 30 * time.Second},
		DeepSeek: providers.DeepSeekConfig{BaseURL: "https://api.deepseek.com", Timeout: 30 * time.Second},
		Qwen:     providers.QwenConfig{BaseURL: "https://dashscope.aliyuncs.com", Timeout: 30 * time.Second},
	}
}

// DefaultEmbeddingConfig 返回默认嵌入模型配置
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		Model:   "gemini-embedding-001",
		Timeout: 30 * time.Second,
	}
}

// DefaultContextStoreConfig 返回默认上下文存储配置
func DefaultContextStoreConfig() ContextStoreConfig {
	return ContextStoreConfig{
		SnapshotDir: "./data/contextstore",
	}
}

// DefaultWebSearchConfig 返回默认网页搜索配置
func DefaultWebSearchConfig() WebSearchConfig {
	return WebSearchConfig{
		Timeout: 10 * time.Second,
	}
}

// DefaultStrategyConfig 返回默认策略缓存配置
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		CacheSize: 256,
	}
}

// DefaultRateLimitConfig 返回默认限流配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:  100,
		Window: time.Minute,
	}
}

// DefaultAccountingConfig 返回默认计费客户端配置
func DefaultAccountingConfig() AccountingConfig {
	return AccountingConfig{
		Timeout: 5 * time.Second,
	}
}

// DefaultRelevanceConfig 返回默认相关性规划配置
func DefaultRelevanceConfig() RelevanceConfig {
	return RelevanceConfig{
		Provider: types.ProviderA,
		Timeout:  10 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "promptgate",
		SampleRate:   0.1,
	}
}
