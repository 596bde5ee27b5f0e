// =============================================================================
// 📦 promptgate 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("PROMPTGATE").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/basui01/promptgate/llm/factory"
	"github.com/basui01/promptgate/types"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config is the gateway's full runtime configuration: the HTTP server, the
// four fallback-chain providers and their vendor HTTP settings, and every
// ambient subsystem (context store, web search, strategy cache, rate
// limiting, accounting, relevance planning, embeddings, logging, telemetry).
type Config struct {
	// Server is the gateway's own HTTP listener configuration.
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Providers lists the fallback-chain entries, in preference order. Each
	// entry's Provider field must be one of the closed types.ProviderID set.
	Providers []types.ProviderConfig `yaml:"providers" env:"-"`

	// Vendors holds the per-vendor HTTP client settings (API key, base URL,
	// model, timeout) factory.BuildClients uses to construct ProviderClients.
	Vendors factory.VendorConfig `yaml:"vendors" env:"VENDORS"`

	// Embedding configures the embedding provider backing the context store
	// and strategy cache's similarity search.
	Embedding EmbeddingConfig `yaml:"embedding" env:"EMBEDDING"`

	// ContextStore configures multimodal context ingestion.
	ContextStore ContextStoreConfig `yaml:"context_store" env:"CONTEXT_STORE"`

	// WebSearch configures the external web-search backend, queried when the
	// relevance planner scores the web_search source above the threshold.
	WebSearch WebSearchConfig `yaml:"web_search" env:"WEB_SEARCH"`

	// Strategy configures the static enhancement-strategy cache.
	Strategy StrategyConfig `yaml:"strategy" env:"STRATEGY"`

	// RateLimit configures the per-tenant sliding-window limiter.
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`

	// Accounting configures the token-balance precheck/deduct client.
	Accounting AccountingConfig `yaml:"accounting" env:"ACCOUNTING"`

	// Relevance configures the LLM-backed source-relevance planner.
	Relevance RelevanceConfig `yaml:"relevance" env:"RELEVANCE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// APIKeys lists the bearer keys BearerAuth accepts. Empty disables
	// authentication (local/dev deployments).
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`
	// CORSAllowedOrigins lists origins CORS responds to. Empty rejects all
	// cross-origin requests.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// EmbeddingConfig configures the Gemini embedding provider used to vectorize
// context-store chunks and strategy documents.
type EmbeddingConfig struct {
	APIKey  string        `yaml:"api_key" env:"API_KEY"`
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Model   string        `yaml:"model" env:"MODEL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// ContextStoreConfig configures contextstore.Store.
type ContextStoreConfig struct {
	// SnapshotDir is where entry snapshots are persisted for restart recovery.
	SnapshotDir string `yaml:"snapshot_dir" env:"SNAPSHOT_DIR"`
}

// WebSearchConfig configures websearch.Client.
type WebSearchConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	APIKey  string        `yaml:"api_key" env:"API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// StrategyConfig configures strategy.Store.
type StrategyConfig struct {
	// CacheSize bounds the number of scored lookups kept in the LRU cache.
	CacheSize int `yaml:"cache_size" env:"CACHE_SIZE"`
	// DocsPath points at a YAML file of strategy documents to embed and
	// index at startup. Empty means the store starts empty.
	DocsPath string `yaml:"docs_path" env:"DOCS_PATH"`
}

// RateLimitConfig configures internal/ratelimit.Limiter.
type RateLimitConfig struct {
	// Limit is the number of requests a tenant may make per Window.
	Limit int `yaml:"limit" env:"LIMIT"`
	// Window is the sliding-window duration Limit applies to.
	Window time.Duration `yaml:"window" env:"WINDOW"`
	// RedisAddr, if set, backs the limiter with a shared Redis counter
	// instead of the in-process fallback.
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`
}

// AccountingConfig configures internal/accounting.Client.
type AccountingConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// RelevanceConfig configures relevance.Planner.
type RelevanceConfig struct {
	// Provider selects which configured backend plans source relevance.
	Provider types.ProviderID `yaml:"provider" env:"PROVIDER"`
	Timeout  time.Duration    `yaml:"timeout" env:"TIMEOUT"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "PROMPTGATE",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}

	if len(c.Providers) == 0 {
		errs = append(errs, "at least one provider must be configured")
	}
	for _, p := range c.Providers {
		if !p.Provider.Valid() {
			errs = append(errs, fmt.Sprintf("unknown provider id %q", p.Provider))
		}
	}

	if c.RateLimit.Limit <= 0 {
		errs = append(errs, "rate_limit.limit must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
