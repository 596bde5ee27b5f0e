// Package factory builds the gateway's four ProviderClients from static
// config. It imports all provider sub-packages so llm itself never needs
// to, avoiding the import cycle that would result if llm depended on its
// own implementations.
package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/basui01/promptgate/llm"
	"github.com/basui01/promptgate/providers"
	"github.com/basui01/promptgate/providers/claude"
	"github.com/basui01/promptgate/providers/deepseek"
	"github.com/basui01/promptgate/providers/gemini"
	"github.com/basui01/promptgate/providers/qwen"
	"github.com/basui01/promptgate/types"
)

// VendorConfig groups the per-vendor HTTP configuration for the gateway's
// four configured backends, keyed by the same ProviderID FallbackEngine
// expects of types.ProviderConfig.Provider.
type VendorConfig struct {
	Claude   providers.ClaudeConfig   `yaml:"claude" json:"claude"`
	Gemini   providers.GeminiConfig   `yaml:"gemini" json:"gemini"`
	DeepSeek providers.DeepSeekConfig `yaml:"deepseek" json:"deepseek"`
	Qwen     providers.QwenConfig     `yaml:"qwen" json:"qwen"`
}

// BuildClients constructs the concrete llm.ProviderClient for each of the
// gateway's four backends. Construction never fails on a missing API key;
// that surfaces only once a call is actually attempted against the
// provider and FallbackEngine moves it into cooldown.
func BuildClients(cfg VendorConfig, logger *zap.Logger) map[types.ProviderID]llm.ProviderClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return map[types.ProviderID]llm.ProviderClient{
		types.ProviderA: claude.New(cfg.Claude, logger),
		types.ProviderB: gemini.New(cfg.Gemini, logger),
		types.ProviderC: deepseek.New(cfg.DeepSeek, logger),
		types.ProviderD: qwen.New(cfg.Qwen, logger),
	}
}

// BuildClient constructs a single provider client by its ProviderID,
// useful for health-check tooling that targets one backend at a time.
func BuildClient(id types.ProviderID, cfg VendorConfig, logger *zap.Logger) (llm.ProviderClient, error) {
	clients := BuildClients(cfg, logger)
	c, ok := clients[id]
	if !ok {
		return nil, fmt.Errorf("factory: unknown provider id %q", id)
	}
	return c, nil
}
