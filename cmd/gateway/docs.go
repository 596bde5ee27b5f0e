package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/basui01/promptgate/config"
	"github.com/basui01/promptgate/strategy"
	"github.com/basui01/promptgate/types"
)

// strategyDocFile is the on-disk shape of a StrategyConfig.DocsPath entry:
// the raw text content strategy.Store indexes, pre-embedding.
type strategyDocFile struct {
	ID       string `yaml:"id"`
	Provider string `yaml:"provider"`
	Domain   string `yaml:"domain"`
	Content  string `yaml:"content"`
}

// loadStrategyStore reads cfg.DocsPath (if set), embeds every document via
// embedder, and returns a ready strategy.Store. An empty DocsPath yields an
// empty store rather than an error — strategy lookups simply never match.
func loadStrategyStore(cfg config.StrategyConfig, embedder strategy.Embedder, logger *zap.Logger) (*strategy.Store, error) {
	if cfg.DocsPath == "" {
		return strategy.New(nil, embedder, cfg.CacheSize, logger), nil
	}

	data, err := os.ReadFile(cfg.DocsPath)
	if err != nil {
		return nil, fmt.Errorf("reading strategy docs file: %w", err)
	}

	var raw []strategyDocFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing strategy docs file: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	docs := make([]strategy.Document, 0, len(raw))
	for _, d := range raw {
		vec, err := embedder.Embed(ctx, d.Content)
		if err != nil {
			return nil, fmt.Errorf("embedding strategy doc %q: %w", d.ID, err)
		}
		docs = append(docs, strategy.Document{
			ID:        d.ID,
			Provider:  types.ProviderID(d.Provider),
			Domain:    d.Domain,
			Content:   d.Content,
			Embedding: vec,
		})
	}

	logger.Info("strategy documents loaded", zap.Int("count", len(docs)), zap.String("path", cfg.DocsPath))
	return strategy.New(docs, embedder, cfg.CacheSize, logger), nil
}
