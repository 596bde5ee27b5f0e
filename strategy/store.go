// Package strategy serves pre-indexed "prompt strategy" text, partitioned
// by target provider, via hybrid dense+sparse retrieval.
package strategy

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/basui01/promptgate/internal/metrics"
	"github.com/basui01/promptgate/types"
)

// Embedder produces a dense vector for a piece of text. The gateway backs
// this with an embedding-capable ProviderClient.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Document is one indexed strategy entry.
type Document struct {
	ID        string
	Provider  types.ProviderID
	Domain    string
	Content   string
	Embedding []float64
}

type scoredDoc struct {
	doc         Document
	denseScore  float64
	sparseScore float64
	hybrid      float64
}

const (
	denseWeight  = 0.6
	sparseWeight = 0.4
	defaultTopK  = 1
)

// defaultPartition is the provider key used when a query targets a provider
// with no dedicated strategy partition.
const defaultPartition = types.ProviderID("")

// Store holds the pre-built strategy corpus, partitioned by provider, and
// answers queries with hybrid dense+sparse re-ranking.
type Store struct {
	embedder   Embedder
	logger     *zap.Logger
	cache      *lruCache
	partitions map[types.ProviderID][]Document
	metrics    *metrics.Collector
}

// SetMetrics attaches a metrics collector so Query records
// cache_hits_total/cache_misses_total under the "strategy" cache_type.
// Optional; a Store with no collector attached simply skips recording.
func (s *Store) SetMetrics(c *metrics.Collector) {
	s.metrics = c
}

// New builds a Store over docs, bucketed by Document.Provider. Docs with an
// empty Provider land in the default partition used as a fallback for
// unknown target providers.
func New(docs []Document, embedder Embedder, cacheSize int, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	partitions := make(map[types.ProviderID][]Document)
	for _, d := range docs {
		partitions[d.Provider] = append(partitions[d.Provider], d)
	}
	return &Store{
		embedder:   embedder,
		logger:     logger,
		cache:      newLRUCache(cacheSize),
		partitions: partitions,
	}
}

// buildQuery renders the template from spec.md §4.5 step 2: a domain-and-
// provider-specific phrase, or a generic variant when domain is missing or
// "general".
func buildQuery(domain string, target types.ProviderID) string {
	domain = strings.TrimSpace(domain)
	if domain == "" || strings.EqualFold(domain, "general") {
		return fmt.Sprintf("Effective general-purpose prompting strategies and techniques for %s models", target)
	}
	return fmt.Sprintf("Effective %s prompting strategies and techniques for %s models", domain, target)
}

// Query returns the single best strategy text for (targetProvider, domain,
// prompt). Any failure — no embedder, embed error, empty partition —
// degrades to "" per spec.md §4.5's "on any error, returns empty".
func (s *Store) Query(ctx context.Context, target types.ProviderID, domain, prompt string) string {
	partition, ok := s.partitions[target]
	if !ok || len(partition) == 0 {
		partition = s.partitions[defaultPartition]
	}
	if len(partition) == 0 {
		return ""
	}

	query := buildQuery(domain, target)
	k := max(defaultTopK*3, 20)

	candidates, ok := s.cache.get(cacheKey(query, k))
	if ok {
		if s.metrics != nil {
			s.metrics.RecordCacheHit("strategy")
		}
	} else {
		if s.metrics != nil {
			s.metrics.RecordCacheMiss("strategy")
		}
		candidates = s.retrieve(ctx, query, partition, k)
		if candidates == nil {
			return ""
		}
		s.cache.set(cacheKey(query, k), candidates)
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0].doc.Content
}

// QueryAsync runs Query on a worker goroutine and delivers the result on the
// returned channel, per spec.md §4.5 step 6's "async wrapper".
func (s *Store) QueryAsync(ctx context.Context, target types.ProviderID, domain, prompt string) <-chan string {
	out := make(chan string, 1)
	go func() {
		defer close(out)
		out <- s.Query(ctx, target, domain, prompt)
	}()
	return out
}

// retrieve runs the dense-candidate / sparse-rerank pipeline over one
// partition, grounded on the teacher's HybridRetriever.Retrieve. Returns nil
// on embedding failure so the caller can distinguish "no embedder" from "no
// results" without panicking on a nil candidate slice vs an empty one.
func (s *Store) retrieve(ctx context.Context, query string, partition []Document, k int) []scoredDoc {
	if s.embedder == nil {
		s.logger.Warn("strategy store has no embedder configured, degrading to empty")
		return nil
	}
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("strategy query embedding failed, degrading to empty", zap.Error(err))
		return nil
	}

	dense := make([]scoredDoc, 0, len(partition))
	for _, doc := range partition {
		dense = append(dense, scoredDoc{doc: doc, denseScore: cosineSimilarity(queryVec, doc.Embedding)})
	}
	sort.Slice(dense, func(i, j int) bool { return dense[i].denseScore > dense[j].denseScore })
	if len(dense) > k {
		dense = dense[:k]
	}

	sparse := sparseScores(query, dense)
	for i := range dense {
		dense[i].sparseScore = sparse[dense[i].doc.ID]
	}

	normalizeDense(dense)
	normalizeSparse(dense)
	for i := range dense {
		dense[i].hybrid = dense[i].denseScore*denseWeight + dense[i].sparseScore*sparseWeight
	}
	sort.Slice(dense, func(i, j int) bool { return dense[i].hybrid > dense[j].hybrid })

	return dense
}

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

func tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

// sparseScores computes a TF·IDF keyword-overlap score per candidate,
// grounded on the teacher's BM25 term-frequency/IDF statistics but without
// the length-normalization term, since strategy entries are short and
// roughly uniform in length.
func sparseScores(query string, candidates []scoredDoc) map[string]float64 {
	queryTerms := tokenize(query)
	scores := make(map[string]float64, len(candidates))
	if len(queryTerms) == 0 || len(candidates) == 0 {
		return scores
	}

	docFreq := make(map[string]int)
	termFreqs := make([]map[string]int, len(candidates))
	for i, c := range candidates {
		tf := make(map[string]int)
		seen := make(map[string]bool)
		for _, t := range tokenize(c.doc.Content) {
			tf[t]++
			if !seen[t] {
				docFreq[t]++
				seen[t] = true
			}
		}
		termFreqs[i] = tf
	}

	n := float64(len(candidates))
	for i, c := range candidates {
		var score float64
		for _, qt := range queryTerms {
			tf := termFreqs[i][qt]
			if tf == 0 {
				continue
			}
			idf := math.Log((n+1)/(float64(docFreq[qt])+1)) + 1
			score += float64(tf) * idf
		}
		scores[c.doc.ID] = score
	}
	return scores
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// normalizeDense/normalizeSparse min-max normalize each score dimension in
// place before the weighted ensemble, matching the teacher's normalizeScores.
func normalizeDense(docs []scoredDoc) {
	minV, maxV := minMax(docs, func(d scoredDoc) float64 { return d.denseScore })
	for i := range docs {
		docs[i].denseScore = normalize(docs[i].denseScore, minV, maxV)
	}
}

func normalizeSparse(docs []scoredDoc) {
	minV, maxV := minMax(docs, func(d scoredDoc) float64 { return d.sparseScore })
	for i := range docs {
		docs[i].sparseScore = normalize(docs[i].sparseScore, minV, maxV)
	}
}

func minMax(docs []scoredDoc, f func(scoredDoc) float64) (float64, float64) {
	if len(docs) == 0 {
		return 0, 0
	}
	minV, maxV := math.MaxFloat64, -math.MaxFloat64
	for _, d := range docs {
		v := f(d)
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return minV, maxV
}

func normalize(v, minV, maxV float64) float64 {
	if maxV == minV {
		return 1
	}
	return (v - minV) / (maxV - minV)
}
