package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/basui01/promptgate/types"
)

type stubEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float64{0.1, 0.1, 0.1}, nil
}

func TestQuery_ReturnsBestMatchForTargetPartition(t *testing.T) {
	docs := []Document{
		{ID: "a", Provider: types.ProviderA, Domain: "coding", Content: "break the task into steps", Embedding: []float64{1, 0, 0}},
		{ID: "b", Provider: types.ProviderA, Domain: "coding", Content: "ask clarifying questions first", Embedding: []float64{0, 1, 0}},
		{ID: "c", Provider: types.ProviderB, Domain: "coding", Content: "gemini specific strategy", Embedding: []float64{1, 0, 0}},
	}
	embedder := &stubEmbedder{vectors: map[string][]float64{}}
	query := buildQuery("coding", types.ProviderA)
	embedder.vectors[query] = []float64{1, 0, 0}

	store := New(docs, embedder, 16, zap.NewNop())
	result := store.Query(context.Background(), types.ProviderA, "coding", "how do I refactor this function")
	assert.Equal(t, "break the task into steps", result)
}

func TestQuery_FallsBackToDefaultPartition(t *testing.T) {
	docs := []Document{
		{ID: "general-1", Provider: defaultPartition, Domain: "general", Content: "generic strategy text", Embedding: []float64{1, 0}},
	}
	embedder := &stubEmbedder{}
	store := New(docs, embedder, 16, zap.NewNop())

	result := store.Query(context.Background(), types.ProviderC, "general", "anything")
	assert.Equal(t, "generic strategy text", result)
}

func TestQuery_NoPartitionMatch_ReturnsEmpty(t *testing.T) {
	store := New(nil, &stubEmbedder{}, 16, zap.NewNop())
	result := store.Query(context.Background(), types.ProviderA, "coding", "anything")
	assert.Empty(t, result)
}

func TestQuery_EmbedderError_ReturnsEmpty(t *testing.T) {
	docs := []Document{{ID: "a", Provider: types.ProviderA, Content: "x", Embedding: []float64{1, 0}}}
	store := New(docs, &stubEmbedder{err: errors.New("embedding service down")}, 16, zap.NewNop())

	result := store.Query(context.Background(), types.ProviderA, "coding", "anything")
	assert.Empty(t, result)
}

func TestQuery_NoEmbedder_ReturnsEmpty(t *testing.T) {
	docs := []Document{{ID: "a", Provider: types.ProviderA, Content: "x", Embedding: []float64{1, 0}}}
	store := New(docs, nil, 16, zap.NewNop())

	result := store.Query(context.Background(), types.ProviderA, "coding", "anything")
	assert.Empty(t, result)
}

func TestQueryAsync_DeliversResult(t *testing.T) {
	docs := []Document{{ID: "a", Provider: types.ProviderA, Content: "strategy text", Embedding: []float64{1, 0}}}
	store := New(docs, &stubEmbedder{}, 16, zap.NewNop())

	ch := store.QueryAsync(context.Background(), types.ProviderA, "coding", "anything")
	result := <-ch
	assert.Equal(t, "strategy text", result)
}

func TestBuildQuery_GeneralDomainUsesGenericVariant(t *testing.T) {
	q := buildQuery("", types.ProviderA)
	assert.Contains(t, q, "general-purpose")
	assert.Contains(t, q, string(types.ProviderA))
}

func TestCache_HitsOnRepeatedQuery(t *testing.T) {
	cache := newLRUCache(4)
	cache.set(cacheKey("q", 20), []scoredDoc{{doc: Document{ID: "a"}}})

	got, ok := cache.get(cacheKey("q", 20))
	assert.True(t, ok)
	assert.Len(t, got, 1)
	assert.Equal(t, "a", got[0].doc.ID)
}

func TestCache_EvictsOldestBeyondCapacity(t *testing.T) {
	cache := newLRUCache(2)
	cache.set(cacheKey("q1", 1), []scoredDoc{{doc: Document{ID: "1"}}})
	cache.set(cacheKey("q2", 1), []scoredDoc{{doc: Document{ID: "2"}}})
	cache.set(cacheKey("q3", 1), []scoredDoc{{doc: Document{ID: "3"}}})

	_, ok := cache.get(cacheKey("q1", 1))
	assert.False(t, ok)
	_, ok = cache.get(cacheKey("q3", 1))
	assert.True(t, ok)
}
