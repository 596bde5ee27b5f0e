package contextstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindSimilarChunks_RanksByScoreDescending(t *testing.T) {
	chunks := []string{"about cats", "about dogs", "about databases"}
	embeddings := [][]float64{{1, 0, 0}, {0.9, 0.1, 0}, {0, 0, 1}}
	query := []float64{1, 0, 0}

	results := findSimilarChunks(query, chunks, embeddings, 2)
	assert.Len(t, results, 2)
	assert.Equal(t, "about cats", results[0].Text)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestFindSimilarChunks_FallsBackToFirstChunkBelowThreshold(t *testing.T) {
	chunks := []string{"first chunk", "second chunk"}
	embeddings := [][]float64{{1, 0}, {0, 1}}
	query := []float64{0, -1}

	results := findSimilarChunks(query, chunks, embeddings, 2)
	assert.Len(t, results, 1)
	assert.Equal(t, "first chunk", results[0].Text)
	assert.Equal(t, 0, results[0].ChunkIndex)
}

func TestFindSimilarChunks_NoChunks_ReturnsEmpty(t *testing.T) {
	assert.Empty(t, findSimilarChunks([]float64{1, 0}, nil, nil, 5))
}

func TestCosineSimilarity_OrthogonalVectorsScoreZero(t *testing.T) {
	assert.Equal(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}))
}

func TestCosineSimilarity_MismatchedLengthScoreZero(t *testing.T) {
	assert.Equal(t, 0.0, cosineSimilarity([]float64{1, 0, 0}, []float64{1, 0}))
}
