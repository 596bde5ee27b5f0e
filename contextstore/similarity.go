package contextstore

import (
	"math"
	"sort"
)

// SimilarChunk is one ranked retrieval hit.
type SimilarChunk struct {
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	ChunkIndex int     `json:"chunk_index"`
}

// minRelevanceThreshold below which find_similar_chunks falls back to the
// first chunk rather than returning a near-irrelevant match, per spec.md
// §4.7.2.
const minRelevanceThreshold = 0.15

// findSimilarChunks embeds-free core of retrieval: given a precomputed query
// embedding and the entry's chunk embeddings, ranks by cosine similarity and
// returns the top k. Falls back to the first chunk, score 0, when nothing
// clears minRelevanceThreshold — "a guaranteed-non-empty fragment" for
// callers that already know a context_id was supplied and expect it
// consulted.
func findSimilarChunks(queryEmbedding []float64, chunks []string, embeddings [][]float64, topK int) []SimilarChunk {
	if len(chunks) == 0 {
		return nil
	}

	scored := make([]SimilarChunk, len(chunks))
	for i := range chunks {
		scored[i] = SimilarChunk{
			Text:       chunks[i],
			Score:      cosineSimilarity(queryEmbedding, embeddings[i]),
			ChunkIndex: i,
		}
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	best := scored
	if topK > 0 && topK < len(best) {
		best = best[:topK]
	}

	if len(best) == 0 || best[0].Score < minRelevanceThreshold {
		return []SimilarChunk{{Text: chunks[0], Score: 0, ChunkIndex: 0}}
	}
	return best
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
