package contextstore

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func words(n int) string {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(tokens, " ")
}

func TestChunk_EmptyText_ReturnsNoChunks(t *testing.T) {
	assert.Empty(t, Chunk(""))
	assert.Empty(t, Chunk("   "))
}

func TestChunk_ShortText_SingleChunk(t *testing.T) {
	chunks := Chunk("a short sentence")
	assert.Len(t, chunks, 1)
}

func TestChunk_LongText_ProducesMultipleOverlappingChunks(t *testing.T) {
	chunks := Chunk(words(1200))
	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.NotEmpty(t, c)
	}
}

// TestChunkByWhitespace_SlidingWindowWithOverlap exercises the deterministic
// word-boundary windowing math directly, independent of whether a tiktoken
// encoding is available in the environment.
func TestChunkByWhitespace_SlidingWindowWithOverlap(t *testing.T) {
	chunks := chunkByWhitespace(words(1200))
	assert.Len(t, chunks, 3)

	first := strings.Fields(chunks[0])
	assert.Len(t, first, 500)

	second := strings.Fields(chunks[1])
	assert.Equal(t, first[450:], second[:50])

	last := strings.Fields(chunks[2])
	assert.Len(t, last, 1200-2*450)
}

func TestChunkByWhitespace_EmptyText_ReturnsNoChunks(t *testing.T) {
	assert.Empty(t, chunkByWhitespace(""))
}
