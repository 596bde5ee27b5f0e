package contextstore

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const (
	chunkSize    = 500
	chunkOverlap = 50

	// encodingName matches the teacher's llm/tokenizer default fallback
	// encoding (cl100k_base), used here since chunking is model-agnostic.
	encodingName = "cl100k_base"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoder() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding(encodingName)
	})
	return enc, encErr
}

// Chunk splits text into an ordered sequence of overlapping windows over BPE
// tokens, per spec.md §4.7.1: a sliding window of size 500 with 50-unit
// overlap. The windowing unit is a BPE token rather than a whitespace word —
// spec.md allows "a language-appropriate equivalent" and a token-based
// window keeps chunk sizes proportional to what downstream embedding and
// generation calls actually bill against. Grounded on the teacher's
// rag.DocumentChunker sliding-window idiom, trimmed to the spec's single
// fixed strategy (no semantic/document-aware variants), and on
// llm/tokenizer/tiktoken.go's Encode/Decode pairing.
//
// Falls back to whitespace-token windowing if the tiktoken encoding fails to
// load, so ingestion still succeeds in a sandboxed environment without the
// BPE data file cached.
func Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tk, err := encoder()
	if err != nil {
		return chunkByWhitespace(text)
	}

	tokens := tk.Encode(text, nil, nil)
	if len(tokens) == 0 {
		return nil
	}

	step := chunkSize - chunkOverlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := min(start+chunkSize, len(tokens))
		chunks = append(chunks, tk.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

func chunkByWhitespace(text string) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}

	step := chunkSize - chunkOverlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := min(start+chunkSize, len(tokens))
		chunks = append(chunks, strings.Join(tokens[start:end], " "))
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
