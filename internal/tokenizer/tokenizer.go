// Package tokenizer provides a shared BPE token counter used anywhere the
// gateway needs to estimate cost or size in tokens rather than characters
// or words, grounded on the teacher's llm/tokenizer.TiktokenTokenizer.
package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

var (
	once sync.Once
	enc  *tiktoken.Tiktoken
	initErr error
)

func encoder() (*tiktoken.Tiktoken, error) {
	once.Do(func() {
		enc, initErr = tiktoken.GetEncoding(encodingName)
	})
	return enc, initErr
}

// Count returns the BPE token count of text, falling back to a whitespace
// word count if the encoding failed to load.
func Count(text string) int {
	tk, err := encoder()
	if err != nil {
		return len(strings.Fields(text))
	}
	return len(tk.Encode(text, nil, nil))
}
