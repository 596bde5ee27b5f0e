package contextstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/basui01/promptgate/llm"
)

type stubEmbedder struct {
	err error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float64{float64(len(text)), 1}, nil
}

type stubVisionClient struct {
	caption string
	err     error
}

func (s *stubVisionClient) Invoke(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.ChatResponse{Choices: []llm.ChatChoice{{Message: llm.Message{Content: s.caption}}}}, nil
}
func (s *stubVisionClient) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return nil, errors.New("not implemented")
}
func (s *stubVisionClient) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) { return nil, nil }
func (s *stubVisionClient) Name() string                                              { return "vision-stub" }
func (s *stubVisionClient) ProviderID() llm.ProviderID                                { return "A" }
func (s *stubVisionClient) ListModels(ctx context.Context) ([]llm.Model, error)       { return nil, nil }

func TestIngest_TextDocument_StoresChunksAndEmbeddings(t *testing.T) {
	store, err := New(&stubEmbedder{}, nil, "", zap.NewNop())
	require.NoError(t, err)

	id, err := store.Ingest(context.Background(), FileTypeText, []byte(strings.Repeat("word ", 30)), nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "ctx_"))

	entry, ok := store.Get(id)
	require.True(t, ok)
	assert.Len(t, entry.Chunks, len(entry.Embeddings))
	assert.Equal(t, "text", entry.Metadata["file_type"])
}

func TestIngest_TextTooShort_Rejected(t *testing.T) {
	store, err := New(&stubEmbedder{}, nil, "", zap.NewNop())
	require.NoError(t, err)

	_, err = store.Ingest(context.Background(), FileTypeText, []byte("hi"), nil)
	assert.ErrorIs(t, err, ErrExtractedTextTooShort)
}

func TestIngest_Image_UsesVisionCaption(t *testing.T) {
	store, err := New(&stubEmbedder{}, &stubVisionClient{caption: "a detailed caption of a cat sitting on a mat"}, "", zap.NewNop())
	require.NoError(t, err)

	id, err := store.Ingest(context.Background(), FileTypeImage, []byte("fake-image-bytes"), nil)
	require.NoError(t, err)

	entry, ok := store.Get(id)
	require.True(t, ok)
	assert.Contains(t, entry.Chunks[0], "cat")
}

func TestIngest_Image_CaptionTooShort_Rejected(t *testing.T) {
	store, err := New(&stubEmbedder{}, &stubVisionClient{caption: "a cat"}, "", zap.NewNop())
	require.NoError(t, err)

	_, err = store.Ingest(context.Background(), FileTypeImage, []byte("fake"), nil)
	assert.ErrorIs(t, err, ErrCaptionTooShort)
}

func TestIngest_Image_NoVisionClient_Errors(t *testing.T) {
	store, err := New(&stubEmbedder{}, nil, "", zap.NewNop())
	require.NoError(t, err)

	_, err = store.Ingest(context.Background(), FileTypeImage, []byte("fake"), nil)
	assert.Error(t, err)
}

func TestRetrieve_UnknownID_ReturnsNotFound(t *testing.T) {
	store, err := New(&stubEmbedder{}, nil, "", zap.NewNop())
	require.NoError(t, err)

	_, err = store.Retrieve(context.Background(), "ctx_missing_1", "query", 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_IsIdempotent(t *testing.T) {
	store, err := New(&stubEmbedder{}, nil, "", zap.NewNop())
	require.NoError(t, err)

	id, err := store.Ingest(context.Background(), FileTypeText, []byte(strings.Repeat("word ", 30)), nil)
	require.NoError(t, err)

	assert.True(t, store.Delete(id))
	assert.False(t, store.Delete(id))
}

func TestSnapshot_RehydratesOnRestart(t *testing.T) {
	dir := t.TempDir()

	store, err := New(&stubEmbedder{}, nil, dir, zap.NewNop())
	require.NoError(t, err)
	id, err := store.Ingest(context.Background(), FileTypeText, []byte(strings.Repeat("word ", 30)), nil)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, id+".json"))
	assert.NoError(t, err)

	restarted, err := New(&stubEmbedder{}, nil, dir, zap.NewNop())
	require.NoError(t, err)
	entry, ok := restarted.Get(id)
	assert.True(t, ok)
	assert.Equal(t, id, entry.ID)
}
