// Package contextstore ingests, chunks, embeds, and retrieves document and
// image context for the enhancement pipeline.
package contextstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/basui01/promptgate/internal/pool"
	"github.com/basui01/promptgate/llm"
)

const (
	minExtractedTextLen = 20
	minCaptionLen       = 10
)

var (
	// ErrExtractedTextTooShort is returned when a document's extracted text
	// falls below the minimum acceptable length.
	ErrExtractedTextTooShort = errors.New("contextstore: extracted text below minimum length")
	// ErrCaptionTooShort is returned when an image's generated caption is
	// too short to be useful context.
	ErrCaptionTooShort = errors.New("contextstore: image caption below minimum length")
	// ErrNoChunks is returned when chunking produces zero chunks.
	ErrNoChunks = errors.New("contextstore: ingestion produced zero chunks")
	// ErrNotFound is returned by Get/Retrieve for an unknown ContextID.
	ErrNotFound = errors.New("contextstore: context id not found")
)

// FileType selects the format-dispatched extractor used during ingestion.
type FileType string

const (
	FileTypeText          FileType = "text"
	FileTypePDF           FileType = "pdf"
	FileTypePresentation  FileType = "presentation"
	FileTypeWordProcessor FileType = "word"
	FileTypeImage         FileType = "image"
)

// Embedder produces a dense vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Entry is the stored unit per ContextID, matching spec.md's ContextEntry.
type Entry struct {
	ID         string            `json:"id"`
	Chunks     []string          `json:"chunks"`
	Embeddings [][]float64       `json:"embeddings"`
	Metadata   map[string]string `json:"metadata"`
}

type entrySlot struct {
	mu    sync.RWMutex
	entry Entry
}

// Store is the in-memory ContextEntry registry with optional disk
// persistence for restart re-hydration.
type Store struct {
	embedder   Embedder
	visionLLM  llm.ProviderClient
	snapshot   *snapshotter
	logger     *zap.Logger
	mu         sync.RWMutex
	entries    map[string]*entrySlot
	embedPool  *pool.GoroutinePool
}

// New builds a Store. snapshotDir, if non-empty, enables disk persistence
// per spec.md §4.7.1's "optional disk snapshot"; existing entries under it
// are loaded immediately.
func New(embedder Embedder, visionLLM llm.ProviderClient, snapshotDir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		embedder:  embedder,
		visionLLM: visionLLM,
		logger:    logger,
		entries:   make(map[string]*entrySlot),
		embedPool: pool.NewGoroutinePool(pool.DefaultGoroutinePoolConfig()),
	}
	if snapshotDir != "" {
		s.snapshot = newSnapshotter(snapshotDir, logger)
		loaded, err := s.snapshot.loadAll()
		if err != nil {
			return nil, fmt.Errorf("contextstore: loading snapshot directory: %w", err)
		}
		for id, entry := range loaded {
			s.entries[id] = &entrySlot{entry: entry}
		}
		logger.Info("context store rehydrated from disk", zap.Int("entries", len(loaded)))
	}
	return s, nil
}

// extractText dispatches to a format-specific extractor. Only plain text is
// genuinely format-specific here; PDF/presentation/word extraction require
// external parser libraries the pipeline treats as already-applied upstream
// (the caller hands in extracted text for those formats), matching how the
// gateway's upload handler stages extraction before calling Ingest.
func extractText(fileType FileType, raw string) (string, error) {
	switch fileType {
	case FileTypeText, FileTypePDF, FileTypePresentation, FileTypeWordProcessor:
		return raw, nil
	default:
		return "", fmt.Errorf("contextstore: %q is not a document file type", fileType)
	}
}

// Ingest runs the full pipeline of spec.md §4.7.1: extract (or accept a
// caption for images), chunk, embed, and store under a fresh ContextID.
func (s *Store) Ingest(ctx context.Context, fileType FileType, raw []byte, metadata map[string]string) (string, error) {
	var text string
	switch fileType {
	case FileTypeImage:
		caption, err := s.captionImage(ctx, raw)
		if err != nil {
			return "", err
		}
		if len(caption) < minCaptionLen {
			return "", ErrCaptionTooShort
		}
		text = caption
	default:
		extracted, err := extractText(fileType, string(raw))
		if err != nil {
			return "", err
		}
		if len(extracted) < minExtractedTextLen {
			return "", ErrExtractedTextTooShort
		}
		text = extracted
	}

	chunks := Chunk(text)
	if len(chunks) == 0 {
		return "", ErrNoChunks
	}

	// Embedding calls are network round trips; fan them out across the
	// goroutine pool instead of paying len(chunks) sequential round trips.
	embeddings := make([][]float64, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			return s.embedPool.SubmitWait(gctx, func(taskCtx context.Context) error {
				vec, err := s.embedder.Embed(taskCtx, chunk)
				if err != nil {
					return fmt.Errorf("contextstore: embedding chunk %d: %w", i, err)
				}
				embeddings[i] = vec
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	id := newContextID(raw)
	if metadata == nil {
		metadata = make(map[string]string)
	}
	metadata["chunk_count"] = fmt.Sprintf("%d", len(chunks))
	metadata["file_type"] = string(fileType)
	metadata["upload_time"] = time.Now().UTC().Format(time.RFC3339)

	entry := Entry{ID: id, Chunks: chunks, Embeddings: embeddings, Metadata: metadata}

	s.mu.Lock()
	s.entries[id] = &entrySlot{entry: entry}
	s.mu.Unlock()

	if s.snapshot != nil {
		if err := s.snapshot.save(entry); err != nil {
			s.logger.Warn("context snapshot write failed", zap.String("context_id", id), zap.Error(err))
		}
	}

	return id, nil
}

func (s *Store) captionImage(ctx context.Context, raw []byte) (string, error) {
	if s.visionLLM == nil {
		return "", errors.New("contextstore: no vision-capable provider configured")
	}
	req := &llm.ChatRequest{
		Messages: []llm.Message{
			{
				Role:    llm.RoleUser,
				Content: "Describe this image in a short, information-dense caption.",
				Images:  []llm.ImageContent{{Type: "base64", Data: string(raw)}},
			},
		},
		MaxTokens: 256,
	}
	resp, err := s.visionLLM.Invoke(ctx, req)
	if err != nil {
		return "", fmt.Errorf("contextstore: vision caption: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("contextstore: vision caption returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// newContextID implements spec.md §4.7.1's ContextID scheme:
// "ctx_" + first-8-hex-of-content-hash + "_" + unix-seconds.
func newContextID(content []byte) string {
	sum := sha256.Sum256(content)
	return fmt.Sprintf("ctx_%s_%d", hex.EncodeToString(sum[:])[:8], time.Now().Unix())
}

// Retrieve embeds query and returns the top_k most similar chunks in id's
// entry, per spec.md §4.7.2.
func (s *Store) Retrieve(ctx context.Context, id, query string, topK int) ([]SimilarChunk, error) {
	slot, ok := s.slot(id)
	if !ok {
		return nil, ErrNotFound
	}

	slot.mu.RLock()
	defer slot.mu.RUnlock()

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("contextstore: embedding query: %w", err)
	}
	return findSimilarChunks(queryVec, slot.entry.Chunks, slot.entry.Embeddings, topK), nil
}

// Get returns the stored entry for id.
func (s *Store) Get(id string) (Entry, bool) {
	slot, ok := s.slot(id)
	if !ok {
		return Entry{}, false
	}
	slot.mu.RLock()
	defer slot.mu.RUnlock()
	return slot.entry, true
}

// Delete removes id's entry; idempotent, reports whether anything existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	_, existed := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if existed && s.snapshot != nil {
		if err := s.snapshot.remove(id); err != nil {
			s.logger.Warn("context snapshot removal failed", zap.String("context_id", id), zap.Error(err))
		}
	}
	return existed
}

func (s *Store) slot(id string) (*entrySlot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.entries[id]
	return slot, ok
}
