package router

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/basui01/promptgate/api"
	"github.com/basui01/promptgate/internal/pool"
)

// Kind distinguishes the four SSE event shapes spec.md §6 defines. It is
// never serialized itself — each Kind has its own literal payload shape.
type Kind string

const (
	KindStatus   Kind = "status"
	KindContent  Kind = "content"
	KindComplete Kind = "complete"
	KindError    Kind = "error"
)

// SSEEvent is one unit of RouterCore's event stream. Payload is the exact
// JSON object to write after "data: ", per spec.md §6's payload shapes.
type SSEEvent struct {
	Kind    Kind
	Payload map[string]any
}

func newStatusEvent(status, message string) SSEEvent {
	return SSEEvent{Kind: KindStatus, Payload: map[string]any{
		"status":  status,
		"message": message,
	}}
}

func newContentEvent(chunk string) SSEEvent {
	return SSEEvent{Kind: KindContent, Payload: map[string]any{
		"type":  "content",
		"chunk": chunk,
	}}
}

func newCompleteEvent(result api.EnhancedPromptResult) SSEEvent {
	return SSEEvent{Kind: KindComplete, Payload: map[string]any{
		"type":               "complete",
		"enhanced_prompt":    result.EnhancedPrompt,
		"suggested_llm":      result.SuggestedLLM,
		"domain":             result.Domain,
		"relevance_analysis": result.RelevanceAnalysis,
		"metadata":           result.Metadata,
	}}
}

func newErrorEvent(requestID string, err error) SSEEvent {
	return SSEEvent{Kind: KindError, Payload: map[string]any{
		"error":        err.Error(),
		"request_id":   requestID,
		"support_info": "include the request id above if you contact support",
	}}
}

// ErrStreamingUnsupported is returned by WriteSSE when the ResponseWriter
// does not implement http.Flusher.
var ErrStreamingUnsupported = errors.New("router: response writer does not support streaming")

// WriteSSE sets the SSE response headers and relays every event from ch to
// w as it arrives, flushing after each write so the client sees it
// immediately. It returns when ch is closed or the request context is
// cancelled, whichever happens first.
func WriteSSE(w http.ResponseWriter, ch <-chan SSEEvent) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range ch {
		data, err := json.Marshal(event.Payload)
		if err != nil {
			continue
		}

		buf := pool.ByteBufferPool.Get()
		buf.WriteString("data: ")
		buf.Write(data)
		buf.WriteString("\n\n")
		w.Write(buf.Bytes())
		pool.ByteBufferPool.Put(buf)

		flusher.Flush()
	}
	return nil
}
