package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/basui01/promptgate/api"
	"github.com/basui01/promptgate/router"
	"github.com/basui01/promptgate/types"
)

// EnhanceHandler serves the gateway's core prompt-enhancement endpoints,
// backed by a single router.Core pipeline shared across the streaming and
// synchronous entry points.
type EnhanceHandler struct {
	core   *router.Core
	logger *zap.Logger
}

// NewEnhanceHandler creates an enhancement handler.
func NewEnhanceHandler(core *router.Core, logger *zap.Logger) *EnhanceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnhanceHandler{core: core, logger: logger}
}

func requestIDFromResponse(w http.ResponseWriter) string {
	if id := w.Header().Get("X-Request-ID"); id != "" {
		return id
	}
	return "unknown"
}

// HandleStream serves POST /enhance/stream: it runs the full 9-phase
// pipeline and relays status/content/complete/error events over SSE as
// they are produced.
// @Summary Stream a prompt enhancement
// @Accept json
// @Produce text/event-stream
// @Param request body api.EnhancementRequest true "enhancement request"
// @Router /enhance/stream [post]
func (h *EnhanceHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.EnhancementRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	requestID := requestIDFromResponse(w)
	events := h.core.Enhance(r.Context(), &req, requestID)

	if err := router.WriteSSE(w, events); err != nil {
		h.logger.Error("streaming enhancement failed", zap.Error(err), zap.String("request_id", requestID))
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError, "this client does not support streaming responses", h.logger)
	}
}

// HandleSync serves POST /enhance: the non-streaming counterpart, returning
// a single JSON envelope once the pipeline completes.
// @Summary Enhance a prompt synchronously
// @Accept json
// @Produce json
// @Param request body api.EnhancementRequest true "enhancement request"
// @Success 200 {object} Response
// @Router /enhance [post]
func (h *EnhanceHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.EnhancementRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	requestID := requestIDFromResponse(w)
	result, err := h.core.EnhanceSync(r.Context(), &req, requestID)
	if err != nil {
		if apiErr, ok := err.(*types.Error); ok {
			WriteError(w, apiErr, h.logger)
			return
		}
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError, err.Error(), h.logger)
		return
	}

	WriteSuccess(w, result)
}
