package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "erwpulse/internal/errors"
	"erwpulse/internal/infrastructure"
)

// ChatHandler serves the data context of the assistant panel. Calling a
// chat model is left to the client.
type ChatHandler struct {
	builder      ChatContextBuilder
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewChatHandler creates a chat handler
func NewChatHandler(builder ChatContextBuilder, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ChatHandler {
	logger = infrastructure.WithComponent(logger, "chat_handler")
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &ChatHandler{builder: builder, logger: logger, errorHandler: errorHandler}
}

// Routes returns the chat routes
func (h *ChatHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/context", h.Context)
	return r
}

// Context handles GET /api/chat/context
func (h *ChatHandler) Context(w http.ResponseWriter, r *http.Request) {
	cc, err := h.builder.Build(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.logger.DebugContext(r.Context(), "chat context built",
		slog.Int("total_samples", cc.TotalSamples),
		slog.Int("context_bytes", len(cc.Context)))
	render.JSON(w, r, cc)
}
