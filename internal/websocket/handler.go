package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/gorilla/websocket"

	apierrors "erwpulse/internal/errors"
	"erwpulse/internal/infrastructure"
	"erwpulse/internal/middleware"
)

// HandlerOptions configures the upgrade endpoint.
type HandlerOptions struct {
	Timing          Timing
	ReadBufferSize  int
	WriteBufferSize int

	// AllowedOrigins lists browser origins that may connect. "*" allows
	// any origin; same-host and origin-less requests are always allowed.
	AllowedOrigins []string

	ErrorHandler *apierrors.ErrorHandler
	Logger       *slog.Logger
}

// Handler upgrades requests to live update connections on a hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	timing   Timing
	origins  []string
	errors   *apierrors.ErrorHandler
	logger   *slog.Logger
}

// NewHandler creates the upgrade endpoint for hub.
func NewHandler(hub *Hub, opts HandlerOptions) *Handler {
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = 1024
	}
	if opts.WriteBufferSize <= 0 {
		opts.WriteBufferSize = 1024
	}
	logger := infrastructure.WithComponent(opts.Logger, "websocket.handler")
	if opts.ErrorHandler == nil {
		opts.ErrorHandler = apierrors.NewErrorHandler(logger, false)
	}

	h := &Handler{
		hub:     hub,
		timing:  opts.Timing,
		origins: opts.AllowedOrigins,
		errors:  opts.ErrorHandler,
		logger:  logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
		Error:           h.upgradeError,
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered through upgradeError.
		return
	}

	client := NewClient(h.hub, conn, middleware.GetRequestID(r.Context()), h.timing, h.logger)
	h.logger.InfoContext(r.Context(), "websocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))

	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.origins, "*") || slices.Contains(h.origins, origin) {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}

	h.logger.WarnContext(r.Context(), "websocket origin rejected",
		slog.String("origin", origin),
		slog.Any("allowed_origins", h.origins))
	return false
}

func (h *Handler) upgradeError(w http.ResponseWriter, r *http.Request, status int, reason error) {
	h.logger.WarnContext(r.Context(), "websocket upgrade failed",
		slog.Int("status", status),
		slog.String("reason", reason.Error()))
	h.errors.HandleError(w, r, apierrors.New(status, "WEBSOCKET_UPGRADE_FAILED", reason.Error()))
}
