package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vigil/internal/notification"
	"vigil/internal/notification/registry"
	"vigil/internal/platform/metrics"
	"vigil/internal/platform/middleware"
	"vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/httputil"
)

// Service defines the notification operations the handler needs.
type Service interface {
	Subscribe(recipient string) *registry.Conn
	Drop(conn *registry.Conn)
	List(ctx context.Context, recipient string) ([]*notification.Notification, error)
	MarkRead(ctx context.Context, id domain.NotificationID) error
	MarkAllRead(ctx context.Context, recipient string) error
	DeleteAll(ctx context.Context, recipient string) (int, error)
}

// Handler serves the notification API including the SSE subscribe stream.
type Handler struct {
	logger       *slog.Logger
	service      Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(service Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the notification routes. The subscribe stream gets its own
// group without the request timeout, since it legitimately outlives it.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Latency(h.metrics))
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	router.Group(func(gr chi.Router) {
		gr.Use(middleware.Timeout(30 * time.Second))
		gr.Get("/", h.handleList)
		gr.Post("/{id}/read", h.handleMarkRead)
		gr.Put("/read-all", h.handleMarkAllRead)
		gr.Delete("/", h.handleDeleteAll)
	})
	router.Get("/subscribe", h.handleSubscribe)

	r.Mount("/api/notifications", router)
}

type notificationResponse struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	Message           string `json:"message"`
	RelatedResourceID string `json:"relatedResourceId"`
	Read              bool   `json:"read"`
	CreatedAt         string `json:"createdAt"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := middleware.GetUsername(ctx)
	if username == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	notifications, err := h.service.List(ctx, username)
	if err != nil {
		h.logger.ErrorContext(ctx, "list notifications failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	out := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationResponse{
			ID:                n.ID.String(),
			Type:              string(n.Type),
			Message:           n.Message,
			RelatedResourceID: n.RelatedResourceID,
			Read:              n.Read,
			CreatedAt:         n.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.MarkRead(ctx, id); err != nil {
		h.logger.WarnContext(ctx, "mark notification read failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := middleware.GetUsername(ctx)
	if err := h.service.MarkAllRead(ctx, username); err != nil {
		h.logger.ErrorContext(ctx, "mark all notifications read failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := middleware.GetUsername(ctx)
	deleted, err := h.service.DeleteAll(ctx, username)
	if err != nil {
		h.logger.ErrorContext(ctx, "delete notifications failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// handleSubscribe holds the response open as an SSE stream and forwards
// pushed messages until the client disconnects, the stream is replaced, or
// the idle timeout fires.
func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := middleware.GetUsername(ctx)
	if username == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	conn := h.service.Subscribe(username)
	writeSSE(w, "connect", []byte("connected: "+username))
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			h.service.Drop(conn)
			return
		case <-conn.Done():
			return
		case msg := <-conn.Events():
			writeSSE(w, msg.Event, msg.Data)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, data []byte) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
