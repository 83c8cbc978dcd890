package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vigil/internal/caretaker"
	"vigil/internal/platform/metrics"
	"vigil/internal/platform/middleware"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/httputil"
)

// Service defines the caretaker operations the handler needs.
type Service interface {
	Register(ctx context.Context, username string, role caretaker.Role) (*caretaker.Caretaker, error)
	List(ctx context.Context) ([]*caretaker.Caretaker, error)
	Get(ctx context.Context, username string) (*caretaker.Caretaker, error)
	Update(ctx context.Context, username string, role *caretaker.Role, enabled *bool) (*caretaker.Caretaker, error)
	Delete(ctx context.Context, username string) error
}

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

// Register mounts the caretaker admin routes. All of them require the ADMIN
// role.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.Latency(h.metrics))
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	router.Use(middleware.RequireRole("ADMIN"))

	router.Post("/", h.handleRegister)
	router.Get("/", h.handleList)
	router.Get("/{username}", h.handleGet)
	router.Patch("/{username}", h.handleUpdate)
	router.Delete("/{username}", h.handleDelete)

	r.Mount("/api/caretakers", router)
}

type registerRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type caretakerResponse struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	Enabled   bool   `json:"enabled"`
	CreatedAt string `json:"createdAt"`
}

func toCaretakerResponse(c *caretaker.Caretaker) caretakerResponse {
	return caretakerResponse{
		Username:  c.Username,
		Role:      string(c.Role),
		Enabled:   c.Enabled,
		CreatedAt: c.CreatedAt.Format(time.RFC3339Nano),
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	c, err := h.service.Register(ctx, req.Username, caretaker.Role(req.Role))
	if err != nil {
		h.logger.WarnContext(ctx, "register caretaker failed",
			"request_id", middleware.GetRequestID(ctx),
			"username", req.Username,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCaretakerResponse(c))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caretakers, err := h.service.List(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]caretakerResponse, 0, len(caretakers))
	for _, c := range caretakers {
		out = append(out, toCaretakerResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.service.Get(ctx, chi.URLParam(r, "username"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaretakerResponse(c))
}

type updateRequest struct {
	Role    *string `json:"role"`
	Enabled *bool   `json:"enabled"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	var role *caretaker.Role
	if req.Role != nil {
		parsed := caretaker.Role(*req.Role)
		role = &parsed
	}
	c, err := h.service.Update(ctx, chi.URLParam(r, "username"), role, req.Enabled)
	if err != nil {
		h.logger.WarnContext(ctx, "update caretaker failed",
			"request_id", middleware.GetRequestID(ctx),
			"username", chi.URLParam(r, "username"),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaretakerResponse(c))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Delete(ctx, chi.URLParam(r, "username")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
