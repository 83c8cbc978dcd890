package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vigil/internal/dashboard"
	"vigil/internal/platform/metrics"
	"vigil/internal/platform/middleware"
	"vigil/pkg/domain"
	"vigil/pkg/platform/httputil"
)

// Service defines the dashboard operations the handler needs.
type Service interface {
	Overview(ctx context.Context) (*dashboard.Overview, error)
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

// Register mounts the dashboard route.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.Latency(h.metrics))
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	router.Get("/", h.handleOverview)

	r.Mount("/api/dashboard", router)
}

type entryResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Level         string  `json:"level"`
	LastChangedAt *string `json:"lastChangedAt"`
	LatestLabel   *string `json:"latestLabel"`
	LatestOutcome *string `json:"latestOutcomeId"`
}

type overviewResponse struct {
	Total      int                        `json:"total"`
	Counts     map[string]int             `json:"counts"`
	ByLevel    map[string][]entryResponse `json:"byLevel"`
	GatheredAt string                     `json:"gatheredAt"`
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overview, err := h.service.Overview(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "dashboard overview failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	resp := overviewResponse{
		Total:      overview.Total,
		Counts:     make(map[string]int, len(overview.Counts)),
		ByLevel:    make(map[string][]entryResponse, len(domain.RiskLevels())),
		GatheredAt: overview.GatheredAt.Format(time.RFC3339Nano),
	}
	for level, count := range overview.Counts {
		resp.Counts[string(level)] = count
	}
	for _, level := range domain.RiskLevels() {
		for _, entry := range overview.ByLevel[level] {
			item := entryResponse{
				ID:    entry.Subject.ID.String(),
				Name:  entry.Subject.Name,
				Level: string(entry.Subject.Level),
			}
			if entry.LastChangedAt != nil {
				changed := entry.LastChangedAt.Format(time.RFC3339Nano)
				item.LastChangedAt = &changed
			}
			if entry.LatestOutcome != nil {
				label := string(entry.LatestOutcome.Label)
				id := entry.LatestOutcome.ID.String()
				item.LatestLabel = &label
				item.LatestOutcome = &id
			}
			resp.ByLevel[string(level)] = append(resp.ByLevel[string(level)], item)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
