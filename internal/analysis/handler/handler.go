package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"vigil/internal/analysis"
	"vigil/internal/platform/metrics"
	"vigil/internal/platform/middleware"
	"vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/httputil"
)

// Service defines the analysis operations the handler needs.
type Service interface {
	Record(ctx context.Context, params analysis.RecordParams) (*analysis.Outcome, error)
	Get(ctx context.Context, id domain.OutcomeID) (*analysis.Detail, error)
	ListRecent(ctx context.Context, subjectID domain.SubjectID, limit int) ([]*analysis.Outcome, error)
	Delete(ctx context.Context, id domain.OutcomeID) error
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

// Register mounts the analysis routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.Latency(h.metrics))
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	router.Post("/", h.handleRecord)
	router.Get("/", h.handleListRecent)
	router.Get("/{id}", h.handleGet)
	router.Delete("/{id}", h.handleDelete)

	r.Mount("/api/analyses", router)
}

type scoresBody struct {
	Positive  float64 `json:"positive"`
	Danger    float64 `json:"danger"`
	Critical  float64 `json:"critical"`
	Emergency float64 `json:"emergency"`
}

type recordRequest struct {
	SubjectID     string     `json:"subjectId"`
	Label         string     `json:"label"`
	Summary       string     `json:"summary"`
	Evidence      []string   `json:"evidence"`
	TreatmentPlan string     `json:"treatmentPlan"`
	Scores        scoresBody `json:"scores"`
}

type outcomeResponse struct {
	ID            string     `json:"id"`
	SubjectID     string     `json:"subjectId"`
	Label         string     `json:"label"`
	Summary       string     `json:"summary"`
	Evidence      []string   `json:"evidence"`
	TreatmentPlan string     `json:"treatmentPlan"`
	Scores        scoresBody `json:"scores"`
	Resolved      bool       `json:"resolved"`
	ResolvedLevel *string    `json:"resolvedLevel"`
	CreatedAt     string     `json:"createdAt"`
}

func toOutcomeResponse(o *analysis.Outcome) outcomeResponse {
	resp := outcomeResponse{
		ID:            o.ID.String(),
		SubjectID:     o.SubjectID.String(),
		Label:         string(o.Label),
		Summary:       o.Summary,
		Evidence:      o.Evidence,
		TreatmentPlan: o.TreatmentPlan,
		Scores: scoresBody{
			Positive:  o.Scores.Positive,
			Danger:    o.Scores.Danger,
			Critical:  o.Scores.Critical,
			Emergency: o.Scores.Emergency,
		},
		Resolved:  o.Resolved,
		CreatedAt: o.CreatedAt.Format(time.RFC3339Nano),
	}
	if o.ResolvedLevel != nil {
		level := string(*o.ResolvedLevel)
		resp.ResolvedLevel = &level
	}
	return resp
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	subjectID, err := domain.ParseSubjectID(req.SubjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.service.Record(ctx, analysis.RecordParams{
		SubjectID:     subjectID,
		Label:         domain.RiskLevel(req.Label),
		Summary:       req.Summary,
		Evidence:      req.Evidence,
		TreatmentPlan: req.TreatmentPlan,
		Scores: analysis.Scores{
			Positive:  req.Scores.Positive,
			Danger:    req.Scores.Danger,
			Critical:  req.Scores.Critical,
			Emergency: req.Scores.Emergency,
		},
	})
	if err != nil {
		h.logger.WarnContext(ctx, "record analysis failed",
			"request_id", middleware.GetRequestID(ctx),
			"subject_id", req.SubjectID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toOutcomeResponse(outcome))
}

func (h *Handler) handleListRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, err := domain.ParseSubjectID(r.URL.Query().Get("subjectId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	outcomes, err := h.service.ListRecent(ctx, subjectID, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]outcomeResponse, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, toOutcomeResponse(o))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type detailResponse struct {
	outcomeResponse
	Editable bool `json:"editable"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseOutcomeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detailResponse{
		outcomeResponse: toOutcomeResponse(detail.Outcome),
		Editable:        detail.Editable,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseOutcomeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
