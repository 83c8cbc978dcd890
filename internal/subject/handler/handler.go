package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vigil/internal/history"
	"vigil/internal/platform/metrics"
	"vigil/internal/platform/middleware"
	"vigil/internal/subject"
	"vigil/internal/transition"
	"vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/httputil"
)

// Service defines the subject operations the handler needs.
type Service interface {
	Create(ctx context.Context, params subject.CreateParams) (*subject.Subject, error)
	Get(ctx context.Context, id domain.SubjectID) (*subject.Subject, error)
	List(ctx context.Context) ([]*subject.Subject, error)
	UpdateState(ctx context.Context, id domain.SubjectID, level domain.RiskLevel, reason string, resolving *domain.OutcomeID) (*transition.Event, error)
	Delete(ctx context.Context, id domain.SubjectID) error
	History(ctx context.Context, id domain.SubjectID) ([]history.Record, error)
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

// Register mounts the subject routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.Latency(h.metrics))
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	router.Post("/", h.handleCreate)
	router.Get("/", h.handleList)
	router.Get("/{id}", h.handleGet)
	router.Put("/{id}/state", h.handleUpdateState)
	router.Get("/{id}/history", h.handleHistory)
	router.Delete("/{id}", h.handleDelete)

	r.Mount("/api/subjects", router)
}

type createRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Note    string `json:"note"`
	Level   string `json:"level"`
}

type subjectResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Note      string `json:"note"`
	Level     string `json:"level"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toSubjectResponse(s *subject.Subject) subjectResponse {
	return subjectResponse{
		ID:        s.ID.String(),
		Name:      s.Name,
		Phone:     s.Phone,
		Address:   s.Address,
		Note:      s.Note,
		Level:     string(s.Level),
		CreatedAt: s.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	subj, err := h.service.Create(ctx, subject.CreateParams{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		Note:    req.Note,
		Level:   domain.RiskLevel(req.Level),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create subject failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toSubjectResponse(subj))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjects, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list subjects failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	out := make([]subjectResponse, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, toSubjectResponse(s))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subj, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSubjectResponse(subj))
}

type updateStateRequest struct {
	Level              string `json:"level"`
	Reason             string `json:"reason"`
	ResolvingOutcomeID string `json:"resolvingOutcomeId"`
}

type updateStateResponse struct {
	Changed  bool    `json:"changed"`
	Previous *string `json:"previous"`
	Level    string  `json:"level"`
}

func (h *Handler) handleUpdateState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req updateStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	var resolving *domain.OutcomeID
	if req.ResolvingOutcomeID != "" {
		outcomeID, err := domain.ParseOutcomeID(req.ResolvingOutcomeID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		resolving = &outcomeID
	}

	event, err := h.service.UpdateState(ctx, id, domain.RiskLevel(req.Level), req.Reason, resolving)
	if err != nil {
		h.logger.WarnContext(ctx, "update subject state failed",
			"request_id", middleware.GetRequestID(ctx),
			"subject_id", id.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	resp := updateStateResponse{Changed: event != nil, Level: req.Level}
	if event != nil && event.Previous != nil {
		prev := string(*event.Previous)
		resp.Previous = &prev
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type historyResponse struct {
	Previous   *string `json:"previous"`
	Level      string  `json:"level"`
	Reason     string  `json:"reason"`
	OccurredAt string  `json:"occurredAt"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.service.History(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]historyResponse, 0, len(records))
	for _, rec := range records {
		item := historyResponse{
			Level:      string(rec.New),
			Reason:     rec.Reason,
			OccurredAt: rec.OccurredAt.Format(time.RFC3339Nano),
		}
		if rec.Previous != nil {
			prev := string(*rec.Previous)
			item.Previous = &prev
		}
		out = append(out, item)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseSubjectID(chi.URLParam(r, "id"))
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
