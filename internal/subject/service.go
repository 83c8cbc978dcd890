package subject

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"vigil/internal/history"
	"vigil/internal/transition"
	"vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
	"vigil/pkg/platform/tx"
)

// HistoryStore is the slice of the audit store the subject service reads.
type HistoryStore interface {
	ListBySubject(ctx context.Context, id domain.SubjectID) ([]history.Record, error)
}

type CreateParams struct {
	Name    string
	Phone   string
	Address string
	Note    string
	Level   domain.RiskLevel
}

type Service struct {
	store   Store
	history HistoryStore
	engine  *transition.Engine
	bus     *transition.Bus
	db      *sql.DB
	logger  *slog.Logger
}

func NewService(store Store, hist HistoryStore, engine *transition.Engine, bus *transition.Bus, db *sql.DB, logger *slog.Logger) *Service {
	return &Service{store: store, history: hist, engine: engine, bus: bus, db: db, logger: logger}
}

// Create registers a subject at an initial risk level. The initial
// classification is published as a transition with no previous level so
// subscribers see it the same way they see later changes.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Subject, error) {
	if params.Name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "name must not be empty")
	}
	level := params.Level
	if level == "" {
		level = domain.RiskPositive
	}
	if !level.Valid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown risk level: "+string(level))
	}

	now := time.Now()
	subj := &Subject{
		ID:        domain.NewSubjectID(),
		Name:      params.Name,
		Phone:     params.Phone,
		Address:   params.Address,
		Note:      params.Note,
		Level:     level,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, subj); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "save subject", err)
	}
	s.logger.InfoContext(ctx, "subject registered",
		"subject_id", subj.ID.String(),
		"level", string(level),
	)
	s.bus.Publish(ctx, transition.Event{
		SubjectID:   subj.ID,
		SubjectName: subj.Name,
		Previous:    nil,
		New:         level,
		Reason:      "initial registration",
		OccurredAt:  now,
	})
	return subj, nil
}

func (s *Service) Get(ctx context.Context, id domain.SubjectID) (*Subject, error) {
	subj, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "subject "+id.String()+" not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load subject", err)
	}
	return subj, nil
}

func (s *Service) List(ctx context.Context) ([]*Subject, error) {
	subjects, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list subjects", err)
	}
	return subjects, nil
}

// UpdateState proposes a risk-level change through the transition engine,
// inside a single transaction when backed by a database. A nil event means
// the subject already sat at the requested level.
func (s *Service) UpdateState(ctx context.Context, id domain.SubjectID, level domain.RiskLevel, reason string, resolving *domain.OutcomeID) (*transition.Event, error) {
	var event *transition.Event
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		var err error
		event, err = s.engine.Propose(ctx, id, level, reason, resolving)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) Delete(ctx context.Context, id domain.SubjectID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "subject "+id.String()+" not found")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "delete subject", err)
	}
	s.logger.InfoContext(ctx, "subject deleted", "subject_id", id.String())
	return nil
}

// History returns the subject's state transitions, newest first.
func (s *Service) History(ctx context.Context, id domain.SubjectID) ([]history.Record, error) {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "subject "+id.String()+" not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load subject", err)
	}
	records, err := s.history.ListBySubject(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list state history", err)
	}
	return records, nil
}
