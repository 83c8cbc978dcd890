package analysis

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"vigil/internal/transition"
	"vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
	"vigil/pkg/platform/tx"
)

// Notifier alerts caretakers that an analysis finished.
type Notifier interface {
	OnAnalysisComplete(ctx context.Context, outcomeID domain.OutcomeID, subjectName string, label domain.RiskLevel) error
}

// SubjectDirectory resolves the analyzed subject.
type SubjectDirectory interface {
	FindRef(ctx context.Context, id domain.SubjectID) (transition.SubjectRef, error)
}

type RecordParams struct {
	SubjectID     domain.SubjectID
	Label         domain.RiskLevel
	Summary       string
	Evidence      []string
	TreatmentPlan string
	Scores        Scores
}

// Detail pairs an outcome with whether it is still the subject's latest.
// Older outcomes are frozen: the UI must not resolve or edit them.
type Detail struct {
	Outcome  *Outcome
	Editable bool
}

type Service struct {
	store    Store
	subjects SubjectDirectory
	engine   *transition.Engine
	notifier Notifier
	db       *sql.DB
	logger   *slog.Logger
}

func NewService(store Store, subjects SubjectDirectory, engine *transition.Engine, notifier Notifier, db *sql.DB, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		subjects: subjects,
		engine:   engine,
		notifier: notifier,
		db:       db,
		logger:   logger,
	}
}

// Record saves a classifier outcome and proposes the labeled level as the
// subject's new state, in one transaction. The proposal reuses the manual
// transition path, so an unchanged label is a no-op and a changed one
// produces the usual event fanout. The completion alert goes out either way,
// after the transaction commits.
func (s *Service) Record(ctx context.Context, params RecordParams) (*Outcome, error) {
	if !params.Label.Valid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown risk level: "+string(params.Label))
	}

	ref, err := s.subjects.FindRef(ctx, params.SubjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "subject "+params.SubjectID.String()+" not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load subject", err)
	}

	outcome := &Outcome{
		ID:            domain.NewOutcomeID(),
		SubjectID:     params.SubjectID,
		Label:         params.Label,
		Summary:       params.Summary,
		Evidence:      params.Evidence,
		TreatmentPlan: params.TreatmentPlan,
		Scores:        params.Scores,
		CreatedAt:     time.Now(),
	}

	err = tx.Run(ctx, s.db, func(ctx context.Context) error {
		if err := s.store.Save(ctx, outcome); err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "save analysis outcome", err)
		}
		reason := "classification result " + outcome.ID.String()
		_, err := s.engine.Propose(ctx, params.SubjectID, params.Label, reason, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.notifier.OnAnalysisComplete(ctx, outcome.ID, ref.Name, params.Label); err != nil {
		s.logger.ErrorContext(ctx, "analysis completion alert failed",
			"outcome_id", outcome.ID.String(),
			"error", err,
		)
	}
	return outcome, nil
}

// Get loads an outcome together with its editability.
func (s *Service) Get(ctx context.Context, id domain.OutcomeID) (*Detail, error) {
	outcome, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "analysis outcome "+id.String()+" not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load analysis outcome", err)
	}
	hasNewer, err := s.store.HasNewer(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "check newer outcome", err)
	}
	return &Detail{Outcome: outcome, Editable: !hasNewer}, nil
}

// ListRecent returns a subject's latest outcomes, newest first.
func (s *Service) ListRecent(ctx context.Context, subjectID domain.SubjectID, limit int) ([]*Outcome, error) {
	if limit <= 0 {
		limit = 10
	}
	outcomes, err := s.store.ListRecentBySubject(ctx, subjectID, limit)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list analysis outcomes", err)
	}
	return outcomes, nil
}

func (s *Service) Delete(ctx context.Context, id domain.OutcomeID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "analysis outcome "+id.String()+" not found")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "delete analysis outcome", err)
	}
	s.logger.InfoContext(ctx, "analysis outcome deleted", "outcome_id", id.String())
	return nil
}
