package transition

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vigil/internal/platform/metrics"
	"vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
)

// SubjectStore is the engine's view of subject persistence. The level column
// is mutated through UpdateLevel only, under the caller's transaction.
type SubjectStore interface {
	FindRef(ctx context.Context, id domain.SubjectID) (SubjectRef, error)
	UpdateLevel(ctx context.Context, id domain.SubjectID, level domain.RiskLevel) error
}

// OutcomeStore lets the engine resolve an analysis outcome alongside a manual
// transition.
type OutcomeStore interface {
	SubjectOf(ctx context.Context, id domain.OutcomeID) (domain.SubjectID, error)
	Resolve(ctx context.Context, id domain.OutcomeID, resolved domain.RiskLevel) error
}

// Engine decides whether a proposed risk-level change is a no-op or a real
// transition, applies it, and publishes the resulting event. It is the only
// component that writes a subject's level.
type Engine struct {
	subjects SubjectStore
	outcomes OutcomeStore
	bus      *Bus
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewEngine(subjects SubjectStore, outcomes OutcomeStore, bus *Bus, logger *slog.Logger, m *metrics.Metrics) *Engine {
	return &Engine{subjects: subjects, outcomes: outcomes, bus: bus, logger: logger, metrics: m}
}

// Propose applies a risk-level change for a subject. A nil event with a nil
// error means the proposal was a no-op: the subject already sits at newLevel.
//
// When resolving is supplied, that outcome is marked resolved with newLevel
// first; an outcome belonging to a different subject fails with
// CodeReferenceMismatch and produces no side effects. An outcome may be
// resolved without a level change, in which case no event is published --
// resolution alone is not a transition.
func (e *Engine) Propose(ctx context.Context, subjectID domain.SubjectID, newLevel domain.RiskLevel, reason string, resolving *domain.OutcomeID) (*Event, error) {
	if !newLevel.Valid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown risk level: "+string(newLevel))
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "reason must not be empty")
	}

	ref, err := e.subjects.FindRef(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "subject "+subjectID.String()+" not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load subject", err)
	}

	if resolving != nil {
		owner, err := e.outcomes.SubjectOf(ctx, *resolving)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "analysis outcome "+resolving.String()+" not found")
			}
			return nil, dErrors.Wrap(dErrors.CodeInternal, "load analysis outcome", err)
		}
		if owner != subjectID {
			return nil, dErrors.New(dErrors.CodeReferenceMismatch,
				"analysis outcome "+resolving.String()+" does not belong to subject "+subjectID.String())
		}
		if err := e.outcomes.Resolve(ctx, *resolving, newLevel); err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "resolve analysis outcome", err)
		}
		e.logger.InfoContext(ctx, "analysis outcome resolved",
			"outcome_id", resolving.String(),
			"resolved_level", string(newLevel),
		)
	}

	if ref.Level == newLevel {
		e.logger.DebugContext(ctx, "transition proposal is a no-op",
			"subject_id", subjectID.String(),
			"level", string(newLevel),
		)
		return nil, nil
	}

	if err := e.subjects.UpdateLevel(ctx, subjectID, newLevel); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "update subject level", err)
	}

	previous := ref.Level
	event := Event{
		SubjectID:   subjectID,
		SubjectName: ref.Name,
		Previous:    &previous,
		New:         newLevel,
		Reason:      reason,
		OccurredAt:  time.Now(),
	}
	if e.metrics != nil {
		e.metrics.Transitions.WithLabelValues(string(newLevel)).Inc()
	}
	e.logger.InfoContext(ctx, "subject state changed",
		"subject_id", subjectID.String(),
		"previous", string(previous),
		"new", string(newLevel),
		"reason", reason,
	)
	e.bus.Publish(ctx, event)
	return &event, nil
}
