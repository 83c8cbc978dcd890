package analysis

import (
	"context"

	"vigil/pkg/domain"
)

// Store persists analysis outcomes. Implementations return
// sentinel.ErrNotFound for missing outcomes.
type Store interface {
	Save(ctx context.Context, outcome *Outcome) error
	FindByID(ctx context.Context, id domain.OutcomeID) (*Outcome, error)
	Delete(ctx context.Context, id domain.OutcomeID) error

	// ListRecentBySubject returns the subject's outcomes, newest first,
	// capped at limit.
	ListRecentBySubject(ctx context.Context, subjectID domain.SubjectID, limit int) ([]*Outcome, error)

	// SubjectOf reports which subject an outcome belongs to.
	SubjectOf(ctx context.Context, id domain.OutcomeID) (domain.SubjectID, error)

	// Resolve marks an outcome resolved with the level the caretaker chose.
	Resolve(ctx context.Context, id domain.OutcomeID, resolved domain.RiskLevel) error

	// HasNewer reports whether the outcome's subject has a more recent
	// outcome.
	HasNewer(ctx context.Context, id domain.OutcomeID) (bool, error)

	// LatestPerSubject returns each subject's most recent outcome.
	LatestPerSubject(ctx context.Context) (map[domain.SubjectID]*Outcome, error)
}
