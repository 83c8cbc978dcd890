package subject

import (
	"context"

	"vigil/internal/transition"
	"vigil/pkg/domain"
)

// Store persists subjects. It also satisfies the transition engine's
// SubjectStore view (FindRef, UpdateLevel).
type Store interface {
	Save(ctx context.Context, s *Subject) error
	FindByID(ctx context.Context, id domain.SubjectID) (*Subject, error)
	FindRef(ctx context.Context, id domain.SubjectID) (transition.SubjectRef, error)
	List(ctx context.Context) ([]*Subject, error)
	UpdateLevel(ctx context.Context, id domain.SubjectID, level domain.RiskLevel) error
	Delete(ctx context.Context, id domain.SubjectID) error
	// CountByLevel returns the number of subjects at each level.
	CountByLevel(ctx context.Context) (map[domain.RiskLevel]int, error)
}
