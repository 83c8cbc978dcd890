package transition

import (
	"time"

	"vigil/pkg/domain"
)

// Event records that a subject's risk level actually changed. It is only
// constructed when the previous and new levels differ; Previous is nil for a
// subject's first-ever classification.
type Event struct {
	SubjectID   domain.SubjectID
	SubjectName string
	Previous    *domain.RiskLevel
	New         domain.RiskLevel
	Reason      string
	OccurredAt  time.Time
}

// SubjectRef is the engine's narrow view of a subject: just enough to decide
// whether a proposed change is real and to describe it afterwards.
type SubjectRef struct {
	ID    domain.SubjectID
	Name  string
	Level domain.RiskLevel
}
