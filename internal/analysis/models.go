package analysis

import (
	"time"

	"vigil/pkg/domain"
)

// Scores holds the classifier's confidence per risk level. They are stored
// as reported and not renormalized.
type Scores struct {
	Positive  float64
	Danger    float64
	Critical  float64
	Emergency float64
}

// Outcome is one completed analysis run for a subject. Label is the level the
// classifier assigned; Resolved flips once a caretaker acts on the outcome.
type Outcome struct {
	ID            domain.OutcomeID
	SubjectID     domain.SubjectID
	Label         domain.RiskLevel
	Summary       string
	Evidence      []string
	TreatmentPlan string
	Scores        Scores
	Resolved      bool
	ResolvedLevel *domain.RiskLevel
	CreatedAt     time.Time
}
