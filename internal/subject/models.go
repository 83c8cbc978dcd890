package subject

import (
	"time"

	"vigil/pkg/domain"
)

// Subject is a monitored individual. Level is mutated only by the transition
// engine; every other field is ordinary record data.
type Subject struct {
	ID        domain.SubjectID
	Name      string
	Phone     string
	Address   string
	Note      string
	Level     domain.RiskLevel
	CreatedAt time.Time
	UpdatedAt time.Time
}
