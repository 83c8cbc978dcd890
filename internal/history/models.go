package history

import (
	"time"

	"vigil/internal/transition"
	"vigil/pkg/domain"
)

// Record is the durable projection of a transition event, immutable once
// written.
type Record struct {
	SubjectID  domain.SubjectID
	Previous   *domain.RiskLevel
	New        domain.RiskLevel
	Reason     string
	OccurredAt time.Time
}

// RecordFrom projects a transition event into its audit record.
func RecordFrom(event transition.Event) Record {
	return Record{
		SubjectID:  event.SubjectID,
		Previous:   event.Previous,
		New:        event.New,
		Reason:     event.Reason,
		OccurredAt: event.OccurredAt,
	}
}
