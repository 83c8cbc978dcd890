package history

import (
	"context"
	"time"

	"vigil/pkg/domain"
)

// Store persists the append-only transition history.
type Store interface {
	Append(ctx context.Context, record Record) error
	// ListBySubject returns a subject's records newest first.
	ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]Record, error)
	// LatestChangeTimes returns, per subject, the occurredAt of its most
	// recent record. Subjects with no history are absent from the map.
	LatestChangeTimes(ctx context.Context) (map[domain.SubjectID]time.Time, error)
}
