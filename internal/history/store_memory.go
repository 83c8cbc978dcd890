package history

import (
	"context"
	"sync"
	"time"

	"vigil/pkg/domain"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.SubjectID][]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.SubjectID][]Record)}
}

func (s *InMemoryStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SubjectID] = append(s.records[record.SubjectID], record)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID domain.SubjectID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.records[subjectID]
	// Appends arrive in occurrence order; reverse for newest first.
	out := make([]Record, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}

func (s *InMemoryStore) LatestChangeTimes(_ context.Context) (map[domain.SubjectID]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.SubjectID]time.Time, len(s.records))
	for subjectID, records := range s.records {
		if len(records) == 0 {
			continue
		}
		out[subjectID] = records[len(records)-1].OccurredAt
	}
	return out, nil
}
