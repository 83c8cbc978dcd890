package analysis

import (
	"context"
	"sync"

	"vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

// InMemoryStore keeps outcomes per subject in insertion order. Insertion
// order stands in for creation time, which suits tests and single-process
// runs.
type InMemoryStore struct {
	mu        sync.RWMutex
	outcomes  map[domain.OutcomeID]*Outcome
	bySubject map[domain.SubjectID][]domain.OutcomeID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		outcomes:  make(map[domain.OutcomeID]*Outcome),
		bySubject: make(map[domain.SubjectID][]domain.OutcomeID),
	}
}

func (s *InMemoryStore) Save(ctx context.Context, outcome *Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *outcome
	cp.Evidence = append([]string(nil), outcome.Evidence...)
	s.outcomes[cp.ID] = &cp
	s.bySubject[cp.SubjectID] = append(s.bySubject[cp.SubjectID], cp.ID)
	return nil
}

func (s *InMemoryStore) FindByID(ctx context.Context, id domain.OutcomeID) (*Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	outcome, ok := s.outcomes[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *outcome
	cp.Evidence = append([]string(nil), outcome.Evidence...)
	return &cp, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id domain.OutcomeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome, ok := s.outcomes[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.outcomes, id)
	ids := s.bySubject[outcome.SubjectID]
	for i, oid := range ids {
		if oid == id {
			s.bySubject[outcome.SubjectID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryStore) ListRecentBySubject(ctx context.Context, subjectID domain.SubjectID, limit int) ([]*Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.bySubject[subjectID]
	out := make([]*Outcome, 0, limit)
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.outcomes[ids[i]]
		cp.Evidence = append([]string(nil), cp.Evidence...)
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemoryStore) SubjectOf(ctx context.Context, id domain.OutcomeID) (domain.SubjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	outcome, ok := s.outcomes[id]
	if !ok {
		return domain.SubjectID{}, sentinel.ErrNotFound
	}
	return outcome.SubjectID, nil
}

func (s *InMemoryStore) Resolve(ctx context.Context, id domain.OutcomeID, resolved domain.RiskLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome, ok := s.outcomes[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	outcome.Resolved = true
	outcome.ResolvedLevel = &resolved
	return nil
}

func (s *InMemoryStore) HasNewer(ctx context.Context, id domain.OutcomeID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	outcome, ok := s.outcomes[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	ids := s.bySubject[outcome.SubjectID]
	return len(ids) > 0 && ids[len(ids)-1] != id, nil
}

func (s *InMemoryStore) LatestPerSubject(ctx context.Context) (map[domain.SubjectID]*Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.SubjectID]*Outcome, len(s.bySubject))
	for subjectID, ids := range s.bySubject {
		if len(ids) == 0 {
			continue
		}
		cp := *s.outcomes[ids[len(ids)-1]]
		cp.Evidence = append([]string(nil), cp.Evidence...)
		out[subjectID] = &cp
	}
	return out, nil
}
