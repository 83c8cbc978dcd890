package subject

import (
	"context"
	"sort"
	"sync"
	"time"

	"vigil/internal/transition"
	"vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	subjects map[domain.SubjectID]Subject
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{subjects: make(map[domain.SubjectID]Subject)}
}

func (s *InMemoryStore) Save(_ context.Context, subj *Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[subj.ID] = *subj
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.SubjectID) (*Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subj, ok := s.subjects[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &subj, nil
}

func (s *InMemoryStore) FindRef(_ context.Context, id domain.SubjectID) (transition.SubjectRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subj, ok := s.subjects[id]
	if !ok {
		return transition.SubjectRef{}, sentinel.ErrNotFound
	}
	return transition.SubjectRef{ID: subj.ID, Name: subj.Name, Level: subj.Level}, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Subject, 0, len(s.subjects))
	for _, subj := range s.subjects {
		copied := subj
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryStore) UpdateLevel(_ context.Context, id domain.SubjectID, level domain.RiskLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	subj, ok := s.subjects[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	subj.Level = level
	subj.UpdatedAt = time.Now()
	s.subjects[id] = subj
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id domain.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subjects[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.subjects, id)
	return nil
}

func (s *InMemoryStore) CountByLevel(_ context.Context) (map[domain.RiskLevel]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.RiskLevel]int)
	for _, subj := range s.subjects {
		out[subj.Level]++
	}
	return out, nil
}
