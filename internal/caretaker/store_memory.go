package caretaker

import (
	"context"
	"sort"
	"sync"

	"vigil/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Caretaker
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{accounts: make(map[string]Caretaker)}
}

func (s *InMemoryStore) Save(_ context.Context, c *Caretaker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[c.Username]; exists {
		return sentinel.ErrConflict
	}
	s.accounts[c.Username] = *c
	return nil
}

func (s *InMemoryStore) FindByUsername(_ context.Context, username string) (*Caretaker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.accounts[username]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Caretaker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Caretaker, 0, len(s.accounts))
	for _, c := range s.accounts {
		copied := c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *InMemoryStore) ListEnabledByRole(_ context.Context, role Role) ([]*Caretaker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Caretaker
	for _, c := range s.accounts {
		if c.Enabled && c.Role == role {
			copied := c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, c *Caretaker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[c.Username]; !ok {
		return sentinel.ErrNotFound
	}
	s.accounts[c.Username] = *c
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[username]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.accounts, username)
	return nil
}
