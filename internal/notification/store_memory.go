package notification

import (
	"context"
	"sync"

	"vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu          sync.RWMutex
	byRecipient map[string][]*Notification
	byID        map[domain.NotificationID]*Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byRecipient: make(map[string][]*Notification),
		byID:        make(map[domain.NotificationID]*Notification),
	}
}

func (s *InMemoryStore) Save(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *n
	s.byRecipient[n.Recipient] = append(s.byRecipient[n.Recipient], &stored)
	s.byID[n.ID] = &stored
	return nil
}

func (s *InMemoryStore) ListByRecipient(_ context.Context, recipient string) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.byRecipient[recipient]
	// Saves arrive in creation order; reverse for newest first.
	out := make([]*Notification, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		copied := *stored[i]
		out = append(out, &copied)
	}
	return out, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, id domain.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	n.Read = true
	return nil
}

func (s *InMemoryStore) MarkAllRead(_ context.Context, recipient string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.byRecipient[recipient] {
		n.Read = true
	}
	return nil
}

func (s *InMemoryStore) DeleteAll(_ context.Context, recipient string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.byRecipient[recipient]
	for _, n := range stored {
		delete(s.byID, n.ID)
	}
	delete(s.byRecipient, recipient)
	return len(stored), nil
}
