package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
}

func (s *InMemoryStoreSuite) save(recipient string, createdAt time.Time) *Notification {
	n := &Notification{
		ID:        domain.NewNotificationID(),
		Recipient: recipient,
		Type:      TypeStateChanged,
		Message:   "message",
		CreatedAt: createdAt,
	}
	s.Require().NoError(s.store.Save(s.ctx, n))
	return n
}

func (s *InMemoryStoreSuite) TestListNewestFirst() {
	base := time.Now()
	first := s.save("alice", base)
	second := s.save("alice", base.Add(time.Second))
	third := s.save("alice", base.Add(2*time.Second))
	s.save("bob", base)

	got, err := s.store.ListByRecipient(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(third.ID, got[0].ID)
	s.Equal(second.ID, got[1].ID)
	s.Equal(first.ID, got[2].ID)
}

func (s *InMemoryStoreSuite) TestListUnknownRecipientIsEmpty() {
	got, err := s.store.ListByRecipient(s.ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *InMemoryStoreSuite) TestMarkRead() {
	n := s.save("alice", time.Now())

	s.Require().NoError(s.store.MarkRead(s.ctx, n.ID))
	got, err := s.store.ListByRecipient(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.True(got[0].Read)

	// Marking an already-read notification succeeds and changes nothing.
	s.Require().NoError(s.store.MarkRead(s.ctx, n.ID))
}

func (s *InMemoryStoreSuite) TestMarkReadUnknownID() {
	err := s.store.MarkRead(s.ctx, domain.NewNotificationID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestMarkAllRead() {
	s.save("alice", time.Now())
	s.save("alice", time.Now())
	other := s.save("bob", time.Now())

	s.Require().NoError(s.store.MarkAllRead(s.ctx, "alice"))

	got, err := s.store.ListByRecipient(s.ctx, "alice")
	s.Require().NoError(err)
	for _, n := range got {
		s.True(n.Read)
	}

	bobs, err := s.store.ListByRecipient(s.ctx, "bob")
	s.Require().NoError(err)
	s.Require().Len(bobs, 1)
	s.Equal(other.ID, bobs[0].ID)
	s.False(bobs[0].Read)

	// Idempotent, even with nothing unread.
	s.Require().NoError(s.store.MarkAllRead(s.ctx, "alice"))
	s.Require().NoError(s.store.MarkAllRead(s.ctx, "nobody"))
}

func (s *InMemoryStoreSuite) TestDeleteAll() {
	s.save("alice", time.Now())
	s.save("alice", time.Now())
	s.save("bob", time.Now())

	deleted, err := s.store.DeleteAll(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(2, deleted)

	got, err := s.store.ListByRecipient(s.ctx, "alice")
	s.Require().NoError(err)
	s.Empty(got)

	deleted, err = s.store.DeleteAll(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(0, deleted)

	bobs, err := s.store.ListByRecipient(s.ctx, "bob")
	s.Require().NoError(err)
	s.Len(bobs, 1)
}
