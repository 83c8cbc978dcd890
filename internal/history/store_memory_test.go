package history

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigil/internal/transition"
	"vigil/pkg/domain"
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

func (s *InMemoryStoreSuite) record(subjectID domain.SubjectID, level domain.RiskLevel, at time.Time) Record {
	return Record{
		SubjectID:  subjectID,
		New:        level,
		Reason:     "test",
		OccurredAt: at,
	}
}

func (s *InMemoryStoreSuite) TestListNewestFirst() {
	subjectID := domain.NewSubjectID()
	base := time.Now()
	s.Require().NoError(s.store.Append(s.ctx, s.record(subjectID, domain.RiskDanger, base)))
	s.Require().NoError(s.store.Append(s.ctx, s.record(subjectID, domain.RiskCritical, base.Add(time.Second))))
	s.Require().NoError(s.store.Append(s.ctx, s.record(subjectID, domain.RiskPositive, base.Add(2*time.Second))))

	got, err := s.store.ListBySubject(s.ctx, subjectID)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(domain.RiskPositive, got[0].New)
	s.Equal(domain.RiskCritical, got[1].New)
	s.Equal(domain.RiskDanger, got[2].New)
}

func (s *InMemoryStoreSuite) TestListUnknownSubjectIsEmpty() {
	got, err := s.store.ListBySubject(s.ctx, domain.NewSubjectID())
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *InMemoryStoreSuite) TestLatestChangeTimes() {
	first := domain.NewSubjectID()
	second := domain.NewSubjectID()
	base := time.Now()
	s.Require().NoError(s.store.Append(s.ctx, s.record(first, domain.RiskDanger, base)))
	s.Require().NoError(s.store.Append(s.ctx, s.record(first, domain.RiskCritical, base.Add(time.Minute))))
	s.Require().NoError(s.store.Append(s.ctx, s.record(second, domain.RiskDanger, base)))

	got, err := s.store.LatestChangeTimes(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(base.Add(time.Minute), got[first])
	s.Equal(base, got[second])
}

func (s *InMemoryStoreSuite) TestListenerRecordsEvent() {
	listener := NewListener(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	subjectID := domain.NewSubjectID()
	prev := domain.RiskPositive
	event := transition.Event{
		SubjectID:   subjectID,
		SubjectName: "Kim",
		Previous:    &prev,
		New:         domain.RiskDanger,
		Reason:      "missed check-in",
		OccurredAt:  time.Now(),
	}

	s.Require().NoError(listener.OnTransition(s.ctx, event))

	got, err := s.store.ListBySubject(s.ctx, subjectID)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Require().NotNil(got[0].Previous)
	s.Equal(domain.RiskPositive, *got[0].Previous)
	s.Equal(domain.RiskDanger, got[0].New)
	s.Equal("missed check-in", got[0].Reason)
}
