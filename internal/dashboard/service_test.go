package dashboard

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigil/internal/analysis"
	"vigil/internal/history"
	"vigil/internal/subject"
	"vigil/pkg/domain"
)

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	subjects *subject.InMemoryStore
	records  *history.InMemoryStore
	outcomes *analysis.InMemoryStore
	service  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.subjects = subject.NewInMemoryStore()
	s.records = history.NewInMemoryStore()
	s.outcomes = analysis.NewInMemoryStore()
	s.service = NewService(s.subjects, s.records, s.outcomes,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *ServiceSuite) addSubject(name string, level domain.RiskLevel) domain.SubjectID {
	now := time.Now()
	id := domain.NewSubjectID()
	s.Require().NoError(s.subjects.Save(s.ctx, &subject.Subject{
		ID:        id,
		Name:      name,
		Level:     level,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	return id
}

func (s *ServiceSuite) TestOverviewEmpty() {
	overview, err := s.service.Overview(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, overview.Total)
	for _, level := range domain.RiskLevels() {
		s.Equal(0, overview.Counts[level])
		s.Empty(overview.ByLevel[level])
	}
}

func (s *ServiceSuite) TestOverviewGroupsByLevel() {
	kim := s.addSubject("Kim", domain.RiskDanger)
	s.addSubject("Lee", domain.RiskDanger)
	s.addSubject("Park", domain.RiskPositive)

	changed := time.Now().Add(-time.Hour)
	s.Require().NoError(s.records.Append(s.ctx, history.Record{
		SubjectID:  kim,
		New:        domain.RiskDanger,
		Reason:     "missed check-in",
		OccurredAt: changed,
	}))
	s.Require().NoError(s.outcomes.Save(s.ctx, &analysis.Outcome{
		ID:        domain.NewOutcomeID(),
		SubjectID: kim,
		Label:     domain.RiskDanger,
		CreatedAt: time.Now(),
	}))

	overview, err := s.service.Overview(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, overview.Total)
	s.Equal(2, overview.Counts[domain.RiskDanger])
	s.Equal(1, overview.Counts[domain.RiskPositive])
	s.Equal(0, overview.Counts[domain.RiskEmergency])

	s.Len(overview.ByLevel[domain.RiskDanger], 2)
	s.Len(overview.ByLevel[domain.RiskPositive], 1)

	var kimEntry *Entry
	for i := range overview.ByLevel[domain.RiskDanger] {
		if overview.ByLevel[domain.RiskDanger][i].Subject.ID == kim {
			kimEntry = &overview.ByLevel[domain.RiskDanger][i]
		}
	}
	s.Require().NotNil(kimEntry)
	s.Require().NotNil(kimEntry.LastChangedAt)
	s.Equal(changed, *kimEntry.LastChangedAt)
	s.Require().NotNil(kimEntry.LatestOutcome)
	s.Equal(domain.RiskDanger, kimEntry.LatestOutcome.Label)
}

func (s *ServiceSuite) TestOverviewSubjectWithoutHistoryOrOutcome() {
	s.addSubject("Kim", domain.RiskPositive)

	overview, err := s.service.Overview(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(overview.ByLevel[domain.RiskPositive], 1)
	entry := overview.ByLevel[domain.RiskPositive][0]
	s.Nil(entry.LastChangedAt)
	s.Nil(entry.LatestOutcome)
}
