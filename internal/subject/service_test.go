package subject

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"vigil/internal/analysis"
	"vigil/internal/history"
	"vigil/internal/transition"
	"vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
)

// ServiceSuite wires the real engine, bus, and in-memory stores so state
// changes flow the same path they do in production.
type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	store    *InMemoryStore
	records  *history.InMemoryStore
	outcomes *analysis.InMemoryStore
	service  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.records = history.NewInMemoryStore()
	s.outcomes = analysis.NewInMemoryStore()

	bus := transition.NewBus(log)
	bus.Subscribe(history.NewListener(s.records, log))
	engine := transition.NewEngine(s.store, s.outcomes, bus, log, nil)
	s.service = NewService(s.store, s.records, engine, bus, nil, log)
}

func (s *ServiceSuite) TestCreateDefaultsToPositive() {
	subj, err := s.service.Create(s.ctx, CreateParams{Name: "Kim"})
	s.Require().NoError(err)
	s.Equal(domain.RiskPositive, subj.Level)

	// Registration publishes the initial classification.
	records, err := s.records.ListBySubject(s.ctx, subj.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Nil(records[0].Previous)
	s.Equal(domain.RiskPositive, records[0].New)
	s.Equal("initial registration", records[0].Reason)
}

func (s *ServiceSuite) TestCreateRequiresName() {
	_, err := s.service.Create(s.ctx, CreateParams{})
	s.Require().Error(err)
	s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestCreateRejectsUnknownLevel() {
	_, err := s.service.Create(s.ctx, CreateParams{Name: "Kim", Level: "SEVERE"})
	s.Require().Error(err)
	s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestUpdateStateRecordsHistory() {
	subj, err := s.service.Create(s.ctx, CreateParams{Name: "Kim"})
	s.Require().NoError(err)

	event, err := s.service.UpdateState(s.ctx, subj.ID, domain.RiskDanger, "missed check-in", nil)
	s.Require().NoError(err)
	s.Require().NotNil(event)

	got, err := s.service.Get(s.ctx, subj.ID)
	s.Require().NoError(err)
	s.Equal(domain.RiskDanger, got.Level)

	records, err := s.service.History(s.ctx, subj.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(domain.RiskDanger, records[0].New)
}

func (s *ServiceSuite) TestUpdateStateNoOp() {
	subj, err := s.service.Create(s.ctx, CreateParams{Name: "Kim", Level: domain.RiskDanger})
	s.Require().NoError(err)

	event, err := s.service.UpdateState(s.ctx, subj.ID, domain.RiskDanger, "still the same", nil)
	s.Require().NoError(err)
	s.Nil(event)

	// Only the registration record exists.
	records, err := s.service.History(s.ctx, subj.ID)
	s.Require().NoError(err)
	s.Len(records, 1)
}

func (s *ServiceSuite) TestGetUnknownSubject() {
	_, err := s.service.Get(s.ctx, domain.NewSubjectID())
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestDeleteUnknownSubject() {
	err := s.service.Delete(s.ctx, domain.NewSubjectID())
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestListSortedByName() {
	_, err := s.service.Create(s.ctx, CreateParams{Name: "Lee"})
	s.Require().NoError(err)
	_, err = s.service.Create(s.ctx, CreateParams{Name: "Kim"})
	s.Require().NoError(err)

	subjects, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(subjects, 2)
	s.Equal("Kim", subjects[0].Name)
	s.Equal("Lee", subjects[1].Name)
}
