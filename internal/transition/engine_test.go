package transition

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
)

type fakeSubjectStore struct {
	refs    map[domain.SubjectID]SubjectRef
	updates []domain.RiskLevel
}

func (f *fakeSubjectStore) FindRef(ctx context.Context, id domain.SubjectID) (SubjectRef, error) {
	ref, ok := f.refs[id]
	if !ok {
		return SubjectRef{}, sentinel.ErrNotFound
	}
	return ref, nil
}

func (f *fakeSubjectStore) UpdateLevel(ctx context.Context, id domain.SubjectID, level domain.RiskLevel) error {
	ref := f.refs[id]
	ref.Level = level
	f.refs[id] = ref
	f.updates = append(f.updates, level)
	return nil
}

type fakeOutcomeStore struct {
	owners   map[domain.OutcomeID]domain.SubjectID
	resolved map[domain.OutcomeID]domain.RiskLevel
}

func (f *fakeOutcomeStore) SubjectOf(ctx context.Context, id domain.OutcomeID) (domain.SubjectID, error) {
	owner, ok := f.owners[id]
	if !ok {
		return domain.SubjectID{}, sentinel.ErrNotFound
	}
	return owner, nil
}

func (f *fakeOutcomeStore) Resolve(ctx context.Context, id domain.OutcomeID, resolved domain.RiskLevel) error {
	f.resolved[id] = resolved
	return nil
}

type recordingSubscriber struct {
	name   string
	events []Event
}

func (r *recordingSubscriber) Name() string { return r.name }

func (r *recordingSubscriber) OnTransition(ctx context.Context, event Event) error {
	r.events = append(r.events, event)
	return nil
}

type EngineSuite struct {
	suite.Suite
	ctx        context.Context
	subjects   *fakeSubjectStore
	outcomes   *fakeOutcomeStore
	subscriber *recordingSubscriber
	engine     *Engine
	subjectID  domain.SubjectID
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.subjectID = domain.NewSubjectID()
	s.subjects = &fakeSubjectStore{refs: map[domain.SubjectID]SubjectRef{
		s.subjectID: {ID: s.subjectID, Name: "Kim", Level: domain.RiskPositive},
	}}
	s.outcomes = &fakeOutcomeStore{
		owners:   map[domain.OutcomeID]domain.SubjectID{},
		resolved: map[domain.OutcomeID]domain.RiskLevel{},
	}
	s.subscriber = &recordingSubscriber{name: "recorder"}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := NewBus(log)
	bus.Subscribe(s.subscriber)
	s.engine = NewEngine(s.subjects, s.outcomes, bus, log, nil)
}

func (s *EngineSuite) TestRejectsUnknownLevel() {
	_, err := s.engine.Propose(s.ctx, s.subjectID, "SEVERE", "manual check", nil)
	s.Require().Error(err)
	s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	s.Empty(s.subscriber.events)
}

func (s *EngineSuite) TestRejectsEmptyReason() {
	_, err := s.engine.Propose(s.ctx, s.subjectID, domain.RiskDanger, "", nil)
	s.Require().Error(err)
	s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	s.Empty(s.subjects.updates)
	s.Empty(s.subscriber.events)
}

func (s *EngineSuite) TestUnknownSubject() {
	_, err := s.engine.Propose(s.ctx, domain.NewSubjectID(), domain.RiskDanger, "manual check", nil)
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *EngineSuite) TestSameLevelIsNoOp() {
	event, err := s.engine.Propose(s.ctx, s.subjectID, domain.RiskPositive, "looks fine", nil)
	s.Require().NoError(err)
	s.Nil(event)
	s.Empty(s.subjects.updates)
	s.Empty(s.subscriber.events)
}

func (s *EngineSuite) TestChangePublishesEvent() {
	event, err := s.engine.Propose(s.ctx, s.subjectID, domain.RiskDanger, "missed two check-ins", nil)
	s.Require().NoError(err)
	s.Require().NotNil(event)
	s.Require().NotNil(event.Previous)
	s.Equal(domain.RiskPositive, *event.Previous)
	s.Equal(domain.RiskDanger, event.New)
	s.Equal("Kim", event.SubjectName)
	s.Equal("missed two check-ins", event.Reason)

	s.Equal([]domain.RiskLevel{domain.RiskDanger}, s.subjects.updates)
	s.Require().Len(s.subscriber.events, 1)
	s.Equal(*event, s.subscriber.events[0])
}

func (s *EngineSuite) TestResolvingForeignOutcomeFails() {
	outcomeID := domain.NewOutcomeID()
	s.outcomes.owners[outcomeID] = domain.NewSubjectID()

	_, err := s.engine.Propose(s.ctx, s.subjectID, domain.RiskDanger, "manual check", &outcomeID)
	s.Require().Error(err)
	s.Equal(dErrors.CodeReferenceMismatch, dErrors.CodeOf(err))

	// A mismatch must leave no trace.
	s.Empty(s.outcomes.resolved)
	s.Empty(s.subjects.updates)
	s.Empty(s.subscriber.events)
}

func (s *EngineSuite) TestResolvingUnknownOutcomeFails() {
	outcomeID := domain.NewOutcomeID()
	_, err := s.engine.Propose(s.ctx, s.subjectID, domain.RiskDanger, "manual check", &outcomeID)
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *EngineSuite) TestResolvingOwnOutcome() {
	outcomeID := domain.NewOutcomeID()
	s.outcomes.owners[outcomeID] = s.subjectID

	event, err := s.engine.Propose(s.ctx, s.subjectID, domain.RiskCritical, "confirmed by caretaker", &outcomeID)
	s.Require().NoError(err)
	s.Require().NotNil(event)
	s.Equal(domain.RiskCritical, s.outcomes.resolved[outcomeID])
}

func (s *EngineSuite) TestResolutionWithoutChangeStaysSilent() {
	outcomeID := domain.NewOutcomeID()
	s.outcomes.owners[outcomeID] = s.subjectID

	event, err := s.engine.Propose(s.ctx, s.subjectID, domain.RiskPositive, "caretaker agrees", &outcomeID)
	s.Require().NoError(err)
	s.Nil(event)

	// The outcome is resolved even though nothing changed and nothing was
	// published.
	s.Equal(domain.RiskPositive, s.outcomes.resolved[outcomeID])
	s.Empty(s.subscriber.events)
}
