package transition

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigil/pkg/domain"
)

type flakySubscriber struct {
	name  string
	fail  bool
	panic bool
	calls *[]string
}

func (f *flakySubscriber) Name() string { return f.name }

func (f *flakySubscriber) OnTransition(ctx context.Context, event Event) error {
	*f.calls = append(*f.calls, f.name)
	if f.panic {
		panic("subscriber exploded")
	}
	if f.fail {
		return errors.New("subscriber failed")
	}
	return nil
}

type BusSuite struct {
	suite.Suite
	bus   *Bus
	calls []string
}

func TestBusSuite(t *testing.T) {
	suite.Run(t, new(BusSuite))
}

func (s *BusSuite) SetupTest() {
	s.calls = nil
	s.bus = NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *BusSuite) event() Event {
	prev := domain.RiskPositive
	return Event{
		SubjectID:  domain.NewSubjectID(),
		Previous:   &prev,
		New:        domain.RiskDanger,
		Reason:     "test",
		OccurredAt: time.Now(),
	}
}

func (s *BusSuite) TestDeliversInRegistrationOrder() {
	s.bus.Subscribe(&flakySubscriber{name: "first", calls: &s.calls})
	s.bus.Subscribe(&flakySubscriber{name: "second", calls: &s.calls})
	s.bus.Subscribe(&flakySubscriber{name: "third", calls: &s.calls})

	s.bus.Publish(context.Background(), s.event())
	s.Equal([]string{"first", "second", "third"}, s.calls)
}

func (s *BusSuite) TestFailureDoesNotStopDelivery() {
	s.bus.Subscribe(&flakySubscriber{name: "failing", fail: true, calls: &s.calls})
	s.bus.Subscribe(&flakySubscriber{name: "after", calls: &s.calls})

	s.bus.Publish(context.Background(), s.event())
	s.Equal([]string{"failing", "after"}, s.calls)
}

func (s *BusSuite) TestPanicDoesNotReachPublisher() {
	s.bus.Subscribe(&flakySubscriber{name: "panicking", panic: true, calls: &s.calls})
	s.bus.Subscribe(&flakySubscriber{name: "after", calls: &s.calls})

	s.NotPanics(func() {
		s.bus.Publish(context.Background(), s.event())
	})
	s.Equal([]string{"panicking", "after"}, s.calls)
}

func (s *BusSuite) TestPublishWithoutSubscribers() {
	s.NotPanics(func() {
		s.bus.Publish(context.Background(), s.event())
	})
}
