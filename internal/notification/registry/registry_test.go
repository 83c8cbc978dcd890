package registry

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type RegistrySuite struct {
	suite.Suite
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.registry = New(time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func (s *RegistrySuite) TestSendToRegisteredConn() {
	conn := s.registry.Register("alice")
	s.True(s.registry.Send("alice", Message{Event: "notification", Data: []byte("hello")}))

	select {
	case msg := <-conn.Events():
		s.Equal("notification", msg.Event)
		s.Equal([]byte("hello"), msg.Data)
	default:
		s.Fail("expected a buffered message")
	}
}

func (s *RegistrySuite) TestSendWithoutConnFails() {
	s.False(s.registry.Send("nobody", Message{Event: "notification"}))
}

func (s *RegistrySuite) TestRegisterReplacesPreviousConn() {
	old := s.registry.Register("alice")
	replacement := s.registry.Register("alice")

	select {
	case <-old.Done():
	case <-time.After(time.Second):
		s.Fail("replaced connection should be closed")
	}

	s.True(s.registry.Send("alice", Message{Event: "notification"}))
	select {
	case <-replacement.Events():
	default:
		s.Fail("replacement should receive the message")
	}
}

func (s *RegistrySuite) TestDropOfStaleConnKeepsReplacement() {
	old := s.registry.Register("alice")
	s.registry.Register("alice")

	// A finished handler dropping its stale conn must not evict the
	// replacement.
	s.registry.Drop(old)
	s.True(s.registry.Send("alice", Message{Event: "notification"}))
}

func (s *RegistrySuite) TestUnregisterClosesConn() {
	conn := s.registry.Register("alice")
	s.registry.Unregister("alice")

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		s.Fail("unregistered connection should be closed")
	}
	s.False(s.registry.Send("alice", Message{Event: "notification"}))
}

func (s *RegistrySuite) TestFullBufferDropsConn() {
	conn := s.registry.Register("alice")
	for range sendBuffer {
		s.True(s.registry.Send("alice", Message{Event: "notification"}))
	}

	// One past the buffer: the reader is stuck, the transport is dead.
	s.False(s.registry.Send("alice", Message{Event: "notification"}))
	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		s.Fail("overflowing connection should be dropped")
	}
}

func (s *RegistrySuite) TestIdleTimeoutExpiresConn() {
	registry := New(20*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	conn := registry.Register("alice")

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		s.Fail("idle connection should expire")
	}
	s.False(registry.Send("alice", Message{Event: "notification"}))
}

func (s *RegistrySuite) TestConcurrentRegisterAndSend() {
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				conn := s.registry.Register("alice")
				s.registry.Send("alice", Message{Event: "notification"})
				s.registry.Drop(conn)
			}
		}()
	}
	wg.Wait()
}

func (s *RegistrySuite) TestCloseShutsDownAllConns() {
	a := s.registry.Register("alice")
	b := s.registry.Register("bob")
	s.registry.Close()

	for _, conn := range []*Conn{a, b} {
		select {
		case <-conn.Done():
		case <-time.After(time.Second):
			s.Fail("connection should be closed on shutdown")
		}
	}
}
