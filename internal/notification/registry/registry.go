// Package registry tracks the live push stream per connected recipient. It is
// the one structure shared between request handlers and event dispatch, so all
// mutation goes through a concurrency-safe map; callers never lock.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"vigil/internal/platform/metrics"
)

// Message is one unit of live delivery: an SSE event name plus its payload.
type Message struct {
	Event string
	Data  []byte
}

// sendBuffer bounds how far a slow reader may fall behind before a send is
// treated as a transport failure.
const sendBuffer = 16

// Conn is one recipient's live stream. The handler owning the HTTP response
// reads Events until Done closes.
type Conn struct {
	identity string
	events   chan Message
	done     chan struct{}
	once     sync.Once
	idle     *time.Timer
}

// Events delivers pushed messages. The channel is never closed; readers must
// also select on Done.
func (c *Conn) Events() <-chan Message { return c.events }

// Done closes when the connection is replaced, expired, or dropped.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) close() {
	c.once.Do(func() {
		if c.idle != nil {
			c.idle.Stop()
		}
		close(c.done)
	})
}

// Registry maps recipient identity to its live connection. At most one
// connection per identity: a new Register silently replaces and closes any
// prior one.
type Registry struct {
	conns       sync.Map // identity -> *Conn
	idleTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func New(idleTimeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Registry {
	return &Registry{idleTimeout: idleTimeout, logger: logger, metrics: m}
}

// Register opens a connection for identity, closing any previous one.
func (r *Registry) Register(identity string) *Conn {
	conn := &Conn{
		identity: identity,
		events:   make(chan Message, sendBuffer),
		done:     make(chan struct{}),
	}
	conn.idle = time.AfterFunc(r.idleTimeout, func() {
		r.logger.Info("push stream idle timeout", "identity", identity)
		r.Drop(conn)
	})

	if prev, loaded := r.conns.Swap(identity, conn); loaded {
		prev.(*Conn).close()
		r.logger.Info("push stream replaced", "identity", identity)
	} else if r.metrics != nil {
		r.metrics.LiveConnections.Inc()
	}
	return conn
}

// Unregister removes and closes the identity's connection. Safe to call when
// none is registered.
func (r *Registry) Unregister(identity string) {
	if conn, loaded := r.conns.LoadAndDelete(identity); loaded {
		conn.(*Conn).close()
		if r.metrics != nil {
			r.metrics.LiveConnections.Dec()
		}
	}
}

// Drop removes conn only if it is still the registered connection for its
// identity, so a stale idle timer or a finished handler cannot evict a
// replacement. Closing is idempotent either way.
func (r *Registry) Drop(conn *Conn) {
	if r.conns.CompareAndDelete(conn.identity, conn) {
		if r.metrics != nil {
			r.metrics.LiveConnections.Dec()
		}
	}
	conn.close()
}

// Send attempts best-effort delivery. It never blocks: a missing connection,
// a closed connection, or a full buffer reports false, and a broken
// connection is purged so the next attempt fails fast.
func (r *Registry) Send(identity string, msg Message) bool {
	value, ok := r.conns.Load(identity)
	if !ok {
		return false
	}
	conn := value.(*Conn)
	select {
	case <-conn.done:
		r.Drop(conn)
		return false
	default:
	}
	select {
	case conn.events <- msg:
		conn.idle.Reset(r.idleTimeout)
		return true
	default:
		// Reader fell too far behind; treat as a dead transport.
		r.logger.Warn("push stream buffer full, dropping connection", "identity", identity)
		r.Drop(conn)
		return false
	}
}

// Close shuts down every connection, used at server shutdown.
func (r *Registry) Close() {
	r.conns.Range(func(key, value any) bool {
		r.Unregister(key.(string))
		return true
	})
}
