package transition

import (
	"context"
	"fmt"
	"log/slog"

	"vigil/pkg/platform/tx"
)

// Subscriber reacts to a transition event. Subscribers are registered once at
// startup and invoked synchronously in registration order.
type Subscriber interface {
	Name() string
	OnTransition(ctx context.Context, event Event) error
}

// Bus is the in-process fanout between the engine and its consumers. Each
// subscriber runs inside its own failure boundary: an error or panic is
// logged and neither stops delivery to later subscribers nor reaches the
// publisher. History recording and notification delivery are fire-and-forget
// side effects of a state change, never a reason to fail it.
type Bus struct {
	logger      *slog.Logger
	subscribers []Subscriber
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe appends a subscriber. Not safe for concurrent use with Publish;
// wiring happens before the server starts serving.
func (b *Bus) Subscribe(s Subscriber) {
	b.subscribers = append(b.subscribers, s)
}

// Publish delivers the event to every subscriber in order. The caller may be
// inside a database transaction; subscribers get a detached context so their
// own writes commit independently of the triggering operation.
func (b *Bus) Publish(ctx context.Context, event Event) {
	ctx = tx.Detach(ctx)
	for _, sub := range b.subscribers {
		if err := b.deliver(ctx, sub, event); err != nil {
			b.logger.ErrorContext(ctx, "transition subscriber failed",
				"subscriber", sub.Name(),
				"subject_id", event.SubjectID.String(),
				"error", err,
			)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, sub Subscriber, event Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return sub.OnTransition(ctx, event)
}
