package history

import (
	"context"
	"log/slog"

	"vigil/internal/transition"
)

// Listener records every transition event. History loss must never fail the
// triggering operation; the bus logs and swallows any error returned here.
type Listener struct {
	store  Store
	logger *slog.Logger
}

func NewListener(store Store, logger *slog.Logger) *Listener {
	return &Listener{store: store, logger: logger}
}

func (l *Listener) Name() string { return "history" }

func (l *Listener) OnTransition(ctx context.Context, event transition.Event) error {
	if err := l.store.Append(ctx, RecordFrom(event)); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "state change recorded",
		"subject_id", event.SubjectID.String(),
		"new", string(event.New),
	)
	return nil
}
