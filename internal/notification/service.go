package notification

import (
	"context"
	"errors"
	"log/slog"

	"vigil/internal/notification/registry"
	"vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
)

// Service is the read/ack side of notifications plus stream subscription.
type Service struct {
	store    Store
	registry *registry.Registry
	logger   *slog.Logger
}

func NewService(store Store, reg *registry.Registry, logger *slog.Logger) *Service {
	return &Service{store: store, registry: reg, logger: logger}
}

// Subscribe opens a live stream for the recipient, replacing any prior one.
func (s *Service) Subscribe(recipient string) *registry.Conn {
	s.logger.Info("push stream subscribed", "recipient", recipient)
	return s.registry.Register(recipient)
}

// Drop tears down one specific stream. A replaced stream's handler calling
// Drop does not affect the replacement.
func (s *Service) Drop(conn *registry.Conn) {
	s.registry.Drop(conn)
}

func (s *Service) List(ctx context.Context, recipient string) ([]*Notification, error) {
	out, err := s.store.ListByRecipient(ctx, recipient)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list notifications", err)
	}
	return out, nil
}

func (s *Service) MarkRead(ctx context.Context, id domain.NotificationID) error {
	if err := s.store.MarkRead(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification "+id.String()+" not found")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "mark notification read", err)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, recipient string) error {
	if err := s.store.MarkAllRead(ctx, recipient); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "mark all notifications read", err)
	}
	return nil
}

func (s *Service) DeleteAll(ctx context.Context, recipient string) (int, error) {
	deleted, err := s.store.DeleteAll(ctx, recipient)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "delete notifications", err)
	}
	s.logger.InfoContext(ctx, "notifications deleted", "recipient", recipient, "count", deleted)
	return deleted, nil
}
