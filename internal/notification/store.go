package notification

import (
	"context"

	"vigil/pkg/domain"
)

// Store persists notifications per recipient.
type Store interface {
	Save(ctx context.Context, n *Notification) error
	// ListByRecipient returns a recipient's notifications newest first.
	ListByRecipient(ctx context.Context, recipient string) ([]*Notification, error)
	// MarkRead flips one notification to read. Idempotent; returns
	// sentinel.ErrNotFound for an unknown id.
	MarkRead(ctx context.Context, id domain.NotificationID) error
	// MarkAllRead flips every unread notification for the recipient. A pure
	// no-op when none are unread.
	MarkAllRead(ctx context.Context, recipient string) error
	// DeleteAll removes all of the recipient's notifications and returns how
	// many were removed.
	DeleteAll(ctx context.Context, recipient string) (int, error)
}
