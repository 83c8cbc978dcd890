package notification

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
	txcontext "vigil/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Save(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (id, recipient, type, message, related_resource_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(n.ID),
		n.Recipient,
		string(n.Type),
		n.Message,
		n.RelatedResourceID,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, recipient string) ([]*Notification, error) {
	query := `
		SELECT id, recipient, type, message, related_resource_id, read, created_at
		FROM notifications
		WHERE recipient = $1
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, recipient)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var n Notification
		var id uuid.UUID
		var typ string
		if err := rows.Scan(&id, &n.Recipient, &typ, &n.Message, &n.RelatedResourceID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ID = domain.NotificationID(id)
		n.Type = Type(typ)
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkRead(ctx context.Context, id domain.NotificationID) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, recipient string) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE recipient = $1 AND NOT read`, recipient)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAll(ctx context.Context, recipient string) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM notifications WHERE recipient = $1`, recipient)
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}
