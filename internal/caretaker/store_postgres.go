package caretaker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

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
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Save(ctx context.Context, c *Caretaker) error {
	query := `
		INSERT INTO caretakers (username, role, enabled, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query, c.Username, string(c.Role), c.Enabled, c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert caretaker: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*Caretaker, error) {
	query := `SELECT username, role, enabled, created_at FROM caretakers WHERE username = $1`
	return scanCaretaker(s.execer(ctx).QueryRowContext(ctx, query, username))
}

func (s *PostgresStore) List(ctx context.Context) ([]*Caretaker, error) {
	query := `SELECT username, role, enabled, created_at FROM caretakers ORDER BY username`
	return s.queryCaretakers(ctx, query)
}

func (s *PostgresStore) ListEnabledByRole(ctx context.Context, role Role) ([]*Caretaker, error) {
	query := `
		SELECT username, role, enabled, created_at
		FROM caretakers
		WHERE enabled AND role = $1
		ORDER BY username
	`
	return s.queryCaretakers(ctx, query, string(role))
}

func (s *PostgresStore) Update(ctx context.Context, c *Caretaker) error {
	query := `UPDATE caretakers SET role = $2, enabled = $3 WHERE username = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query, c.Username, string(c.Role), c.Enabled)
	if err != nil {
		return fmt.Errorf("update caretaker: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, username string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM caretakers WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("delete caretaker: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) queryCaretakers(ctx context.Context, query string, args ...any) ([]*Caretaker, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query caretakers: %w", err)
	}
	defer rows.Close()

	var out []*Caretaker
	for rows.Next() {
		var c Caretaker
		var role string
		if err := rows.Scan(&c.Username, &role, &c.Enabled, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan caretaker: %w", err)
		}
		c.Role = Role(role)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func scanCaretaker(row *sql.Row) (*Caretaker, error) {
	var c Caretaker
	var role string
	if err := row.Scan(&c.Username, &role, &c.Enabled, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan caretaker: %w", err)
	}
	c.Role = Role(role)
	return &c, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
