package subject

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vigil/internal/transition"
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
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Save(ctx context.Context, subj *Subject) error {
	query := `
		INSERT INTO subjects (id, name, phone, address, note, risk_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(subj.ID),
		subj.Name,
		subj.Phone,
		subj.Address,
		subj.Note,
		string(subj.Level),
		subj.CreatedAt,
		subj.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.SubjectID) (*Subject, error) {
	query := `
		SELECT id, name, phone, address, note, risk_level, created_at, updated_at
		FROM subjects WHERE id = $1
	`
	var subj Subject
	var rawID uuid.UUID
	var level string
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)).Scan(
		&rawID, &subj.Name, &subj.Phone, &subj.Address, &subj.Note, &level,
		&subj.CreatedAt, &subj.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan subject: %w", err)
	}
	subj.ID = domain.SubjectID(rawID)
	subj.Level = domain.RiskLevel(level)
	return &subj, nil
}

func (s *PostgresStore) FindRef(ctx context.Context, id domain.SubjectID) (transition.SubjectRef, error) {
	query := `SELECT name, risk_level FROM subjects WHERE id = $1 FOR UPDATE`
	var name, level string
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)).Scan(&name, &level)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transition.SubjectRef{}, sentinel.ErrNotFound
		}
		return transition.SubjectRef{}, fmt.Errorf("scan subject ref: %w", err)
	}
	return transition.SubjectRef{ID: id, Name: name, Level: domain.RiskLevel(level)}, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Subject, error) {
	query := `
		SELECT id, name, phone, address, note, risk_level, created_at, updated_at
		FROM subjects ORDER BY name
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var out []*Subject
	for rows.Next() {
		var subj Subject
		var rawID uuid.UUID
		var level string
		if err := rows.Scan(&rawID, &subj.Name, &subj.Phone, &subj.Address, &subj.Note,
			&level, &subj.CreatedAt, &subj.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subj.ID = domain.SubjectID(rawID)
		subj.Level = domain.RiskLevel(level)
		out = append(out, &subj)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateLevel(ctx context.Context, id domain.SubjectID, level domain.RiskLevel) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE subjects SET risk_level = $2, updated_at = NOW() WHERE id = $1`,
		uuid.UUID(id), string(level))
	if err != nil {
		return fmt.Errorf("update subject level: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.SubjectID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) CountByLevel(ctx context.Context) (map[domain.RiskLevel]int, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT risk_level, COUNT(*) FROM subjects GROUP BY risk_level`)
	if err != nil {
		return nil, fmt.Errorf("count subjects by level: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.RiskLevel]int)
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("scan level count: %w", err)
		}
		out[domain.RiskLevel(level)] = count
	}
	return out, rows.Err()
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
