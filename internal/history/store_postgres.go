package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vigil/pkg/domain"
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

func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	query := `
		INSERT INTO state_history (subject_id, previous_level, new_level, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	var previous sql.NullString
	if record.Previous != nil {
		previous = sql.NullString{String: string(*record.Previous), Valid: true}
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.SubjectID),
		previous,
		string(record.New),
		record.Reason,
		record.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert state history: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]Record, error) {
	query := `
		SELECT previous_level, new_level, reason, occurred_at
		FROM state_history
		WHERE subject_id = $1
		ORDER BY occurred_at DESC, id DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("query state history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record := Record{SubjectID: subjectID}
		var previous sql.NullString
		var newLevel string
		if err := rows.Scan(&previous, &newLevel, &record.Reason, &record.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan state history: %w", err)
		}
		if previous.Valid {
			level := domain.RiskLevel(previous.String)
			record.Previous = &level
		}
		record.New = domain.RiskLevel(newLevel)
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *PostgresStore) LatestChangeTimes(ctx context.Context) (map[domain.SubjectID]time.Time, error) {
	query := `
		SELECT subject_id, MAX(occurred_at)
		FROM state_history
		GROUP BY subject_id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest change times: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.SubjectID]time.Time)
	for rows.Next() {
		var subjectID uuid.UUID
		var at time.Time
		if err := rows.Scan(&subjectID, &at); err != nil {
			return nil, fmt.Errorf("scan latest change time: %w", err)
		}
		out[domain.SubjectID(subjectID)] = at
	}
	return out, rows.Err()
}
