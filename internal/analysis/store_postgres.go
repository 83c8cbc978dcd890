package analysis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

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

const outcomeColumns = `id, subject_id, label, summary, evidence, treatment_plan,
	score_positive, score_danger, score_critical, score_emergency,
	resolved, resolved_level, created_at`

func (s *PostgresStore) Save(ctx context.Context, outcome *Outcome) error {
	query := `
		INSERT INTO analysis_outcomes (` + outcomeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	var resolvedLevel sql.NullString
	if outcome.ResolvedLevel != nil {
		resolvedLevel = sql.NullString{String: string(*outcome.ResolvedLevel), Valid: true}
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(outcome.ID),
		uuid.UUID(outcome.SubjectID),
		string(outcome.Label),
		outcome.Summary,
		pq.Array(outcome.Evidence),
		outcome.TreatmentPlan,
		outcome.Scores.Positive,
		outcome.Scores.Danger,
		outcome.Scores.Critical,
		outcome.Scores.Emergency,
		outcome.Resolved,
		resolvedLevel,
		outcome.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis outcome: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.OutcomeID) (*Outcome, error) {
	query := `SELECT ` + outcomeColumns + ` FROM analysis_outcomes WHERE id = $1`
	outcome, err := scanOutcome(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan analysis outcome: %w", err)
	}
	return outcome, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.OutcomeID) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM analysis_outcomes WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("delete analysis outcome: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListRecentBySubject(ctx context.Context, subjectID domain.SubjectID, limit int) ([]*Outcome, error) {
	query := `
		SELECT ` + outcomeColumns + `
		FROM analysis_outcomes
		WHERE subject_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(subjectID), limit)
	if err != nil {
		return nil, fmt.Errorf("query analysis outcomes: %w", err)
	}
	defer rows.Close()

	var out []*Outcome
	for rows.Next() {
		outcome, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis outcome: %w", err)
		}
		out = append(out, outcome)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SubjectOf(ctx context.Context, id domain.OutcomeID) (domain.SubjectID, error) {
	var subjectID uuid.UUID
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT subject_id FROM analysis_outcomes WHERE id = $1`, uuid.UUID(id)).Scan(&subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SubjectID{}, sentinel.ErrNotFound
		}
		return domain.SubjectID{}, fmt.Errorf("scan outcome subject: %w", err)
	}
	return domain.SubjectID(subjectID), nil
}

func (s *PostgresStore) Resolve(ctx context.Context, id domain.OutcomeID, resolved domain.RiskLevel) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE analysis_outcomes SET resolved = TRUE, resolved_level = $2 WHERE id = $1`,
		uuid.UUID(id), string(resolved))
	if err != nil {
		return fmt.Errorf("resolve analysis outcome: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) HasNewer(ctx context.Context, id domain.OutcomeID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM analysis_outcomes newer
			JOIN analysis_outcomes cur ON cur.id = $1
			WHERE newer.subject_id = cur.subject_id
			  AND (newer.created_at, newer.id) > (cur.created_at, cur.id)
		), EXISTS (SELECT 1 FROM analysis_outcomes WHERE id = $1)
	`
	var hasNewer, exists bool
	if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)).Scan(&hasNewer, &exists); err != nil {
		return false, fmt.Errorf("check newer outcome: %w", err)
	}
	if !exists {
		return false, sentinel.ErrNotFound
	}
	return hasNewer, nil
}

func (s *PostgresStore) LatestPerSubject(ctx context.Context) (map[domain.SubjectID]*Outcome, error) {
	query := `
		SELECT DISTINCT ON (subject_id) ` + outcomeColumns + `
		FROM analysis_outcomes
		ORDER BY subject_id, created_at DESC, id DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest outcomes: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.SubjectID]*Outcome)
	for rows.Next() {
		outcome, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis outcome: %w", err)
		}
		out[outcome.SubjectID] = outcome
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutcome(row rowScanner) (*Outcome, error) {
	var outcome Outcome
	var rawID, rawSubjectID uuid.UUID
	var label string
	var resolvedLevel sql.NullString
	err := row.Scan(
		&rawID, &rawSubjectID, &label, &outcome.Summary, pq.Array(&outcome.Evidence),
		&outcome.TreatmentPlan,
		&outcome.Scores.Positive, &outcome.Scores.Danger,
		&outcome.Scores.Critical, &outcome.Scores.Emergency,
		&outcome.Resolved, &resolvedLevel, &outcome.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	outcome.ID = domain.OutcomeID(rawID)
	outcome.SubjectID = domain.SubjectID(rawSubjectID)
	outcome.Label = domain.RiskLevel(label)
	if resolvedLevel.Valid {
		level := domain.RiskLevel(resolvedLevel.String)
		outcome.ResolvedLevel = &level
	}
	return &outcome, nil
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
