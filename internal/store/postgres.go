package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS progress (
	seq          BIGSERIAL PRIMARY KEY,
	diagnosis_id TEXT NOT NULL,
	status       TEXT NOT NULL,
	message      TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS diagnoses (
	diagnosis_id  TEXT PRIMARY KEY,
	company_name  TEXT NOT NULL,
	contact_email TEXT NOT NULL,
	status        TEXT NOT NULL,
	overall_score DOUBLE PRECISION NOT NULL,
	maturity      TEXT NOT NULL,
	record        JSONB NOT NULL,
	submitted_at  TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS quality_reports (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	diagnosis_id TEXT NOT NULL,
	success      BOOLEAN NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL,
	grade        TEXT NOT NULL,
	report       JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_progress_diagnosis ON progress(diagnosis_id, seq);
CREATE INDEX IF NOT EXISTS idx_diagnoses_completed ON diagnoses(completed_at);
CREATE INDEX IF NOT EXISTS idx_quality_created ON quality_reports(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) AppendProgress(ctx context.Context, rec model.ProgressRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO progress (diagnosis_id, status, message, created_at) VALUES ($1, $2, $3, $4)`,
		rec.SubmissionID, rec.Status, rec.Message, rec.Timestamp.UTC(),
	)
	return eris.Wrapf(err, "postgres: append progress %s", rec.SubmissionID)
}

func (s *PostgresStore) ListProgress(ctx context.Context, diagnosisID string) ([]model.ProgressRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT diagnosis_id, status, message, created_at FROM progress WHERE diagnosis_id = $1 ORDER BY seq`,
		diagnosisID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list progress")
	}
	defer rows.Close()

	var out []model.ProgressRecord
	for rows.Next() {
		var rec model.ProgressRecord
		if err := rows.Scan(&rec.SubmissionID, &rec.Status, &rec.Message, &rec.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan progress")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list progress iterate")
}

func (s *PostgresStore) SaveDiagnosis(ctx context.Context, rec model.DiagnosisRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal diagnosis")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO diagnoses (diagnosis_id, company_name, contact_email, status, overall_score, maturity, record, submitted_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (diagnosis_id) DO UPDATE SET
			status = EXCLUDED.status,
			overall_score = EXCLUDED.overall_score,
			maturity = EXCLUDED.maturity,
			record = EXCLUDED.record,
			completed_at = EXCLUDED.completed_at`,
		rec.DiagnosisID, rec.CompanyName, rec.ContactEmail, string(rec.Status), rec.OverallScore,
		string(rec.Maturity), recordJSON, rec.SubmittedAt.UTC(), rec.CompletedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: save diagnosis %s", rec.DiagnosisID)
}

func (s *PostgresStore) ListDiagnoses(ctx context.Context, since time.Time) ([]model.DiagnosisRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM diagnoses WHERE completed_at >= $1 ORDER BY completed_at`,
		since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list diagnoses")
	}
	return collectJSON[model.DiagnosisRecord](rows, "postgres: list diagnoses")
}

func (s *PostgresStore) RecordQuality(ctx context.Context, rep model.QualityReport) error {
	if rep.ID == "" {
		rep.ID = uuid.New().String()
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now().UTC()
	}
	reportJSON, err := json.Marshal(rep)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal quality report")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quality_reports (id, diagnosis_id, success, confidence, grade, report, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rep.ID, rep.DiagnosisID, rep.Success, rep.Confidence, string(rep.Grade), reportJSON, rep.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: record quality %s", rep.DiagnosisID)
}

func (s *PostgresStore) QueryQuality(ctx context.Context, since time.Time) ([]model.QualityReport, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT report FROM quality_reports WHERE created_at >= $1 ORDER BY created_at`,
		since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query quality")
	}
	return collectJSON[model.QualityReport](rows, "postgres: query quality")
}

// collectJSON decodes a single JSONB column from every row.
func collectJSON[T any](rows pgx.Rows, op string) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrapf(err, "%s: scan", op)
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, eris.Wrapf(err, "%s: unmarshal", op)
		}
		out = append(out, v)
	}
	return out, eris.Wrapf(rows.Err(), "%s: iterate", op)
}
