package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS progress (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	diagnosis_id TEXT NOT NULL,
	status       TEXT NOT NULL,
	message      TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS diagnoses (
	diagnosis_id  TEXT PRIMARY KEY,
	company_name  TEXT NOT NULL,
	contact_email TEXT NOT NULL,
	status        TEXT NOT NULL,
	overall_score REAL NOT NULL,
	maturity      TEXT NOT NULL,
	record        TEXT NOT NULL,
	submitted_at  TEXT NOT NULL,
	completed_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS quality_reports (
	id           TEXT PRIMARY KEY,
	diagnosis_id TEXT NOT NULL,
	success      INTEGER NOT NULL,
	confidence   REAL NOT NULL,
	grade        TEXT NOT NULL,
	report       TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_progress_diagnosis ON progress(diagnosis_id, seq);
CREATE INDEX IF NOT EXISTS idx_diagnoses_completed ON diagnoses(completed_at);
CREATE INDEX IF NOT EXISTS idx_quality_created ON quality_reports(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AppendProgress(ctx context.Context, rec model.ProgressRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progress (diagnosis_id, status, message, created_at) VALUES (?, ?, ?, ?)`,
		rec.SubmissionID, rec.Status, rec.Message, formatTS(rec.Timestamp),
	)
	return eris.Wrapf(err, "sqlite: append progress %s", rec.SubmissionID)
}

func (s *SQLiteStore) ListProgress(ctx context.Context, diagnosisID string) ([]model.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT diagnosis_id, status, message, created_at FROM progress WHERE diagnosis_id = ? ORDER BY seq`,
		diagnosisID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list progress")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ProgressRecord
	for rows.Next() {
		var rec model.ProgressRecord
		var ts string
		if err := rows.Scan(&rec.SubmissionID, &rec.Status, &rec.Message, &ts); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan progress")
		}
		if rec.Timestamp, err = parseTS(ts); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list progress iterate")
}

func (s *SQLiteStore) SaveDiagnosis(ctx context.Context, rec model.DiagnosisRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal diagnosis")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO diagnoses (diagnosis_id, company_name, contact_email, status, overall_score, maturity, record, submitted_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(diagnosis_id) DO UPDATE SET
			status = excluded.status,
			overall_score = excluded.overall_score,
			maturity = excluded.maturity,
			record = excluded.record,
			completed_at = excluded.completed_at`,
		rec.DiagnosisID, rec.CompanyName, rec.ContactEmail, string(rec.Status), rec.OverallScore,
		string(rec.Maturity), string(recordJSON), formatTS(rec.SubmittedAt), formatTS(rec.CompletedAt),
	)
	return eris.Wrapf(err, "sqlite: save diagnosis %s", rec.DiagnosisID)
}

func (s *SQLiteStore) ListDiagnoses(ctx context.Context, since time.Time) ([]model.DiagnosisRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM diagnoses WHERE completed_at >= ? ORDER BY completed_at`,
		formatTS(since),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list diagnoses")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.DiagnosisRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan diagnosis")
		}
		var rec model.DiagnosisRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal diagnosis")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list diagnoses iterate")
}

func (s *SQLiteStore) RecordQuality(ctx context.Context, rep model.QualityReport) error {
	if rep.ID == "" {
		rep.ID = uuid.New().String()
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now().UTC()
	}
	reportJSON, err := json.Marshal(rep)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal quality report")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quality_reports (id, diagnosis_id, success, confidence, grade, report, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.DiagnosisID, rep.Success, rep.Confidence, string(rep.Grade), string(reportJSON), formatTS(rep.CreatedAt),
	)
	return eris.Wrapf(err, "sqlite: record quality %s", rep.DiagnosisID)
}

func (s *SQLiteStore) QueryQuality(ctx context.Context, since time.Time) ([]model.QualityReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT report FROM quality_reports WHERE created_at >= ? ORDER BY created_at`,
		formatTS(since),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query quality")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.QualityReport
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan quality report")
		}
		var rep model.QualityReport
		if err := json.Unmarshal([]byte(raw), &rep); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal quality report")
		}
		out = append(out, rep)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: query quality iterate")
}
