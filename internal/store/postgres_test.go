package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS progress`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendAndListProgress(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ts := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO progress`).
		WithArgs("d1", "초기화", "접수", ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT diagnosis_id, status, message, created_at FROM progress`).
		WithArgs("d1").
		WillReturnRows(pgxmock.NewRows([]string{"diagnosis_id", "status", "message", "created_at"}).
			AddRow("d1", "초기화", "접수", ts).
			AddRow("d1", "완료", "done", ts.Add(time.Minute)))

	ctx := context.Background()
	require.NoError(t, s.AppendProgress(ctx, model.ProgressRecord{SubmissionID: "d1", Status: "초기화", Message: "접수", Timestamp: ts}))

	latest, ok, err := LatestStatus(ctx, s, "d1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "완료", latest.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveDiagnosis(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO diagnoses .* ON CONFLICT`).
		WithArgs("d1", "한빛제조", "lee@example.com", "완료", 50.0, "Developing", pgxmock.AnyArg(), at, at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveDiagnosis(context.Background(), model.DiagnosisRecord{
		DiagnosisID:  "d1",
		CompanyName:  "한빛제조",
		ContactEmail: "lee@example.com",
		Status:       model.StateDone,
		OverallScore: 50,
		Maturity:     model.MaturityDeveloping,
		SubmittedAt:  at,
		CompletedAt:  at,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveDiagnosis_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`INSERT INTO diagnoses`).WillReturnError(errors.New("connection reset"))

	err := s.SaveDiagnosis(context.Background(), model.DiagnosisRecord{DiagnosisID: "d1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: save diagnosis d1")
}

func TestPostgresStore_ListDiagnoses(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	since := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT record FROM diagnoses`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"record"}).
			AddRow([]byte(`{"diagnosisId":"d1","companyName":"한빛제조","overallScore":50}`)))

	got, err := s.ListDiagnoses(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "한빛제조", got[0].CompanyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryQuality_BadJSON(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectQuery(`SELECT report FROM quality_reports`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"report"}).AddRow([]byte(`{broken`)))

	_, err := s.QueryQuality(context.Background(), time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: query quality: unmarshal")
}

func TestPostgresStore_RecordQuality(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`INSERT INTO quality_reports`).
		WithArgs(pgxmock.AnyArg(), "d1", true, 91.0, "excellent", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordQuality(context.Background(), model.QualityReport{DiagnosisID: "d1", Success: true, Confidence: 91, Grade: model.GradeExcellent})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
