package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/pkg/appscript"
)

// SheetsStore implements Store on top of the Apps Script web app. The
// spreadsheet owns its schema, so Migrate is a no-op.
type SheetsStore struct {
	client appscript.Client
}

// NewSheets wraps an Apps Script client.
func NewSheets(client appscript.Client) *SheetsStore {
	return &SheetsStore{client: client}
}

func (s *SheetsStore) Migrate(context.Context) error { return nil }

func (s *SheetsStore) Close() error { return nil }

func (s *SheetsStore) AppendProgress(ctx context.Context, rec model.ProgressRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	_, err := s.client.UpdateProgress(ctx, rec)
	return eris.Wrapf(err, "sheets: append progress %s", rec.SubmissionID)
}

func (s *SheetsStore) ListProgress(ctx context.Context, diagnosisID string) ([]model.ProgressRecord, error) {
	rows, err := s.client.GetProgress(ctx, diagnosisID)
	if err != nil {
		return nil, eris.Wrapf(err, "sheets: list progress %s", diagnosisID)
	}
	return rows, nil
}

func (s *SheetsStore) SaveDiagnosis(ctx context.Context, rec model.DiagnosisRecord) error {
	// The sheet cell limit is 50k characters; the summary column carries the text.
	rec.ReportHTML = ""
	_, err := s.client.SaveDiagnosis(ctx, rec)
	return eris.Wrapf(err, "sheets: save diagnosis %s", rec.DiagnosisID)
}

func (s *SheetsStore) ListDiagnoses(ctx context.Context, since time.Time) ([]model.DiagnosisRecord, error) {
	rows, err := s.client.ListDiagnoses(ctx, since)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: list diagnoses")
	}
	return rows, nil
}

func (s *SheetsStore) RecordQuality(ctx context.Context, rep model.QualityReport) error {
	_, err := s.client.SaveQualityReport(ctx, rep)
	return eris.Wrapf(err, "sheets: record quality %s", rep.DiagnosisID)
}

func (s *SheetsStore) QueryQuality(ctx context.Context, since time.Time) ([]model.QualityReport, error) {
	rows, err := s.client.ListQualityReports(ctx, since)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: query quality")
	}
	return rows, nil
}
