// Package store persists progress rows, diagnosis results and quality
// reports. Progress is append-only; the latest status is found by scanning
// from the end.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

// ProgressStore appends and lists progress rows.
type ProgressStore interface {
	AppendProgress(ctx context.Context, rec model.ProgressRecord) error
	// ListProgress returns the rows for a diagnosis in append order.
	ListProgress(ctx context.Context, diagnosisID string) ([]model.ProgressRecord, error)
}

// ResultSink receives final diagnosis records. Writes are at-least-once and
// keyed by diagnosis id.
type ResultSink interface {
	SaveDiagnosis(ctx context.Context, rec model.DiagnosisRecord) error
}

// QualityRepository keeps the quality history.
type QualityRepository interface {
	RecordQuality(ctx context.Context, rep model.QualityReport) error
	QueryQuality(ctx context.Context, since time.Time) ([]model.QualityReport, error)
}

// Store is the full persistence backend.
type Store interface {
	ProgressStore
	ResultSink
	QualityRepository

	ListDiagnoses(ctx context.Context, since time.Time) ([]model.DiagnosisRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}

// LatestStatus returns the most recent progress row for a diagnosis.
func LatestStatus(ctx context.Context, ps ProgressStore, diagnosisID string) (model.ProgressRecord, bool, error) {
	rows, err := ps.ListProgress(ctx, diagnosisID)
	if err != nil {
		return model.ProgressRecord{}, false, eris.Wrapf(err, "store: latest status %s", diagnosisID)
	}
	rec, ok := model.LatestProgress(rows, diagnosisID)
	return rec, ok, nil
}

// tsLayout is fixed-width so stored UTC timestamps compare lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "store: parse timestamp %q", s)
	}
	return t, nil
}
