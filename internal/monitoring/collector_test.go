package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/internal/quality"
)

type trendFunc func(ctx context.Context, since time.Time) (*quality.Trend, error)

func (f trendFunc) Trend(ctx context.Context, since time.Time) (*quality.Trend, error) {
	return f(ctx, since)
}

func TestCollector_Collect(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	var gotSince time.Time
	src := trendFunc(func(_ context.Context, since time.Time) (*quality.Trend, error) {
		gotSince = since
		return quality.Summarize([]model.QualityReport{
			{DiagnosisID: "a", Success: true, FinalState: model.StateDone, Confidence: 90, Grade: model.GradeExcellent},
			{DiagnosisID: "b", FinalState: model.StateTimeout, Confidence: 30, Grade: model.GradePoor},
			{DiagnosisID: "c", FinalState: model.StateAnalysisFailed, Confidence: 40, Grade: model.GradePoor},
		}), nil
	})

	c := NewCollector(src)
	c.now = func() time.Time { return now }

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-24*time.Hour), gotSince)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 1, snap.Succeeded)
	assert.Equal(t, 2, snap.Failed)
	assert.Equal(t, 1, snap.TimedOut)
	assert.Equal(t, 2, snap.PoorReports)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.Equal(t, now, snap.CollectedAt)
}

func TestCollector_SourceError(t *testing.T) {
	src := trendFunc(func(context.Context, time.Time) (*quality.Trend, error) {
		return nil, errors.New("db down")
	})
	_, err := NewCollector(src).Collect(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect quality trend")
}
