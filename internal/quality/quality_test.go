package quality

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

type memRepo struct {
	reports   []model.QualityReport
	recordErr error
	queryErr  error
}

func (m *memRepo) RecordQuality(_ context.Context, rep model.QualityReport) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.reports = append(m.reports, rep)
	return nil
}

func (m *memRepo) QueryQuality(_ context.Context, since time.Time) ([]model.QualityReport, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var out []model.QualityReport
	for _, r := range m.reports {
		if !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		confidence float64
		want       model.QualityGrade
	}{
		{100, model.GradeExcellent},
		{85, model.GradeExcellent},
		{84.9, model.GradeGood},
		{70, model.GradeGood},
		{50, model.GradeFair},
		{49.9, model.GradePoor},
		{0, model.GradePoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.confidence), "confidence %.1f", tt.confidence)
	}
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	rep := &model.Report{
		DiagnosisID:   "d1",
		Narrative:     "가나다",
		NarrativeTier: model.NarrativeAcceptable,
		Sections:      make([]model.Section, len(model.AllSections)),
		Quality: model.ReportQuality{
			Completeness:     0.9,
			SanitizedAnswers: 2,
			FallbackSections: 3,
			Confidence:       72.4,
		},
	}

	got := Evaluate(Input{DiagnosisID: "d1", Variant: model.VariantFull, FinalState: model.StateDone, Report: rep, AIAttempts: 2}, now)
	assert.True(t, got.Success)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, 3, got.NarrativeLength)
	assert.Equal(t, 12, got.SectionCount)
	assert.Equal(t, 3, got.FallbackSections)
	assert.Equal(t, 2, got.SanitizedAnswers)
	assert.Equal(t, model.GradeGood, got.Grade)
	assert.Equal(t, now, got.CreatedAt)
}

func TestEvaluate_FailedWithoutReport(t *testing.T) {
	got := Evaluate(Input{DiagnosisID: "d2", FinalState: model.StateAnalysisFailed, AIAttempts: 5}, time.Now())
	assert.False(t, got.Success)
	assert.Equal(t, model.NarrativeNone, got.NarrativeTier)
	assert.Equal(t, model.GradePoor, got.Grade)
	assert.Equal(t, 5, got.AIAttempts)
}

func TestService_RecordAndTrend(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	base := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	inputs := []struct {
		at    time.Time
		state model.State
		conf  float64
	}{
		{base.Add(-72 * time.Hour), model.StateAnalysisFailed, 30},
		{base.Add(time.Hour), model.StateDone, 90},
		{base.Add(2 * time.Hour), model.StateDone, 70},
		{base.Add(3 * time.Hour), model.StateSaveFailed, 50},
	}
	for i, in := range inputs {
		svc.now = func() time.Time { return in.at }
		_, err := svc.Record(ctx, Input{
			DiagnosisID: string(rune('a' + i)),
			FinalState:  in.state,
			Report:      &model.Report{Quality: model.ReportQuality{Confidence: in.conf}},
			AIAttempts:  1,
		})
		require.NoError(t, err)
	}

	trend, err := svc.Trend(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, 3, trend.Total)
	assert.Equal(t, 2, trend.Succeeded)
	assert.Equal(t, 1, trend.Failed)
	assert.InDelta(t, 0.3333, trend.FailureRate, 1e-9)
	assert.InDelta(t, 70.0, trend.AvgConfidence, 1e-9)
	assert.Equal(t, 1, trend.Grades[model.GradeExcellent])
	assert.Equal(t, 1, trend.FinalStates[model.StateSaveFailed])
	assert.Equal(t, base, trend.Since)
}

func TestService_RecordError(t *testing.T) {
	svc := NewService(&memRepo{recordErr: errors.New("disk full")})
	rep, err := svc.Record(context.Background(), Input{DiagnosisID: "d1", FinalState: model.StateDone})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quality: record d1")
	assert.Equal(t, "d1", rep.DiagnosisID)
}

func TestService_TrendError(t *testing.T) {
	svc := NewService(&memRepo{queryErr: errors.New("boom")})
	_, err := svc.Trend(context.Background(), time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quality: query trend")
}

func TestSummarize_Empty(t *testing.T) {
	trend := Summarize(nil)
	assert.Zero(t, trend.Total)
	assert.Zero(t, trend.FailureRate)
	assert.NotNil(t, trend.Grades)
}
