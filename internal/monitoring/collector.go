// Package monitoring watches diagnosis progress and alerts on quality
// trends.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/internal/quality"
)

// MetricsSnapshot holds a point-in-time view of diagnosis quality.
type MetricsSnapshot struct {
	Total         int     `json:"total"`
	Succeeded     int     `json:"succeeded"`
	Failed        int     `json:"failed"`
	TimedOut      int     `json:"timed_out"`
	FailureRate   float64 `json:"failure_rate"`
	AvgConfidence float64 `json:"avg_confidence"`
	PoorReports   int     `json:"poor_reports"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// TrendSource summarizes quality reports since a point in time.
// quality.Service implements it.
type TrendSource interface {
	Trend(ctx context.Context, since time.Time) (*quality.Trend, error)
}

// Collector gathers metrics from the quality history.
type Collector struct {
	source TrendSource
	now    func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(source TrendSource) *Collector {
	return &Collector{source: source, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	trend, err := c.source.Trend(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: collect quality trend")
	}

	return &MetricsSnapshot{
		Total:         trend.Total,
		Succeeded:     trend.Succeeded,
		Failed:        trend.Failed,
		TimedOut:      trend.FinalStates[model.StateTimeout],
		FailureRate:   trend.FailureRate,
		AvgConfidence: trend.AvgConfidence,
		PoorReports:   trend.Grades[model.GradePoor],
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}, nil
}
