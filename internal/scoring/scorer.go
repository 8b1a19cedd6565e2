// Package scoring turns raw questionnaire answers into category scores and
// compares them with the industry benchmark.
package scoring

import (
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/catalog"
	"github.com/sells-group/ai-diagnosis/internal/model"
)

// Score computes per-indicator and per-category scores on the canonical
// scale. Missing or out-of-range answers are replaced with the neutral
// default and reported as warnings; Score never fails.
func Score(cat *catalog.Catalog, responses map[model.IndicatorKey]int) model.Scores {
	out := model.Scores{
		Indicators: make(map[model.IndicatorKey]float64, cat.Size()),
		Categories: make(map[model.Category]float64, len(cat.Categories)),
	}

	for _, cd := range cat.Categories {
		var sum float64
		for _, ind := range cd.Indicators {
			raw, ok := responses[ind.Key]
			switch {
			case !ok:
				out.Warnings = append(out.Warnings, model.SanitizationWarning{
					Indicator: ind.Key,
					Reason:    model.SanitizationMissing,
				})
				raw = catalog.RawDefault
			case !catalog.ValidRaw(raw):
				out.Warnings = append(out.Warnings, model.SanitizationWarning{
					Indicator: ind.Key,
					Raw:       raw,
					Reason:    model.SanitizationOutOfRange,
				})
				raw = catalog.RawDefault
			}
			v := catalog.ToCanonical(float64(raw))
			out.Indicators[ind.Key] = v
			sum += v
		}
		if n := len(cd.Indicators); n > 0 {
			out.Categories[cd.Key] = catalog.Round(sum / float64(n))
		}
	}

	for _, w := range out.Warnings {
		zap.L().Warn("scoring: answer replaced with default",
			zap.String("indicator", string(w.Indicator)),
			zap.Int("raw", w.Raw),
			zap.String("reason", string(w.Reason)),
		)
	}

	return out
}

// Completeness returns the fraction of catalog indicators answered with a
// valid value.
func Completeness(cat *catalog.Catalog, scores model.Scores) float64 {
	n := cat.Size()
	if n == 0 {
		return 0
	}
	return float64(n-len(scores.Warnings)) / float64(n)
}
