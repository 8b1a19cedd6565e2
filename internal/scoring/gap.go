package scoring

import (
	"sort"

	"github.com/sells-group/ai-diagnosis/internal/benchmark"
	"github.com/sells-group/ai-diagnosis/internal/catalog"
	"github.com/sells-group/ai-diagnosis/internal/model"
)

// GapThreshold is the canonical distance from the benchmark beyond which an
// indicator counts as a strength or weakness (0.5 on the answer scale).
var GapThreshold = catalog.DeltaToCanonical(0.5)

// Maturity ladder lower bounds on the canonical scale (4.5, 3.5, 2.5 and 1.5
// on the answer scale). A score equal to a bound belongs to the higher tier.
var (
	leadingFloor    = catalog.ToCanonical(4.5)
	matureFloor     = catalog.ToCanonical(3.5)
	developingFloor = catalog.ToCanonical(2.5)
	initialFloor    = catalog.ToCanonical(1.5)
)

// MaturityFor maps an overall canonical score to its maturity level.
func MaturityFor(overall float64) model.MaturityLevel {
	switch {
	case overall >= leadingFloor:
		return model.MaturityLeading
	case overall >= matureFloor:
		return model.MaturityMature
	case overall >= developingFloor:
		return model.MaturityDeveloping
	case overall >= initialFloor:
		return model.MaturityInitial
	default:
		return model.MaturityImmature
	}
}

// Analyze compares scores with the benchmark profile for industry, adjusted
// for the employee bucket. Unknown industries use the default profile.
func Analyze(cat *catalog.Catalog, scores model.Scores, table *benchmark.Table, industry, employeeBucket string) model.GapAnalysis {
	profile, matched := table.Lookup(industry)
	offset := table.SizeOffset(employeeBucket)

	ga := model.GapAnalysis{
		Industry:        profile.Name,
		ProfileFallback: !matched,
		SizeAdjustment:  offset,
	}

	currentByCat := make(map[model.Category]float64, len(cat.Categories))
	benchByCat := make(map[model.Category]float64, len(cat.Categories))

	for _, cd := range cat.Categories {
		var benchSum float64
		for _, ind := range cd.Indicators {
			current, ok := scores.Indicators[ind.Key]
			if !ok {
				current = catalog.ToCanonical(catalog.RawDefault)
			}
			bench := catalog.Round(catalog.Clamp(profile.Indicator(ind.Key, cd.Key) + offset))
			benchSum += bench
			ga.Indicators = append(ga.Indicators, model.IndicatorGap{
				Indicator: ind.Key,
				Category:  cd.Key,
				Current:   current,
				Benchmark: bench,
				Gap:       catalog.Round(current - bench),
			})
		}
		if len(cd.Indicators) == 0 {
			continue
		}
		bench := catalog.Round(benchSum / float64(len(cd.Indicators)))
		current, ok := scores.Categories[cd.Key]
		if !ok {
			current = catalog.ToCanonical(catalog.RawDefault)
		}
		current = catalog.Round(current)
		currentByCat[cd.Key] = current
		benchByCat[cd.Key] = bench
		ga.Categories = append(ga.Categories, model.CategoryGap{
			Category:  cd.Key,
			Current:   current,
			Benchmark: bench,
			Gap:       catalog.Round(current - bench),
		})
	}

	ga.OverallScore = catalog.Round(cat.WeightedMean(currentByCat))
	ga.OverallBenchmark = catalog.Round(cat.WeightedMean(benchByCat))
	ga.OverallGap = catalog.Round(ga.OverallScore - ga.OverallBenchmark)
	ga.Maturity = MaturityFor(ga.OverallScore)

	for _, ig := range ga.Indicators {
		switch {
		case ig.Gap > GapThreshold:
			ga.Strengths = append(ga.Strengths, ig)
		case ig.Gap < -GapThreshold:
			ga.Weaknesses = append(ga.Weaknesses, ig)
		}
	}
	sort.SliceStable(ga.Strengths, func(i, j int) bool {
		a, b := ga.Strengths[i], ga.Strengths[j]
		if a.Gap != b.Gap {
			return a.Gap > b.Gap
		}
		return a.Indicator < b.Indicator
	})
	sort.SliceStable(ga.Weaknesses, func(i, j int) bool {
		a, b := ga.Weaknesses[i], ga.Weaknesses[j]
		if a.Gap != b.Gap {
			return a.Gap < b.Gap
		}
		return a.Indicator < b.Indicator
	})

	ga.Recommendations = Recommend(ga)
	return ga
}
