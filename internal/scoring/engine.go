package scoring

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/ai-diagnosis/internal/benchmark"
	"github.com/sells-group/ai-diagnosis/internal/catalog"
	"github.com/sells-group/ai-diagnosis/internal/config"
	"github.com/sells-group/ai-diagnosis/internal/model"
)

// Engine binds the weighted catalogs to a benchmark table.
type Engine struct {
	table      *benchmark.Table
	full       *catalog.Catalog
	simplified *catalog.Catalog
}

// NewEngine applies the configured weights and validates both catalogs.
func NewEngine(table *benchmark.Table, cfg config.ScoringConfig) (*Engine, error) {
	if table == nil {
		return nil, eris.New("scoring: benchmark table is required")
	}
	e := &Engine{
		table:      table,
		full:       catalog.Full().WithWeights(cfg.Weights),
		simplified: catalog.Simplified().WithWeights(cfg.Weights),
	}
	for _, c := range []*catalog.Catalog{e.full, e.simplified} {
		if err := catalog.ValidateWeights(c); err != nil {
			return nil, eris.Wrap(err, "scoring: validate weights")
		}
	}
	return e, nil
}

// Catalog returns the weighted catalog for a variant.
func (e *Engine) Catalog(v model.Variant) *catalog.Catalog {
	if v == model.VariantSimplified {
		return e.simplified
	}
	return e.full
}

// Table returns the benchmark table.
func (e *Engine) Table() *benchmark.Table {
	return e.table
}

// Evaluate scores a submission and runs the gap analysis.
func (e *Engine) Evaluate(sub model.Submission) (model.Scores, model.GapAnalysis) {
	cat := e.Catalog(sub.Variant)
	scores := Score(cat, sub.Responses)
	return scores, Analyze(cat, scores, e.table, sub.Company.Industry, sub.Company.EmployeeCount)
}
