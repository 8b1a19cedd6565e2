// Package report assembles the diagnosis report from scores, the gap analysis
// and optional generated text.
package report

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/ai-diagnosis/internal/catalog"
	"github.com/sells-group/ai-diagnosis/internal/config"
	"github.com/sells-group/ai-diagnosis/internal/llm"
	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/internal/scoring"
)

// targetSectionLength is the generated length (runes) that earns full
// length credit in the confidence score.
const targetSectionLength = 600

// Input is everything the composer needs for one submission.
type Input struct {
	Catalog       *catalog.Catalog
	Submission    model.Submission
	Scores        model.Scores
	Gap           model.GapAnalysis
	Narrative     string
	NarrativeTier model.NarrativeTier
}

// Composer builds reports. A nil generator produces fully templated reports.
type Composer struct {
	gen            llm.Generator
	expand         bool
	concurrency    int
	sectionTimeout time.Duration
	now            func() time.Time
}

// NewComposer creates a Composer.
func NewComposer(gen llm.Generator, cfg config.ReportConfig) *Composer {
	c := &Composer{
		gen:            gen,
		expand:         cfg.ExpandSections,
		concurrency:    cfg.SectionConcurrency,
		sectionTimeout: time.Duration(cfg.SectionTimeoutSecs) * time.Second,
		now:            time.Now,
	}
	if c.concurrency <= 0 {
		c.concurrency = 4
	}
	return c
}

// Compose builds every section, generating them concurrently when a
// generator is configured. A failing section falls back to its template
// without affecting the others. The returned error covers rendering only.
func (c *Composer) Compose(ctx context.Context, in Input) (*model.Report, error) {
	sections := make([]model.Section, len(model.AllSections))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, key := range model.AllSections {
		g.Go(func() error {
			sections[i] = c.section(ctx, key, in)
			return nil
		})
	}
	_ = g.Wait()

	return c.assemble(in, sections)
}

// Fallback builds a fully templated report without calling the generator.
func (c *Composer) Fallback(in Input) (*model.Report, error) {
	sections := make([]model.Section, len(model.AllSections))
	for i, key := range model.AllSections {
		sections[i] = templated(key, in)
	}
	return c.assemble(in, sections)
}

func (c *Composer) section(ctx context.Context, key model.SectionKey, in Input) model.Section {
	if key == model.SectionExecutiveSummary && strings.TrimSpace(in.Narrative) != "" {
		return model.Section{Key: key, Title: Titles[key], Body: in.Narrative}
	}
	if c.gen == nil || !c.expand {
		return templated(key, in)
	}

	sctx := ctx
	if c.sectionTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, c.sectionTimeout)
		defer cancel()
	}

	prompt := llm.SectionPrompt(key, in.Catalog, in.Submission, in.Scores, in.Gap)
	text, err := c.gen.Generate(sctx, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = llm.ErrEmptyOutput
	}
	if err != nil {
		zap.L().Warn("report: section generation failed, using template",
			zap.String("diagnosis_id", in.Submission.ID),
			zap.String("section", string(key)),
			zap.Error(err),
		)
		s := templated(key, in)
		s.Error = err.Error()
		return s
	}
	return model.Section{Key: key, Title: Titles[key], Body: strings.TrimSpace(text)}
}

func templated(key model.SectionKey, in Input) model.Section {
	return model.Section{
		Key:      key,
		Title:    Titles[key],
		Body:     fallbackBody(key, in),
		Fallback: true,
	}
}

func (c *Composer) assemble(in Input, sections []model.Section) (*model.Report, error) {
	tier := in.NarrativeTier
	if tier == "" {
		tier = model.NarrativeNone
	}
	rep := &model.Report{
		DiagnosisID:   in.Submission.ID,
		Narrative:     in.Narrative,
		NarrativeTier: tier,
		Sections:      sections,
		GeneratedAt:   c.now().UTC(),
	}
	rep.Quality = Quality(in, sections)

	html, err := RenderHTML(rep, in.Submission.Company.Name)
	if err != nil {
		return rep, eris.Wrap(err, "report: render html")
	}
	rep.HTML = html
	return rep, nil
}

// Quality derives the self-reported quality metadata of a report.
func Quality(in Input, sections []model.Section) model.ReportQuality {
	q := model.ReportQuality{
		Completeness:     scoring.Completeness(in.Catalog, in.Scores),
		SanitizedAnswers: len(in.Scores.Warnings),
	}
	total := 0
	for _, s := range sections {
		if s.Fallback {
			q.FallbackSections++
			continue
		}
		q.GeneratedSections++
		total += utf8.RuneCountInString(s.Body)
	}
	if q.GeneratedSections > 0 {
		q.AvgGeneratedLength = float64(total) / float64(q.GeneratedSections)
	}
	q.Confidence = confidence(q, in.NarrativeTier)
	return q
}

// confidence weighs answer completeness, generated length and narrative
// quality on a 0-100 scale.
func confidence(q model.ReportQuality, tier model.NarrativeTier) float64 {
	lengthFactor := math.Min(q.AvgGeneratedLength/targetSectionLength, 1)
	var narrativeFactor float64
	switch tier {
	case model.NarrativeHigh:
		narrativeFactor = 1
	case model.NarrativeAcceptable:
		narrativeFactor = 0.7
	}
	c := 100 * (0.5*q.Completeness + 0.25*lengthFactor + 0.25*narrativeFactor)
	return math.Round(math.Max(0, math.Min(c, 100))*10) / 10
}
