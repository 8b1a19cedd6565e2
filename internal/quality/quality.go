// Package quality grades finished diagnoses and summarizes the grades over
// time. Service holds no state of its own; history lives in the Repository.
package quality

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

// Grade floors on the 0-100 confidence scale.
const (
	ExcellentFloor = 85.0
	GoodFloor      = 70.0
	FairFloor      = 50.0
)

// Repository stores and queries quality reports. The store backends
// implement it.
type Repository interface {
	RecordQuality(ctx context.Context, rep model.QualityReport) error
	QueryQuality(ctx context.Context, since time.Time) ([]model.QualityReport, error)
}

// Input is what a pipeline run knows about itself when it finishes.
type Input struct {
	DiagnosisID string
	Variant     model.Variant
	FinalState  model.State
	Report      *model.Report
	AIAttempts  int
}

// Evaluate builds the quality report for one run.
func Evaluate(in Input, now time.Time) model.QualityReport {
	rep := model.QualityReport{
		ID:            uuid.New().String(),
		DiagnosisID:   in.DiagnosisID,
		Variant:       in.Variant,
		FinalState:    in.FinalState,
		Success:       in.FinalState == model.StateDone,
		AIAttempts:    in.AIAttempts,
		NarrativeTier: model.NarrativeNone,
		CreatedAt:     now.UTC(),
	}
	if in.Report != nil {
		q := in.Report.Quality
		rep.Completeness = q.Completeness
		rep.SanitizedAnswers = q.SanitizedAnswers
		rep.NarrativeLength = len([]rune(in.Report.Narrative))
		rep.NarrativeTier = in.Report.NarrativeTier
		rep.SectionCount = len(in.Report.Sections)
		rep.FallbackSections = q.FallbackSections
		rep.Confidence = q.Confidence
	}
	rep.Grade = GradeFor(rep.Confidence)
	return rep
}

// GradeFor maps a confidence to its grade. Floors are inclusive.
func GradeFor(confidence float64) model.QualityGrade {
	switch {
	case confidence >= ExcellentFloor:
		return model.GradeExcellent
	case confidence >= GoodFloor:
		return model.GradeGood
	case confidence >= FairFloor:
		return model.GradeFair
	default:
		return model.GradePoor
	}
}

// Service evaluates runs and keeps their reports in a Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a quality service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record evaluates a run and stores the result. The report is returned even
// when storing it fails.
func (s *Service) Record(ctx context.Context, in Input) (model.QualityReport, error) {
	rep := Evaluate(in, s.now())

	zap.L().Info("quality: evaluated diagnosis",
		zap.String("diagnosis_id", rep.DiagnosisID),
		zap.String("final_state", string(rep.FinalState)),
		zap.Float64("confidence", rep.Confidence),
		zap.String("grade", string(rep.Grade)),
		zap.Int("fallback_sections", rep.FallbackSections),
	)

	if err := s.repo.RecordQuality(ctx, rep); err != nil {
		return rep, eris.Wrapf(err, "quality: record %s", rep.DiagnosisID)
	}
	return rep, nil
}

// Trend loads reports created at or after since and summarizes them.
func (s *Service) Trend(ctx context.Context, since time.Time) (*Trend, error) {
	reports, err := s.repo.QueryQuality(ctx, since)
	if err != nil {
		return nil, eris.Wrap(err, "quality: query trend")
	}
	t := Summarize(reports)
	t.Since = since
	t.ComputedAt = s.now().UTC()
	return t, nil
}

// Trend aggregates quality reports over a window.
type Trend struct {
	Total            int                        `json:"total"`
	Succeeded        int                        `json:"succeeded"`
	Failed           int                        `json:"failed"`
	FailureRate      float64                    `json:"failure_rate"`
	AvgConfidence    float64                    `json:"avg_confidence"`
	AvgCompleteness  float64                    `json:"avg_completeness"`
	AvgAIAttempts    float64                    `json:"avg_ai_attempts"`
	FallbackSections int                        `json:"fallback_sections"`
	Grades           map[model.QualityGrade]int `json:"grades"`
	FinalStates      map[model.State]int        `json:"final_states"`
	Since            time.Time                  `json:"since"`
	ComputedAt       time.Time                  `json:"computed_at"`
}

// Summarize aggregates reports. Averages are rounded to one decimal,
// FailureRate to four.
func Summarize(reports []model.QualityReport) *Trend {
	t := &Trend{
		Grades:      make(map[model.QualityGrade]int),
		FinalStates: make(map[model.State]int),
	}
	var confidence, completeness float64
	var attempts int
	for _, r := range reports {
		t.Total++
		if r.Success {
			t.Succeeded++
		} else {
			t.Failed++
		}
		confidence += r.Confidence
		completeness += r.Completeness
		attempts += r.AIAttempts
		t.FallbackSections += r.FallbackSections
		t.Grades[r.Grade]++
		if r.FinalState != "" {
			t.FinalStates[r.FinalState]++
		}
	}
	if t.Total == 0 {
		return t
	}
	n := float64(t.Total)
	t.FailureRate = round(float64(t.Failed)/n, 4)
	t.AvgConfidence = round(confidence/n, 1)
	t.AvgCompleteness = round(completeness/n, 4)
	t.AvgAIAttempts = round(float64(attempts)/n, 1)
	return t
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
