package model

import "time"

// SectionKey names one section of the diagnosis report.
type SectionKey string

const (
	SectionCover                    SectionKey = "cover"
	SectionExecutiveSummary         SectionKey = "executive_summary"
	SectionCompanyInfo              SectionKey = "company_info"
	SectionVisualizationData        SectionKey = "visualization_data"
	SectionBehavioralHighlights     SectionKey = "behavioral_highlights"
	SectionBenchmarkComparison      SectionKey = "benchmark_comparison"
	SectionSWOT                     SectionKey = "swot"
	SectionPriorityMatrix           SectionKey = "priority_matrix"
	SectionMethodology              SectionKey = "methodology"
	SectionCurriculumRecommendation SectionKey = "curriculum_recommendation"
	SectionRoadmap                  SectionKey = "roadmap"
	SectionConclusion               SectionKey = "conclusion"
)

// AllSections lists report sections in document order.
var AllSections = []SectionKey{
	SectionCover,
	SectionExecutiveSummary,
	SectionCompanyInfo,
	SectionVisualizationData,
	SectionBehavioralHighlights,
	SectionBenchmarkComparison,
	SectionSWOT,
	SectionPriorityMatrix,
	SectionMethodology,
	SectionCurriculumRecommendation,
	SectionRoadmap,
	SectionConclusion,
}

// NarrativeTier grades the length of the AI analysis text.
type NarrativeTier string

const (
	NarrativeNone       NarrativeTier = "none"
	NarrativeAcceptable NarrativeTier = "acceptable"
	NarrativeHigh       NarrativeTier = "high"
)

// Section is one named block of the report.
type Section struct {
	Key      SectionKey `json:"key"`
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	Fallback bool       `json:"fallback"`
	Error    string     `json:"error,omitempty"`
}

// ReportQuality is the composer's self-reported confidence. It is an
// approximation from text lengths and submission completeness, not a
// verified measure.
type ReportQuality struct {
	AvgGeneratedLength float64 `json:"avg_generated_length"`
	GeneratedSections  int     `json:"generated_sections"`
	FallbackSections   int     `json:"fallback_sections"`
	Completeness       float64 `json:"completeness"`
	SanitizedAnswers   int     `json:"sanitized_answers"`
	Confidence         float64 `json:"confidence"`
}

// Report is the artifact delivered to the prospect. A report always exists,
// even when every external generation call failed.
type Report struct {
	DiagnosisID   string        `json:"diagnosis_id"`
	Narrative     string        `json:"narrative,omitempty"`
	NarrativeTier NarrativeTier `json:"narrative_tier"`
	Sections      []Section     `json:"sections"`
	Quality       ReportQuality `json:"quality"`
	HTML          string        `json:"html,omitempty"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

// Section returns the section with the given key.
func (r *Report) Section(key SectionKey) (Section, bool) {
	for _, s := range r.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}
