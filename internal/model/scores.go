package model

// SanitizationReason explains why a raw answer was replaced by the default.
type SanitizationReason string

const (
	SanitizationMissing    SanitizationReason = "missing"
	SanitizationOutOfRange SanitizationReason = "out_of_range"
)

// SanitizationWarning records one answer the scorer replaced with the default
// value instead of rejecting the submission.
type SanitizationWarning struct {
	Indicator IndicatorKey       `json:"indicator"`
	Raw       int                `json:"raw"`
	Reason    SanitizationReason `json:"reason"`
}

// Scores is the scorer output. All values are on the canonical 0-100 scale.
type Scores struct {
	Indicators map[IndicatorKey]float64 `json:"indicators"`
	Categories map[Category]float64     `json:"categories"`
	Warnings   []SanitizationWarning    `json:"warnings,omitempty"`
}

// MaturityLevel is the discrete label derived from the overall score.
type MaturityLevel string

const (
	MaturityImmature   MaturityLevel = "Immature"
	MaturityInitial    MaturityLevel = "Initial"
	MaturityDeveloping MaturityLevel = "Developing"
	MaturityMature     MaturityLevel = "Mature"
	MaturityLeading    MaturityLevel = "Leading"
)

// Label returns the Korean display name used in reports and emails.
func (m MaturityLevel) Label() string {
	switch m {
	case MaturityLeading:
		return "선도 단계"
	case MaturityMature:
		return "성숙 단계"
	case MaturityDeveloping:
		return "발전 단계"
	case MaturityInitial:
		return "초기 단계"
	default:
		return "미도입 단계"
	}
}

// IndicatorGap compares one indicator with its benchmark.
type IndicatorGap struct {
	Indicator IndicatorKey `json:"indicator"`
	Category  Category     `json:"category"`
	Current   float64      `json:"current"`
	Benchmark float64      `json:"benchmark"`
	Gap       float64      `json:"gap"`
}

// CategoryGap compares one category with its benchmark.
type CategoryGap struct {
	Category  Category `json:"category"`
	Current   float64  `json:"current"`
	Benchmark float64  `json:"benchmark"`
	Gap       float64  `json:"gap"`
}

// GapAnalysis is the comparison of a submission against its industry benchmark.
type GapAnalysis struct {
	Industry         string         `json:"industry"`
	ProfileFallback  bool           `json:"profile_fallback"`
	SizeAdjustment   float64        `json:"size_adjustment"`
	Indicators       []IndicatorGap `json:"indicators"`
	Categories       []CategoryGap  `json:"categories"`
	OverallScore     float64        `json:"overall_score"`
	OverallBenchmark float64        `json:"overall_benchmark"`
	OverallGap       float64        `json:"overall_gap"`
	Maturity         MaturityLevel  `json:"maturity"`
	Strengths        []IndicatorGap `json:"strengths"`
	Weaknesses       []IndicatorGap `json:"weaknesses"`
	Recommendations  []string       `json:"recommendations"`
}

// CategoryGapFor returns the gap entry for a category.
func (g GapAnalysis) CategoryGapFor(c Category) (CategoryGap, bool) {
	for _, cg := range g.Categories {
		if cg.Category == c {
			return cg, true
		}
	}
	return CategoryGap{}, false
}
