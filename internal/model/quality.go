package model

import "time"

// QualityGrade buckets a quality report's confidence.
type QualityGrade string

const (
	GradeExcellent QualityGrade = "excellent"
	GradeGood      QualityGrade = "good"
	GradeFair      QualityGrade = "fair"
	GradePoor      QualityGrade = "poor"
)

// QualityReport is the per-submission quality evaluation kept for trend
// analysis.
type QualityReport struct {
	ID               string        `json:"id"`
	DiagnosisID      string        `json:"diagnosis_id"`
	Variant          Variant       `json:"variant"`
	FinalState       State         `json:"final_state"`
	Success          bool          `json:"success"`
	Completeness     float64       `json:"completeness"`
	SanitizedAnswers int           `json:"sanitized_answers"`
	NarrativeLength  int           `json:"narrative_length"`
	NarrativeTier    NarrativeTier `json:"narrative_tier"`
	AIAttempts       int           `json:"ai_attempts"`
	SectionCount     int           `json:"section_count"`
	FallbackSections int           `json:"fallback_sections"`
	Confidence       float64       `json:"confidence"`
	Grade            QualityGrade  `json:"grade"`
	CreatedAt        time.Time     `json:"created_at"`
}
