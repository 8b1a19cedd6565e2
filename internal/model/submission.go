package model

import (
	"time"
)

// Variant identifies which questionnaire a submission answered.
type Variant string

const (
	VariantFull       Variant = "full"       // 45 indicators
	VariantSimplified Variant = "simplified" // 20 indicators
)

// IndicatorKey names a single questionnaire item, e.g. "currentAI_3".
type IndicatorKey string

// Category names a fixed grouping of indicators, e.g. "organizationReadiness".
type Category string

// Unknown is substituted for optional metadata the user left blank.
const Unknown = "unknown"

// Company holds the metadata a prospect gives about their business.
type Company struct {
	Name          string `json:"company_name"`
	Industry      string `json:"industry"`
	EmployeeCount string `json:"employee_count"`
	Revenue       string `json:"annual_revenue"`
}

// Contact identifies the person who filled out the questionnaire.
type Contact struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Position string `json:"position"`
}

// Submission is one prospect's questionnaire instance. It is created at intake
// and never mutated afterwards; corrections require a new submission.
type Submission struct {
	ID               string               `json:"id"`
	Variant          Variant              `json:"variant"`
	Company          Company              `json:"company"`
	Contact          Contact              `json:"contact"`
	Concerns         string               `json:"concerns"`
	ExpectedBenefits string               `json:"expected_benefits"`
	Responses        map[IndicatorKey]int `json:"responses"`
	SubmittedAt      time.Time            `json:"submitted_at"`
}

// Clone returns a deep copy so a pipeline run owns its input exclusively.
func (s Submission) Clone() Submission {
	out := s
	out.Responses = make(map[IndicatorKey]int, len(s.Responses))
	for k, v := range s.Responses {
		out.Responses[k] = v
	}
	return out
}
