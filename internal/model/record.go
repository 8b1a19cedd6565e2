package model

import (
	"time"
)

// DiagnosisRecord is the flattened row persisted to the spreadsheet backend
// or the local store.
type DiagnosisRecord struct {
	DiagnosisID      string               `json:"diagnosisId"`
	Variant          Variant              `json:"variant"`
	CompanyName      string               `json:"companyName"`
	Industry         string               `json:"industry"`
	EmployeeCount    string               `json:"employeeCount"`
	AnnualRevenue    string               `json:"annualRevenue"`
	ContactName      string               `json:"contactName"`
	ContactEmail     string               `json:"contactEmail"`
	ContactPhone     string               `json:"contactPhone"`
	Concerns         string               `json:"concerns"`
	ExpectedBenefits string               `json:"expectedBenefits"`
	CategoryScores   map[Category]float64 `json:"categoryScores"`
	OverallScore     float64              `json:"overallScore"`
	OverallBenchmark float64              `json:"overallBenchmark"`
	OverallGap       float64              `json:"overallGap"`
	Maturity         MaturityLevel        `json:"maturity"`
	Status           State                `json:"status"`
	ReportSummary    string               `json:"reportSummary"`
	ReportHTML       string               `json:"reportHtml,omitempty"`
	SubmittedAt      time.Time            `json:"submittedAt"`
	CompletedAt      time.Time            `json:"completedAt"`
}

// NewDiagnosisRecord flattens a submission and its analysis into a row.
func NewDiagnosisRecord(sub Submission, scores Scores, gap GapAnalysis, rep *Report, status State, at time.Time) DiagnosisRecord {
	rec := DiagnosisRecord{
		DiagnosisID:      sub.ID,
		Variant:          sub.Variant,
		CompanyName:      sub.Company.Name,
		Industry:         sub.Company.Industry,
		EmployeeCount:    sub.Company.EmployeeCount,
		AnnualRevenue:    sub.Company.Revenue,
		ContactName:      sub.Contact.Name,
		ContactEmail:     sub.Contact.Email,
		ContactPhone:     sub.Contact.Phone,
		Concerns:         sub.Concerns,
		ExpectedBenefits: sub.ExpectedBenefits,
		CategoryScores:   scores.Categories,
		OverallScore:     gap.OverallScore,
		OverallBenchmark: gap.OverallBenchmark,
		OverallGap:       gap.OverallGap,
		Maturity:         gap.Maturity,
		Status:           status,
		SubmittedAt:      sub.SubmittedAt,
		CompletedAt:      at,
	}
	if rep != nil {
		if s, ok := rep.Section(SectionExecutiveSummary); ok {
			rec.ReportSummary = s.Body
		}
		rec.ReportHTML = rep.HTML
	}
	return rec
}
