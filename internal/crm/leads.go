// Package crm pushes diagnosis submissions into Salesforce as Leads.
package crm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/config"
	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/pkg/salesforce"
)

// descriptionLimit is Salesforce's Lead.Description length.
const descriptionLimit = 32000

// LeadSync upserts one Lead per contact email.
type LeadSync struct {
	client     salesforce.Client
	leadSource string
}

// NewLeadSync wraps an authenticated Salesforce client.
func NewLeadSync(client salesforce.Client, leadSource string) *LeadSync {
	return &LeadSync{client: client, leadSource: leadSource}
}

// Connect builds a LeadSync from config using the JWT bearer flow. It returns
// nil without error when Salesforce is not configured.
func Connect(cfg config.SalesforceConfig) (*LeadSync, error) {
	if cfg.ClientID == "" {
		return nil, nil
	}
	pemData, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "crm: read salesforce JWT private key")
	}
	client, err := salesforce.Connect(salesforce.Creds{
		LoginURL:       cfg.LoginURL,
		Username:       cfg.Username,
		ConsumerKey:    cfg.ClientID,
		ConsumerRSAPem: string(pemData),
	}, salesforce.WithRateLimit(5))
	if err != nil {
		return nil, eris.Wrap(err, "crm: connect salesforce")
	}
	return NewLeadSync(client, cfg.LeadSource), nil
}

// SyncLead creates or updates the Lead for the submission's contact.
func (l *LeadSync) SyncLead(ctx context.Context, sub model.Submission, gap model.GapAnalysis) error {
	fields := LeadFields(sub, gap, l.leadSource)
	id, created, err := salesforce.UpsertLead(ctx, l.client, fields)
	if err != nil {
		return eris.Wrapf(err, "crm: sync lead for %s", sub.ID)
	}
	zap.L().Info("crm: lead synced",
		zap.String("diagnosis_id", sub.ID),
		zap.String("lead_id", id),
		zap.Bool("created", created),
	)
	return nil
}

// LeadFields maps a submission and its gap analysis onto Lead fields.
func LeadFields(sub model.Submission, gap model.GapAnalysis, leadSource string) map[string]any {
	fields := map[string]any{
		"Company":     known(sub.Company.Name, "미상"),
		"LastName":    known(sub.Contact.Name, "미상"),
		"Email":       sub.Contact.Email,
		"Description": truncate(description(sub, gap), descriptionLimit),
	}
	if v := known(sub.Contact.Phone, ""); v != "" {
		fields["Phone"] = v
	}
	if v := known(sub.Contact.Position, ""); v != "" {
		fields["Title"] = v
	}
	if v := known(sub.Company.Industry, ""); v != "" {
		fields["Industry"] = v
	}
	if leadSource != "" {
		fields["LeadSource"] = leadSource
	}
	return fields
}

func description(sub model.Submission, gap model.GapAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "AI 역량진단 %s\n", sub.ID)
	fmt.Fprintf(&b, "종합 점수: %.1f (업계 기준 %.1f, 차이 %+.1f)\n", gap.OverallScore, gap.OverallBenchmark, gap.OverallGap)
	fmt.Fprintf(&b, "성숙도: %s\n", gap.Maturity.Label())
	if v := known(sub.Company.EmployeeCount, ""); v != "" {
		fmt.Fprintf(&b, "직원 수: %s\n", v)
	}
	if sub.Concerns != "" {
		fmt.Fprintf(&b, "고민 사항: %s\n", sub.Concerns)
	}
	if sub.ExpectedBenefits != "" {
		fmt.Fprintf(&b, "기대 효과: %s\n", sub.ExpectedBenefits)
	}
	return b.String()
}

// known returns s unless it is blank or the intake placeholder.
func known(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == model.Unknown {
		return fallback
	}
	return s
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
