package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Lead represents a Salesforce Lead record.
type Lead struct {
	ID          string `json:"Id" salesforce:"Id"`
	Company     string `json:"Company" salesforce:"Company"`
	LastName    string `json:"LastName" salesforce:"LastName"`
	Email       string `json:"Email" salesforce:"Email"`
	Phone       string `json:"Phone" salesforce:"Phone"`
	Title       string `json:"Title" salesforce:"Title"`
	Industry    string `json:"Industry" salesforce:"Industry"`
	LeadSource  string `json:"LeadSource" salesforce:"LeadSource"`
	Description string `json:"Description" salesforce:"Description"`
	Status      string `json:"Status" salesforce:"Status"`
}

var leadFields = []string{
	"Id", "Company", "LastName", "Email", "Phone", "Title",
	"Industry", "LeadSource", "Description", "Status",
}

// FindLeadByEmail returns the open Lead with the given email, or nil.
func FindLeadByEmail(ctx context.Context, c Client, email string) (*Lead, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Lead WHERE Email = '%s' AND IsConverted = false LIMIT 1",
		strings.Join(leadFields, ", "),
		escapeSoql(email),
	)

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrapf(err, "sf: find lead by email %s", email)
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// UpsertLead updates the Lead matching fields["Email"] or creates one.
// Returns the Lead ID and whether a new record was created.
func UpsertLead(ctx context.Context, c Client, fields map[string]any) (string, bool, error) {
	email, _ := fields["Email"].(string)
	if email == "" {
		return "", false, eris.New("sf: lead Email is required")
	}
	if company, _ := fields["Company"].(string); company == "" {
		return "", false, eris.New("sf: lead Company is required")
	}
	if last, _ := fields["LastName"].(string); last == "" {
		return "", false, eris.New("sf: lead LastName is required")
	}

	existing, err := FindLeadByEmail(ctx, c, email)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		if err := c.UpdateOne(ctx, "Lead", existing.ID, fields); err != nil {
			return "", false, eris.Wrapf(err, "sf: update lead %s", existing.ID)
		}
		return existing.ID, false, nil
	}

	id, err := c.InsertOne(ctx, "Lead", fields)
	if err != nil {
		return "", false, eris.Wrap(err, "sf: create lead")
	}
	return id, true, nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
