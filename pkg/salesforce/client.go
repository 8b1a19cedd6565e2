// Package salesforce pushes diagnosis prospects into Salesforce as Leads.
package salesforce

import (
	"context"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client is the subset of the Salesforce REST API the lead sync needs.
type Client interface {
	Query(ctx context.Context, soql string, out any) error
	InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error)
	UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error
}

// Creds holds the connected-app settings for the JWT bearer flow.
type Creds struct {
	LoginURL       string
	Username       string
	ConsumerKey    string
	ConsumerRSAPem string
}

// Connect signs in with creds and returns a ready Client.
func Connect(creds Creds, opts ...ClientOption) (Client, error) {
	if creds.ConsumerKey == "" {
		return nil, eris.New("sf: consumer key is required")
	}
	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         creds.LoginURL,
		Username:       creds.Username,
		ConsumerKey:    creds.ConsumerKey,
		ConsumerRSAPem: creds.ConsumerRSAPem,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "sf: jwt login as %s", creds.Username)
	}
	return NewClient(sf, opts...), nil
}

// ClientOption configures a Client built by NewClient.
type ClientOption func(*restClient)

// WithRateLimit caps calls at rps per second. Values <= 0 leave calls unthrottled.
func WithRateLimit(rps float64) ClientOption {
	return func(c *restClient) {
		if rps <= 0 {
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

// restClient adapts go-salesforce, which takes no context. ctx only bounds
// the limiter wait.
type restClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// NewClient wraps an initialized go-salesforce session.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	c := &restClient{sf: sf}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// throttle blocks until the limiter admits one call.
func (c *restClient) throttle(ctx context.Context, op string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrapf(err, "sf: rate limit before %s", op)
	}
	return nil
}

func (c *restClient) Query(ctx context.Context, soql string, out any) error {
	if err := c.throttle(ctx, "query"); err != nil {
		return err
	}
	if err := c.sf.Query(soql, out); err != nil {
		return eris.Wrap(err, "sf: query")
	}
	return nil
}

func (c *restClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	if err := c.throttle(ctx, "insert"); err != nil {
		return "", err
	}
	res, err := c.sf.InsertOne(sObjectName, record)
	switch {
	case err != nil:
		return "", eris.Wrapf(err, "sf: insert %s", sObjectName)
	case !res.Success:
		return "", eris.Errorf("sf: insert %s rejected: %v", sObjectName, res.Errors)
	}
	return res.Id, nil
}

func (c *restClient) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	if err := c.throttle(ctx, "update"); err != nil {
		return err
	}
	record := map[string]any{"Id": id}
	for k, v := range fields {
		if k != "Id" {
			record[k] = v
		}
	}
	if err := c.sf.UpdateOne(sObjectName, record); err != nil {
		return eris.Wrapf(err, "sf: update %s %s", sObjectName, id)
	}
	return nil
}
