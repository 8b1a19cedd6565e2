// Package appscript talks to the Google Apps Script web app that fronts the
// diagnosis spreadsheet.
package appscript

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/internal/resilience"
)

// Actions understood by the web app.
const (
	ActionSaveDiagnosis  = "saveDiagnosis"
	ActionUpdateProgress = "updateProgress"
	ActionGetProgress    = "getProgress"
	ActionListDiagnoses  = "listDiagnoses"
	ActionSaveQuality    = "saveQualityReport"
	ActionListQuality    = "listQualityReports"
)

// Client performs spreadsheet operations through the web app.
type Client interface {
	Do(ctx context.Context, action string, fields any) (*Response, error)
	SaveDiagnosis(ctx context.Context, rec model.DiagnosisRecord) (*Response, error)
	UpdateProgress(ctx context.Context, rec model.ProgressRecord) (*Response, error)
	GetProgress(ctx context.Context, diagnosisID string) ([]model.ProgressRecord, error)
	ListDiagnoses(ctx context.Context, since time.Time) ([]model.DiagnosisRecord, error)
	SaveQualityReport(ctx context.Context, rep model.QualityReport) (*Response, error)
	ListQualityReports(ctx context.Context, since time.Time) ([]model.QualityReport, error)
}

// Response is the web app's reply to a POST.
type Response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Sheet     string `json:"sheet"`
	Row       int    `json:"row"`
	Timestamp string `json:"timestamp"`
}

type rowsResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Rows    []T    `json:"rows"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	webAppURL string
	http      *http.Client
}

// NewClient creates a client for the web app deployed at webAppURL.
func NewClient(webAppURL string, opts ...Option) Client {
	c := &httpClient{
		webAppURL: webAppURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Do posts {action, ...fields}. fields must marshal to a JSON object.
func (c *httpClient) Do(ctx context.Context, action string, fields any) (*Response, error) {
	payload := map[string]any{}
	if fields != nil {
		raw, err := json.Marshal(fields)
		if err != nil {
			return nil, eris.Wrapf(err, "appscript: marshal %s fields", action)
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, eris.Wrapf(err, "appscript: %s fields must be an object", action)
		}
	}
	payload["action"] = action

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrapf(err, "appscript: marshal %s", action)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webAppURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "appscript: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	var out Response
	if err := c.send(req, action, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return &out, eris.Errorf("appscript: %s rejected: %s", action, out.Message)
	}
	return &out, nil
}

func (c *httpClient) SaveDiagnosis(ctx context.Context, rec model.DiagnosisRecord) (*Response, error) {
	return c.Do(ctx, ActionSaveDiagnosis, rec)
}

func (c *httpClient) UpdateProgress(ctx context.Context, rec model.ProgressRecord) (*Response, error) {
	return c.Do(ctx, ActionUpdateProgress, rec)
}

func (c *httpClient) GetProgress(ctx context.Context, diagnosisID string) ([]model.ProgressRecord, error) {
	q := url.Values{}
	q.Set("action", ActionGetProgress)
	q.Set("diagnosisId", diagnosisID)

	return getRows[model.ProgressRecord](ctx, c, q, ActionGetProgress)
}

func (c *httpClient) ListDiagnoses(ctx context.Context, since time.Time) ([]model.DiagnosisRecord, error) {
	return getRows[model.DiagnosisRecord](ctx, c, sinceQuery(ActionListDiagnoses, since), ActionListDiagnoses)
}

func (c *httpClient) SaveQualityReport(ctx context.Context, rep model.QualityReport) (*Response, error) {
	return c.Do(ctx, ActionSaveQuality, rep)
}

func (c *httpClient) ListQualityReports(ctx context.Context, since time.Time) ([]model.QualityReport, error) {
	return getRows[model.QualityReport](ctx, c, sinceQuery(ActionListQuality, since), ActionListQuality)
}

func sinceQuery(action string, since time.Time) url.Values {
	q := url.Values{}
	q.Set("action", action)
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}
	return q
}

func getRows[T any](ctx context.Context, c *httpClient, q url.Values, action string) ([]T, error) {
	var out rowsResponse[T]
	if err := c.get(ctx, q, action, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, eris.Errorf("appscript: %s rejected: %s", action, out.Message)
	}
	return out.Rows, nil
}

func (c *httpClient) get(ctx context.Context, q url.Values, action string, out any) error {
	u, err := url.Parse(c.webAppURL)
	if err != nil {
		return eris.Wrap(err, "appscript: parse web app url")
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return eris.Wrap(err, "appscript: create request")
	}
	return c.send(req, action, out)
}

func (c *httpClient) send(req *http.Request, action string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "appscript: send %s", action)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "appscript: read %s response", action)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("appscript: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return statusErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrapf(err, "appscript: unmarshal %s response", action)
	}
	return nil
}
