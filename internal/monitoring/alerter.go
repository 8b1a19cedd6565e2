package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate   AlertType = "diagnosis_failure_rate"
	AlertLowConfidence AlertType = "low_report_confidence"
	AlertTimeouts      AlertType = "diagnosis_timeouts"
)

// Alert is one breached threshold.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// webhookPayload carries a chat-friendly text line next to the structured
// alert, so Slack-style incoming webhooks render it as-is.
type webhookPayload struct {
	Text  string `json:"text"`
	Alert Alert  `json:"alert"`
}

// rule inspects a snapshot and returns an alert when breached.
type rule func(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool)

var rules = []rule{failureRateRule, lowConfidenceRule, timeoutRule}

// Alerter evaluates snapshots against the monitoring thresholds and posts
// breaches to a webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	now    func() time.Time
}

// NewAlerter creates an Alerter. A non-positive MinSampleSize becomes 5.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	if cfg.MinSampleSize <= 0 {
		cfg.MinSampleSize = 5
	}
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

// Evaluate returns the alerts breached by snap, in rule order.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	for _, r := range rules {
		if alert, ok := r(a.cfg, snap); ok {
			alert.Timestamp = a.now().UTC()
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// Rate rules need MinSampleSize diagnoses in the window; a handful of runs
// says little about a rate.
func failureRateRule(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool) {
	if snap.Total < cfg.MinSampleSize || snap.FailureRate <= cfg.FailureRateThreshold {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertFailureRate,
		Severity: "high",
		Message: fmt.Sprintf("진단 실패율 %.1f%% (기준 %.1f%%, 최근 %d시간 %d건 중 %d건 실패)",
			snap.FailureRate*100, cfg.FailureRateThreshold*100, snap.LookbackHours, snap.Total, snap.Failed),
		Details: map[string]any{
			"failure_rate": snap.FailureRate,
			"threshold":    cfg.FailureRateThreshold,
			"failed":       snap.Failed,
			"total":        snap.Total,
		},
	}, true
}

func lowConfidenceRule(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool) {
	if cfg.MinAvgConfidence <= 0 || snap.Total < cfg.MinSampleSize || snap.AvgConfidence >= cfg.MinAvgConfidence {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertLowConfidence,
		Severity: "medium",
		Message: fmt.Sprintf("보고서 평균 신뢰도 %.1f (기준 %.1f, poor 등급 %d건)",
			snap.AvgConfidence, cfg.MinAvgConfidence, snap.PoorReports),
		Details: map[string]any{
			"avg_confidence": snap.AvgConfidence,
			"threshold":      cfg.MinAvgConfidence,
			"poor_reports":   snap.PoorReports,
		},
	}, true
}

// Any timeout is worth a look regardless of volume.
func timeoutRule(_ config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool) {
	if snap.TimedOut == 0 {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertTimeouts,
		Severity: "high",
		Message:  fmt.Sprintf("최근 %d시간 동안 타임아웃 %d건", snap.LookbackHours, snap.TimedOut),
		Details: map[string]any{
			"timed_out": snap.TimedOut,
			"total":     snap.Total,
		},
	}, true
}

// SendAlerts posts each alert to the webhook and returns how many were
// delivered. Without a webhook URL nothing is sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		log := zap.L().With(zap.String("alert", string(alert.Type)), zap.String("severity", alert.Severity))
		if err := a.post(ctx, alert); err != nil {
			log.Error("monitoring: alert delivery failed", zap.Error(err))
			continue
		}
		log.Info("monitoring: alert sent")
		sent++
	}
	return sent
}

func (a *Alerter) post(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(webhookPayload{
		Text:  fmt.Sprintf("[%s] %s", alert.Severity, alert.Message),
		Alert: alert,
	})
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
