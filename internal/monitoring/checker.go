package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/config"
)

// Checker periodically collects a snapshot and sends alerts. An alert type
// is sent when it first breaches and again only after it has cleared, so a
// long lookback window does not repeat the same alert every interval.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig

	mu     sync.Mutex
	active map[AlertType]bool
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		active:    make(map[AlertType]bool),
	}
}

// Run checks once immediately and then every CheckIntervalMins until ctx is
// canceled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalMins) * time.Minute
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("alert checker started",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackHours),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		c.Check(ctx)
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Check runs one collect-evaluate-send cycle and returns the number of
// alerts delivered.
func (c *Checker) Check(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	log := zap.L().With(zap.String("component", "monitoring.checker"))

	snap, err := c.collector.Collect(ctx, c.cfg.LookbackHours)
	if err != nil {
		log.Error("monitoring: collect failed", zap.Error(err))
		return 0
	}

	fresh := c.newlyBreached(c.alerter.Evaluate(snap))
	if len(fresh) == 0 {
		return 0
	}

	sent := c.alerter.SendAlerts(ctx, fresh)
	if sent < len(fresh) {
		c.forget(fresh)
	}
	log.Info("monitoring: alert check complete",
		zap.Int("total", snap.Total),
		zap.Float64("failure_rate", snap.FailureRate),
		zap.Int("alerts_new", len(fresh)),
		zap.Int("alerts_sent", sent),
	)
	return sent
}

// newlyBreached updates the active set and returns alerts that were not
// active on the previous check.
func (c *Checker) newlyBreached(alerts []Alert) []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := make(map[AlertType]bool, len(alerts))
	var fresh []Alert
	for _, a := range alerts {
		now[a.Type] = true
		if !c.active[a.Type] {
			fresh = append(fresh, a)
		}
	}
	c.active = now
	return fresh
}

// forget drops alerts from the active set so the next check retries them.
func (c *Checker) forget(alerts []Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range alerts {
		delete(c.active, a.Type)
	}
}
