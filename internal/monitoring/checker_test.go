package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/internal/quality"
)

func TestChecker_Check(t *testing.T) {
	var hooks atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hooks.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	src := trendFunc(func(context.Context, time.Time) (*quality.Trend, error) {
		return quality.Summarize([]model.QualityReport{
			{DiagnosisID: "t", FinalState: model.StateTimeout, Grade: model.GradePoor},
		}), nil
	})

	cfg := testMonitoringConfig(srv.URL)
	c := NewChecker(NewCollector(src), NewAlerter(cfg), cfg)

	assert.Equal(t, 1, c.Check(context.Background()))
	assert.Equal(t, int32(1), hooks.Load())
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	src := trendFunc(func(context.Context, time.Time) (*quality.Trend, error) {
		return quality.Summarize(nil), nil
	})
	cfg := testMonitoringConfig("")
	c := NewChecker(NewCollector(src), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("checker did not stop")
	}
}

func TestChecker_SendsOnlyNewBreaches(t *testing.T) {
	var hooks atomic.Int32
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hooks.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	var timedOut atomic.Bool
	timedOut.Store(true)
	src := trendFunc(func(context.Context, time.Time) (*quality.Trend, error) {
		if !timedOut.Load() {
			return quality.Summarize(nil), nil
		}
		return quality.Summarize([]model.QualityReport{{FinalState: model.StateTimeout}}), nil
	})

	cfg := testMonitoringConfig(srv.URL)
	c := NewChecker(NewCollector(src), NewAlerter(cfg), cfg)
	ctx := context.Background()

	assert.Equal(t, 1, c.Check(ctx))
	assert.Equal(t, 0, c.Check(ctx), "still breached, not repeated")

	timedOut.Store(false)
	assert.Equal(t, 0, c.Check(ctx))

	timedOut.Store(true)
	assert.Equal(t, 1, c.Check(ctx), "breached again after clearing")
	assert.Equal(t, int32(2), hooks.Load())
}

func TestChecker_RetriesFailedDelivery(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadGateway)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	src := trendFunc(func(context.Context, time.Time) (*quality.Trend, error) {
		return quality.Summarize([]model.QualityReport{{FinalState: model.StateTimeout}}), nil
	})
	cfg := testMonitoringConfig(srv.URL)
	c := NewChecker(NewCollector(src), NewAlerter(cfg), cfg)

	assert.Equal(t, 0, c.Check(context.Background()))
	status.Store(http.StatusOK)
	assert.Equal(t, 1, c.Check(context.Background()))
}
