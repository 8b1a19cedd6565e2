package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/internal/store"
)

// ErrWatchTimeout is returned when a diagnosis has not reached a terminal
// status before the watch deadline.
var ErrWatchTimeout = eris.New("monitoring: watch timed out")

// Watch polls the progress store until the latest row for id is terminal,
// calling onChange for every new latest row. Poll errors are logged and
// retried on the next tick. On timeout the last seen row is returned with
// ErrWatchTimeout.
func Watch(ctx context.Context, ps store.ProgressStore, id string, interval, timeout time.Duration, onChange func(model.ProgressRecord)) (model.ProgressRecord, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := zap.L().With(zap.String("diagnosis_id", id))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last model.ProgressRecord
	seen := false
	for {
		rec, ok, err := store.LatestStatus(ctx, ps, id)
		switch {
		case err != nil:
			if ctx.Err() == nil {
				log.Warn("monitoring: progress poll failed", zap.Error(err))
			}
		case ok && (!seen || rec != last):
			last, seen = rec, true
			if onChange != nil {
				onChange(rec)
			}
			if model.IsTerminalStatus(rec.Status) {
				return rec, nil
			}
		}

		select {
		case <-ctx.Done():
			if eris.Is(ctx.Err(), context.DeadlineExceeded) {
				return last, eris.Wrapf(ErrWatchTimeout, "%s after %s (last status %q)", id, timeout, last.Status)
			}
			return last, eris.Wrap(ctx.Err(), "monitoring: watch canceled")
		case <-ticker.C:
		}
	}
}
