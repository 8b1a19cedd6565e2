package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

// ErrQueueFull is returned by Submit when the backlog is at capacity.
var ErrQueueFull = eris.New("pipeline: submission queue is full")

// Runner processes one submission.
type Runner interface {
	Run(ctx context.Context, sub model.Submission) *Result
}

// Dispatcher runs submissions in the background with at most maxConcurrent
// running at once and at most maxQueued more waiting for a slot. Runs outlive
// the context they were submitted with; Wait or Drain collects them.
type Dispatcher struct {
	runner   Runner
	sem      chan struct{}
	admitted chan struct{}
	inFlight atomic.Int32
	wg       sync.WaitGroup
	onDone   func(*Result)
}

// NewDispatcher creates a Dispatcher. onDone, when set, is called with every
// finished result.
func NewDispatcher(runner Runner, maxConcurrent, maxQueued int, onDone func(*Result)) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 20
	}
	if maxQueued < 0 {
		maxQueued = 0
	}
	return &Dispatcher{
		runner:   runner,
		sem:      make(chan struct{}, maxConcurrent),
		admitted: make(chan struct{}, maxConcurrent+maxQueued),
		onDone:   onDone,
	}
}

// Submit queues sub and returns immediately, or returns ErrQueueFull without
// starting anything. ctx supplies values only; its cancellation does not stop
// the run.
func (d *Dispatcher) Submit(ctx context.Context, sub model.Submission) error {
	select {
	case d.admitted <- struct{}{}:
	default:
		return eris.Wrapf(ErrQueueFull, "diagnosis %s", sub.ID)
	}

	runCtx := context.WithoutCancel(ctx)
	d.inFlight.Add(1)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			d.inFlight.Add(-1)
			<-d.admitted
		}()
		d.sem <- struct{}{}
		defer func() { <-d.sem }()

		res := d.runner.Run(runCtx, sub)
		if !res.Success {
			zap.L().Warn("pipeline: background diagnosis did not complete",
				zap.String("diagnosis_id", res.DiagnosisID),
				zap.String("state", string(res.Stage)),
				zap.String("error", res.Error),
			)
		}
		if d.onDone != nil {
			d.onDone(res)
		}
	}()
	return nil
}

// InFlight returns the number of admitted runs that have not finished,
// running or waiting.
func (d *Dispatcher) InFlight() int {
	return int(d.inFlight.Load())
}

// Wait blocks until every submitted run has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Drain waits for every submitted run like Wait, but gives up when ctx is
// done and reports how many runs were still in flight.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return eris.Wrapf(ctx.Err(), "pipeline: %d diagnoses still in flight", d.InFlight())
	}
}
