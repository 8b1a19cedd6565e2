package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/internal/store"
)

// State is a pipeline step; see model.State for the tokens.
type State = model.State

// StateNone is the state of a run before its first progress row.
const StateNone State = ""

// ErrInvalidTransition is returned when a run tries to move between states
// the table does not connect.
var ErrInvalidTransition = eris.New("pipeline: invalid state transition")

// transitions lists the allowed next states. AI분석중 loops onto itself once
// per generation attempt. 오류발생 and 타임아웃 are reachable from every
// state after 초기화 and are added in CanTransition.
var transitions = map[State][]State{
	StateNone:                {model.StateInit},
	model.StateInit:          {model.StateAnalysisStart},
	model.StateAnalysisStart: {model.StatePromptBuild},
	model.StatePromptBuild:   {model.StateAIAnalyzing},
	model.StateAIAnalyzing:   {model.StateAIAnalyzing, model.StateReportBuild, model.StateAnalysisFailed},
	model.StateReportBuild:   {model.StatePersist, model.StateStructuringFailed},
	model.StatePersist:       {model.StateFinalReview, model.StateSaveFailed},
	model.StateFinalReview:   {model.StateEmail},
	model.StateEmail:         {model.StateDone},
}

// CanTransition reports whether a run in from may move to to.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if from != StateNone && (to == model.StateError || to == model.StateTimeout) {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// tracker owns a run's current state and writes one progress row per move.
// The timeout path and the worker share it, so moves are serialized and
// nothing is written after a terminal state.
type tracker struct {
	mu       sync.Mutex
	id       string
	current  State
	progress store.ProgressStore
	now      func() time.Time
}

func newTracker(id string, ps store.ProgressStore, now func() time.Time) *tracker {
	return &tracker{id: id, current: StateNone, progress: ps, now: now}
}

// advance moves to the next state and records it. A failed progress write is
// logged and does not stop the run.
func (t *tracker) advance(ctx context.Context, to State, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	from := t.current
	if !CanTransition(from, to) {
		return eris.Wrapf(ErrInvalidTransition, "%s: %q -> %q", t.id, from, to)
	}
	t.current = to

	rec := model.ProgressRecord{
		SubmissionID: t.id,
		Timestamp:    t.now().UTC(),
		Status:       string(to),
		Message:      message,
	}
	if err := t.progress.AppendProgress(ctx, rec); err != nil {
		zap.L().Warn("pipeline: failed to append progress",
			zap.String("diagnosis_id", t.id),
			zap.String("state", string(to)),
			zap.Error(err),
		)
	}
	return nil
}

func (t *tracker) state() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}
