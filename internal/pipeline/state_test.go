package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

func TestCanTransition_Exhaustive(t *testing.T) {
	allowed := map[State][]State{
		StateNone:                {model.StateInit},
		model.StateInit:          {model.StateAnalysisStart, model.StateError, model.StateTimeout},
		model.StateAnalysisStart: {model.StatePromptBuild, model.StateError, model.StateTimeout},
		model.StatePromptBuild:   {model.StateAIAnalyzing, model.StateError, model.StateTimeout},
		model.StateAIAnalyzing:   {model.StateAIAnalyzing, model.StateReportBuild, model.StateAnalysisFailed, model.StateError, model.StateTimeout},
		model.StateReportBuild:   {model.StatePersist, model.StateStructuringFailed, model.StateError, model.StateTimeout},
		model.StatePersist:       {model.StateFinalReview, model.StateSaveFailed, model.StateError, model.StateTimeout},
		model.StateFinalReview:   {model.StateEmail, model.StateError, model.StateTimeout},
		model.StateEmail:         {model.StateDone, model.StateError, model.StateTimeout},
	}

	from := append([]State{StateNone}, model.AllStates...)
	for _, f := range from {
		want := make(map[State]bool)
		for _, s := range allowed[f] {
			want[s] = true
		}
		for _, to := range append([]State{StateNone}, model.AllStates...) {
			assert.Equal(t, want[to], CanTransition(f, to), "%q -> %q", f, to)
		}
	}
}

func TestTracker_StopsAtTerminal(t *testing.T) {
	st := &memStore{}
	tr := newTracker("d1", st, time.Now)
	ctx := context.Background()

	require.NoError(t, tr.advance(ctx, model.StateInit, "a"))
	require.NoError(t, tr.advance(ctx, model.StateTimeout, "b"))

	err := tr.advance(ctx, model.StateError, "c")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, []string{"초기화", "타임아웃"}, st.statuses("d1"))
	assert.Equal(t, model.StateTimeout, tr.state())
}

func TestTracker_RejectsSkippedStep(t *testing.T) {
	st := &memStore{}
	tr := newTracker("d1", st, time.Now)

	err := tr.advance(context.Background(), model.StateAnalysisStart, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid state transition")
	assert.Empty(t, st.rows)
}
