package monitoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

// scriptedProgress reveals one more row on every ListProgress call.
type scriptedProgress struct {
	mu    sync.Mutex
	rows  []model.ProgressRecord
	shown int
}

func (s *scriptedProgress) AppendProgress(_ context.Context, rec model.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rec)
	return nil
}

func (s *scriptedProgress) ListProgress(_ context.Context, id string) ([]model.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shown < len(s.rows) {
		s.shown++
	}
	var out []model.ProgressRecord
	for _, r := range s.rows[:s.shown] {
		if r.SubmissionID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func row(id string, state model.State, sec int) model.ProgressRecord {
	return model.ProgressRecord{
		SubmissionID: id,
		Timestamp:    time.Date(2026, 10, 18, 9, 0, sec, 0, time.UTC),
		Status:       string(state),
	}
}

func TestWatch_UntilTerminal(t *testing.T) {
	ps := &scriptedProgress{rows: []model.ProgressRecord{
		row("d1", model.StateInit, 0),
		row("d1", model.StateAnalysisStart, 1),
		row("d1", model.StateDone, 2),
	}}

	var seen []string
	last, err := Watch(context.Background(), ps, "d1", time.Millisecond, time.Second, func(r model.ProgressRecord) {
		seen = append(seen, r.Status)
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.StateDone), last.Status)
	assert.Equal(t, []string{"초기화", string(model.StateAnalysisStart), "완료"}, seen)
}

func TestWatch_Timeout(t *testing.T) {
	ps := &scriptedProgress{rows: []model.ProgressRecord{row("d2", model.StateAIAnalyzing, 0)}}

	last, err := Watch(context.Background(), ps, "d2", 5*time.Millisecond, 30*time.Millisecond, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWatchTimeout)
	assert.Equal(t, string(model.StateAIAnalyzing), last.Status)
}

func TestWatch_FailureIsTerminal(t *testing.T) {
	ps := &scriptedProgress{rows: []model.ProgressRecord{row("d3", model.StateAnalysisFailed, 0)}}

	last, err := Watch(context.Background(), ps, "d3", time.Millisecond, time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, string(model.StateAnalysisFailed), last.Status)
}
