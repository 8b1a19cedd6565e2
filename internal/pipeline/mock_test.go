package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/ai-diagnosis/internal/model"
)

// --- Notifier Mock ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Confirmation(ctx context.Context, sub model.Submission) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockNotifier) Completion(ctx context.Context, sub model.Submission, gap model.GapAnalysis, rep *model.Report) error {
	return m.Called(ctx, sub, gap, rep).Error(0)
}

func (m *mockNotifier) Delayed(ctx context.Context, sub model.Submission) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockNotifier) AdminError(ctx context.Context, sub model.Submission, stage State, cause error) error {
	return m.Called(ctx, sub, stage, cause).Error(0)
}

func (m *mockNotifier) AdminTimeout(ctx context.Context, sub model.Submission, stage State) error {
	return m.Called(ctx, sub, stage).Error(0)
}

// allowAll accepts every email that a test does not set up itself.
func (m *mockNotifier) allowAll() *mockNotifier {
	m.On("Confirmation", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("Completion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("Delayed", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("AdminError", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("AdminTimeout", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// --- LeadSink Mock ---

type mockLeads struct {
	mock.Mock
}

func (m *mockLeads) SyncLead(ctx context.Context, sub model.Submission, gap model.GapAnalysis) error {
	return m.Called(ctx, sub, gap).Error(0)
}

// --- In-memory store ---

type memStore struct {
	mu       sync.Mutex
	rows     []model.ProgressRecord
	saved    []model.DiagnosisRecord
	quality  []model.QualityReport
	saveErr  error
	saveHits int
}

func (m *memStore) AppendProgress(_ context.Context, rec model.ProgressRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rec)
	return nil
}

func (m *memStore) ListProgress(_ context.Context, id string) ([]model.ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ProgressRecord
	for _, r := range m.rows {
		if r.SubmissionID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) SaveDiagnosis(_ context.Context, rec model.DiagnosisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveHits++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, rec)
	return nil
}

func (m *memStore) RecordQuality(_ context.Context, rep model.QualityReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quality = append(m.quality, rep)
	return nil
}

func (m *memStore) QueryQuality(_ context.Context, since time.Time) ([]model.QualityReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.QualityReport
	for _, r := range m.quality {
		if !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) statuses(id string) []string {
	rows, _ := m.ListProgress(context.Background(), id)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Status
	}
	return out
}
