package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ai-diagnosis/internal/benchmark"
	"github.com/sells-group/ai-diagnosis/internal/catalog"
	"github.com/sells-group/ai-diagnosis/internal/config"
	"github.com/sells-group/ai-diagnosis/internal/llm"
	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/internal/quality"
	"github.com/sells-group/ai-diagnosis/internal/report"
	"github.com/sells-group/ai-diagnosis/internal/scoring"
)

const sectionMarker = "제목 없이 본문만 작성하십시오."

var longNarrative = strings.Repeat("가", 5200)

func testSubmission() model.Submission {
	responses := make(map[model.IndicatorKey]int)
	for _, k := range catalog.Full().Indicators() {
		responses[k] = 3
	}
	return model.Submission{
		ID:          "diag-1",
		Variant:     model.VariantFull,
		Company:     model.Company{Name: "한빛제조", Industry: "제조업", EmployeeCount: "51-100", Revenue: model.Unknown},
		Contact:     model.Contact{Name: "이수진", Email: "lee@example.com"},
		Responses:   responses,
		SubmittedAt: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}
}

func newTestPipeline(t *testing.T, gen llm.Generator, n *mockNotifier, opts ...func(*Deps)) (*Pipeline, *memStore) {
	t.Helper()
	table, err := benchmark.Default()
	require.NoError(t, err)
	engine, err := scoring.NewEngine(table, config.ScoringConfig{})
	require.NoError(t, err)

	st := &memStore{}
	deps := Deps{
		Engine:    engine,
		Generator: gen,
		Composer:  report.NewComposer(gen, config.ReportConfig{ExpandSections: true, SectionConcurrency: 4}),
		Progress:  st,
		Results:   st,
		Quality:   quality.NewService(st),
		Notifier:  n,
	}
	for _, o := range opts {
		o(&deps)
	}
	p, err := New(config.PipelineConfig{}, deps)
	require.NoError(t, err)
	p.aiRetry.InitialBackoff = time.Millisecond
	p.aiRetry.MaxBackoff = 2 * time.Millisecond
	return p, st
}

// echoGenerator returns a long analysis and a short body for every section.
func echoGenerator(calls *atomic.Int32) llm.Generator {
	return llm.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.HasSuffix(prompt, sectionMarker) {
			return "생성된 섹션 본문입니다.", nil
		}
		if calls != nil {
			calls.Add(1)
		}
		return longNarrative, nil
	})
}

func TestRun_AllThreesCompletes(t *testing.T) {
	n := (&mockNotifier{}).allowAll()
	leads := &mockLeads{}
	leads.On("SyncLead", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	p, st := newTestPipeline(t, echoGenerator(nil), n, func(d *Deps) { d.Leads = leads })

	res := p.Run(context.Background(), testSubmission())

	require.True(t, res.Success, res.Error)
	assert.Equal(t, model.StateDone, res.Stage)
	assert.Equal(t, model.MaturityDeveloping, res.Gap.Maturity)
	assert.InDelta(t, 50.0, res.Gap.OverallScore, 1e-9)
	assert.Equal(t, 1, res.AIAttempts)
	assert.True(t, res.EmailDelivered)
	require.NotNil(t, res.Report)
	assert.Equal(t, model.NarrativeHigh, res.Report.NarrativeTier)
	require.NotNil(t, res.Quality)
	assert.True(t, res.Quality.Success)

	assert.Equal(t, []string{
		"초기화", "분석시작", "프롬프트생성", "AI분석중", "보고서생성중",
		"결과저장중", "최종검토중", "이메일발송중", "완료",
	}, st.statuses("diag-1"))

	require.Len(t, st.saved, 1)
	assert.Equal(t, model.StateDone, st.saved[0].Status)
	require.Len(t, st.quality, 1)

	n.AssertCalled(t, "Confirmation", mock.Anything, mock.Anything)
	n.AssertCalled(t, "Completion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "AdminError", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "Delayed", mock.Anything, mock.Anything)
	leads.AssertExpectations(t)
}

func TestRun_MissingEmailWritesNothing(t *testing.T) {
	n := &mockNotifier{}
	p, st := newTestPipeline(t, echoGenerator(nil), n)

	sub := testSubmission()
	sub.Contact.Email = "  "
	res := p.Run(context.Background(), sub)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "email is required")
	assert.Empty(t, st.rows)
	assert.Empty(t, st.saved)
	n.AssertExpectations(t)
}

func TestRun_AlwaysFailingGenerator(t *testing.T) {
	n := (&mockNotifier{}).allowAll()
	var calls atomic.Int32
	gen := llm.GeneratorFunc(func(context.Context, string) (string, error) {
		calls.Add(1)
		return "", errors.New("gemini: unexpected status 503")
	})
	p, st := newTestPipeline(t, gen, n)

	res := p.Run(context.Background(), testSubmission())

	assert.False(t, res.Success)
	assert.Equal(t, model.StateAnalysisFailed, res.Stage)
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, 5, res.AIAttempts)
	assert.Contains(t, res.Error, "after 5 attempts")

	statuses := st.statuses("diag-1")
	assert.Equal(t, "분석실패", statuses[len(statuses)-1])
	aiRows := 0
	for _, s := range statuses {
		if s == "AI분석중" {
			aiRows++
		}
	}
	assert.Equal(t, 5, aiRows)

	require.NotNil(t, res.Report, "failed runs still carry a fallback report")
	assert.Equal(t, len(model.AllSections), res.Report.Quality.FallbackSections)
	require.Len(t, st.quality, 1)
	assert.False(t, st.quality[0].Success)

	n.AssertCalled(t, "AdminError", mock.Anything, mock.Anything, model.StateAnalysisFailed, mock.Anything)
	n.AssertCalled(t, "Delayed", mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "Completion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_ShortNarrativeRetried(t *testing.T) {
	n := (&mockNotifier{}).allowAll()
	var calls atomic.Int32
	gen := llm.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.HasSuffix(prompt, sectionMarker) {
			return "본문", nil
		}
		if calls.Add(1) == 1 {
			return strings.Repeat("나", 100), nil
		}
		return strings.Repeat("다", 3500), nil
	})
	p, _ := newTestPipeline(t, gen, n)

	res := p.Run(context.Background(), testSubmission())

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.AIAttempts)
	assert.Equal(t, model.NarrativeAcceptable, res.Report.NarrativeTier)
	summary, ok := res.Report.Section(model.SectionExecutiveSummary)
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("다", 3500), summary.Body)
}

func TestRun_FailingSectionDoesNotBlockOthers(t *testing.T) {
	n := (&mockNotifier{}).allowAll()
	gen := llm.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "강점, 약점, 기회, 위협을 각각"):
			return "", errors.New("section quota exceeded")
		case strings.HasSuffix(prompt, sectionMarker):
			return "생성된 섹션 본문입니다.", nil
		default:
			return longNarrative, nil
		}
	})
	p, _ := newTestPipeline(t, gen, n)

	res := p.Run(context.Background(), testSubmission())

	require.True(t, res.Success, res.Error)
	for _, s := range res.Report.Sections {
		switch s.Key {
		case model.SectionSWOT:
			assert.True(t, s.Fallback)
			assert.Contains(t, s.Error, "quota")
			assert.NotEmpty(t, s.Body)
		case model.SectionExecutiveSummary:
			assert.Equal(t, longNarrative, s.Body)
		default:
			assert.False(t, s.Fallback, "section %s", s.Key)
		}
	}
	assert.Equal(t, 1, res.Report.Quality.FallbackSections)
}

func TestRun_NoGeneratorUsesTemplates(t *testing.T) {
	n := (&mockNotifier{}).allowAll()
	p, st := newTestPipeline(t, nil, n)

	res := p.Run(context.Background(), testSubmission())

	require.True(t, res.Success, res.Error)
	assert.Zero(t, res.AIAttempts)
	assert.Equal(t, model.NarrativeNone, res.Report.NarrativeTier)
	assert.Equal(t, len(model.AllSections), res.Report.Quality.FallbackSections)
	assert.Equal(t, "완료", st.statuses("diag-1")[8])
}

func TestRun_SaveFailure(t *testing.T) {
	n := (&mockNotifier{}).allowAll()
	p, st := newTestPipeline(t, echoGenerator(nil), n)
	st.saveErr = errors.New("sheet locked")

	res := p.Run(context.Background(), testSubmission())

	assert.False(t, res.Success)
	assert.Equal(t, model.StateSaveFailed, res.Stage)
	assert.Equal(t, 1, st.saveHits, "non-transient errors are not retried and the failure path does not save again")
	n.AssertCalled(t, "AdminError", mock.Anything, mock.Anything, model.StateSaveFailed, mock.Anything)
	n.AssertCalled(t, "Delayed", mock.Anything, mock.Anything)
}

func TestRun_CompletionEmailFailureStillCompletes(t *testing.T) {
	n := &mockNotifier{}
	n.On("Completion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	n.allowAll()
	p, st := newTestPipeline(t, echoGenerator(nil), n)

	res := p.Run(context.Background(), testSubmission())

	require.True(t, res.Success)
	assert.False(t, res.EmailDelivered)
	rows, err := st.ListProgress(context.Background(), "diag-1")
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.Equal(t, "완료", last.Status)
	assert.Contains(t, last.Message, "발송 실패")
}

func TestRun_GlobalTimeout(t *testing.T) {
	n := (&mockNotifier{}).allowAll()
	gen := llm.GeneratorFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	p, st := newTestPipeline(t, gen, n)
	p.timeout = 100 * time.Millisecond

	res := p.Run(context.Background(), testSubmission())

	assert.False(t, res.Success)
	assert.Equal(t, model.StateTimeout, res.Stage)
	require.NotNil(t, res.Report)

	statuses := st.statuses("diag-1")
	assert.Equal(t, "타임아웃", statuses[len(statuses)-1])
	n.AssertCalled(t, "AdminTimeout", mock.Anything, mock.Anything, model.StateAIAnalyzing)
	n.AssertCalled(t, "Delayed", mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "AdminError", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// The worker has stopped writing by now.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, statuses, st.statuses("diag-1"))
}

func TestRun_PanicRecorded(t *testing.T) {
	n := (&mockNotifier{}).allowAll()
	gen := llm.GeneratorFunc(func(context.Context, string) (string, error) {
		panic("nil map write")
	})
	p, st := newTestPipeline(t, gen, n)

	res := p.Run(context.Background(), testSubmission())

	assert.False(t, res.Success)
	assert.Equal(t, model.StateError, res.Stage)
	assert.Contains(t, res.Error, "panic in AI분석중")
	statuses := st.statuses("diag-1")
	assert.Equal(t, "오류발생", statuses[len(statuses)-1])
	n.AssertCalled(t, "AdminError", mock.Anything, mock.Anything, model.StateError, mock.Anything)
}

func TestRun_DoesNotMutateInput(t *testing.T) {
	n := (&mockNotifier{}).allowAll()
	p, _ := newTestPipeline(t, echoGenerator(nil), n)

	sub := testSubmission()
	sub.Responses["currentAI_1"] = 9
	p.Run(context.Background(), sub)
	assert.Equal(t, 9, sub.Responses["currentAI_1"])
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(config.PipelineConfig{}, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scoring engine is required")
}

func TestNew_RetryDefaults(t *testing.T) {
	n := &mockNotifier{}
	p, _ := newTestPipeline(t, nil, n)
	fresh, err := New(config.PipelineConfig{}, p.deps)
	require.NoError(t, err)

	assert.Equal(t, 5, fresh.aiRetry.MaxAttempts)
	assert.Equal(t, 15*time.Second, fresh.aiRetry.InitialBackoff)
	assert.Equal(t, 30*time.Second, fresh.aiRetry.MaxBackoff)
	assert.Equal(t, 5*time.Minute, fresh.aiRetry.AttemptTimeout)
	assert.Zero(t, fresh.aiRetry.JitterFraction)
	assert.Equal(t, 30*time.Minute, fresh.timeout)
}

func TestClassifyNarrative(t *testing.T) {
	assert.Equal(t, model.NarrativeHigh, ClassifyNarrative(strings.Repeat("가", 5000), 5000, 3000))
	assert.Equal(t, model.NarrativeAcceptable, ClassifyNarrative(strings.Repeat("가", 4999), 5000, 3000))
	assert.Equal(t, model.NarrativeAcceptable, ClassifyNarrative(strings.Repeat("가", 3000), 5000, 3000))
	assert.Equal(t, model.NarrativeNone, ClassifyNarrative(strings.Repeat("가", 2999), 5000, 3000))
}
