package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/llm"
	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/internal/report"
	"github.com/sells-group/ai-diagnosis/internal/resilience"
)

// run is the state of one submission. Only the worker goroutine touches res;
// the timeout path reads tr and attempts.
type run struct {
	p        *Pipeline
	sub      model.Submission
	log      *zap.Logger
	tr       *tracker
	res      *Result
	attempts atomic.Int32
}

func (r *run) execute(ctx context.Context) (res *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("pipeline: recovered panic",
				zap.String("state", string(r.tr.state())),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			res = r.fail(ctx, model.StateError, eris.Errorf("pipeline: panic in %s: %v", r.tr.state(), rec))
		}
	}()

	p := r.p
	d := p.deps

	if err := r.tr.advance(ctx, model.StateInit, "진단 요청 접수"); err != nil {
		return r.fail(ctx, model.StateError, err)
	}
	if err := d.Notifier.Confirmation(ctx, r.sub); err != nil {
		r.log.Warn("pipeline: confirmation email failed", zap.Error(err))
	}

	// 분석시작
	if err := r.tr.advance(ctx, model.StateAnalysisStart, "점수 계산 및 업종 비교"); err != nil {
		return r.fail(ctx, model.StateError, err)
	}
	r.res.Scores, r.res.Gap = d.Engine.Evaluate(r.sub)
	gap := r.res.Gap
	r.log.Info("pipeline: scored submission",
		zap.Float64("overall", gap.OverallScore),
		zap.Float64("benchmark", gap.OverallBenchmark),
		zap.String("maturity", string(gap.Maturity)),
		zap.Int("sanitized_answers", len(r.res.Scores.Warnings)),
	)

	// 프롬프트생성
	msg := fmt.Sprintf("종합 %.1f점, %s", gap.OverallScore, gap.Maturity.Label())
	if err := r.tr.advance(ctx, model.StatePromptBuild, msg); err != nil {
		return r.fail(ctx, model.StateError, err)
	}
	prompt := llm.AnalysisPrompt(d.Engine.Catalog(r.sub.Variant), r.sub, r.res.Scores, gap)

	// AI분석중
	narrative, tier, err := r.analyze(ctx, prompt)
	if err != nil {
		return r.fail(ctx, model.StateAnalysisFailed, err)
	}

	// 보고서생성중
	if err := r.tr.advance(ctx, model.StateReportBuild, fmt.Sprintf("보고서 작성 (분석 품질 %s)", tier)); err != nil {
		return r.fail(ctx, model.StateError, err)
	}
	rep, err := d.Composer.Compose(ctx, p.reportInput(r.sub, r.res, narrative, tier))
	if err == nil {
		err = report.Validate(rep)
	}
	if err != nil {
		return r.fail(ctx, model.StateStructuringFailed, err)
	}
	r.res.Report = rep

	// 결과저장중
	if err := r.tr.advance(ctx, model.StatePersist, "결과 저장"); err != nil {
		return r.fail(ctx, model.StateError, err)
	}
	rec := model.NewDiagnosisRecord(r.sub, r.res.Scores, gap, rep, model.StateDone, p.now())
	err = resilience.Do(ctx, p.saveRetry, func(ctx context.Context) error {
		return d.Results.SaveDiagnosis(ctx, rec)
	})
	if err != nil {
		return r.fail(ctx, model.StateSaveFailed, err)
	}
	if d.Leads != nil {
		if err := d.Leads.SyncLead(ctx, r.sub, gap); err != nil {
			r.log.Warn("pipeline: lead sync failed", zap.Error(err))
		}
	}

	// 최종검토중
	if err := r.tr.advance(ctx, model.StateFinalReview, "품질 검토"); err != nil {
		return r.fail(ctx, model.StateError, err)
	}
	r.res.Stage = model.StateDone
	p.recordQuality(ctx, r.sub, r.res, r.log)

	// 이메일발송중
	if err := r.tr.advance(ctx, model.StateEmail, "결과 메일 발송"); err != nil {
		return r.fail(ctx, model.StateError, err)
	}
	done := "진단 완료"
	if err := d.Notifier.Completion(ctx, r.sub, gap, rep); err != nil {
		r.log.Warn("pipeline: completion email failed", zap.Error(err))
		done = "진단 완료 (결과 메일 발송 실패, 담당자 확인 필요)"
	} else {
		r.res.EmailDelivered = true
	}

	if err := r.tr.advance(ctx, model.StateDone, done); err != nil {
		return r.fail(ctx, model.StateError, err)
	}
	r.res.Success = true
	return r.res
}

// analyze asks the generator for the narrative analysis, retrying failures
// and answers shorter than the acceptable length. Without a generator the
// run continues with templated sections.
func (r *run) analyze(ctx context.Context, prompt string) (string, model.NarrativeTier, error) {
	p := r.p
	if p.deps.Generator == nil {
		if err := r.tr.advance(ctx, model.StateAIAnalyzing, "AI 생성기 미설정, 기본 분석으로 진행"); err != nil {
			return "", model.NarrativeNone, err
		}
		return "", model.NarrativeNone, nil
	}

	cfg := p.aiRetry
	cfg.OnRetry = func(attempt int, err error) {
		r.log.Warn("pipeline: AI analysis attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Error(err),
		)
	}

	text, err := resilience.DoVal(ctx, cfg, func(actx context.Context) (string, error) {
		n := r.attempts.Add(1)
		if err := r.tr.advance(ctx, model.StateAIAnalyzing, fmt.Sprintf("AI 분석 시도 %d/%d", n, cfg.MaxAttempts)); err != nil {
			return "", err
		}
		out, err := p.deps.Generator.Generate(actx, prompt)
		if err != nil {
			return "", err
		}
		out = strings.TrimSpace(out)
		if ClassifyNarrative(out, p.cfg.HighQualityLength, p.cfg.MinAcceptableLength) == model.NarrativeNone {
			return "", eris.Wrapf(errShortNarrative, "%d of %d runes", utf8.RuneCountInString(out), p.cfg.MinAcceptableLength)
		}
		return out, nil
	})
	r.res.AIAttempts = int(r.attempts.Load())
	if err != nil {
		return "", model.NarrativeNone, eris.Wrapf(err, "pipeline: AI analysis failed after %d attempts", r.res.AIAttempts)
	}

	tier := ClassifyNarrative(text, p.cfg.HighQualityLength, p.cfg.MinAcceptableLength)
	r.log.Info("pipeline: AI analysis complete",
		zap.Int("attempts", r.res.AIAttempts),
		zap.Int("length", utf8.RuneCountInString(text)),
		zap.String("tier", string(tier)),
	)
	return text, tier, nil
}

// fail moves the run to a failure state and runs the failure side effects.
// When the run deadline has passed the timeout path owns the outcome.
func (r *run) fail(ctx context.Context, state State, cause error) *Result {
	if eris.Is(ctx.Err(), context.DeadlineExceeded) {
		return r.res
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	last := r.tr.state()
	if err := r.tr.advance(fctx, state, delayedMessage); err != nil {
		r.log.Error("pipeline: cannot record failure state", zap.String("state", string(state)), zap.Error(err))
		if last.Terminal() || r.tr.advance(fctx, model.StateError, delayedMessage) != nil {
			r.res.Stage = last
			r.res.Error = cause.Error()
			return r.res
		}
		state = model.StateError
	}

	r.log.Error("pipeline: diagnosis failed",
		zap.String("state", string(state)),
		zap.String("last_state", string(last)),
		zap.Error(cause),
	)
	r.res.Success = false
	r.res.Stage = state
	r.res.Error = cause.Error()
	r.p.finishFailure(fctx, r.sub, r.res, last, cause, r.log)
	return r.res
}
