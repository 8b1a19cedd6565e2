// Package pipeline runs one diagnosis submission from intake to the final
// email. Every step is a State recorded in the progress store; a run always
// ends in 완료 or one of the failure states, and always yields a report.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/config"
	"github.com/sells-group/ai-diagnosis/internal/llm"
	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/internal/quality"
	"github.com/sells-group/ai-diagnosis/internal/report"
	"github.com/sells-group/ai-diagnosis/internal/resilience"
	"github.com/sells-group/ai-diagnosis/internal/scoring"
	"github.com/sells-group/ai-diagnosis/internal/store"
)

// delayedMessage is the only failure text written to progress rows; details
// go to the log and the administrator.
const delayedMessage = "보고서 작성이 지연되고 있습니다. 담당자가 확인 후 안내드리겠습니다."

// cleanupTimeout bounds the writes and emails after a run has failed.
const cleanupTimeout = 30 * time.Second

// ErrInvalidSubmission is returned for submissions the pipeline refuses to
// start. No progress row is written for them.
var ErrInvalidSubmission = eris.New("pipeline: invalid submission")

var errShortNarrative = eris.New("pipeline: analysis too short")

// Notifier sends the emails of a run. notify.Notifier implements it.
type Notifier interface {
	Confirmation(ctx context.Context, sub model.Submission) error
	Completion(ctx context.Context, sub model.Submission, gap model.GapAnalysis, rep *model.Report) error
	Delayed(ctx context.Context, sub model.Submission) error
	AdminError(ctx context.Context, sub model.Submission, stage State, cause error) error
	AdminTimeout(ctx context.Context, sub model.Submission, stage State) error
}

// LeadSink receives the prospect once the result is saved.
type LeadSink interface {
	SyncLead(ctx context.Context, sub model.Submission, gap model.GapAnalysis) error
}

// Deps are the collaborators of a Pipeline. Generator and Leads are
// optional.
type Deps struct {
	Engine    *scoring.Engine
	Generator llm.Generator
	Composer  *report.Composer
	Progress  store.ProgressStore
	Results   store.ResultSink
	Quality   *quality.Service
	Notifier  Notifier
	Leads     LeadSink
}

// Result is the outcome of one run.
type Result struct {
	Success        bool                 `json:"success"`
	DiagnosisID    string               `json:"diagnosisId"`
	Stage          State                `json:"stage,omitempty"`
	Error          string               `json:"error,omitempty"`
	Scores         model.Scores         `json:"scores"`
	Gap            model.GapAnalysis    `json:"gap"`
	Report         *model.Report        `json:"report,omitempty"`
	Quality        *model.QualityReport `json:"quality,omitempty"`
	EmailDelivered bool                 `json:"emailDelivered"`
	AIAttempts     int                  `json:"aiAttempts"`
	Duration       time.Duration        `json:"duration"`
}

// Pipeline processes submissions. It holds no per-run state and is safe for
// concurrent use.
type Pipeline struct {
	cfg       config.PipelineConfig
	deps      Deps
	aiRetry   resilience.RetryConfig
	saveRetry resilience.RetryConfig
	timeout   time.Duration
	now       func() time.Time
}

// New creates a Pipeline.
func New(cfg config.PipelineConfig, deps Deps) (*Pipeline, error) {
	switch {
	case deps.Engine == nil:
		return nil, eris.New("pipeline: scoring engine is required")
	case deps.Composer == nil:
		return nil, eris.New("pipeline: report composer is required")
	case deps.Progress == nil || deps.Results == nil:
		return nil, eris.New("pipeline: store is required")
	case deps.Quality == nil:
		return nil, eris.New("pipeline: quality service is required")
	case deps.Notifier == nil:
		return nil, eris.New("pipeline: notifier is required")
	}

	if cfg.HighQualityLength <= 0 {
		cfg.HighQualityLength = 5000
	}
	if cfg.MinAcceptableLength <= 0 {
		cfg.MinAcceptableLength = 3000
	}
	if cfg.AIMaxAttempts <= 0 {
		cfg.AIMaxAttempts = 5
	}
	if cfg.AIInitialBackoffSecs <= 0 {
		cfg.AIInitialBackoffSecs = 15
	}
	if cfg.AIMaxBackoffSecs <= 0 {
		cfg.AIMaxBackoffSecs = 30
	}
	if cfg.AIAttemptTimeoutSecs <= 0 {
		cfg.AIAttemptTimeoutSecs = 300
	}
	timeout := time.Duration(cfg.ProcessTimeoutMins) * time.Minute
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	aiRetry := resilience.FromRetrySecs(cfg.AIMaxAttempts, cfg.AIInitialBackoffSecs, cfg.AIMaxBackoffSecs, cfg.AIAttemptTimeoutSecs)
	aiRetry.ShouldRetry = resilience.RetryUnlessCanceled

	saveRetry := resilience.DefaultRetryConfig()
	saveRetry.OnRetry = resilience.RetryLogger("store", "save_diagnosis")

	return &Pipeline{
		cfg:       cfg,
		deps:      deps,
		aiRetry:   aiRetry,
		saveRetry: saveRetry,
		timeout:   timeout,
		now:       time.Now,
	}, nil
}

// Run processes one submission. It never panics and never returns an error:
// failures are reported in the Result and in the progress store.
func (p *Pipeline) Run(ctx context.Context, sub model.Submission) *Result {
	start := p.now()
	sub = sub.Clone()
	log := zap.L().With(zap.String("diagnosis_id", sub.ID), zap.String("company", sub.Company.Name))

	if err := checkSubmission(sub); err != nil {
		log.Warn("pipeline: rejected submission", zap.Error(err))
		return &Result{DiagnosisID: sub.ID, Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	r := &run{
		p:   p,
		sub: sub,
		log: log,
		tr:  newTracker(sub.ID, p.deps.Progress, p.now),
		res: &Result{DiagnosisID: sub.ID},
	}
	log.Info("pipeline: starting diagnosis", zap.String("variant", string(sub.Variant)))

	done := make(chan *Result, 1)
	go func() {
		done <- r.execute(ctx)
	}()

	var res *Result
	select {
	case res = <-done:
		// The worker may give up at the deadline without a terminal state.
		if !r.tr.state().Terminal() && eris.Is(ctx.Err(), context.DeadlineExceeded) {
			if tres, ok := p.timedOut(ctx, r); ok {
				res = tres
			}
		}
	case <-ctx.Done():
		var ok bool
		if eris.Is(ctx.Err(), context.DeadlineExceeded) {
			res, ok = p.timedOut(ctx, r)
		}
		if !ok {
			res = <-done
		}
	}

	res.Duration = p.now().Sub(start)
	log.Info("pipeline: diagnosis finished",
		zap.Bool("success", res.Success),
		zap.String("state", string(res.Stage)),
		zap.Int("ai_attempts", res.AIAttempts),
		zap.Int64("duration_ms", res.Duration.Milliseconds()),
	)
	return res
}

// timedOut writes 타임아웃 and runs the failure side effects. It reports
// false when the worker reached a terminal state first.
func (p *Pipeline) timedOut(ctx context.Context, r *run) (*Result, bool) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	stage := r.tr.state()
	if err := r.tr.advance(fctx, model.StateTimeout, delayedMessage); err != nil {
		return nil, false
	}

	cause := eris.Wrapf(ctx.Err(), "pipeline: timed out after %s in %s", p.timeout, stage)
	r.log.Error("pipeline: diagnosis timed out", zap.String("state", string(stage)), zap.Error(cause))

	// The worker still owns r.res; the timeout result starts fresh.
	res := &Result{
		DiagnosisID: r.sub.ID,
		Stage:       model.StateTimeout,
		Error:       cause.Error(),
		AIAttempts:  int(r.attempts.Load()),
	}
	p.finishFailure(fctx, r.sub, res, stage, cause, r.log)
	return res, true
}

// finishFailure runs the failure side effects: fallback report, best-effort
// save and quality record, administrator and delayed emails.
func (p *Pipeline) finishFailure(ctx context.Context, sub model.Submission, res *Result, lastStage State, cause error, log *zap.Logger) {
	if res.Scores.Categories == nil {
		res.Scores, res.Gap = p.deps.Engine.Evaluate(sub)
	}
	if res.Report == nil {
		rep, err := p.deps.Composer.Fallback(p.reportInput(sub, res, "", model.NarrativeNone))
		if err != nil {
			log.Warn("pipeline: fallback report render failed", zap.Error(err))
		}
		res.Report = rep
	}

	if res.Stage != model.StateSaveFailed {
		rec := model.NewDiagnosisRecord(sub, res.Scores, res.Gap, res.Report, res.Stage, p.now())
		if err := p.deps.Results.SaveDiagnosis(ctx, rec); err != nil {
			log.Warn("pipeline: failed to save failed diagnosis", zap.Error(err))
		}
	}
	p.recordQuality(ctx, sub, res, log)

	var err error
	if res.Stage == model.StateTimeout {
		err = p.deps.Notifier.AdminTimeout(ctx, sub, lastStage)
	} else {
		err = p.deps.Notifier.AdminError(ctx, sub, res.Stage, cause)
	}
	if err != nil {
		log.Warn("pipeline: admin notification failed", zap.Error(err))
	}
	if err := p.deps.Notifier.Delayed(ctx, sub); err != nil {
		log.Warn("pipeline: delayed notification failed", zap.Error(err))
	}
}

func (p *Pipeline) recordQuality(ctx context.Context, sub model.Submission, res *Result, log *zap.Logger) {
	qr, err := p.deps.Quality.Record(ctx, quality.Input{
		DiagnosisID: sub.ID,
		Variant:     sub.Variant,
		FinalState:  res.Stage,
		Report:      res.Report,
		AIAttempts:  res.AIAttempts,
	})
	if err != nil {
		log.Warn("pipeline: failed to record quality", zap.Error(err))
	}
	res.Quality = &qr
}

func (p *Pipeline) reportInput(sub model.Submission, res *Result, narrative string, tier model.NarrativeTier) report.Input {
	return report.Input{
		Catalog:       p.deps.Engine.Catalog(sub.Variant),
		Submission:    sub,
		Scores:        res.Scores,
		Gap:           res.Gap,
		Narrative:     narrative,
		NarrativeTier: tier,
	}
}

func checkSubmission(sub model.Submission) error {
	switch {
	case strings.TrimSpace(sub.ID) == "":
		return eris.Wrap(ErrInvalidSubmission, "id is required")
	case strings.TrimSpace(sub.Contact.Email) == "":
		return eris.Wrap(ErrInvalidSubmission, "email is required")
	case strings.TrimSpace(sub.Company.Name) == "":
		return eris.Wrap(ErrInvalidSubmission, "company name is required")
	}
	return nil
}
