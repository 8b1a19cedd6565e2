package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/benchmark"
	"github.com/sells-group/ai-diagnosis/internal/crm"
	"github.com/sells-group/ai-diagnosis/internal/llm"
	"github.com/sells-group/ai-diagnosis/internal/notify"
	"github.com/sells-group/ai-diagnosis/internal/pipeline"
	"github.com/sells-group/ai-diagnosis/internal/quality"
	"github.com/sells-group/ai-diagnosis/internal/report"
	"github.com/sells-group/ai-diagnosis/internal/scoring"
	"github.com/sells-group/ai-diagnosis/internal/store"
	"github.com/sells-group/ai-diagnosis/pkg/appscript"
)

// appEnv holds the store and the wired pipeline used by serve and diagnose.
type appEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Quality  *quality.Service
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates config for mode, opens the store and builds the
// Pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	p, qs, err := buildPipeline(st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &appEnv{Store: st, Pipeline: p, Quality: qs}, nil
}

func buildPipeline(st store.Store) (*pipeline.Pipeline, *quality.Service, error) {
	table, err := loadBenchmarks()
	if err != nil {
		return nil, nil, err
	}
	engine, err := scoring.NewEngine(table, cfg.Scoring)
	if err != nil {
		return nil, nil, eris.Wrap(err, "build scoring engine")
	}

	gen, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, nil, eris.Wrap(err, "build report generator")
	}
	if gen == nil {
		zap.L().Warn("llm provider disabled, reports use templated sections")
	} else {
		zap.L().Info("report generator enabled", zap.String("provider", cfg.LLM.Provider))
	}

	var mailer notify.Mailer
	if m := notify.NewSMTPMailer(cfg.Email); m != nil {
		mailer = m
	} else {
		zap.L().Warn("email host not set, notifications disabled")
	}

	var leads pipeline.LeadSink
	ls, err := crm.Connect(cfg.Salesforce)
	switch {
	case err != nil:
		zap.L().Warn("salesforce unavailable, lead sync disabled", zap.Error(err))
	case ls != nil:
		leads = ls
		zap.L().Info("salesforce lead sync enabled")
	}

	qs := quality.NewService(st)
	p, err := pipeline.New(cfg.Pipeline, pipeline.Deps{
		Engine:    engine,
		Generator: gen,
		Composer:  report.NewComposer(gen, cfg.Report),
		Progress:  st,
		Results:   st,
		Quality:   qs,
		Notifier:  notify.New(mailer, cfg.Email.AdminEmail),
		Leads:     leads,
	})
	if err != nil {
		return nil, nil, err
	}
	return p, qs, nil
}

func loadBenchmarks() (*benchmark.Table, error) {
	if cfg.Benchmark.Path == "" {
		return benchmark.Default()
	}
	table, err := benchmark.LoadFile(cfg.Benchmark.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "load benchmarks from %s", cfg.Benchmark.Path)
	}
	return table, nil
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sheets":
		timeout := time.Duration(cfg.Sheets.TimeoutSecs) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client := appscript.NewClient(cfg.Sheets.WebAppURL,
			appscript.WithHTTPClient(&http.Client{Timeout: timeout}),
		)
		return store.NewSheets(client), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
