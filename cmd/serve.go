package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/intake"
	"github.com/sells-group/ai-diagnosis/internal/monitoring"
	"github.com/sells-group/ai-diagnosis/internal/pipeline"
	"github.com/sells-group/ai-diagnosis/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the diagnosis intake API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		dispatcher := pipeline.NewDispatcher(env.Pipeline, cfg.Pipeline.MaxConcurrent, cfg.Pipeline.MaxQueued, nil)

		if cfg.Monitoring.WebhookURL != "" {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.Quality),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		handler := server.NewRouter(server.Deps{
			Validator: intake.NewValidator(),
			Submitter: dispatcher,
			Progress:  env.Store,
			Trends:    env.Quality,
		}, cfg.Server.AllowedOrigins)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		serveErr := server.Serve(ctx, fmt.Sprintf(":%d", port), handler)

		drainDiagnoses(ctx, dispatcher, time.Duration(cfg.Server.DrainTimeoutSecs)*time.Second)
		return serveErr
	},
}

// drainDiagnoses waits up to timeout for background runs. Runs still going
// when it gives up are abandoned with the process; their last progress row
// stays non-terminal.
func drainDiagnoses(ctx context.Context, d *pipeline.Dispatcher, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	zap.L().Info("waiting for in-flight diagnoses",
		zap.Int("in_flight", d.InFlight()),
		zap.Duration("timeout", timeout),
	)
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := d.Drain(drainCtx); err != nil {
		zap.L().Warn("shutdown: abandoning unfinished diagnoses", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
