package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/intake"
	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/internal/monitoring"
	"github.com/sells-group/ai-diagnosis/internal/pipeline"
	"github.com/sells-group/ai-diagnosis/internal/report"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run one diagnosis from a submission JSON file",
	Long:  "Validates a submission (the same JSON the intake API accepts), runs the full pipeline in-process and prints the result summary.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		path, _ := cmd.Flags().GetString("file")
		wait, _ := cmd.Flags().GetBool("wait")
		htmlOut, _ := cmd.Flags().GetString("html")

		body, err := readInput(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}
		sub, err := intake.NewValidator().Decode(body)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "diagnose")
		if err != nil {
			return err
		}
		defer env.Close()

		out := cmd.OutOrStdout()
		done := make(chan *pipeline.Result, 1)
		go func() { done <- env.Pipeline.Run(ctx, sub) }()

		if wait {
			interval := time.Duration(cfg.Monitoring.PollIntervalSecs) * time.Second
			timeout := time.Duration(cfg.Pipeline.ProcessTimeoutMins)*time.Minute + time.Minute
			_, werr := monitoring.Watch(ctx, env.Store, sub.ID, interval, timeout, func(r model.ProgressRecord) {
				printProgress(out, r)
			})
			if werr != nil {
				zap.L().Warn("progress watch ended early", zap.Error(werr))
			}
		}

		res := <-done
		if htmlOut != "" && res.Report != nil {
			if err := writeReportHTML(htmlOut, res.Report, sub.Company.Name); err != nil {
				return err
			}
		}
		if err := printResult(out, res); err != nil {
			return err
		}
		if !res.Success {
			return eris.Errorf("diagnosis %s ended in %s", res.DiagnosisID, res.Stage)
		}
		return nil
	},
}

// resultSummary is the CLI view of a pipeline result, without the report
// body.
type resultSummary struct {
	Success        bool                 `json:"success"`
	DiagnosisID    string               `json:"diagnosisId"`
	Stage          model.State          `json:"stage,omitempty"`
	Error          string               `json:"error,omitempty"`
	OverallScore   float64              `json:"overallScore"`
	Benchmark      float64              `json:"benchmark"`
	Maturity       model.MaturityLevel  `json:"maturity"`
	Industry       string               `json:"industry"`
	AIAttempts     int                  `json:"aiAttempts"`
	EmailDelivered bool                 `json:"emailDelivered"`
	DurationMS     int64                `json:"durationMs"`
	Quality        *model.QualityReport `json:"quality,omitempty"`
}

func summarize(res *pipeline.Result) resultSummary {
	return resultSummary{
		Success:        res.Success,
		DiagnosisID:    res.DiagnosisID,
		Stage:          res.Stage,
		Error:          res.Error,
		OverallScore:   res.Gap.OverallScore,
		Benchmark:      res.Gap.OverallBenchmark,
		Maturity:       res.Gap.Maturity,
		Industry:       res.Gap.Industry,
		AIAttempts:     res.AIAttempts,
		EmailDelivered: res.EmailDelivered,
		DurationMS:     res.Duration.Milliseconds(),
		Quality:        res.Quality,
	}
}

func printResult(w io.Writer, res *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summarize(res)); err != nil {
		return eris.Wrap(err, "encode result")
	}
	return nil
}

func printProgress(w io.Writer, r model.ProgressRecord) {
	fmt.Fprintf(w, "%s  %-8s %s\n", r.Timestamp.Local().Format("15:04:05"), r.Status, r.Message)
}

func writeReportHTML(path string, rep *model.Report, companyName string) error {
	html, err := report.RenderHTML(rep, companyName)
	if err != nil {
		return eris.Wrap(err, "render report")
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

// readInput reads path, or r when path is "-".
func readInput(r io.Reader, path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(r)
		return b, eris.Wrap(err, "read stdin")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return b, nil
}

func init() {
	diagnoseCmd.Flags().String("file", "", "submission JSON file (- for stdin)")
	diagnoseCmd.Flags().Bool("wait", false, "stream progress rows until the run finishes")
	diagnoseCmd.Flags().String("html", "", "write the rendered report to this file")
	_ = diagnoseCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(diagnoseCmd)
}
