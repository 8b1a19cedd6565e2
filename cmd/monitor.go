package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/internal/monitoring"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Follow the progress of a diagnosis until it finishes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		id, _ := cmd.Flags().GetString("id")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval == 0 {
			interval = time.Duration(cfg.Monitoring.PollIntervalSecs) * time.Second
		}

		if err := cfg.Validate("monitor"); err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		out := cmd.OutOrStdout()
		last, err := monitoring.Watch(ctx, st, id, interval, timeout, func(r model.ProgressRecord) {
			printProgress(out, r)
		})
		if err != nil {
			return err
		}
		if last.Status != string(model.StateDone) {
			return eris.Errorf("diagnosis %s ended in %s", id, last.Status)
		}
		return nil
	},
}

func init() {
	monitorCmd.Flags().String("id", "", "diagnosis id")
	monitorCmd.Flags().Duration("timeout", 30*time.Minute, "give up after this long")
	monitorCmd.Flags().Duration("interval", 0, "poll interval (default from config)")
	_ = monitorCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(monitorCmd)
}
