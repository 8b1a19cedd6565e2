package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/internal/quality"
)

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Summarize report quality over a recent window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		since, _ := cmd.Flags().GetDuration("since")

		if err := cfg.Validate("quality"); err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		trend, err := quality.NewService(st).Trend(ctx, time.Now().UTC().Add(-since))
		if err != nil {
			return err
		}
		printTrend(cmd.OutOrStdout(), trend)
		return nil
	},
}

func printTrend(w io.Writer, t *quality.Trend) {
	if t.Total == 0 {
		fmt.Fprintln(w, "No diagnoses in window.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total\t%d\n", t.Total)
	fmt.Fprintf(tw, "Succeeded\t%d\n", t.Succeeded)
	fmt.Fprintf(tw, "Failed\t%d (%.1f%%)\n", t.Failed, t.FailureRate*100)
	fmt.Fprintf(tw, "Avg confidence\t%.1f\n", t.AvgConfidence)
	fmt.Fprintf(tw, "Avg completeness\t%.1f%%\n", t.AvgCompleteness*100)
	fmt.Fprintf(tw, "Avg AI attempts\t%.1f\n", t.AvgAIAttempts)
	fmt.Fprintf(tw, "Fallback sections\t%d\n", t.FallbackSections)
	_ = tw.Flush()

	fmt.Fprintln(w, "\nGrades:")
	grades := make([]model.QualityGrade, 0, len(t.Grades))
	for g := range t.Grades {
		grades = append(grades, g)
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i] < grades[j] })
	for _, g := range grades {
		fmt.Fprintf(w, "  %-10s %d\n", g, t.Grades[g])
	}

	fmt.Fprintln(w, "\nFinal states:")
	states := make([]model.State, 0, len(t.FinalStates))
	for s := range t.FinalStates {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	for _, s := range states {
		fmt.Fprintf(w, "  %-10s %d\n", s, t.FinalStates[s])
	}
}

func init() {
	qualityCmd.Flags().Duration("since", 168*time.Hour, "window to summarize")
	rootCmd.AddCommand(qualityCmd)
}
