package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/ai-diagnosis/internal/benchmark"
	"github.com/sells-group/ai-diagnosis/internal/catalog"
	"github.com/sells-group/ai-diagnosis/internal/model"
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Show the benchmark profile applied to an industry and company size",
	RunE: func(cmd *cobra.Command, _ []string) error {
		industry, _ := cmd.Flags().GetString("industry")
		employees, _ := cmd.Flags().GetString("employees")
		list, _ := cmd.Flags().GetBool("list")

		if err := cfg.Validate("benchmark"); err != nil {
			return err
		}
		table, err := loadBenchmarks()
		if err != nil {
			return err
		}

		if list {
			printBenchmarkIndex(cmd.OutOrStdout(), table)
			return nil
		}
		printBenchmark(cmd.OutOrStdout(), table, industry, employees)
		return nil
	},
}

func printBenchmarkIndex(w io.Writer, table *benchmark.Table) {
	fmt.Fprintln(w, "Industries:")
	for _, name := range table.Industries() {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintln(w, "Employee buckets:")
	for _, b := range table.Buckets() {
		fmt.Fprintf(w, "  %-10s %+.1f\n", b, table.SizeOffset(b))
	}
}

func printBenchmark(w io.Writer, table *benchmark.Table, industry, employees string) {
	profile, matched := table.Lookup(industry)
	offset := table.SizeOffset(employees)

	fmt.Fprintf(w, "Profile: %s", profile.Name)
	if !matched {
		fmt.Fprint(w, " (default)")
	}
	fmt.Fprintf(w, "\nSize adjustment: %+.1f\n\n", offset)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIANT\tCATEGORY\tREFERENCE\tADJUSTED")
	for _, cat := range []*catalog.Catalog{catalog.Full(), catalog.Simplified()} {
		for _, cd := range cat.Categories {
			ref := profile.Category(cd.Key)
			fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\n", cat.Variant, categoryName(cd), ref, catalog.Clamp(ref+offset))
		}
	}
	_ = tw.Flush()
}

func categoryName(cd catalog.CategoryDef) string {
	if cd.Label == "" {
		return string(cd.Key)
	}
	return fmt.Sprintf("%s (%s)", cd.Label, cd.Key)
}

func init() {
	benchmarkCmd.Flags().String("industry", model.Unknown, "industry name")
	benchmarkCmd.Flags().String("employees", "", "employee bucket, e.g. 11-50")
	benchmarkCmd.Flags().Bool("list", false, "list known industries and employee buckets")
	rootCmd.AddCommand(benchmarkCmd)
}
