package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/cwbudde/blockssim/internal/report"
)

type summaryFlags struct {
	run  string
	last int
}

func newSummaryCmd() *cobra.Command {
	flags := &summaryFlags{}

	cmd := &cobra.Command{
		Use:   "summary <file.jsonl>",
		Short: "Summarise a score report",
		Long: `Reads a JSONL report written with --report and prints every record in a
table followed by aggregate statistics over the scores.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runSummary(cmd.OutOrStdout(), args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.run, "run", "", "Only include records from this run ID")
	cmd.Flags().IntVar(&flags.last, "last", 0, "Only include the last N records (0 = all)")
	return cmd
}

func runSummary(out io.Writer, path string, flags *summaryFlags) error {
	r, err := report.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	records = selectRecords(records, flags.run, flags.last)
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found.")
		return nil
	}

	s, err := report.Summarize(records)
	if err != nil {
		return err
	}
	printRecords(out, records)
	printSummary(out, s, len(lo.Uniq(lo.Map(records, func(r report.Record, _ int) string { return r.Run }))))
	return nil
}

// selectRecords filters by run ID when run is set and then keeps the last n
// records when n > 0.
func selectRecords(records []report.Record, run string, n int) []report.Record {
	if run != "" {
		records = lo.Filter(records, func(r report.Record, _ int) bool {
			return r.Run == run
		})
	}
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records
}

func printRecords(out io.Writer, records []report.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tFRAME\tSCORE\tBLOCKS\tSIZE\tTIMESTAMP")
	fmt.Fprintln(w, "---\t-----\t-----\t------\t----\t---------")

	for _, r := range records {
		// Truncate run ID for display
		displayRun := r.Run
		if len(displayRun) > 8 {
			displayRun = displayRun[:8]
		}
		if displayRun == "" {
			displayRun = "-"
		}

		fmt.Fprintf(w, "%s\t%d\t%.6f\t%d\t%dx%d\t%s\n",
			displayRun,
			r.Frame,
			r.Score,
			r.Blocks,
			r.Width,
			r.Height,
			r.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	w.Flush()
}

func printSummary(out io.Writer, s report.Summary, runs int) {
	fmt.Fprintf(out, "\nRecords: %d (runs: %d)\n", s.Count, runs)
	fmt.Fprintf(out, "Mean:    %.6f\n", s.Mean)
	fmt.Fprintf(out, "StdDev:  %.6f\n", s.StdDev)
	fmt.Fprintf(out, "Min:     %.6f\n", s.Min)
	fmt.Fprintf(out, "Max:     %.6f (frame %d)\n", s.Max, s.BestFrame)
}
