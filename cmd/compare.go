package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cwbudde/blockssim/internal/imageio"
	"github.com/cwbudde/blockssim/internal/pipeline"
	"github.com/cwbudde/blockssim/internal/report"
	"github.com/cwbudde/blockssim/internal/ssim"
)

// scoringFlags are shared by the image and video commands.
type scoringFlags struct {
	edge   string
	report string
}

func (f *scoringFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.edge, "edge", "truncate", "Partial block policy: truncate or replicate")
	flags.StringVar(&f.report, "report", "", "Append final scores to this JSONL file")
}

// apply copies explicitly set flags over the loaded config.
func (f *scoringFlags) apply(cmd *cobra.Command, opts *rootOptions) {
	flags := cmd.Flags()
	if flags.Changed("edge") {
		opts.cfg.Scoring.Edge = f.edge
	}
	if flags.Changed("report") {
		opts.cfg.Output.Report = f.report
	}
}

// newDriver builds a driver from the resolved config. The returned writer is
// nil unless a report file was requested.
func newDriver(cmd *cobra.Command, opts *rootOptions) (*pipeline.Driver, *report.Writer, error) {
	cfg := opts.cfg
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	consts, err := cfg.Constants()
	if err != nil {
		return nil, nil, err
	}
	extract, err := cfg.ExtractOptions()
	if err != nil {
		return nil, nil, err
	}

	d := pipeline.NewDriver(imageio.NewLoader(), imageio.NewResizer(), cmd.OutOrStdout())
	d.Scorer = ssim.NewScorer(consts)
	d.Extract = extract

	if cfg.Output.Report == "" {
		return d, nil, nil
	}
	w, err := report.Create(cfg.Output.Report, true)
	if err != nil {
		return nil, nil, err
	}
	d.Records = w
	return d, w, nil
}

// closeReport closes w and joins its error with err.
func closeReport(w *report.Writer, err error) error {
	if w == nil {
		return err
	}
	if cerr := w.Close(); cerr != nil {
		return errors.Join(err, fmt.Errorf("failed to close report: %w", cerr))
	}
	return err
}
