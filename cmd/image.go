package main

import (
	"github.com/spf13/cobra"
)

func newImageCmd(opts *rootOptions) *cobra.Command {
	flags := &scoringFlags{}

	cmd := &cobra.Command{
		Use:   "image <input1> <input2>",
		Short: "Score one image against another",
		Long: `Loads both images, reconciles them to the smaller width and height,
converts them to luma and prints the mean SSIM over 8x8 blocks.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd, opts)

			d, w, err := newDriver(cmd, opts)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			_, err = d.CompareImages(args[0], args[1])
			return closeReport(w, err)
		},
	}

	flags.register(cmd.Flags())
	return cmd
}
