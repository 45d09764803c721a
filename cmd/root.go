package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/blockssim/internal/config"
)

// rootOptions holds the persistent flags and the config they resolve to.
type rootOptions struct {
	logLevel   string
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "blockssim",
		Short: "Block-based SSIM scoring for images and video frames",
		Long: `blockssim compares two images, or each frame of a video against a
reference image, using the mean SSIM of non-overlapping 8x8 luma blocks.
Scores are printed to stdout as "mu_SSIM: <score>"; logs go to stderr.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(cmd.ErrOrStderr(), opts.logLevel)

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML file with scoring, video and match defaults")

	rootCmd.AddCommand(
		newImageCmd(opts),
		newVideoCmd(opts),
		newSummaryCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// setupLogger installs a JSON slog handler writing to w.
func setupLogger(w io.Writer, name string) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(name)}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, opts)))
}

func parseLogLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
