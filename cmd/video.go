package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/cwbudde/blockssim/internal/ssim"
	"github.com/cwbudde/blockssim/internal/video"
)

type videoFlags struct {
	scoringFlags
	frames         int
	progress       bool
	matchThreshold float64
	matchPatience  int
	ffmpeg         string
	ffprobe        string
}

func (f *videoFlags) apply(cmd *cobra.Command, opts *rootOptions) {
	f.scoringFlags.apply(cmd, opts)

	flags := cmd.Flags()
	if flags.Changed("frames") {
		opts.cfg.Video.Frames = f.frames
	}
	if flags.Changed("ffmpeg") {
		opts.cfg.Video.FFmpeg = f.ffmpeg
	}
	if flags.Changed("ffprobe") {
		opts.cfg.Video.FFprobe = f.ffprobe
	}
	if flags.Changed("match-threshold") {
		opts.cfg.Match.Threshold = f.matchThreshold
	}
	if flags.Changed("match-patience") {
		opts.cfg.Match.Patience = f.matchPatience
	}
}

func newVideoCmd(opts *rootOptions) *cobra.Command {
	flags := &videoFlags{}

	cmd := &cobra.Command{
		Use:   "video <video> <reference>",
		Short: "Score each video frame against a reference image",
		Long: `Decodes the video with ffmpeg and scores up to --frames frames against
the reference image, printing one mu_SSIM line per frame. The run ends early
at the end of the stream, on a frame decode error, or when --match-threshold
is reached for --match-patience consecutive frames.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd, opts)
			return runVideo(cmd, opts, flags, args[0], args[1])
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().IntVar(&flags.frames, "frames", 100, "Maximum number of frames to score")
	cmd.Flags().BoolVar(&flags.progress, "progress", false, "Show a progress bar on stderr")
	cmd.Flags().Float64Var(&flags.matchThreshold, "match-threshold", 0, "Stop once a frame scores at least this value (0 = never)")
	cmd.Flags().IntVar(&flags.matchPatience, "match-patience", 1, "Consecutive frames required at the match threshold")
	cmd.Flags().StringVar(&flags.ffmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary used to decode frames")
	cmd.Flags().StringVar(&flags.ffprobe, "ffprobe", "", "ffprobe binary used to read the stream size (default: next to --ffmpeg, else from PATH)")
	return cmd
}

func runVideo(cmd *cobra.Command, opts *rootOptions, flags *videoFlags, videoPath, refPath string) error {
	d, w, err := newDriver(cmd, opts)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	src, err := video.Open(ctx, videoPath, video.Options{
		FFmpegPath:  opts.cfg.Video.FFmpeg,
		FFprobePath: opts.cfg.Video.FFprobe,
	})
	if err != nil {
		return closeReport(w, err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Warn("Failed to stop decoder", "error", cerr)
		}
	}()

	budget := opts.cfg.Video.Frames
	if flags.progress {
		total := budget
		if n := src.Info().Frames; n > 0 {
			total = min(total, n)
		}
		bar := progressbar.NewOptions(
			total,
			progressbar.OptionSetDescription("Scoring frames"),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(cmd.ErrOrStderr(), "\n")
			}),
		)
		d.OnFrame = func(frame int, res ssim.Result) {
			bar.Add(1)
		}
		defer bar.Finish()
	}

	_, err = d.CompareVideo(ctx, src, refPath, budget, opts.cfg.MatchConfig())
	return closeReport(w, err)
}
