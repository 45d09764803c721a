// Package pipeline wires loading, reconciliation and scoring into the image
// and video comparison runs.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/blockssim/internal/report"
	"github.com/cwbudde/blockssim/internal/ssim"
	"github.com/cwbudde/blockssim/internal/video"
)

// DefaultFrameBudget is the maximum number of frames scored in video mode.
const DefaultFrameBudget = 100

// Loader turns a file path into a pixel buffer.
type Loader interface {
	Load(path string) (*ssim.PixelBuffer, error)
}

// RecordWriter receives one record per scored comparison.
type RecordWriter interface {
	Write(rec report.Record) error
}

// Driver runs comparisons and prints notices and scores to Out.
type Driver struct {
	Loader  Loader
	Resizer ssim.Resizer
	Scorer  *ssim.Scorer
	Out     io.Writer
	Extract ssim.ExtractOptions

	// Records, if set, receives the final score of every comparison
	Records RecordWriter

	// RunID is stamped on every record
	RunID string

	// OnFrame, if set, is called after each scored video frame
	OnFrame func(frame int, res ssim.Result)
}

// NewDriver creates a driver using the default SSIM constants and edge policy.
func NewDriver(loader Loader, resizer ssim.Resizer, out io.Writer) *Driver {
	return &Driver{
		Loader:  loader,
		Resizer: resizer,
		Scorer:  ssim.NewScorer(ssim.DefaultConstants()),
		Out:     out,
		RunID:   uuid.NewString(),
	}
}

// comparison is the outcome of scoring one image pair.
type comparison struct {
	result ssim.Result
	width  int
	height int
}

// CompareImages scores the image at path2 against the image at path1 and
// prints "mu_SSIM: <score>".
func (d *Driver) CompareImages(path1, path2 string) (ssim.Result, error) {
	slog.Info("Comparing images", "image1", path1, "image2", path2)

	img1, err := d.Loader.Load(path1)
	if err != nil {
		return ssim.Result{}, err
	}
	img2, err := d.Loader.Load(path2)
	if err != nil {
		return ssim.Result{}, err
	}

	cmp, err := d.compare(img1, img2, false)
	if err != nil {
		return ssim.Result{}, err
	}
	if err := d.record(0, cmp); err != nil {
		return ssim.Result{}, err
	}

	slog.Info("Comparison complete", "score", cmp.result.Score, "blocks", cmp.result.Blocks)
	return cmp.result, nil
}

// VideoSummary describes a finished video run.
type VideoSummary struct {
	Frames      int   // Frames scored
	EndOfStream bool  // Stream ran out before the budget
	DecodeErr   error // Decode failure that ended the run early, if any
	Matched     bool  // Match tracker fired
	MatchFrame  int
	BestScore   float64
	BestFrame   int
}

// CompareVideo scores up to budget frames of src against the reference image.
// The reference is loaded before the first frame is read and again from disk
// for every later frame. End of stream and
// frame decode errors end the loop without failing the run; load and scoring
// errors are returned.
func (d *Driver) CompareVideo(ctx context.Context, src video.Source, refPath string, budget int, match MatchConfig) (VideoSummary, error) {
	if budget <= 0 {
		budget = DefaultFrameBudget
	}
	slog.Info("Comparing video frames", "reference", refPath, "budget", budget)

	tracker := NewMatchTracker(match)
	var summary VideoSummary

	// A bad reference fails the run even when the stream has no frames
	ref, err := d.Loader.Load(refPath)
	if err != nil {
		return summary, err
	}

	for frame := 1; frame <= budget; frame++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		buf, err := src.NextFrame()
		if err == io.EOF {
			summary.EndOfStream = true
			break
		}
		if err != nil {
			slog.Warn("Frame decode failed - stopping", "frame", frame, "error", err)
			summary.DecodeErr = err
			break
		}

		if frame > 1 {
			if ref, err = d.Loader.Load(refPath); err != nil {
				return summary, err
			}
		}

		cmp, err := d.compare(ref, buf, true)
		if err != nil {
			return summary, fmt.Errorf("frame %d: %w", frame, err)
		}
		summary.Frames++

		if err := d.record(frame, cmp); err != nil {
			return summary, err
		}
		if d.OnFrame != nil {
			d.OnFrame(frame, cmp.result)
		}

		if tracker.Update(cmp.result.Score) {
			summary.Matched = true
			summary.MatchFrame = tracker.MatchFrame()
			fmt.Fprintf(d.Out, "Matched reference at frame %d\n", summary.MatchFrame)
			break
		}
	}

	if summary.Frames > 0 {
		summary.BestScore, summary.BestFrame = tracker.BestScore()
	}
	fmt.Fprintf(d.Out, "Processed %d frames\n", summary.Frames)

	slog.Info("Video comparison complete",
		"frames", summary.Frames,
		"end_of_stream", summary.EndOfStream,
		"matched", summary.Matched,
		"best_score", summary.BestScore,
		"best_frame", summary.BestFrame,
	)
	return summary, nil
}

// compare runs reconcile, grayscale, extraction and scoring for one pair.
// If grayFrame is true a single-channel second image is used as-is.
func (d *Driver) compare(img1, img2 *ssim.PixelBuffer, grayFrame bool) (comparison, error) {
	rec, err := ssim.Reconcile(img1, img2, d.Resizer)
	if err != nil {
		return comparison{}, err
	}
	d.printNotices(img1, img2, rec)

	gray1, err := ssim.Grayscale(rec.First)
	if err != nil {
		return comparison{}, fmt.Errorf("image 1: %w", err)
	}

	gray2 := rec.Second
	if !grayFrame || gray2.Channels != 1 {
		if gray2, err = ssim.Grayscale(rec.Second); err != nil {
			return comparison{}, fmt.Errorf("image 2: %w", err)
		}
	}

	res, err := d.Scorer.Compare(gray1, gray2, d.Extract)
	if err != nil {
		return comparison{}, err
	}

	fmt.Fprintf(d.Out, "mu_SSIM: %s\n", FormatScore(res.Score))
	return comparison{result: res, width: rec.Width, height: rec.Height}, nil
}

func (d *Driver) printNotices(img1, img2 *ssim.PixelBuffer, rec *ssim.Reconciled) {
	for _, line := range ReconcileNotices(img1.Width, img1.Height, img2.Width, img2.Height) {
		fmt.Fprintln(d.Out, line)
	}
	slog.Debug("Reconciled dimensions",
		"width", rec.Width,
		"height", rec.Height,
		"resized_image1", rec.Resized[0],
		"resized_image2", rec.Resized[1],
	)
}

func (d *Driver) record(frame int, cmp comparison) error {
	if d.Records == nil {
		return nil
	}
	err := d.Records.Write(report.Record{
		Run:       d.RunID,
		Frame:     frame,
		Score:     cmp.result.Score,
		Blocks:    cmp.result.Blocks,
		Width:     cmp.width,
		Height:    cmp.height,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to record score: %w", err)
	}
	return nil
}

// ReconcileNotices returns the console lines describing how each axis of
// the comparison size was chosen.
func ReconcileNotices(w1, h1, w2, h2 int) []string {
	width, height := ssim.TargetSize(w1, h1, w2, h2)

	var lines []string
	if w1 != w2 {
		lines = append(lines, fmt.Sprintf("Image 1 has width of %d and Image 2 has width of %d", w1, w2))
	} else {
		lines = append(lines, fmt.Sprintf("Set Width to %d", width))
	}
	if h1 != h2 {
		lines = append(lines, fmt.Sprintf("Image 1 has height of %d and Image 2 has height of %d", h1, h2))
	} else {
		lines = append(lines, fmt.Sprintf("Set Height to %d", height))
	}
	return lines
}

// FormatScore renders a score with six significant digits, so a perfect
// match prints as "1".
func FormatScore(score float64) string {
	return fmt.Sprintf("%.6g", score)
}
