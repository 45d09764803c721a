package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/tidwall/gjson"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/cwbudde/blockssim/internal/ssim"
)

// Info describes the first video stream of a file.
type Info struct {
	Width     int
	Height    int
	Codec     string
	FrameRate string
	Frames    int // 0 when the container does not report a frame count
}

// Options configures the ffmpeg and ffprobe child processes.
type Options struct {
	// FFmpegPath is the ffmpeg binary; empty means "ffmpeg" from PATH.
	FFmpegPath string

	// FFprobePath is the ffprobe binary. Empty means the ffprobe next to
	// FFmpegPath when that is a path, otherwise "ffprobe" from PATH.
	FFprobePath string
}

func (o Options) ffmpegBin() string {
	if o.FFmpegPath == "" {
		return "ffmpeg"
	}
	return o.FFmpegPath
}

func (o Options) ffprobeBin() string {
	if o.FFprobePath != "" {
		return o.FFprobePath
	}
	if dir := filepath.Dir(o.FFmpegPath); o.FFmpegPath != "" && o.FFmpegPath != filepath.Base(o.FFmpegPath) {
		return filepath.Join(dir, "ffprobe"+filepath.Ext(o.FFmpegPath))
	}
	return "ffprobe"
}

// Probe inspects path with ffprobe and returns its first video stream.
func Probe(ctx context.Context, path string, opts Options) (Info, error) {
	bin := opts.ffprobeBin()

	var out string
	var err error
	if bin == "ffprobe" {
		out, err = ffmpeg.Probe(path)
	} else {
		// ffmpeg-go always runs ffprobe from PATH
		out, err = probeWith(ctx, bin, path)
	}
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbe(out)
}

func probeWith(ctx context.Context, bin, path string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-show_format", "-show_streams", "-of", "json", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", bin, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.String(), nil
}

// parseProbe extracts Info from ffprobe's JSON output.
func parseProbe(data string) (Info, error) {
	if !gjson.Valid(data) {
		return Info{}, errors.New("ffprobe returned invalid JSON")
	}

	stream := gjson.Get(data, `streams.#(codec_type=="video")`)
	if !stream.Exists() {
		return Info{}, errors.New("no video stream found")
	}

	info := Info{
		Width:     int(stream.Get("width").Int()),
		Height:    int(stream.Get("height").Int()),
		Codec:     stream.Get("codec_name").String(),
		FrameRate: stream.Get("r_frame_rate").String(),
		Frames:    int(stream.Get("nb_frames").Int()),
	}
	if info.Width <= 0 || info.Height <= 0 {
		return Info{}, fmt.Errorf("video stream has invalid size %dx%d", info.Width, info.Height)
	}
	return info, nil
}

// frameArgs builds the ffmpeg arguments that decode path to raw 8-bit gray
// frames on stdout.
func frameArgs(path string) []string {
	return ffmpeg.Input(path).
		Output("pipe:", ffmpeg.KwArgs{"format": "rawvideo", "pix_fmt": "gray"}).
		GlobalArgs("-hide_banner", "-loglevel", "error", "-nostdin").
		GetArgs()
}

// FFmpegSource streams grayscale frames from an ffmpeg child process.
type FFmpegSource struct {
	path    string
	info    Info
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	stderr  bytes.Buffer
	frames  *frameReader
	drained bool // stdout hit its end and the process was reaped
	closed  bool
}

// Open probes path and starts decoding it. Failures are *OpenStreamError.
// Cancelling ctx kills the decoder.
func Open(ctx context.Context, path string, opts Options) (*FFmpegSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &OpenStreamError{Path: path, Err: err}
	}

	info, err := Probe(ctx, path, opts)
	if err != nil {
		return nil, &OpenStreamError{Path: path, Err: err}
	}

	s, err := start(ctx, path, info, opts.ffmpegBin(), frameArgs(path))
	if err != nil {
		return nil, &OpenStreamError{Path: path, Err: err}
	}

	slog.Info("Opened video stream",
		"path", path,
		"width", info.Width,
		"height", info.Height,
		"codec", info.Codec,
		"frame_rate", info.FrameRate,
		"frames", info.Frames,
	)
	return s, nil
}

// start runs bin with args and reads info-sized gray frames from its stdout.
func start(ctx context.Context, path string, info Info, bin string, args []string) (*FFmpegSource, error) {
	s := &FFmpegSource{path: path, info: info}
	s.cmd = exec.CommandContext(ctx, bin, args...)
	s.cmd.Stderr = &s.stderr

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", bin, err)
	}
	s.stdout = stdout
	s.frames = newFrameReader(stdout, info.Width, info.Height)
	return s, nil
}

// Info returns the probed stream description.
func (s *FFmpegSource) Info() Info {
	return s.info
}

// NextFrame returns the next single-channel frame, or io.EOF at the end of
// the stream. When the stream ends because ffmpeg failed, the error carries
// ffmpeg's exit status and stderr instead of io.EOF.
func (s *FFmpegSource) NextFrame() (*ssim.PixelBuffer, error) {
	if s.closed || s.drained {
		return nil, io.EOF
	}

	frame, err := s.frames.next()
	if err == nil {
		return frame, nil
	}

	// Stdout is exhausted, so the exit status tells a clean end from a failure
	s.drained = true
	if werr := s.cmd.Wait(); werr != nil {
		return nil, fmt.Errorf("ffmpeg exited after %d frames: %w: %s",
			s.frames.frames, werr, bytes.TrimSpace(s.stderr.Bytes()))
	}
	return nil, err
}

// Close stops the decoder and releases the pipe.
func (s *FFmpegSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.drained {
		return nil
	}

	// Stopping before the end of the stream leaves ffmpeg blocked on the pipe
	if err := s.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to stop ffmpeg: %w", err)
	}
	s.stdout.Close()

	err := s.cmd.Wait()
	slog.Debug("Decoder stopped", "path", s.path, "frames", s.frames.frames, "error", err)
	return nil
}
