// Package video yields decoded grayscale frames from a video file.
package video

import (
	"errors"
	"fmt"
	"io"

	"github.com/cwbudde/blockssim/internal/ssim"
)

// Source yields successive frames. NextFrame returns io.EOF once the stream is
// exhausted; any other error means the current frame could not be decoded.
type Source interface {
	NextFrame() (*ssim.PixelBuffer, error)
	Close() error
}

// OpenStreamError reports a video that could not be opened.
type OpenStreamError struct {
	Path string
	Err  error
}

func (e *OpenStreamError) Error() string {
	return fmt.Sprintf("could not open video %s: %v", e.Path, e.Err)
}

func (e *OpenStreamError) Unwrap() error {
	return e.Err
}

func (e *OpenStreamError) Is(target error) bool {
	_, ok := target.(*OpenStreamError)
	return ok
}

// ErrShortFrame is returned when the stream ends part-way through a frame.
var ErrShortFrame = errors.New("truncated frame")

// frameReader slices a raw stream of width*height gray samples into frames.
type frameReader struct {
	r      io.Reader
	width  int
	height int
	frames int
}

func newFrameReader(r io.Reader, width, height int) *frameReader {
	return &frameReader{r: r, width: width, height: height}
}

// next reads one frame into a freshly allocated buffer.
func (fr *frameReader) next() (*ssim.PixelBuffer, error) {
	frame := ssim.NewGray(fr.width, fr.height)

	n, err := io.ReadFull(fr.r, frame.Pix)
	switch {
	case err == io.EOF:
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("frame %d: %w (%d of %d bytes)", fr.frames, ErrShortFrame, n, len(frame.Pix))
	case err != nil:
		return nil, fmt.Errorf("frame %d: failed to read: %w", fr.frames, err)
	}

	fr.frames++
	return frame, nil
}
