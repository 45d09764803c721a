package ssim

import (
	"fmt"
	"log/slog"
)

// Resizer resamples a buffer to a new width and height, keeping its channel count.
type Resizer interface {
	Resize(src *PixelBuffer, width, height int) (*PixelBuffer, error)
}

// ResizerFunc adapts a plain function to the Resizer interface.
type ResizerFunc func(src *PixelBuffer, width, height int) (*PixelBuffer, error)

// Resize calls f(src, width, height).
func (f ResizerFunc) Resize(src *PixelBuffer, width, height int) (*PixelBuffer, error) {
	return f(src, width, height)
}

// Reconciled holds two buffers brought to a common size.
type Reconciled struct {
	First  *PixelBuffer
	Second *PixelBuffer
	Width  int
	Height int

	// Resized reports, per input, whether the resizer was invoked.
	Resized [2]bool
}

// TargetSize returns the per-axis minimum of two sizes.
//
// Each axis is reduced independently, so when one image is wider and the
// other taller the result matches neither aspect ratio.
func TargetSize(w1, h1, w2, h2 int) (width, height int) {
	return min(w1, w2), min(h1, h2)
}

// Reconcile brings a and b to TargetSize. An input already at the target is
// copied verbatim; the other is passed through r. The inputs are not modified.
func Reconcile(a, b *PixelBuffer, r Resizer) (*Reconciled, error) {
	width, height := TargetSize(a.Width, a.Height, b.Width, b.Height)

	out := &Reconciled{Width: width, Height: height}
	for i, src := range []*PixelBuffer{a, b} {
		dst, resized, err := fitTo(src, width, height, r)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile image %d: %w", i+1, err)
		}
		out.Resized[i] = resized
		if i == 0 {
			out.First = dst
		} else {
			out.Second = dst
		}
	}
	return out, nil
}

func fitTo(src *PixelBuffer, width, height int, r Resizer) (*PixelBuffer, bool, error) {
	if src.Width == width && src.Height == height {
		return src.Clone(), false, nil
	}
	if r == nil {
		return nil, false, fmt.Errorf("resize %dx%d -> %dx%d needed but no resizer configured",
			src.Width, src.Height, width, height)
	}

	slog.Debug("Resizing image",
		"from_width", src.Width, "from_height", src.Height,
		"to_width", width, "to_height", height,
		"channels", src.Channels,
	)

	dst, err := r.Resize(src, width, height)
	if err != nil {
		return nil, false, fmt.Errorf("resize failed: %w", err)
	}
	if dst.Width != width || dst.Height != height || dst.Channels != src.Channels ||
		len(dst.Pix) != width*height*src.Channels {
		return nil, false, &DimensionError{
			Width:  dst.Width,
			Height: dst.Height,
			Reason: fmt.Sprintf("resizer returned %d-channel buffer, expected %dx%d with %d channels",
				dst.Channels, width, height, src.Channels),
		}
	}
	return dst, true, nil
}
