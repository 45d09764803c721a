package ssim

import "fmt"

// PixelBuffer is a row-major buffer of interleaved 8-bit samples.
// len(Pix) is always Width*Height*Channels.
type PixelBuffer struct {
	Pix      []uint8
	Width    int
	Height   int
	Channels int // 1 = gray, 2 = gray+alpha, 3 = RGB, 4 = RGBA
}

// NewPixelBuffer wraps pix after checking it matches the given geometry.
// The buffer takes ownership of pix.
func NewPixelBuffer(pix []uint8, width, height, channels int) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, &DimensionError{Width: width, Height: height, Reason: "dimensions must be positive"}
	}
	if channels < 1 || channels > 4 {
		return nil, &ChannelError{Channels: channels, Want: 1}
	}
	if want := width * height * channels; len(pix) != want {
		return nil, &DimensionError{
			Width:  width,
			Height: height,
			Reason: fmt.Sprintf("buffer holds %d samples, expected %d", len(pix), want),
		}
	}
	return &PixelBuffer{Pix: pix, Width: width, Height: height, Channels: channels}, nil
}

// NewGray allocates a zeroed single-channel buffer.
func NewGray(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Pix:      make([]uint8, width*height),
		Width:    width,
		Height:   height,
		Channels: 1,
	}
}

// Offset maps (row, col, channel) to an index into Pix.
func (p *PixelBuffer) Offset(row, col, channel int) (int, error) {
	if row < 0 || row >= p.Height || col < 0 || col >= p.Width {
		return 0, fmt.Errorf("pixel (%d,%d) outside %dx%d buffer", row, col, p.Width, p.Height)
	}
	if channel < 0 || channel >= p.Channels {
		return 0, fmt.Errorf("channel %d outside %d-channel buffer", channel, p.Channels)
	}
	return p.offset(row, col, channel), nil
}

// offset is Offset without validation, for loops whose bounds are checked up front.
func (p *PixelBuffer) offset(row, col, channel int) int {
	return (row*p.Width+col)*p.Channels + channel
}

// At returns the sample at (row, col, channel).
func (p *PixelBuffer) At(row, col, channel int) (uint8, error) {
	i, err := p.Offset(row, col, channel)
	if err != nil {
		return 0, err
	}
	return p.Pix[i], nil
}

// Clone returns a deep copy of the buffer.
func (p *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint8, len(p.Pix))
	copy(pix, p.Pix)
	return &PixelBuffer{Pix: pix, Width: p.Width, Height: p.Height, Channels: p.Channels}
}

// SameSize reports whether both buffers have identical width and height.
func (p *PixelBuffer) SameSize(o *PixelBuffer) bool {
	return p.Width == o.Width && p.Height == o.Height
}
