package ssim

// Luma weights in thousandths: 0.299 R + 0.587 G + 0.114 B.
const (
	lumaR     = 299
	lumaG     = 587
	lumaB     = 114
	lumaScale = 1000
)

// Luma returns floor(0.299*r + 0.587*g + 0.114*b), computed in integers so
// neutral greys map to themselves.
func Luma(r, g, b uint8) uint8 {
	return uint8((lumaR*uint32(r) + lumaG*uint32(g) + lumaB*uint32(b)) / lumaScale)
}

// Grayscale reduces an interleaved buffer with at least three channels to a
// single-channel luma buffer of the same size. Channels past the third
// (alpha) are ignored.
func Grayscale(src *PixelBuffer) (*PixelBuffer, error) {
	if src.Channels < 3 {
		return nil, &ChannelError{Channels: src.Channels, Want: 3}
	}

	out := NewGray(src.Width, src.Height)
	n := src.Width * src.Height
	for i := 0; i < n; i++ {
		px := src.Pix[i*src.Channels : i*src.Channels+3]
		out.Pix[i] = Luma(px[0], px[1], px[2])
	}
	return out, nil
}
