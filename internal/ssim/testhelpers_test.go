package ssim

import "math/rand"

// solidGray creates a width x height single-channel buffer filled with v.
func solidGray(width, height int, v uint8) *PixelBuffer {
	img := NewGray(width, height)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// solidRGB creates a 3-channel buffer filled with one colour.
func solidRGB(width, height int, r, g, b uint8) *PixelBuffer {
	pix := make([]uint8, width*height*3)
	for i := 0; i < width*height; i++ {
		pix[i*3+0] = r
		pix[i*3+1] = g
		pix[i*3+2] = b
	}
	return &PixelBuffer{Pix: pix, Width: width, Height: height, Channels: 3}
}

// randomGray creates a deterministic noise image.
func randomGray(width, height int, seed int64) *PixelBuffer {
	rng := rand.New(rand.NewSource(seed))
	img := NewGray(width, height)
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

// gradientGray creates an image whose pixel (row, col) holds (row*width+col) mod 256.
func gradientGray(width, height int) *PixelBuffer {
	img := NewGray(width, height)
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 256)
	}
	return img
}
