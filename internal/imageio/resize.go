package imageio

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/cwbudde/blockssim/internal/ssim"
)

// Resizer resamples pixel buffers with a Catmull-Rom filter.
type Resizer struct {
	filter imaging.ResampleFilter
}

// NewResizer creates a resizer using the Catmull-Rom filter.
func NewResizer() *Resizer {
	return &Resizer{filter: imaging.CatmullRom}
}

// Resize implements ssim.Resizer. The output has exactly width x height
// pixels and the same channel count as src.
func (r *Resizer) Resize(src *ssim.PixelBuffer, width, height int) (*ssim.PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid resize target %dx%d", width, height)
	}

	img, err := ToNRGBA(src)
	if err != nil {
		return nil, err
	}

	resized := imaging.Resize(img, width, height, r.filter)
	return fromNRGBA(resized, src.Channels)
}

// ToNRGBA expands a 1 to 4 channel buffer into an *image.NRGBA.
func ToNRGBA(src *ssim.PixelBuffer) (*image.NRGBA, error) {
	if len(src.Pix) != src.Width*src.Height*src.Channels {
		return nil, fmt.Errorf("buffer holds %d samples, expected %d", len(src.Pix), src.Width*src.Height*src.Channels)
	}

	img := image.NewNRGBA(image.Rect(0, 0, src.Width, src.Height))
	n := src.Width * src.Height
	for i := 0; i < n; i++ {
		px := src.Pix[i*src.Channels : (i+1)*src.Channels]
		d := img.Pix[i*4 : i*4+4]
		switch src.Channels {
		case 1:
			d[0], d[1], d[2], d[3] = px[0], px[0], px[0], 0xff
		case 2:
			d[0], d[1], d[2], d[3] = px[0], px[0], px[0], px[1]
		case 3:
			d[0], d[1], d[2], d[3] = px[0], px[1], px[2], 0xff
		case 4:
			copy(d, px)
		default:
			return nil, &ssim.ChannelError{Channels: src.Channels, Want: 1}
		}
	}
	return img, nil
}

// fromNRGBA packs an NRGBA image back into the requested channel layout.
func fromNRGBA(img *image.NRGBA, channels int) (*ssim.PixelBuffer, error) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	pix := make([]uint8, width*height*channels)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			s := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			px := img.Pix[s : s+4]
			d := pix[(y*width+x)*channels:]
			switch channels {
			case 1:
				d[0] = px[0]
			case 2:
				d[0], d[1] = px[0], px[3]
			case 3:
				d[0], d[1], d[2] = px[0], px[1], px[2]
			case 4:
				copy(d[:4], px)
			}
		}
	}

	return ssim.NewPixelBuffer(pix, width, height, channels)
}
