// Package imageio adapts file decoding and resampling to ssim.PixelBuffer.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/cwbudde/blockssim/internal/ssim"
)

// LoadError reports an image that could not be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("could not load image %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	_, ok := target.(*LoadError)
	return ok
}

// Loader decodes image files into pixel buffers.
type Loader struct{}

// NewLoader creates a loader for every registered image format.
func NewLoader() *Loader {
	return &Loader{}
}

// Load decodes the file at path. The returned buffer keeps the file's native
// channel count: 1 for gray, 3 for opaque colour, 4 for colour with alpha.
func (l *Loader) Load(path string) (*ssim.PixelBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("failed to decode image: %w", err)}
	}

	buf, err := FromImage(img)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	slog.Debug("Loaded image",
		"path", path,
		"format", format,
		"width", buf.Width,
		"height", buf.Height,
		"channels", buf.Channels,
	)
	return buf, nil
}

// ChannelCount reports how many interleaved channels img carries: 1 for gray
// models, 3 for opaque colour and 4 when any pixel is translucent.
func ChannelCount(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	case *image.YCbCr, *image.CMYK:
		return 3
	}

	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return 3
	}
	return 4
}

// FromImage copies img into an interleaved buffer with ChannelCount(img) channels.
func FromImage(img image.Image) (*ssim.PixelBuffer, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	channels := ChannelCount(img)

	pix := make([]uint8, width*height*channels)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.At(x, y)
			if channels == 1 {
				pix[i] = color.GrayModel.Convert(c).(color.Gray).Y
				i++
				continue
			}
			n := color.NRGBAModel.Convert(c).(color.NRGBA)
			pix[i+0] = n.R
			pix[i+1] = n.G
			pix[i+2] = n.B
			if channels == 4 {
				pix[i+3] = n.A
			}
			i += channels
		}
	}

	return ssim.NewPixelBuffer(pix, width, height, channels)
}
