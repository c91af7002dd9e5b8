package images

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ToImage converts a float tensor produced by ToFloat back into an image.
// Samples are clamped to [0, 1] and quantized to 16 bits.
//
// Arguments:
//   - t: A (height, width) or (height, width, 3) float64 tensor.
//
// Returns:
//   - image.Image: *image.Gray16 for 2-D input, *image.NRGBA64 for 3-D input.
//   - error: If the tensor shape or dtype is not supported.
func ToImage(t *tensor.Dense) (image.Image, error) {
	data, ok := t.Data().([]float64)
	if !ok {
		return nil, errors.Errorf("unsupported tensor dtype %v", t.Dtype())
	}

	shape := t.Shape()
	switch {
	case len(shape) == 2:
		height, width := shape[0], shape[1]
		img := image.NewGray16(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.SetGray16(x, y, color.Gray16{Y: quantize(data[y*width+x])})
			}
		}
		return img, nil

	case len(shape) == 3 && shape[2] == Channels:
		height, width := shape[0], shape[1]
		img := image.NewNRGBA64(image.Rect(0, 0, width, height))
		idx := 0
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.SetNRGBA64(x, y, color.NRGBA64{
					R: quantize(data[idx]),
					G: quantize(data[idx+1]),
					B: quantize(data[idx+2]),
					A: 0xffff,
				})
				idx += Channels
			}
		}
		return img, nil
	}

	return nil, errors.Errorf("unsupported tensor shape %v", shape)
}

// quantize maps a [0, 1] sample to 16 bits. NaN maps to 0.
func quantize(v float64) uint16 {
	if math.IsNaN(v) {
		return 0
	}
	return uint16(math.Round(Clamp(v, 0, 1) * 0xffff))
}

// Clamp restricts a value to [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// FitWidth downscales img with Lanczos resampling so that it is at most
// maxWidth pixels wide, preserving the aspect ratio. Images that already fit,
// or a maxWidth of 0, are returned unchanged.
func FitWidth(img image.Image, maxWidth uint) image.Image {
	if maxWidth == 0 || uint(img.Bounds().Dx()) <= maxWidth {
		return img
	}
	return resize.Resize(maxWidth, 0, img, resize.Lanczos3)
}

// SavePNG encodes img as PNG at path.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode png %s", path)
	}

	return errors.Wrapf(f.Close(), "close %s", path)
}
