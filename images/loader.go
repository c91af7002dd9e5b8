package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
	"gorgonia.org/tensor"
)

// Channels is the number of samples per pixel in a color float tensor.
const Channels = 3

// Decode decodes an encoded image. Known formats use their decoder directly;
// anything else is sniffed from the header.
//
// Arguments:
//   - img: The encoded image.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: The decoder error, wrapped with the image path.
func Decode(img *Image) (image.Image, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	if len(img.Data) == 0 {
		return nil, errors.Errorf("image data is empty: %s", img.Path)
	}

	r := bytes.NewReader(img.Data)

	var (
		decoded image.Image
		err     error
	)
	switch img.Format {
	case FormatJPEG:
		decoded, err = jpeg.Decode(r)
	case FormatPNG:
		decoded, err = png.Decode(r)
	case FormatBMP:
		decoded, err = bmp.Decode(r)
	case FormatWebP:
		decoded, err = webp.Decode(r)
	default:
		decoded, _, err = image.Decode(r)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode image %s", img.Path)
	}

	return decoded, nil
}

// ToFloat converts an image into a dense float64 tensor with samples in [0, 1].
//
// Grayscale images produce a (height, width) tensor. Everything else produces a
// (height, width, 3) tensor of un-premultiplied RGB; alpha is dropped. 8-bit and
// 16-bit sources are both scaled by their full range.
//
// Arguments:
//   - img: The decoded image.
//
// Returns:
//   - *tensor.Dense: Row-major float64 samples.
//
// @example
// t := images.ToFloat(img)
// fmt.Println(t.Shape()) // (480, 640, 3)
func ToFloat(img image.Image) *tensor.Dense {
	bounds := img.Bounds()
	height, width := bounds.Dy(), bounds.Dx()

	switch img.(type) {
	case *image.Gray, *image.Gray16:
		data := make([]float64, height*width)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
				data[y*width+x] = float64(g.Y) / 0xffff
			}
		}
		return tensor.New(tensor.WithShape(height, width), tensor.WithBacking(data))
	}

	data := make([]float64, height*width*Channels)
	idx := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA64Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA64)
			data[idx] = float64(c.R) / 0xffff
			data[idx+1] = float64(c.G) / 0xffff
			data[idx+2] = float64(c.B) / 0xffff
			idx += Channels
		}
	}
	return tensor.New(tensor.WithShape(height, width, Channels), tensor.WithBacking(data))
}

// LoadFloat reads, decodes and converts an image file to a float tensor.
//
// Errors from reading and decoding are returned wrapped; errors.Cause (or
// errors.Is) recovers the original I/O or decoder error.
func LoadFloat(path string) (*tensor.Dense, error) {
	encoded, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	decoded, err := Decode(encoded)
	if err != nil {
		return nil, err
	}

	return ToFloat(decoded), nil
}
