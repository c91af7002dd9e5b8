// Package render - draws bounding box outlines onto float image tensors for
// visual inspection of detection results.
package render

import (
	"github.com/nvr-ai/go-bbox/boxes"
	"github.com/nvr-ai/go-bbox/images"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DefaultLineWidth is the outline thickness in pixels.
const DefaultLineWidth = 4

// Color is an RGB color with each channel normalized to [0, 1].
type Color [images.Channels]float64

var (
	// Red is the default outline color.
	Red = Color{1, 0, 0}
	// Green is typically used for ground-truth boxes.
	Green = Color{0, 1, 0}
	// Blue is typically used for predictions.
	Blue = Color{0, 0, 1}
)

// Config controls how outlines are drawn.
type Config struct {
	// LineWidth is the outline thickness. Each band spans LineWidth/2 pixels on
	// either side of the box edge, so odd widths round down to the next even one.
	LineWidth int `json:"line_width" yaml:"line_width"`
}

// DefaultConfig returns the configuration used by RenderBoxes.
func DefaultConfig() Config {
	return Config{
		LineWidth: DefaultLineWidth,
	}
}

// RenderBoxes loads the image at path and draws the outline of every box in
// the given color with DefaultConfig.
//
// Arguments:
//   - path: Path to the image file.
//   - bs: Boxes to outline, drawn in order.
//   - color: Outline color written to every channel, overwriting the pixels.
//
// Returns:
//   - *tensor.Dense: A (height, width, 3) float64 tensor with the outlines drawn.
//   - error: Loader errors, returned as produced by images.LoadFloat.
//
// @example
// img, err := render.RenderBoxes("frame-1.jpg", []boxes.BoundingBox{gt}, render.Green)
func RenderBoxes(path string, bs []boxes.BoundingBox, color Color) (*tensor.Dense, error) {
	return RenderBoxesWithConfig(path, bs, color, DefaultConfig())
}

// RenderBoxesWithConfig is RenderBoxes with an explicit configuration.
func RenderBoxesWithConfig(path string, bs []boxes.BoundingBox, color Color, cfg Config) (*tensor.Dense, error) {
	img, err := images.LoadFloat(path)
	if err != nil {
		return nil, err
	}

	img, err = ToColor(img)
	if err != nil {
		return nil, err
	}

	if err := Draw(img, bs, color, cfg); err != nil {
		return nil, err
	}
	return img, nil
}

// Draw paints the outline of every box onto img in place.
//
// For a box with floored edges top t, left l, bottom b and right r, and
// h = LineWidth/2, four bands are painted:
//
//	left:   rows [t, b)      cols [l-h, l+h)
//	right:  rows [t, b)      cols [r-h, r+h)
//	top:    rows [t-h, t+h)  cols [l, r)
//	bottom: rows [b-h, b+h)  cols [l, r)
//
// Bands are clipped to the image. Boxes partially or fully outside the image
// paint only their visible part, and inverted boxes paint nothing.
func Draw(img *tensor.Dense, bs []boxes.BoundingBox, color Color, cfg Config) error {
	cv, err := newCanvas(img)
	if err != nil {
		return err
	}

	half := cfg.LineWidth / 2
	for _, b := range bs {
		r := b.ToRect()
		top, left, bottom, right := r.Min.Y, r.Min.X, r.Max.Y, r.Max.X

		cv.fill(top, bottom, left-half, left+half, color)
		cv.fill(top, bottom, right-half, right+half, color)
		cv.fill(top-half, top+half, left, right, color)
		cv.fill(bottom-half, bottom+half, left, right, color)
	}
	return nil
}

// FillRegion sets every pixel in rows [rows[0], rows[1]) and columns
// [cols[0], cols[1]) to color. The region is clipped to the image.
func FillRegion(img *tensor.Dense, rows, cols [2]int, color Color) error {
	cv, err := newCanvas(img)
	if err != nil {
		return err
	}
	cv.fill(rows[0], rows[1], cols[0], cols[1], color)
	return nil
}

// ToColor returns img as a (height, width, 3) tensor. Color tensors are returned
// as is; grayscale (height, width) tensors are copied with the sample repeated
// across the channels.
func ToColor(img *tensor.Dense) (*tensor.Dense, error) {
	data, ok := img.Data().([]float64)
	if !ok {
		return nil, errors.Errorf("unsupported tensor dtype %v", img.Dtype())
	}

	shape := img.Shape()
	switch {
	case len(shape) == 3 && shape[2] == images.Channels:
		return img, nil
	case len(shape) == 2:
		out := make([]float64, len(data)*images.Channels)
		for i, v := range data {
			for c := 0; c < images.Channels; c++ {
				out[i*images.Channels+c] = v
			}
		}
		return tensor.New(tensor.WithShape(shape[0], shape[1], images.Channels), tensor.WithBacking(out)), nil
	}

	return nil, errors.Errorf("unsupported tensor shape %v", shape)
}

// canvas is the row-major pixel buffer behind a (height, width, 3) tensor.
type canvas struct {
	data          []float64
	height, width int
}

func newCanvas(img *tensor.Dense) (*canvas, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}

	data, ok := img.Data().([]float64)
	if !ok {
		return nil, errors.Errorf("unsupported tensor dtype %v", img.Dtype())
	}

	shape := img.Shape()
	if len(shape) != 3 || shape[2] != images.Channels {
		return nil, errors.Errorf("expected a (height, width, %d) tensor, got %v", images.Channels, shape)
	}

	return &canvas{data: data, height: shape[0], width: shape[1]}, nil
}

// fill overwrites the clipped region [r0, r1) x [c0, c1).
func (cv *canvas) fill(r0, r1, c0, c1 int, color Color) {
	r0, r1 = max(r0, 0), min(r1, cv.height)
	c0, c1 = max(c0, 0), min(c1, cv.width)

	for y := r0; y < r1; y++ {
		for x := c0; x < c1; x++ {
			i := (y*cv.width + x) * images.Channels
			copy(cv.data[i:i+images.Channels], color[:])
		}
	}
}
