package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-bbox/boxes"
	"github.com/nvr-ai/go-bbox/images"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// writeBlankPNG writes a black width x height PNG and returns its path.
func writeBlankPNG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(t.TempDir(), "blank.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// pixelAt returns the channel values of (x, y) in a (height, width, 3) tensor.
func pixelAt(t *testing.T, img *tensor.Dense, x, y int) []float64 {
	t.Helper()
	width := img.Shape()[1]
	data := img.Data().([]float64)
	i := (y*width + x) * images.Channels
	return data[i : i+images.Channels]
}

// assertPainted checks that exactly the pixels inside bands carry c and all
// others are black.
func assertPainted(t *testing.T, img *tensor.Dense, bands []image.Rectangle, c Color) {
	t.Helper()
	shape := img.Shape()
	height, width := shape[0], shape[1]

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := image.Pt(x, y)
			inside := false
			for _, band := range bands {
				if p.In(band) {
					inside = true
					break
				}
			}

			got := pixelAt(t, img, x, y)
			if inside {
				assert.Equal(t, c[:], got, "pixel %v should be painted", p)
			} else {
				assert.Equal(t, []float64{0, 0, 0}, got, "pixel %v should be untouched", p)
			}
		}
	}
}

// TestRenderBoxes verifies that a single box paints exactly its four edge
// bands and nothing else.
//
// @example
// go test -v -run TestRenderBoxes
func TestRenderBoxes(t *testing.T) {
	path := writeBlankPNG(t, 20, 20)
	c := Color{1, 0.5, 0.25}

	img, err := RenderBoxes(path, []boxes.BoundingBox{boxes.New(5, 5, 10, 10)}, c)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{20, 20, 3}, img.Shape())

	// top=5 left=5 bottom=15 right=15, half line width 2.
	bands := []image.Rectangle{
		image.Rect(3, 5, 7, 15),   // left: cols [3,7) rows [5,15)
		image.Rect(13, 5, 17, 15), // right
		image.Rect(5, 3, 15, 7),   // top: cols [5,15) rows [3,7)
		image.Rect(5, 13, 15, 17), // bottom
	}
	assertPainted(t, img, bands, c)
}

// TestRenderBoxesMultiple verifies overlapping outlines with a custom line width.
func TestRenderBoxesMultiple(t *testing.T) {
	path := writeBlankPNG(t, 30, 30)

	img, err := RenderBoxesWithConfig(path, []boxes.BoundingBox{
		boxes.New(4, 4, 10, 10),
		boxes.New(10, 10, 10, 10, boxes.WithConfidence(0.3)),
	}, Green, Config{LineWidth: 2})
	require.NoError(t, err)

	bands := []image.Rectangle{
		image.Rect(3, 4, 5, 14), image.Rect(13, 4, 15, 14),
		image.Rect(4, 3, 14, 5), image.Rect(4, 13, 14, 15),
		image.Rect(9, 10, 11, 20), image.Rect(19, 10, 21, 20),
		image.Rect(10, 9, 20, 11), image.Rect(10, 19, 20, 21),
	}
	assertPainted(t, img, bands, Green)
}

// TestRenderBoxesClipping verifies that boxes crossing or outside the image
// border are clipped instead of failing.
func TestRenderBoxesClipping(t *testing.T) {
	path := writeBlankPNG(t, 8, 8)

	img, err := RenderBoxes(path, []boxes.BoundingBox{
		boxes.New(0, 0, 5, 5),       // bands reach past the top-left corner
		boxes.New(100, 100, 10, 10), // fully outside
		boxes.New(-50, -50, 10, 10), // fully outside, negative
		boxes.New(4, 4, -3, -3),     // inverted
	}, Red)
	require.NoError(t, err)

	bands := []image.Rectangle{
		image.Rect(0, 0, 2, 5), // left, clipped from cols [-2,2)
		image.Rect(3, 0, 7, 5), // right
		image.Rect(0, 0, 5, 2), // top, clipped from rows [-2,2)
		image.Rect(0, 3, 5, 7), // bottom
	}
	assertPainted(t, img, bands, Red)
}

// TestRenderBoxesFractional verifies that fractional coordinates are floored.
func TestRenderBoxesFractional(t *testing.T) {
	path := writeBlankPNG(t, 20, 20)

	fractional, err := RenderBoxes(path, []boxes.BoundingBox{boxes.New(5.7, 5.2, 9.5, 9.9)}, Blue)
	require.NoError(t, err)
	integral, err := RenderBoxes(path, []boxes.BoundingBox{boxes.New(5, 5, 10, 10)}, Blue)
	require.NoError(t, err)

	assert.Equal(t, integral.Data(), fractional.Data())
}

// TestRenderBoxesGrayscale verifies that grayscale sources are promoted to
// three channels before drawing.
func TestRenderBoxesGrayscale(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range gray.Pix {
		gray.Pix[i] = 51
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gray))
	path := filepath.Join(t.TempDir(), "gray.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	img, err := RenderBoxes(path, []boxes.BoundingBox{boxes.New(2, 2, 6, 6)}, Red)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{10, 10, 3}, img.Shape())

	assert.Equal(t, []float64{1, 0, 0}, pixelAt(t, img, 2, 4))
	assert.InDeltaSlice(t, []float64{0.2, 0.2, 0.2}, pixelAt(t, img, 5, 5), 1e-9)
}

// TestRenderBoxesNoBoxes verifies that an empty box list returns the image
// unchanged.
func TestRenderBoxesNoBoxes(t *testing.T) {
	img, err := RenderBoxes(writeBlankPNG(t, 4, 4), nil, Red)
	require.NoError(t, err)
	assertPainted(t, img, nil, Red)
}

// TestRenderBoxesLoadErrors verifies that loader failures are returned with
// their original cause.
func TestRenderBoxesLoadErrors(t *testing.T) {
	_, err := RenderBoxes(filepath.Join(t.TempDir(), "missing.png"), nil, Red)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	corrupt := filepath.Join(t.TempDir(), "corrupt.png")
	require.NoError(t, os.WriteFile(corrupt, []byte("garbage"), 0o644))
	_, err = RenderBoxes(corrupt, nil, Red)
	assert.Error(t, err)
}

// TestDrawRejectsUnsupportedTensors verifies shape and dtype checks on the
// pixel buffer.
func TestDrawRejectsUnsupportedTensors(t *testing.T) {
	tests := []struct {
		name string
		img  *tensor.Dense
	}{
		{"nil", nil},
		{"grayscale", tensor.New(tensor.WithShape(2, 2), tensor.WithBacking(make([]float64, 4)))},
		{"four channels", tensor.New(tensor.WithShape(1, 1, 4), tensor.WithBacking(make([]float64, 4)))},
		{"float32", tensor.New(tensor.WithShape(1, 1, 3), tensor.WithBacking(make([]float32, 3)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Draw(tt.img, []boxes.BoundingBox{boxes.New(0, 0, 1, 1)}, Red, DefaultConfig()))
		})
	}
}

// TestFillRegion verifies clipped rectangular assignment.
func TestFillRegion(t *testing.T) {
	img := tensor.New(tensor.WithShape(4, 4, 3), tensor.WithBacking(make([]float64, 48)))

	require.NoError(t, FillRegion(img, [2]int{-1, 2}, [2]int{3, 10}, Blue))
	assertPainted(t, img, []image.Rectangle{image.Rect(3, 0, 4, 2)}, Blue)

	require.NoError(t, FillRegion(img, [2]int{3, 1}, [2]int{0, 4}, Red), "inverted ranges are a no-op")
	assertPainted(t, img, []image.Rectangle{image.Rect(3, 0, 4, 2)}, Blue)
}

// TestToColor verifies grayscale promotion.
func TestToColor(t *testing.T) {
	gray := tensor.New(tensor.WithShape(1, 2), tensor.WithBacking([]float64{0.25, 0.75}))

	rgb, err := ToColor(gray)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 3}, rgb.Shape())
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.75, 0.75, 0.75}, rgb.Data())

	same, err := ToColor(rgb)
	require.NoError(t, err)
	assert.Same(t, rgb, same)

	_, err = ToColor(tensor.New(tensor.WithShape(1, 1, 1), tensor.WithBacking([]float64{0})))
	assert.Error(t, err)
}
