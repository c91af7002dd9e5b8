// Package annotations - reads the box lists rendered by cmd/plotboxes.
//
// An annotation file is YAML (and therefore also accepts JSON):
//
//	image: frame-1.jpg
//	color: [0, 1, 0]
//	line_width: 4
//	reference: {top: 10, left: 20, height: 30, width: 40}
//	boxes:
//	  - {top: 12, left: 18, height: 30, width: 44, confidence: 0.87}
//
// Only boxes is required.
package annotations

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/nvr-ai/go-bbox/boxes"
	"github.com/nvr-ai/go-bbox/render"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Box is the file representation of a bounding box.
type Box struct {
	Top        *float64 `json:"top" yaml:"top"`
	Left       *float64 `json:"left" yaml:"left"`
	Height     *float64 `json:"height" yaml:"height"`
	Width      *float64 `json:"width" yaml:"width"`
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// File is the raw content of an annotation file.
type File struct {
	Image     string    `json:"image" yaml:"image"`
	Color     []float64 `json:"color" yaml:"color"`
	LineWidth *int      `json:"line_width" yaml:"line_width"`
	Reference *Box      `json:"reference" yaml:"reference"`
	Boxes     []Box     `json:"boxes" yaml:"boxes"`
}

// Annotations is a validated annotation file with defaults applied.
type Annotations struct {
	// Image is the image path, resolved against the annotation file's directory
	// by Load. Empty when the file does not name one.
	Image string
	// Color is the outline color, render.Red by default.
	Color render.Color
	// Config is the render configuration, render.DefaultConfig by default.
	Config render.Config
	// Reference is the box other boxes are scored against, if any.
	Reference *boxes.BoundingBox
	// Boxes are the boxes to draw, in file order.
	Boxes []boxes.BoundingBox
}

// Load reads and parses an annotation file. A relative image path is resolved
// against the directory containing the file.
func Load(path string) (*Annotations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read annotations %s", path)
	}

	a, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse annotations %s", path)
	}

	if a.Image != "" && !filepath.IsAbs(a.Image) {
		a.Image = filepath.Join(filepath.Dir(path), a.Image)
	}
	return a, nil
}

// Parse decodes and validates annotation data. Unknown fields are rejected.
func Parse(data []byte) (*Annotations, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, errors.New("annotations are empty")
		}
		return nil, errors.Wrap(err, "decode annotations")
	}

	return f.Resolve()
}

// Resolve validates f and converts it to Annotations.
func (f *File) Resolve() (*Annotations, error) {
	a := &Annotations{
		Image:  f.Image,
		Color:  render.Red,
		Config: render.DefaultConfig(),
	}

	if f.Color != nil {
		if len(f.Color) != len(a.Color) {
			return nil, errors.Errorf("color must have %d channels, got %d", len(a.Color), len(f.Color))
		}
		for i, v := range f.Color {
			if v < 0 || v > 1 {
				return nil, errors.Errorf("color channel %d is %v, must be within [0, 1]", i, v)
			}
			a.Color[i] = v
		}
	}

	if f.LineWidth != nil {
		if *f.LineWidth < 0 {
			return nil, errors.Errorf("line_width must not be negative, got %d", *f.LineWidth)
		}
		a.Config.LineWidth = *f.LineWidth
	}

	if f.Reference != nil {
		ref, err := f.Reference.BoundingBox()
		if err != nil {
			return nil, errors.Wrap(err, "reference")
		}
		a.Reference = &ref
	}

	if len(f.Boxes) == 0 {
		return nil, errors.New("no boxes")
	}
	a.Boxes = make([]boxes.BoundingBox, 0, len(f.Boxes))
	for i, b := range f.Boxes {
		bb, err := b.BoundingBox()
		if err != nil {
			return nil, errors.Wrapf(err, "box %d", i)
		}
		a.Boxes = append(a.Boxes, bb)
	}

	return a, nil
}

// BoundingBox converts b, requiring all four geometric fields. The geometry
// itself is not validated.
func (b Box) BoundingBox() (boxes.BoundingBox, error) {
	fields := []struct {
		name  string
		value *float64
	}{
		{"top", b.Top},
		{"left", b.Left},
		{"height", b.Height},
		{"width", b.Width},
	}
	for _, field := range fields {
		if field.value == nil {
			return boxes.BoundingBox{}, errors.Errorf("missing %s", field.name)
		}
	}

	var opts []boxes.Option
	if b.Confidence != nil {
		opts = append(opts, boxes.WithConfidence(*b.Confidence))
	}
	return boxes.New(*b.Top, *b.Left, *b.Height, *b.Width, opts...), nil
}
