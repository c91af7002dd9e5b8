// Command plotboxes draws the boxes listed in an annotation file onto their
// image and writes the result as PNG. When the file names a reference box, the
// IoU and ellipse score of every box against it are logged.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-bbox/annotations"
	"github.com/nvr-ai/go-bbox/boxes"
	"github.com/nvr-ai/go-bbox/images"
	"github.com/nvr-ai/go-bbox/render"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

const (
	// DefaultOutputPath is where the rendered image is written.
	DefaultOutputPath = "boxes.png"
)

func main() {
	var (
		annotationsPath string
		imagePath       string
		outputPath      string
		colorFlag       string
		lineWidth       int
		maxWidth        uint
		ellipseSize     float64
	)
	flag.StringVar(&annotationsPath, "annotations", "", "Path to the YAML/JSON annotation file")
	flag.StringVar(&imagePath, "image", "", "Image to draw on (overrides the annotation file)")
	flag.StringVar(&outputPath, "out", DefaultOutputPath, "Output PNG path")
	flag.StringVar(&colorFlag, "color", "", "Outline color as r,g,b in [0,1] (overrides the annotation file)")
	flag.IntVar(&lineWidth, "line-width", -1, "Outline width in pixels (overrides the annotation file)")
	flag.UintVar(&maxWidth, "max-width", 0, "Downscale the image to at most this width before drawing (0 keeps full size)")
	flag.Float64Var(&ellipseSize, "ellipse-size", boxes.DefaultEllipseSize, "Ellipse size used when scoring against the reference box")
	flag.Parse()

	if annotationsPath == "" {
		log.Fatal("-annotations is required")
	}

	a, err := annotations.Load(annotationsPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if err := applyOverrides(a, imagePath, colorFlag, lineWidth); err != nil {
		log.Fatalf("❌ %v", err)
	}
	if a.Image == "" {
		log.Fatal("❌ no image: set -image or image in the annotation file")
	}

	log.Printf("🖼️  Image: %s", a.Image)
	log.Printf("📦 Boxes: %d, line width %d, color %v", len(a.Boxes), a.Config.LineWidth, a.Color)

	if a.Reference != nil {
		for _, line := range scoreLines(*a.Reference, a.Boxes, ellipseSize) {
			log.Print(line)
		}
	}

	var rendered *tensor.Dense
	if maxWidth == 0 {
		rendered, err = render.RenderBoxesWithConfig(a.Image, a.Boxes, a.Color, a.Config)
	} else {
		rendered, err = renderScaled(a, maxWidth)
	}
	if err != nil {
		log.Fatalf("❌ render: %v", err)
	}

	out, err := images.ToImage(rendered)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := images.SavePNG(outputPath, out); err != nil {
		log.Fatalf("❌ %v", err)
	}

	log.Printf("✅ Wrote %s (%dx%d)", outputPath, out.Bounds().Dx(), out.Bounds().Dy())
}

// applyOverrides replaces annotation settings with the ones given on the
// command line. Empty strings and negative widths leave the file's values.
func applyOverrides(a *annotations.Annotations, imagePath, colorFlag string, lineWidth int) error {
	if imagePath != "" {
		a.Image = imagePath
	}
	if colorFlag != "" {
		c, err := parseColor(colorFlag)
		if err != nil {
			return err
		}
		a.Color = c
	}
	if lineWidth >= 0 {
		a.Config.LineWidth = lineWidth
	}
	return nil
}

// parseColor parses "r,g,b" with each channel in [0, 1].
func parseColor(s string) (render.Color, error) {
	var c render.Color

	parts := strings.Split(s, ",")
	if len(parts) != len(c) {
		return c, errors.Errorf("color %q must have %d channels", s, len(c))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return c, errors.Wrapf(err, "color %q", s)
		}
		if v < 0 || v > 1 {
			return c, errors.Errorf("color %q: channel %d must be within [0, 1]", s, i)
		}
		c[i] = v
	}
	return c, nil
}

// scoreLines formats the IoU and ellipse score of every box against ref.
func scoreLines(ref boxes.BoundingBox, bs []boxes.BoundingBox, ellipseSize float64) []string {
	lines := make([]string, 0, len(bs)+1)
	lines = append(lines, fmt.Sprintf("🎯 Reference %s", ref))
	for i, b := range bs {
		conf := "-"
		if c, ok := b.Confidence(); ok {
			conf = strconv.FormatFloat(c, 'f', 3, 64)
		}
		lines = append(lines, fmt.Sprintf("   [%d] %s conf=%s iou=%.4f ellipse=%.4f match=%t",
			i, b, conf, ref.IoUScore(b),
			ref.EllipseScoreWithin(b, ellipseSize), ref.EllipseMatchesWithin(b, ellipseSize)))
	}
	return lines
}

// renderScaled downscales the image to maxWidth before drawing so the outline
// keeps its pixel width in the output. Boxes are scaled to match.
func renderScaled(a *annotations.Annotations, maxWidth uint) (*tensor.Dense, error) {
	full, err := images.LoadFloat(a.Image)
	if err != nil {
		return nil, err
	}

	src, err := images.ToImage(full)
	if err != nil {
		return nil, err
	}
	resized := images.FitWidth(src, maxWidth)

	img, err := render.ToColor(images.ToFloat(resized))
	if err != nil {
		return nil, err
	}

	sx := float64(resized.Bounds().Dx()) / float64(src.Bounds().Dx())
	sy := float64(resized.Bounds().Dy()) / float64(src.Bounds().Dy())
	scaled := make([]boxes.BoundingBox, len(a.Boxes))
	for i, b := range a.Boxes {
		scaled[i] = b.Scale(sx, sy)
	}

	if err := render.Draw(img, scaled, a.Color, a.Config); err != nil {
		return nil, err
	}
	return img, nil
}
