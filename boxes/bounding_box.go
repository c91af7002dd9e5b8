// Package boxes - axis-aligned bounding boxes and the overlap metrics used to
// compare predicted boxes against ground truth.
package boxes

import (
	"fmt"
	"image"
	"math"

	"github.com/chewxy/math32"
)

// DefaultEllipseSize is the fraction of the reference box's width and height
// used as the ellipse semi-axes by EllipseScore and EllipseMatches.
const DefaultEllipseSize = 0.25

// BoundingBox is an axis-aligned rectangle in image pixel coordinates.
//
// The geometry is fully determined by Top, Left, Height and Width. No validation
// is performed: negative sizes are kept as given and flow through the arithmetic
// of every method unchanged.
type BoundingBox struct {
	// Top is the row coordinate of the upper edge.
	Top float64 `json:"top" yaml:"top"`
	// Left is the column coordinate of the left edge.
	Left float64 `json:"left" yaml:"left"`
	// Height is the extent along the rows.
	Height float64 `json:"height" yaml:"height"`
	// Width is the extent along the columns.
	Width float64 `json:"width" yaml:"width"`

	confidence    float64
	hasConfidence bool
}

// Option configures optional metadata on a BoundingBox at construction.
type Option func(*BoundingBox)

// WithConfidence attaches a detector confidence score to the box.
func WithConfidence(confidence float64) Option {
	return func(b *BoundingBox) {
		b.confidence = confidence
		b.hasConfidence = true
	}
}

// New creates a bounding box. It never fails.
//
// Arguments:
//   - top, left: The upper-left corner in (row, column) order.
//   - height, width: The extent of the box.
//   - opts: Optional metadata such as WithConfidence.
//
// Returns:
//   - The bounding box.
//
// @example
// gt := boxes.New(10, 20, 30, 40)
// pred := boxes.New(12, 18, 30, 44, boxes.WithConfidence(0.87))
func New(top, left, height, width float64, opts ...Option) BoundingBox {
	b := BoundingBox{Top: top, Left: left, Height: height, Width: width}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// FromCorners converts detector output in corner form (X1, Y1, X2, Y2) into a box.
// The corners are canonicalized so that the box never has a negative size.
//
// @example
// b := boxes.FromCorners(200, 300, 100, 100, 0.9) // <Box: 100,100 + 100x200>
func FromCorners(x1, y1, x2, y2, confidence float32) BoundingBox {
	left := math32.Min(x1, x2)
	top := math32.Min(y1, y2)
	width := math32.Abs(x2 - x1)
	height := math32.Abs(y2 - y1)
	return New(float64(top), float64(left), float64(height), float64(width),
		WithConfidence(float64(confidence)))
}

// Confidence returns the detector confidence and whether one was supplied.
func (b BoundingBox) Confidence() (float64, bool) {
	return b.confidence, b.hasConfidence
}

// String formats the box as <Box: LEFT,TOP + WIDTHxHEIGHT>.
func (b BoundingBox) String() string {
	return fmt.Sprintf("<Box: %v,%v + %vx%v>", b.Left, b.Top, b.Width, b.Height)
}

// Right returns the column coordinate of the right edge.
func (b BoundingBox) Right() float64 {
	return b.Left + b.Width
}

// Bottom returns the row coordinate of the lower edge.
func (b BoundingBox) Bottom() float64 {
	return b.Top + b.Height
}

// Center returns the (x, y) center of the box.
func (b BoundingBox) Center() (float64, float64) {
	return b.Left + 0.5*b.Width, b.Top + 0.5*b.Height
}

// Area returns Height * Width in pixels. There is no sign correction, so an
// inverted box has a negative area.
func (b BoundingBox) Area() float64 {
	return b.Height * b.Width
}

// Intersect returns the overlap of b and other.
//
// The second return value is false when the boxes do not overlap. Boxes that
// only share an edge do not overlap: both the vertical and horizontal extents of
// the intersection must be strictly positive. The result carries no confidence.
//
// Arguments:
//   - other: The box to intersect with.
//
// Returns:
//   - The intersection box.
//   - Whether an intersection exists.
//
// @example
// a := boxes.New(0, 0, 10, 10)
// b := boxes.New(5, 5, 10, 10)
// in, ok := a.Intersect(b) // <Box: 5,5 + 5x5>, true
func (b BoundingBox) Intersect(other BoundingBox) (BoundingBox, bool) {
	top := math.Max(b.Top, other.Top)
	left := math.Max(b.Left, other.Left)
	right := math.Min(b.Right(), other.Right())
	bottom := math.Min(b.Bottom(), other.Bottom())

	if top < bottom && left < right {
		return New(top, left, bottom-top, right-left), true
	}
	return BoundingBox{}, false
}

// IoUScore calculates the Intersection over Union of b and other.
//
// The union is computed by inclusion-exclusion:
//
//	Area(Union) = Area(A) + Area(B) - Area(Intersection)
//
// When the union is not positive the score is 0. Boxes with negative sizes are
// not clamped, so the score can fall outside [0, 1] for such input.
//
// The measure is symmetric.
//
// Arguments:
//   - other: The box to compare against.
//
// Returns:
//   - The IoU score.
//
// @example
// a := boxes.New(0, 0, 10, 10)
// b := boxes.New(5, 5, 10, 10)
// iou := a.IoUScore(b) // 25 / 175 ≈ 0.142857
func (b BoundingBox) IoUScore(other BoundingBox) float64 {
	var intersectionArea float64
	if in, ok := b.Intersect(other); ok {
		intersectionArea = in.Area()
	}

	unionArea := b.Area() + other.Area() - intersectionArea
	if unionArea > 0 {
		return intersectionArea / unionArea
	}
	return 0
}

// EllipseScore is EllipseScoreWithin using DefaultEllipseSize.
func (b BoundingBox) EllipseScore(other BoundingBox) float64 {
	return b.EllipseScoreWithin(other, DefaultEllipseSize)
}

// EllipseScoreWithin returns the normalized squared distance between the center
// of other and the center of b, measured in an ellipse whose semi-axes are
// allowedEllipseSize times b's width and height.
//
// A score <= 1 means the center of other lies inside the ellipse. The ellipse is
// sized by b alone, so the score is not symmetric: b is the reference box.
//
// A zero width or height on b divides by zero and yields +Inf or NaN.
//
// @example
// gt := boxes.New(0, 0, 100, 100)
// score := gt.EllipseScoreWithin(boxes.New(10, 0, 100, 100), 0.25) // 0.16
func (b BoundingBox) EllipseScoreWithin(other BoundingBox, allowedEllipseSize float64) float64 {
	selfX, selfY := b.Center()
	otherX, otherY := other.Center()

	allowWidth := allowedEllipseSize * b.Width
	allowHeight := allowedEllipseSize * b.Height

	dx := selfX - otherX
	dy := selfY - otherY
	return dx*dx/(allowWidth*allowWidth) + dy*dy/(allowHeight*allowHeight)
}

// EllipseMatches reports whether the center of other lies within b's default
// ellipse.
func (b BoundingBox) EllipseMatches(other BoundingBox) bool {
	return b.EllipseMatchesWithin(other, DefaultEllipseSize)
}

// EllipseMatchesWithin reports whether EllipseScoreWithin is at most 1. A NaN
// score never matches.
func (b BoundingBox) EllipseMatchesWithin(other BoundingBox, allowedEllipseSize float64) bool {
	return b.EllipseScoreWithin(other, allowedEllipseSize) <= 1.0
}

// Scale returns a copy of b with its coordinates multiplied by sx along the
// columns and sy along the rows. Confidence is preserved.
func (b BoundingBox) Scale(sx, sy float64) BoundingBox {
	scaled := b
	scaled.Top = b.Top * sy
	scaled.Left = b.Left * sx
	scaled.Height = b.Height * sy
	scaled.Width = b.Width * sx
	return scaled
}

// ToRect converts the box to an image.Rectangle, flooring each edge.
//
// This loses fractional pixels around the edges. The result is not
// canonicalized, so an inverted box stays inverted and reports Empty.
func (b BoundingBox) ToRect() image.Rectangle {
	return image.Rectangle{
		Min: image.Point{X: int(math.Floor(b.Left)), Y: int(math.Floor(b.Top))},
		Max: image.Point{X: int(math.Floor(b.Right())), Y: int(math.Floor(b.Bottom()))},
	}
}
