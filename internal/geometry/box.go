// Package geometry provides the axis-aligned box math shared by detection
// grouping, mask building and text layout.
package geometry

import (
	"fmt"
	"image"
	"math"
)

// DefaultShrinkFactor is the fraction of each extent removed from both ends
// when a text region has to be estimated from its bubble outline.
const DefaultShrinkFactor = 0.1

// Box is an axis-aligned rectangle in image pixel space.
// By convention X1 < X2 and Y1 < Y2; inverted boxes are tolerated and
// measure as empty.
type Box struct {
	X1 float64 `yaml:"x1" json:"x1"`
	Y1 float64 `yaml:"y1" json:"y1"`
	X2 float64 `yaml:"x2" json:"x2"`
	Y2 float64 `yaml:"y2" json:"y2"`
}

// NewBox creates a Box from its corner coordinates.
func NewBox(x1, y1, x2, y2 float64) Box {
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// FromRect converts an integer rectangle into a Box.
func FromRect(r image.Rectangle) Box {
	return Box{X1: float64(r.Min.X), Y1: float64(r.Min.Y), X2: float64(r.Max.X), Y2: float64(r.Max.Y)}
}

// Width returns the horizontal extent, clamped at zero.
func (b Box) Width() float64 {
	return math.Max(0, b.X2-b.X1)
}

// Height returns the vertical extent, clamped at zero.
func (b Box) Height() float64 {
	return math.Max(0, b.Y2-b.Y1)
}

// Empty reports whether the box covers no area.
func (b Box) Empty() bool {
	return Area(b) == 0
}

// Rect returns the smallest integer rectangle covering the box.
func (b Box) Rect() image.Rectangle {
	return image.Rect(
		int(math.Floor(b.X1)),
		int(math.Floor(b.Y1)),
		int(math.Ceil(b.X2)),
		int(math.Ceil(b.Y2)),
	)
}

// Pad grows the box by px on every side. Negative px shrinks it.
func (b Box) Pad(px float64) Box {
	return Box{X1: b.X1 - px, Y1: b.Y1 - px, X2: b.X2 + px, Y2: b.Y2 + px}
}

func (b Box) String() string {
	return fmt.Sprintf("(%.1f,%.1f,%.1f,%.1f)", b.X1, b.Y1, b.X2, b.Y2)
}

// Area returns max(0, x2-x1) * max(0, y2-y1).
func Area(b Box) float64 {
	return b.Width() * b.Height()
}

// Intersection returns the overlap area of a and b.
func Intersection(a, b Box) float64 {
	left := math.Max(a.X1, b.X1)
	right := math.Min(a.X2, b.X2)
	top := math.Max(a.Y1, b.Y1)
	bottom := math.Min(a.Y2, b.Y2)
	return math.Max(0, right-left) * math.Max(0, bottom-top)
}

// IoU returns the intersection-over-union of a and b in [0, 1].
// Two degenerate boxes have a zero union and yield 0.
func IoU(a, b Box) float64 {
	inter := Intersection(a, b)
	union := Area(a) + Area(b) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Shrink contracts every side inward by factor times the extent on that axis.
func Shrink(b Box, factor float64) Box {
	dx := (b.X2 - b.X1) * factor
	dy := (b.Y2 - b.Y1) * factor
	return Box{X1: b.X1 + dx, Y1: b.Y1 + dy, X2: b.X2 - dx, Y2: b.Y2 - dy}
}

// Union returns the bounding box of a and b.
func Union(a, b Box) Box {
	return Box{
		X1: math.Min(a.X1, b.X1),
		Y1: math.Min(a.Y1, b.Y1),
		X2: math.Max(a.X2, b.X2),
		Y2: math.Max(a.Y2, b.Y2),
	}
}

// Clip restricts the box to the given bounds.
func (b Box) Clip(bounds image.Rectangle) Box {
	return Box{
		X1: math.Max(b.X1, float64(bounds.Min.X)),
		Y1: math.Max(b.Y1, float64(bounds.Min.Y)),
		X2: math.Min(b.X2, float64(bounds.Max.X)),
		Y2: math.Min(b.Y2, float64(bounds.Max.Y)),
	}
}
