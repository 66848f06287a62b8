package common

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// BoundingBox is a detection in pixel space as returned by a detector.
type BoundingBox struct {
	Label          string
	Confidence     float32
	X1, Y1, X2, Y2 float32
}

func (b *BoundingBox) String() string {
	return fmt.Sprintf("Object %s (confidence %f): (%f, %f), (%f, %f)",
		b.Label, b.Confidence, b.X1, b.Y1, b.X2, b.Y2)
}

// ToRect converts the bounding box to an image.Rectangle.
//
// This loses fractional pixels around the edges, which is fine for drawing.
//
// Returns:
//   - An image.Rectangle with canonicalized coordinates.
func (b *BoundingBox) ToRect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2)).Canon()
}

// Width returns the horizontal extent of the box in pixels.
func (b *BoundingBox) Width() float32 {
	return b.X2 - b.X1
}

// Height returns the vertical extent of the box in pixels.
func (b *BoundingBox) Height() float32 {
	return b.Y2 - b.Y1
}

// Area returns the box area in square pixels.
func (b *BoundingBox) Area() float32 {
	return math32.Max(0, b.Width()) * math32.Max(0, b.Height())
}

// Intersection calculates the intersection area between two bounding boxes.
//
// Arguments:
//   - other: The other bounding box to calculate intersection with.
//
// Returns:
//   - The area of intersection in square pixels.
//
// @example
// box1 := BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100}
// box2 := BoundingBox{X1: 50, Y1: 50, X2: 150, Y2: 150}
// area := box1.Intersection(&box2) // Returns 2500.0 (50x50 overlap)
func (b *BoundingBox) Intersection(other *BoundingBox) float32 {
	w := math32.Min(b.X2, other.X2) - math32.Max(b.X1, other.X1)
	h := math32.Min(b.Y2, other.Y2) - math32.Max(b.Y1, other.Y1)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Union calculates the union area between two bounding boxes.
func (b *BoundingBox) Union(other *BoundingBox) float32 {
	return b.Area() + other.Area() - b.Intersection(other)
}

// IoU calculates the Intersection over Union between two pixel boxes.
//
// Used by non-maximum suppression. Returns 0 for degenerate boxes.
//
// @example
// box1 := BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100}
// box2 := BoundingBox{X1: 50, Y1: 50, X2: 150, Y2: 150}
// iou := box1.IoU(&box2) // Returns ~0.143 (2500/17500)
func (b *BoundingBox) IoU(other *BoundingBox) float32 {
	union := b.Union(other)
	if union <= 0 {
		return 0
	}
	return b.Intersection(other) / union
}

// Normalize converts the pixel box into a center+size Detection relative to
// the image dimensions.
//
// Arguments:
//   - width: The width of the source image in pixels.
//   - height: The height of the source image in pixels.
//
// Returns:
//   - The normalized detection carrying the box confidence.
func (b *BoundingBox) Normalize(width, height int) Detection {
	w, h := float64(width), float64(height)
	x1, y1 := float64(b.X1), float64(b.Y1)
	x2, y2 := float64(b.X2), float64(b.Y2)
	return Detection{
		Box: Box{
			X:      ((x1 + x2) / 2) / w,
			Y:      ((y1 + y2) / 2) / h,
			Width:  (x2 - x1) / w,
			Height: (y2 - y1) / h,
		},
		Confidence: float64(b.Confidence),
	}
}

// NormalizeAll converts every pixel box to a normalized Detection.
func NormalizeAll(boxes []BoundingBox, width, height int) []Detection {
	detections := make([]Detection, 0, len(boxes))
	for i := range boxes {
		detections = append(detections, boxes[i].Normalize(width, height))
	}
	return detections
}
