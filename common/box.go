// Package common - Shared detection geometry.
package common

// Box is an axis-aligned rectangle in center+size form, normalized to [0,1]
// relative to the image dimensions.
type Box struct {
	X      float64 `json:"x_center"`
	Y      float64 `json:"y_center"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is a predicted box with its confidence score.
type Detection struct {
	Box
	Confidence float64 `json:"confidence"`
}

// GroundTruthBox is an annotated reference box.
type GroundTruthBox struct {
	Box
	Class int `json:"class"`
}

// BoxFromCorners builds a center+size box from corner coordinates.
func BoxFromCorners(xMin, yMin, xMax, yMax float64) Box {
	return Box{
		X:      (xMin + xMax) / 2,
		Y:      (yMin + yMax) / 2,
		Width:  xMax - xMin,
		Height: yMax - yMin,
	}
}

// Corners returns the box as (xMin, yMin, xMax, yMax).
func (b Box) Corners() (xMin, yMin, xMax, yMax float64) {
	return b.X - b.Width/2, b.Y - b.Height/2, b.X + b.Width/2, b.Y + b.Height/2
}

// Area returns Width*Height.
func (b Box) Area() float64 {
	return b.Width * b.Height
}

// Valid reports whether both extents are non-negative.
func (b Box) Valid() bool {
	return b.Width >= 0 && b.Height >= 0
}

// IoU returns the intersection over union of two center+size boxes.
//
// The boxes are converted to corner form first. Non-overlapping boxes yield
// 0, and so does a zero union area (two degenerate boxes).
//
// Arguments:
//   - a: The first box.
//   - b: The second box.
//
// Returns:
//   - A value in [0, 1].
//
// @example
// a := Box{X: 0.5, Y: 0.5, Width: 0.2, Height: 0.2}
// iou := IoU(a, a) // 1.0
func IoU(a, b Box) float64 {
	ax1, ay1, ax2, ay2 := a.Corners()
	bx1, by1, bx2, by2 := b.Corners()

	ix1 := max(ax1, bx1)
	iy1 := max(ay1, by1)
	ix2 := min(ax2, bx2)
	iy2 := min(ay2, by2)

	if ix2 < ix1 || iy2 < iy1 {
		return 0
	}

	inter := (ix2 - ix1) * (iy2 - iy1)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
