// Package vision defines the narrow set of pixel-grid operations the touch
// pipeline depends on, and provides an OpenCV-backed implementation.
package vision

import (
	"image"

	"gocv.io/x/gocv"
)

// Contour is the boundary polyline of one connected foreground region.
type Contour struct {
	Points []image.Point
	Area   float64
}

// Hierarchy links a contour to its neighbours. Indices refer to the slice
// returned alongside it; -1 means no such contour.
type Hierarchy struct {
	Next       int
	Previous   int
	FirstChild int
	Parent     int
}

// Ellipse is a fitted ellipse. Width and Height are full axis lengths.
type Ellipse struct {
	Center image.Point
	Width  int
	Height int
	Angle  float64
}

// Ops is the image-operations capability used by the preprocessor and the
// detector. Methods that can fail inside OpenCV return its error.
type Ops interface {
	// Subtract computes dst = a - b elementwise, saturating at zero.
	Subtract(a, b gocv.Mat, dst *gocv.Mat) error

	// Blur applies a normalized box filter with a ksize x ksize kernel.
	Blur(src gocv.Mat, dst *gocv.Mat, ksize int) error

	// Threshold sets pixels above thresh to maxValue and all others to zero.
	Threshold(src gocv.Mat, dst *gocv.Mat, thresh, maxValue float32)

	// Contours extracts outer contours and their holes (two-level hierarchy).
	// Any non-zero pixel counts as foreground.
	Contours(mask gocv.Mat) ([]Contour, []Hierarchy)

	// FitEllipse fits an ellipse to at least five points. Width and
	// Height come back rounded to whole pixels.
	FitEllipse(points []image.Point) Ellipse

	// DrawEllipse draws the outline of e onto dst.
	DrawEllipse(dst *gocv.Mat, e Ellipse) error
}
