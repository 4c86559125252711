package vision

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// OverlayColor is the colour used to outline accepted ellipses.
var OverlayColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}

// OverlayThickness is the outline thickness in pixels.
const OverlayThickness = 2

// GoCV implements Ops on top of OpenCV.
type GoCV struct{}

// NewGoCV returns the OpenCV-backed operations.
func NewGoCV() *GoCV {
	return &GoCV{}
}

// Subtract computes a - b. For 8-bit mats OpenCV saturates at zero.
func (GoCV) Subtract(a, b gocv.Mat, dst *gocv.Mat) error {
	return gocv.Subtract(a, b, dst)
}

// Blur applies a normalized box filter.
func (GoCV) Blur(src gocv.Mat, dst *gocv.Mat, ksize int) error {
	return gocv.Blur(src, dst, image.Point{X: ksize, Y: ksize})
}

// Threshold applies a binary threshold. OpenCV reports no error for it.
func (GoCV) Threshold(src gocv.Mat, dst *gocv.Mat, thresh, maxValue float32) {
	gocv.Threshold(src, dst, thresh, maxValue, gocv.ThresholdBinary)
}

// Contours runs a two-level (CCOMP) contour search with simple chain
// approximation.
func (GoCV) Contours(mask gocv.Mat) ([]Contour, []Hierarchy) {
	if mask.Empty() {
		return nil, nil
	}

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()

	found := gocv.FindContoursWithParams(mask, &hierarchy, gocv.RetrievalCComp, gocv.ChainApproxSimple)
	defer found.Close()

	n := found.Size()
	if n == 0 || hierarchy.Empty() {
		return nil, nil
	}

	contours := make([]Contour, n)
	links := make([]Hierarchy, n)
	for i := 0; i < n; i++ {
		pv := found.At(i)
		contours[i] = Contour{
			Points: pv.ToPoints(),
			Area:   gocv.ContourArea(pv),
		}

		v := hierarchy.GetVeciAt(0, i)
		links[i] = Hierarchy{
			Next:       int(v[0]),
			Previous:   int(v[1]),
			FirstChild: int(v[2]),
			Parent:     int(v[3]),
		}
	}

	return contours, links
}

// FitEllipse fits an ellipse to points. Fewer than five points yield the
// zero Ellipse, since OpenCV cannot fit them. gocv rounds the axes to int,
// so the detector's ratio and area filters see whole-pixel axes.
func (GoCV) FitEllipse(points []image.Point) Ellipse {
	if len(points) < 5 {
		return Ellipse{}
	}

	pv := gocv.NewPointVectorFromPoints(points)
	defer pv.Close()

	rr := gocv.FitEllipse(pv)
	return Ellipse{
		Center: rr.Center,
		Width:  rr.Width,
		Height: rr.Height,
		Angle:  rr.Angle,
	}
}

// DrawEllipse outlines e on dst.
func (GoCV) DrawEllipse(dst *gocv.Mat, e Ellipse) error {
	axes := image.Point{X: e.Width / 2, Y: e.Height / 2}
	return gocv.Ellipse(dst, e.Center, axes, e.Angle, 0, 360, OverlayColor, OverlayThickness)
}
