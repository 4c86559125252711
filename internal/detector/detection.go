// Package detector finds fingertip-shaped blobs in a foreground mask.
package detector

import (
	"image"
	"math"
)

// Detection is the rounded center of one accepted ellipse in the current
// frame. It has no identity of its own.
type Detection struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Point returns d as an image.Point.
func (d Detection) Point() image.Point {
	return image.Point{X: d.X, Y: d.Y}
}

// DistanceSq returns the squared Euclidean distance between d and o.
func (d Detection) DistanceSq(o Detection) int {
	dx := d.X - o.X
	dy := d.Y - o.Y
	return dx*dx + dy*dy
}

// FromPoint converts an image.Point to a Detection.
func FromPoint(p image.Point) Detection {
	return Detection{X: p.X, Y: p.Y}
}

// axisRatio returns max(a,b)/min(a,b), or +Inf when either axis is zero.
func axisRatio(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return math.Inf(1)
	}
	if a > b {
		return a / b
	}
	return b / a
}

// ellipseArea returns pi * (major/2) * (minor/2) for half axes major and minor.
func ellipseArea(major, minor float64) float64 {
	return math.Pi * (major / 2) * (minor / 2)
}
