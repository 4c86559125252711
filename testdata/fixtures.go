// Package testdata builds synthetic frames for pipeline tests: flat
// backgrounds with bright disks and ellipses drawn where fingertips would be.
package testdata

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// Fingertip is the intensity used for synthetic touch blobs.
const Fingertip = 255

// Blank returns a single-channel frame filled with value.
func Blank(rows, cols int, value uint8) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(value), 0, 0, 0), rows, cols, gocv.MatTypeCV8U)
}

// BlankColor returns a three-channel frame filled with value.
func BlankColor(rows, cols int, value uint8) gocv.Mat {
	v := float64(value)
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), rows, cols, gocv.MatTypeCV8UC3)
}

// RadiusForArea returns the disk radius whose area is closest to area.
func RadiusForArea(area float64) int {
	return int(math.Round(math.Sqrt(area / math.Pi)))
}

// Disk draws a filled disk of the given radius onto frame. It panics if
// OpenCV rejects the draw.
func Disk(frame *gocv.Mat, center image.Point, radius int) {
	if err := gocv.Circle(frame, center, radius, color.RGBA{R: Fingertip, G: Fingertip, B: Fingertip, A: 0}, -1); err != nil {
		panic(err)
	}
}

// FilledEllipse draws a filled ellipse with half axes (a, b) onto frame.
// Like Disk, it panics on a draw error.
func FilledEllipse(frame *gocv.Mat, center image.Point, a, b int, angle float64) {
	if err := gocv.Ellipse(frame, center, image.Pt(a, b), angle, 0, 360, color.RGBA{R: Fingertip, G: Fingertip, B: Fingertip, A: 0}, -1); err != nil {
		panic(err)
	}
}

// Scene returns a frame of the given size over a flat background of level
// bg, with one disk of radius r at each center.
func Scene(rows, cols int, bg uint8, r int, centers ...image.Point) gocv.Mat {
	frame := Blank(rows, cols, bg)
	for _, c := range centers {
		Disk(&frame, c, r)
	}
	return frame
}

// Sequence returns one color frame per entry of positions, each carrying
// disks of radius r at that entry's points. The caller closes the frames.
func Sequence(rows, cols, r int, positions [][]image.Point) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, len(positions))
	for _, pts := range positions {
		frame := BlankColor(rows, cols, 0)
		for _, p := range pts {
			Disk(&frame, p, r)
		}
		frames = append(frames, &frame)
	}
	return frames
}

// CloseAll closes every frame in frames.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
