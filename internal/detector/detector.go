package detector

import "gocv.io/x/gocv"

// Detector defines the interface for touch-point detection implementations.
type Detector interface {
	// Detect extracts touch points from mask and returns them together with
	// a copy of overlay annotated with the accepted shapes. The caller owns
	// the returned Mat, which is valid even when an error is returned.
	// Returns an empty slice if nothing is accepted.
	Detect(mask, overlay gocv.Mat) ([]Detection, gocv.Mat, error)
}

// Config holds the geometric filters applied to candidate contours.
type Config struct {
	// MinContourArea rejects contours whose area is at or below it.
	MinContourArea float64

	// MinContourPoints rejects contours with fewer points. An ellipse
	// fit needs at least five.
	MinContourPoints int

	// MaxAxisRatio rejects ellipses more elongated than this in either
	// direction.
	MaxAxisRatio float64

	// MinEllipseArea and MaxEllipseArea bound the accepted ellipse area,
	// inclusive.
	MinEllipseArea float64
	MaxEllipseArea float64
}

// DefaultConfig returns a Config tuned for fingertips seen from an overhead
// camera at roughly 640x480.
func DefaultConfig() Config {
	return Config{
		MinContourArea:   30,
		MinContourPoints: 5,
		MaxAxisRatio:     2.5,
		MinEllipseArea:   5,
		MaxEllipseArea:   150,
	}
}
