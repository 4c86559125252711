package detector

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/touchsurface/internal/vision"
)

// EllipseDetector implements Detector by fitting ellipses to the top-level
// contours of the mask and keeping those that are finger-sized and roughly
// round.
type EllipseDetector struct {
	ops    vision.Ops
	config Config
}

// NewEllipseDetector creates a detector that uses ops for contour extraction,
// ellipse fitting and drawing.
func NewEllipseDetector(ops vision.Ops, config Config) *EllipseDetector {
	return &EllipseDetector{ops: ops, config: config}
}

// Config returns the filter configuration in use.
func (d *EllipseDetector) Config() Config {
	return d.config
}

// Detect walks the top-level contours of mask via the next-sibling chain
// starting at index 0. Holes are never visited.
//
// Per contour:
// 1. Reject if area <= MinContourArea or it has fewer than MinContourPoints
// 2. Fit an ellipse and take half of its width and height as the axes
// 3. Reject if the axis ratio exceeds MaxAxisRatio either way
// 4. Reject unless pi*(major/2)*(minor/2) lies in [MinEllipseArea, MaxEllipseArea]
// 5. Record the center and outline the ellipse on the overlay copy
//
// A drawing failure stops the walk and is returned with the detections
// found so far.
func (d *EllipseDetector) Detect(mask, overlay gocv.Mat) ([]Detection, gocv.Mat, error) {
	annotated := overlay.Clone()
	detections := make([]Detection, 0)

	contours, links := d.ops.Contours(mask)
	if len(contours) == 0 || len(links) != len(contours) {
		return detections, annotated, nil
	}

	// The visited bound guards against a malformed sibling chain.
	for i, visited := 0, 0; i >= 0 && i < len(contours) && visited < len(contours); i, visited = links[i].Next, visited+1 {
		e, ok := d.accept(contours[i])
		if !ok {
			continue
		}

		detections = append(detections, FromPoint(e.Center))
		if err := d.ops.DrawEllipse(&annotated, e); err != nil {
			return detections, annotated, fmt.Errorf("draw ellipse at %v: %w", e.Center, err)
		}
	}

	return detections, annotated, nil
}

// accept applies the size and shape filters to one contour.
func (d *EllipseDetector) accept(c vision.Contour) (vision.Ellipse, bool) {
	if c.Area <= d.config.MinContourArea || len(c.Points) < d.config.MinContourPoints {
		return vision.Ellipse{}, false
	}

	e := d.ops.FitEllipse(c.Points)
	major := float64(e.Width) / 2
	minor := float64(e.Height) / 2

	if axisRatio(major, minor) > d.config.MaxAxisRatio {
		return vision.Ellipse{}, false
	}

	area := ellipseArea(major, minor)
	if area < d.config.MinEllipseArea || area > d.config.MaxEllipseArea {
		return vision.Ellipse{}, false
	}

	return e, true
}
