package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns scripted detections, one slice per call, and repeats the last
// slice once the script runs out.
type MockDetector struct {
	script [][]Detection
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetDetections makes every call return detections.
func (m *MockDetector) SetDetections(detections []Detection) {
	m.script = [][]Detection{detections}
	m.calls = 0
}

// SetScript sets per-call detections.
func (m *MockDetector) SetScript(script [][]Detection) {
	m.script = script
	m.calls = 0
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the next scripted detections and an unmodified copy of overlay.
func (m *MockDetector) Detect(mask, overlay gocv.Mat) ([]Detection, gocv.Mat, error) {
	defer func() { m.calls++ }()

	if len(m.script) == 0 {
		return []Detection{}, overlay.Clone(), nil
	}

	i := m.calls
	if i >= len(m.script) {
		i = len(m.script) - 1
	}

	out := make([]Detection, len(m.script[i]))
	copy(out, m.script[i])
	return out, overlay.Clone(), nil
}

// Points converts image points to detections.
func Points(pts ...image.Point) []Detection {
	out := make([]Detection, len(pts))
	for i, p := range pts {
		out[i] = FromPoint(p)
	}
	return out
}
