package vision

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Recorder wraps an Ops and records each call as a short string such as
// "blur(20)" or "threshold(15)". It is meant for tests that pin the order
// and parameters of a pipeline. FailOn makes a recorded call return an
// error instead of reaching the wrapped Ops.
type Recorder struct {
	ops      Ops
	calls    []string
	failures map[string]error
	mu       sync.Mutex
}

// NewRecorder wraps ops.
func NewRecorder(ops Ops) *Recorder {
	return &Recorder{ops: ops}
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Reset clears the recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// FailOn makes every call recorded as call, e.g. "blur(10)", return err.
// Only Subtract, Blur and DrawEllipse can fail.
func (r *Recorder) FailOn(call string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures == nil {
		r.failures = make(map[string]error)
	}
	r.failures[call] = err
}

// record appends the call and returns its injected failure, if any.
func (r *Recorder) record(format string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := fmt.Sprintf(format, args...)
	r.calls = append(r.calls, call)
	return r.failures[call]
}

func (r *Recorder) Subtract(a, b gocv.Mat, dst *gocv.Mat) error {
	if err := r.record("subtract"); err != nil {
		return err
	}
	return r.ops.Subtract(a, b, dst)
}

func (r *Recorder) Blur(src gocv.Mat, dst *gocv.Mat, ksize int) error {
	if err := r.record("blur(%d)", ksize); err != nil {
		return err
	}
	return r.ops.Blur(src, dst, ksize)
}

func (r *Recorder) Threshold(src gocv.Mat, dst *gocv.Mat, thresh, maxValue float32) {
	r.record("threshold(%g)", thresh)
	r.ops.Threshold(src, dst, thresh, maxValue)
}

func (r *Recorder) Contours(mask gocv.Mat) ([]Contour, []Hierarchy) {
	r.record("contours")
	return r.ops.Contours(mask)
}

func (r *Recorder) FitEllipse(points []image.Point) Ellipse {
	r.record("fitEllipse(%d)", len(points))
	return r.ops.FitEllipse(points)
}

func (r *Recorder) DrawEllipse(dst *gocv.Mat, e Ellipse) error {
	if err := r.record("drawEllipse"); err != nil {
		return err
	}
	return r.ops.DrawEllipse(dst, e)
}
