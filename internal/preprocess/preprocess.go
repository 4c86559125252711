// Package preprocess turns a grayscale frame and a static background into a
// foreground mask that keeps small bright blobs such as fingertips.
package preprocess

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/touchsurface/internal/vision"
)

// Default pipeline constants.
const (
	// WideKernel estimates the slowly varying residual left after
	// background removal.
	WideKernel = 20
	// MediumKernel smooths sensor noise before thresholding.
	MediumKernel = 10
	// SmallKernel softens the thresholded mask before contour extraction.
	SmallKernel = 5
	// DefaultThreshold is the binary cutoff for still-image input.
	DefaultThreshold = 15
	// StreamingThreshold is the binary cutoff for live video input.
	StreamingThreshold = 12
	// MaxValue is the foreground value written by the threshold step.
	MaxValue = 255
)

var (
	// ErrEmptyFrame is returned when the frame or background is empty.
	ErrEmptyFrame = errors.New("empty frame or background")
	// ErrSizeMismatch is returned when frame and background differ in size or channels.
	ErrSizeMismatch = errors.New("frame and background dimensions differ")
)

// Params holds the kernel sizes and threshold of the pipeline.
type Params struct {
	WideKernel   int
	MediumKernel int
	SmallKernel  int
	Threshold    float32
}

// DefaultParams returns the still-image parameters.
func DefaultParams() Params {
	return Params{
		WideKernel:   WideKernel,
		MediumKernel: MediumKernel,
		SmallKernel:  SmallKernel,
		Threshold:    DefaultThreshold,
	}
}

// StreamingParams returns the parameters used for live video.
func StreamingParams() Params {
	p := DefaultParams()
	p.Threshold = StreamingThreshold
	return p
}

// Preprocessor builds foreground masks. It holds no per-frame state, so one
// instance can be reused for the whole run.
type Preprocessor struct {
	ops    vision.Ops
	params Params
}

// New creates a Preprocessor using ops for pixel arithmetic.
func New(ops vision.Ops, params Params) *Preprocessor {
	return &Preprocessor{ops: ops, params: params}
}

// Params returns the parameters in use.
func (p *Preprocessor) Params() Params {
	return p.params
}

// Prepare computes the mask for frame against background. Both must be
// single-channel and the same size. The caller owns the returned Mat. OpenCV
// failures are returned wrapped.
//
// Pipeline:
// 1. diff1 = frame - background (saturating)
// 2. blur1 = box blur of diff1 (wide kernel)
// 3. diff2 = diff1 - blur1
// 4. blur2 = box blur of diff2 (medium kernel)
// 5. thresholded = binary threshold of blur2
// 6. mask = box blur of thresholded (small kernel), not re-thresholded
func (p *Preprocessor) Prepare(frame, background gocv.Mat) (gocv.Mat, error) {
	if frame.Empty() || background.Empty() {
		return gocv.NewMat(), ErrEmptyFrame
	}
	if frame.Rows() != background.Rows() || frame.Cols() != background.Cols() ||
		frame.Channels() != background.Channels() {
		return gocv.NewMat(), fmt.Errorf("%w: frame %dx%dx%d, background %dx%dx%d", ErrSizeMismatch,
			frame.Cols(), frame.Rows(), frame.Channels(),
			background.Cols(), background.Rows(), background.Channels())
	}

	diff1 := gocv.NewMat()
	defer diff1.Close()
	if err := p.ops.Subtract(frame, background, &diff1); err != nil {
		return gocv.NewMat(), fmt.Errorf("subtract background: %w", err)
	}

	blur1 := gocv.NewMat()
	defer blur1.Close()
	if err := p.ops.Blur(diff1, &blur1, p.params.WideKernel); err != nil {
		return gocv.NewMat(), fmt.Errorf("wide blur: %w", err)
	}

	diff2 := gocv.NewMat()
	defer diff2.Close()
	if err := p.ops.Subtract(diff1, blur1, &diff2); err != nil {
		return gocv.NewMat(), fmt.Errorf("subtract residual: %w", err)
	}

	blur2 := gocv.NewMat()
	defer blur2.Close()
	if err := p.ops.Blur(diff2, &blur2, p.params.MediumKernel); err != nil {
		return gocv.NewMat(), fmt.Errorf("medium blur: %w", err)
	}

	thresholded := gocv.NewMat()
	defer thresholded.Close()
	p.ops.Threshold(blur2, &thresholded, p.params.Threshold, MaxValue)

	mask := gocv.NewMat()
	if err := p.ops.Blur(thresholded, &mask, p.params.SmallKernel); err != nil {
		mask.Close()
		return gocv.NewMat(), fmt.Errorf("small blur: %w", err)
	}

	return mask, nil
}
