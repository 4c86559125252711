package capture

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

var (
	// ErrBackgroundUnreadable is returned when the background image cannot be decoded.
	ErrBackgroundUnreadable = errors.New("background image could not be read")
	// ErrUnsupportedChannels is returned for frames that are neither gray, BGR nor BGRA.
	ErrUnsupportedChannels = errors.New("unsupported channel count")
)

// ToGray writes a single-channel copy of frame to dst.
func ToGray(frame gocv.Mat, dst *gocv.Mat) error {
	if frame.Empty() {
		return fmt.Errorf("to gray: %w", ErrReadFailed)
	}

	var err error
	switch frame.Channels() {
	case 1:
		err = frame.CopyTo(dst)
	case 3:
		err = gocv.CvtColor(frame, dst, gocv.ColorBGRToGray)
	case 4:
		err = gocv.CvtColor(frame, dst, gocv.ColorBGRAToGray)
	default:
		return fmt.Errorf("to gray: %w: %d", ErrUnsupportedChannels, frame.Channels())
	}
	if err != nil {
		return fmt.Errorf("to gray: %w", err)
	}

	return nil
}

// LoadBackground reads the static background image at path as grayscale.
// The caller owns the returned Mat.
func LoadBackground(path string) (gocv.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrBackgroundUnreadable, path)
	}
	return mat, nil
}

// CaptureBackground takes the first frame of src as the background and
// rewinds the source when it is seekable. src must be open.
func CaptureBackground(src Source) (gocv.Mat, error) {
	frame, err := src.ReadFrame()
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("capture background: %w", err)
	}
	defer frame.Close()

	gray := gocv.NewMat()
	if err := ToGray(*frame, &gray); err != nil {
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("capture background: %w", err)
	}

	if err := src.Seek(0); err != nil && !errors.Is(err, ErrNotSeekable) {
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("capture background: %w", err)
	}

	return gray, nil
}
