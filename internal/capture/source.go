// Package capture provides frame acquisition using GoCV (OpenCV): video files
// and camera devices, plus a one-time background capture.
package capture

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// Default device settings
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrSourceNotOpen is returned when reading from a source that is not open.
	ErrSourceNotOpen = errors.New("video source is not open")
	// ErrReadFailed is returned when the source yields no frame.
	ErrReadFailed = errors.New("failed to read frame")
	// ErrNotSeekable is returned by Seek on live devices.
	ErrNotSeekable = errors.New("video source is not seekable")
)

// Source defines the interface for sequential frame sources.
type Source interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller closes it.
	ReadFrame() (*gocv.Mat, error)
	// FrameCount returns the number of frames in the source, or 0 when
	// unknown (live devices).
	FrameCount() int
	// Seek positions the source so the next read returns frame index.
	Seek(index int) error
	IsOpen() bool
}

// videoSource reads from a video file or a camera device using GoCV.
type videoSource struct {
	uri        string
	deviceID   int
	isDevice   bool
	capture    *gocv.VideoCapture
	mu         sync.Mutex
	running    bool
	frameCount int
}

// NewVideoSource creates a Source for uri. A purely numeric uri selects a
// camera device by index; anything else is opened as a file or stream URL.
func NewVideoSource(uri string) Source {
	s := &videoSource{uri: uri}
	if id, err := strconv.Atoi(uri); err == nil {
		s.deviceID = id
		s.isDevice = true
	}
	return s
}

// Open opens the underlying capture. Devices are set to 640x480.
func (s *videoSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	var (
		capture *gocv.VideoCapture
		err     error
	)
	if s.isDevice {
		capture, err = gocv.OpenVideoCapture(s.deviceID)
	} else {
		capture, err = gocv.VideoCaptureFile(s.uri)
	}
	if err != nil {
		return fmt.Errorf("open video source %q: %w", s.uri, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open video source %q: not opened", s.uri)
	}

	if s.isDevice {
		capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
		capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
		s.frameCount = 0
	} else {
		s.frameCount = int(capture.Get(gocv.VideoCaptureFrameCount))
	}

	s.capture = capture
	s.running = true

	return nil
}

// Close closes the source and releases resources.
func (s *videoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		s.running = false
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	s.running = false

	return err
}

// ReadFrame reads the next frame.
func (s *videoSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok {
		mat.Close()
		return nil, ErrReadFailed
	}

	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: empty frame", ErrReadFailed)
	}

	return &mat, nil
}

// FrameCount returns the frame count reported by the container.
func (s *videoSource) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.frameCount
}

// Seek moves the read position of a file source.
func (s *videoSource) Seek(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return ErrSourceNotOpen
	}
	if s.isDevice {
		return ErrNotSeekable
	}

	s.capture.Set(gocv.VideoCapturePosFrames, float64(index))
	return nil
}

// IsOpen returns true if the source is currently open.
func (s *videoSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}
