package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back in-memory frames for testing. Reading past the last
// frame fails until Seek rewinds it, like a video file.
type MockSource struct {
	frames  []*gocv.Mat
	index   int
	failAt  map[int]int
	count   int
	mu      sync.Mutex
	running bool
	reads   int
	seeks   []int
}

// NewMockSource creates a MockSource over frames. The frames stay owned by
// the caller; ReadFrame returns clones.
func NewMockSource(frames []*gocv.Mat) *MockSource {
	return &MockSource{
		frames: frames,
		failAt: make(map[int]int),
	}
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// FailAt makes the next n reads of frame index fail without advancing.
func (s *MockSource) FailAt(index, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAt[index] = n
}

// SetFrameCount makes FrameCount report n instead of the number of frames,
// like a container with a wrong header. Zero restores the real count.
func (s *MockSource) SetFrameCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = n
}

func (s *MockSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads++

	if !s.running {
		return nil, ErrSourceNotOpen
	}

	if s.index >= len(s.frames) {
		return nil, fmt.Errorf("%w: end of stream at %d", ErrReadFailed, s.index)
	}

	if n := s.failAt[s.index]; n > 0 {
		s.failAt[s.index] = n - 1
		return nil, fmt.Errorf("%w: injected failure at %d", ErrReadFailed, s.index)
	}

	// Clone the frame so the original isn't modified
	frame := s.frames[s.index].Clone()
	s.index++

	return &frame, nil
}

func (s *MockSource) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count > 0 {
		return s.count
	}
	return len(s.frames)
}

func (s *MockSource) Seek(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrSourceNotOpen
	}
	if index < 0 || index > len(s.frames) {
		return fmt.Errorf("seek %d: out of range [0, %d]", index, len(s.frames))
	}

	s.index = index
	s.seeks = append(s.seeks, index)
	return nil
}

func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Position returns the index of the next frame to be read.
func (s *MockSource) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Seeks returns the indices passed to Seek, in order.
func (s *MockSource) Seeks() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.seeks...)
}

// Reads returns the number of ReadFrame calls.
func (s *MockSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}
