// Package display shows annotated frames and reports key presses. The frame
// loop uses the key wait as its frame-rate governor.
package display

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// EscapeKey is the key code that stops the frame loop.
const EscapeKey = 27

// NoKey is returned by PollKey when no key was pressed.
const NoKey = -1

// Display defines the interface for frame output.
type Display interface {
	Show(frame gocv.Mat) error
	// PollKey waits up to ms milliseconds for a key press.
	PollKey(ms int) int
	Close() error
}

// Window is a resizable OpenCV highgui window.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a window named name.
func NewWindow(name string) *Window {
	return &Window{window: gocv.NewWindow(name)}
}

// Show draws frame in the window. Empty frames are skipped.
func (w *Window) Show(frame gocv.Mat) error {
	if frame.Empty() {
		return nil
	}
	return w.window.IMShow(frame)
}

func (w *Window) PollKey(ms int) int {
	return w.window.WaitKey(ms)
}

func (w *Window) Close() error {
	return w.window.Close()
}

// Headless discards frames and waits on a key channel instead of a window.
// Keys are injected with Press, e.g. by the tray's quit item.
type Headless struct {
	keys   chan int
	mu     sync.Mutex
	shown  int
	closed bool
}

// NewHeadless creates a Headless display.
func NewHeadless() *Headless {
	return &Headless{keys: make(chan int, 1)}
}

func (h *Headless) Show(frame gocv.Mat) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shown++
	return nil
}

// PollKey returns a pressed key as soon as one arrives, or NoKey after ms.
func (h *Headless) PollKey(ms int) int {
	if ms <= 0 {
		select {
		case k := <-h.keys:
			return k
		default:
			return NoKey
		}
	}

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()

	select {
	case k := <-h.keys:
		return k
	case <-timer.C:
		return NoKey
	}
}

// Press queues key for the next PollKey. It never blocks; a key pressed
// while another is pending is dropped.
func (h *Headless) Press(key int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.keys <- key:
	default:
	}
}

// Shown returns how many frames were passed to Show.
func (h *Headless) Shown() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shown
}

func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}
