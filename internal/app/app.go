// Package app runs the touchsurface frame loop: read, preprocess, detect,
// track, publish and display, one frame at a time.
package app

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/touchsurface/internal/capture"
	"github.com/ayusman/touchsurface/internal/detector"
	"github.com/ayusman/touchsurface/internal/display"
	"github.com/ayusman/touchsurface/internal/preprocess"
	"github.com/ayusman/touchsurface/internal/tracker"
	"github.com/ayusman/touchsurface/internal/vision"
)

// DefaultWaitMs is the key wait used when Config.WaitMs is not positive.
// A zero wait would block a highgui window forever.
const DefaultWaitMs = 1

// EndOfStreamFailures is how many consecutive failed reads of a seekable
// source, past its first frame, are taken as the end of the stream. Some
// containers report more frames than they hold.
const EndOfStreamFailures = 5

// FrameResult is what observers receive after each processed frame. It is
// shared between observers and must be treated as read-only.
type FrameResult struct {
	Frame     int                  `json:"frame"`
	Fingers   []tracker.Finger     `json:"fingers"`
	Result    tracker.UpdateResult `json:"result"`
	JPEG      []byte               `json:"-"`
	Timestamp time.Time            `json:"timestamp"`
}

// Observer receives a FrameResult after every tracked frame. Observe is
// called on the loop goroutine and must not block.
type Observer interface {
	Observe(FrameResult)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(FrameResult)

func (f ObserverFunc) Observe(r FrameResult) { f(r) }

// Config holds the collaborators and options of the loop. Source and
// Background are required; the rest default to the gocv pipeline with
// stock parameters and a headless display.
type Config struct {
	Source       capture.Source
	Background   gocv.Mat
	Preprocessor *preprocess.Preprocessor
	Detector     detector.Detector
	Tracker      *tracker.Tracker
	Display      display.Display

	WaitMs int
	// JPEGQuality enables encoding the annotated frame for observers.
	// Zero disables it.
	JPEGQuality int
	Verbose     bool
}

// Loop is the frame loop orchestrator. Run and Step must be called from a
// single goroutine; SetPaused and AddObserver are safe from any goroutine.
type Loop struct {
	config    Config
	counter   int
	failures  int
	observers []Observer
	paused    bool
	mu        sync.RWMutex
}

// New creates a Loop, filling in default collaborators.
func New(config Config) *Loop {
	if config.WaitMs <= 0 {
		config.WaitMs = DefaultWaitMs
	}
	if config.Display == nil {
		config.Display = display.NewHeadless()
	}
	if config.Preprocessor == nil || config.Detector == nil {
		ops := vision.NewGoCV()
		if config.Preprocessor == nil {
			config.Preprocessor = preprocess.New(ops, preprocess.DefaultParams())
		}
		if config.Detector == nil {
			config.Detector = detector.NewEllipseDetector(ops, detector.DefaultConfig())
		}
	}
	if config.Tracker == nil {
		config.Tracker = tracker.New(tracker.DefaultConfig())
	}

	return &Loop{config: config}
}

// AddObserver registers o to receive every FrameResult.
func (l *Loop) AddObserver(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, o)
}

// SetPaused pauses or resumes detection and tracking. Frames keep being
// read and shown while paused.
func (l *Loop) SetPaused(paused bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = paused
}

// IsPaused returns whether detection is paused.
func (l *Loop) IsPaused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.paused
}

// Counter returns the index of the next frame to be read.
func (l *Loop) Counter() int {
	return l.counter
}

// Tracker returns the loop's tracker.
func (l *Loop) Tracker() *tracker.Tracker {
	return l.config.Tracker
}

// Display returns the loop's display.
func (l *Loop) Display() display.Display {
	return l.config.Display
}
