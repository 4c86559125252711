package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/touchsurface/internal/capture"
	"github.com/ayusman/touchsurface/internal/display"
	"github.com/ayusman/touchsurface/internal/tracker"
)

// Run processes frames until the escape key is pressed or ctx is done. It
// returns an error only for failures that make further frames pointless.
//
// Per iteration:
// 1. Rewind the source once every frame has been read
// 2. Read a frame; on failure log it and skip to the key poll. Repeated
//    failures on a seekable source are treated as the end of the stream
// 3. Convert to gray, build the mask, detect and track
// 4. Publish the result to observers
// 5. Show the annotated frame and poll for the escape key
func (l *Loop) Run(ctx context.Context) error {
	if n := l.config.Source.FrameCount(); n > 0 {
		log.Printf("Frame loop started (%d frames, looping)", n)
	} else {
		log.Println("Frame loop started")
	}
	defer log.Println("Frame loop stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		stop, err := l.Step()
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// Step runs one loop iteration and reports whether the escape key was
// pressed.
func (l *Loop) Step() (bool, error) {
	src := l.config.Source

	if n := src.FrameCount(); n > 0 && l.counter == n {
		if err := l.rewind(); err != nil {
			return false, err
		}
	}

	frame, err := src.ReadFrame()
	if err != nil {
		log.Printf("Error reading frame %d: %v", l.counter, err)
		l.failures++
		if n := src.FrameCount(); n > 0 && l.counter > 0 && l.failures >= EndOfStreamFailures {
			log.Printf("Stream ended at frame %d of %d reported; rewinding", l.counter, n)
			if err := l.rewind(); err != nil {
				return false, err
			}
		}
		return l.pollExit(), nil
	}
	defer frame.Close()
	l.failures = 0

	index := l.counter
	l.counter++

	annotated, err := l.process(index, *frame)
	if err != nil {
		return false, err
	}
	defer annotated.Close()

	if err := l.config.Display.Show(annotated); err != nil {
		return false, fmt.Errorf("show frame %d: %w", index, err)
	}
	return l.pollExit(), nil
}

func (l *Loop) rewind() error {
	if err := l.config.Source.Seek(0); err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	l.counter = 0
	l.failures = 0
	if l.config.Verbose {
		log.Println("Rewound to first frame")
	}
	return nil
}

// process runs the detection pipeline on frame and returns the annotated
// copy to show. The caller closes it.
func (l *Loop) process(index int, frame gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()
	defer gray.Close()

	if err := capture.ToGray(frame, &gray); err != nil {
		return gocv.NewMat(), fmt.Errorf("frame %d: %w", index, err)
	}

	if l.IsPaused() {
		return frame.Clone(), nil
	}

	mask, err := l.config.Preprocessor.Prepare(gray, l.config.Background)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("frame %d: %w", index, err)
	}
	defer mask.Close()

	detections, annotated, err := l.config.Detector.Detect(mask, frame)
	if err != nil {
		annotated.Close()
		return gocv.NewMat(), fmt.Errorf("frame %d: %w", index, err)
	}
	result := l.config.Tracker.Update(detections)

	if l.config.Verbose {
		logResult(index, result)
	}

	l.publish(index, annotated, result)
	return annotated, nil
}

func (l *Loop) publish(index int, annotated gocv.Mat, result tracker.UpdateResult) {
	l.mu.RLock()
	observers := l.observers
	l.mu.RUnlock()

	if len(observers) == 0 {
		return
	}

	r := FrameResult{
		Frame:     index,
		Fingers:   l.config.Tracker.Fingers(),
		Result:    result,
		Timestamp: time.Now(),
	}
	if l.config.JPEGQuality > 0 {
		r.JPEG = encodeJPEG(annotated, l.config.JPEGQuality)
	}

	for _, o := range observers {
		o.Observe(r)
	}
}

func (l *Loop) pollExit() bool {
	return l.config.Display.PollKey(l.config.WaitMs) == display.EscapeKey
}

// encodeJPEG returns the JPEG bytes of img, or nil if encoding fails.
func encodeJPEG(img gocv.Mat, quality int) []byte {
	if img.Empty() {
		return nil
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		log.Printf("Error encoding frame: %v", err)
		return nil
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...)
}

func logResult(index int, r tracker.UpdateResult) {
	for _, id := range r.Created {
		log.Printf("Frame %d: touch %d down", index, id)
	}
	for _, id := range r.Evicted {
		log.Printf("Frame %d: touch %d up", index, id)
	}
}
