package hook

import (
	"context"
	"log"
	"sync"

	"github.com/ayusman/touchsurface/internal/app"
	"github.com/ayusman/touchsurface/internal/detector"
	"github.com/ayusman/touchsurface/internal/tracker"
)

// DefaultQueueSize is the number of pending events kept before new ones are
// dropped.
const DefaultQueueSize = 64

// Runner executes one hook for one event. *Executor implements it.
type Runner interface {
	Execute(ctx context.Context, h *Hook, ev *Event) (*Response, error)
}

// Dispatcher turns tracker changes into hook invocations. Observe runs on
// the frame loop and only queues events; a single worker runs the hooks in
// event order.
type Dispatcher struct {
	manager *Manager
	runner  Runner
	queue   chan Event
	last    map[int]detector.Detection
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewDispatcher starts a Dispatcher for the hooks known to manager.
func NewDispatcher(manager *Manager, runner Runner, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		manager: manager,
		runner:  runner,
		queue:   make(chan Event, queueSize),
		last:    make(map[int]detector.Detection),
		ctx:     ctx,
		cancel:  cancel,
	}
	d.wg.Add(1)
	go d.work()
	return d
}

// Observe queues a touch.down for every created finger and a touch.up for
// every evicted one. Events that do not fit in the queue are dropped.
func (d *Dispatcher) Observe(res app.FrameResult) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	for _, ev := range touchEvents(res, d.last) {
		select {
		case d.queue <- ev:
		default:
			d.dropped++
			log.Printf("hook: queue full, dropping %s for touch %d", ev.Type, ev.TouchID)
		}
	}

	clear(d.last)
	for _, f := range res.Fingers {
		// With size-based IDs two live fingers can share an ID; keep the
		// older one, which is the one evicted first.
		if _, ok := d.last[f.ID]; !ok {
			d.last[f.ID] = f.Last()
		}
	}
}

// Dropped returns the number of events lost to a full queue.
func (d *Dispatcher) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Close stops accepting events and waits for the queued ones to run.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
	return nil
}

func (d *Dispatcher) work() {
	defer d.wg.Done()

	for ev := range d.queue {
		for _, h := range d.manager.For(ev.Type) {
			resp, err := d.runner.Execute(d.ctx, h, &ev)
			if err != nil {
				log.Printf("hook: %v", err)
				continue
			}
			if !resp.Success {
				log.Printf("hook: %s reported failure for %s: %s", h.Manifest.Name, ev.Type, resp.Error)
			}
		}
	}
}

func touchEvents(res app.FrameResult, last map[int]detector.Detection) []Event {
	var events []Event

	for _, id := range res.Result.Created {
		f, ok := newestWithID(res.Fingers, id)
		if !ok {
			continue
		}
		p := f.Last()
		events = append(events, Event{
			Type: EventTouchDown, TouchID: id, X: p.X, Y: p.Y,
			Frame: res.Frame, Timestamp: res.Timestamp,
		})
	}

	for _, id := range res.Result.Evicted {
		p, ok := last[id]
		if !ok {
			continue
		}
		events = append(events, Event{
			Type: EventTouchUp, TouchID: id, X: p.X, Y: p.Y,
			Frame: res.Frame, Timestamp: res.Timestamp,
		})
	}

	return events
}

// newestWithID searches from the end, where created fingers are appended.
func newestWithID(fingers []tracker.Finger, id int) (tracker.Finger, bool) {
	for i := len(fingers) - 1; i >= 0; i-- {
		if fingers[i].ID == id {
			return fingers[i], true
		}
	}
	return tracker.Finger{}, false
}
