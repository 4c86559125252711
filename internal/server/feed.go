package server

import (
	"sync"

	"github.com/ayusman/touchsurface/internal/app"
)

// Feed keeps the latest frame result and fans it out to subscribers. It is
// registered with the frame loop as an observer.
type Feed struct {
	mu     sync.RWMutex
	latest app.FrameResult
	seen   bool
	subs   map[chan app.FrameResult]struct{}
}

// NewFeed creates an empty Feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[chan app.FrameResult]struct{})}
}

// Observe stores r and offers it to every subscriber. Slow subscribers
// lose the older pending result rather than blocking the loop.
func (f *Feed) Observe(r app.FrameResult) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.latest = r
	f.seen = true

	for ch := range f.subs {
		select {
		case ch <- r:
		default:
			// Drop the stale result and retry once
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- r:
			default:
			}
		}
	}
}

// Latest returns the most recent result and whether there has been one.
func (f *Feed) Latest() (app.FrameResult, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest, f.seen
}

// Subscribe returns a channel of results and a function that cancels the
// subscription.
func (f *Feed) Subscribe() (<-chan app.FrameResult, func()) {
	ch := make(chan app.FrameResult, 1)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	return ch, func() {
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
	}
}

// Subscribers returns the number of active subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
