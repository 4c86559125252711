// Package tracker follows touch points across frames, giving each one a
// stable integer identity for as long as it keeps being seen nearby.
package tracker

import "github.com/ayusman/touchsurface/internal/detector"

// Finger is one tracked touch point.
type Finger struct {
	// ID is unique among live fingers under IDMonotonic. Under IDFromSize
	// it is the collection size at creation and may repeat after evictions.
	ID int `json:"id"`

	// History holds every position the finger was seen at, oldest first.
	// It is never empty.
	History []detector.Detection `json:"history"`

	// Age counts frames since creation (or since the last match when
	// RefreshOnMatch is set). A finger already at MaxAge is evicted on the
	// next aging pass.
	Age int `json:"age"`
}

func newFinger(id int, d detector.Detection) *Finger {
	return &Finger{
		ID:      id,
		History: []detector.Detection{d},
		Age:     0,
	}
}

// Last returns the most recent known position.
func (f *Finger) Last() detector.Detection {
	return f.History[len(f.History)-1]
}

// clone returns a deep copy of f.
func (f *Finger) clone() Finger {
	history := make([]detector.Detection, len(f.History))
	copy(history, f.History)
	return Finger{ID: f.ID, History: history, Age: f.Age}
}
