package tracker

import (
	"sort"

	"github.com/ayusman/touchsurface/internal/detector"
)

// Tracker defaults.
const (
	// DefaultMatchDistanceSq is the squared distance below which a detection
	// continues an existing finger (10 px).
	DefaultMatchDistanceSq = 100
	// DefaultMaxAge is the age at which a finger is evicted.
	DefaultMaxAge = 4
)

// IDPolicy selects how new fingers get their ID.
type IDPolicy int

const (
	// IDFromSize uses the number of live fingers at creation time. IDs can
	// repeat once fingers have been evicted.
	IDFromSize IDPolicy = iota
	// IDMonotonic uses a counter that never goes back, so IDs are unique
	// for the lifetime of the tracker.
	IDMonotonic
)

// MatchPolicy selects how detections are associated with fingers.
type MatchPolicy int

const (
	// MatchNearest matches every detection to its nearest finger
	// independently. Several detections may extend the same finger.
	MatchNearest MatchPolicy = iota
	// MatchExclusive assigns pairs greedily by ascending distance so each
	// finger takes at most one detection per frame. Detections that lose
	// their finger become new fingers.
	MatchExclusive
)

// Config holds tracker options.
type Config struct {
	MatchDistanceSq int
	MaxAge          int
	IDPolicy        IDPolicy
	MatchPolicy     MatchPolicy

	// RefreshOnMatch resets a matched finger's age to zero before aging,
	// so continuously seen fingers are never evicted.
	RefreshOnMatch bool
}

// DefaultConfig returns the source-compatible configuration.
func DefaultConfig() Config {
	return Config{
		MatchDistanceSq: DefaultMatchDistanceSq,
		MaxAge:          DefaultMaxAge,
		IDPolicy:        IDFromSize,
		MatchPolicy:     MatchNearest,
	}
}

// UpdateResult summarizes what one Update call changed.
type UpdateResult struct {
	Created []int `json:"created"`
	Matched []int `json:"matched"`
	Evicted []int `json:"evicted"`
}

// Tracker owns the set of live fingers. It is not safe for concurrent use;
// the frame loop is its only caller.
type Tracker struct {
	config  Config
	fingers []*Finger
	nextID  int
}

// New creates an empty Tracker. Non-positive distance or age fall back to
// the defaults.
func New(config Config) *Tracker {
	if config.MatchDistanceSq <= 0 {
		config.MatchDistanceSq = DefaultMatchDistanceSq
	}
	if config.MaxAge <= 0 {
		config.MaxAge = DefaultMaxAge
	}
	return &Tracker{config: config}
}

// Config returns the options in use.
func (t *Tracker) Config() Config {
	return t.config
}

// Len returns the number of live fingers.
func (t *Tracker) Len() int {
	return len(t.fingers)
}

// Fingers returns a deep copy of the live fingers in collection order.
func (t *Tracker) Fingers() []Finger {
	out := make([]Finger, len(t.fingers))
	for i, f := range t.fingers {
		out[i] = f.clone()
	}
	return out
}

// Reset drops every finger and restarts ID assignment.
func (t *Tracker) Reset() {
	t.fingers = nil
	t.nextID = 0
}

// Update folds one frame of detections into the tracker.
//
// With no live fingers every detection starts a new finger and nothing is
// aged. Otherwise the update runs in three phases:
// 1. Associate each detection with a finger using a snapshot of last positions
// 2. Append matched detections and create fingers for the unmatched ones
// 3. Age every live finger, evicting those already at MaxAge
func (t *Tracker) Update(detections []detector.Detection) UpdateResult {
	var result UpdateResult

	if len(t.fingers) == 0 {
		for _, d := range detections {
			f := newFinger(t.assignID(), d)
			t.fingers = append(t.fingers, f)
			result.Created = append(result.Created, f.ID)
		}
		return result
	}

	last := make([]detector.Detection, len(t.fingers))
	for i, f := range t.fingers {
		last[i] = f.Last()
	}

	var matches []int
	if t.config.MatchPolicy == MatchExclusive {
		matches = t.associateExclusive(detections, last)
	} else {
		matches = t.associateNearest(detections, last)
	}

	matched := make(map[*Finger]bool)
	for i, d := range detections {
		j := matches[i]
		if j < 0 {
			f := newFinger(t.assignID(), d)
			t.fingers = append(t.fingers, f)
			result.Created = append(result.Created, f.ID)
			continue
		}

		f := t.fingers[j]
		f.History = append(f.History, d)
		if !matched[f] {
			matched[f] = true
			result.Matched = append(result.Matched, f.ID)
		}
	}

	live := make([]*Finger, 0, len(t.fingers))
	for _, f := range t.fingers {
		if t.config.RefreshOnMatch && matched[f] {
			f.Age = 0
		}
		if f.Age >= t.config.MaxAge {
			result.Evicted = append(result.Evicted, f.ID)
			continue
		}
		f.Age++
		live = append(live, f)
	}
	t.fingers = live

	return result
}

// associateNearest returns, per detection, the index of the nearest finger
// within the match distance, or -1. Ties go to the earliest finger.
func (t *Tracker) associateNearest(detections, last []detector.Detection) []int {
	matches := make([]int, len(detections))
	for i, d := range detections {
		best, bestDist := -1, 0
		for j, p := range last {
			dist := d.DistanceSq(p)
			if best == -1 || dist < bestDist {
				best, bestDist = j, dist
			}
		}
		if best != -1 && bestDist >= t.config.MatchDistanceSq {
			best = -1
		}
		matches[i] = best
	}
	return matches
}

type candidate struct {
	detection int
	finger    int
	dist      int
}

// associateExclusive assigns detection/finger pairs in ascending distance,
// using each finger and each detection at most once.
func (t *Tracker) associateExclusive(detections, last []detector.Detection) []int {
	var pairs []candidate
	for i, d := range detections {
		for j, p := range last {
			if dist := d.DistanceSq(p); dist < t.config.MatchDistanceSq {
				pairs = append(pairs, candidate{detection: i, finger: j, dist: dist})
			}
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool { return pairs[a].dist < pairs[b].dist })

	matches := make([]int, len(detections))
	for i := range matches {
		matches[i] = -1
	}
	taken := make([]bool, len(last))
	for _, c := range pairs {
		if matches[c.detection] != -1 || taken[c.finger] {
			continue
		}
		matches[c.detection] = c.finger
		taken[c.finger] = true
	}
	return matches
}

func (t *Tracker) assignID() int {
	if t.config.IDPolicy == IDMonotonic {
		id := t.nextID
		t.nextID++
		return id
	}
	return len(t.fingers)
}
