// Package hook runs external executables when touches begin and end. Each
// hook lives in its own directory with a hook.json manifest and receives one
// JSON event on stdin per invocation.
package hook

import (
	"encoding/json"
	"time"
)

// Event types delivered to hooks.
const (
	EventTouchDown = "touch.down"
	EventTouchUp   = "touch.up"
)

// Manifest describes a hook and the events it wants.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Events      []string `json:"events"`
}

// Subscribes reports whether the manifest lists eventType. An empty list
// subscribes to every event.
func (m Manifest) Subscribes(eventType string) bool {
	if len(m.Events) == 0 {
		return true
	}
	for _, e := range m.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// Event is written to a hook's stdin.
type Event struct {
	Type      string    `json:"type"`
	TouchID   int       `json:"touch_id"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Frame     int       `json:"frame"`
	Timestamp time.Time `json:"timestamp"`
}

// Response is read from a hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}
