// Package main provides a hook that appends touch events to a JSON lines
// file in its working directory. Build it next to hook.json:
//
//	go build -o hooks/touch-log/touch-log ./hooks/touch-log
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// LogFile is written in the hook directory.
const LogFile = "touch-log.jsonl"

// Event is the input from the hook dispatcher.
type Event struct {
	Type      string    `json:"type"`
	TouchID   int       `json:"touch_id"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Frame     int       `json:"frame"`
	Timestamp time.Time `json:"timestamp"`
}

// Response is the output to the hook dispatcher.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func main() {
	resp := handle(os.Stdin, LogFile)
	json.NewEncoder(os.Stdout).Encode(resp)
}

func handle(in io.Reader, path string) Response {
	var ev Event
	if err := json.NewDecoder(in).Decode(&ev); err != nil {
		return Response{Error: fmt.Sprintf("failed to decode event: %v", err)}
	}
	if ev.Type == "" {
		return Response{Error: "event type is required"}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return Response{Error: fmt.Sprintf("failed to open log: %v", err)}
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(ev); err != nil {
		return Response{Error: fmt.Sprintf("failed to write log: %v", err)}
	}

	return Response{Success: true}
}
