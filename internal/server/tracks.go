package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/touchsurface/internal/app"
	"github.com/ayusman/touchsurface/internal/detector"
)

type trackResponse struct {
	ID      int                  `json:"id"`
	X       int                  `json:"x"`
	Y       int                  `json:"y"`
	Age     int                  `json:"age"`
	History []detector.Detection `json:"history"`
}

type tracksResponse struct {
	Frame     int             `json:"frame"`
	Tracks    []trackResponse `json:"tracks"`
	Created   []int           `json:"created,omitempty"`
	Evicted   []int           `json:"evicted,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func toTracksResponse(r app.FrameResult) tracksResponse {
	resp := tracksResponse{
		Frame:     r.Frame,
		Tracks:    make([]trackResponse, 0, len(r.Fingers)),
		Created:   r.Result.Created,
		Evicted:   r.Result.Evicted,
		Timestamp: r.Timestamp.UnixMilli(),
	}
	for _, f := range r.Fingers {
		last := f.Last()
		resp.Tracks = append(resp.Tracks, trackResponse{
			ID:      f.ID,
			X:       last.X,
			Y:       last.Y,
			Age:     f.Age,
			History: f.History,
		})
	}
	return resp
}

// TracksHandler serves the latest tracks as JSON.
type TracksHandler struct {
	feed *Feed
}

// NewTracksHandler creates a new TracksHandler reading from feed.
func NewTracksHandler(feed *Feed) *TracksHandler {
	return &TracksHandler{feed: feed}
}

// ServeHTTP handles GET /api/tracks. Before the first frame it returns an
// empty track list with frame -1.
func (h *TracksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	latest, ok := h.feed.Latest()
	resp := toTracksResponse(latest)
	if !ok {
		resp.Frame = -1
		resp.Timestamp = time.Now().UnixMilli()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}
