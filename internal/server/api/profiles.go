// Package api provides HTTP API handlers for touchsurface tuning profiles.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/touchsurface/internal/config"
	"github.com/ayusman/touchsurface/internal/store"
)

// ProfileHandler handles HTTP requests for profile resources.
type ProfileHandler struct {
	store *store.Store
}

// NewProfileHandler creates a new ProfileHandler with the given store.
func NewProfileHandler(s *store.Store) *ProfileHandler {
	return &ProfileHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/profiles, /api/profiles/active,
	// /api/profiles/{id} and /api/profiles/{id}/activate
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if path == "active" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.active(w, r)
		return
	}

	if id, ok := strings.CutSuffix(path, "/activate"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, id)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

// profileRequest carries optional fields; nil keeps the current or default value.
type profileRequest struct {
	Name            string   `json:"name"`
	Threshold       *float64 `json:"threshold"`
	MinContourArea  *float64 `json:"min_contour_area"`
	MinEllipseArea  *float64 `json:"min_ellipse_area"`
	MaxEllipseArea  *float64 `json:"max_ellipse_area"`
	MaxAxisRatio    *float64 `json:"max_axis_ratio"`
	MatchDistanceSq *int     `json:"match_distance_sq"`
}

type profileResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Threshold       float64 `json:"threshold"`
	MinContourArea  float64 `json:"min_contour_area"`
	MinEllipseArea  float64 `json:"min_ellipse_area"`
	MaxEllipseArea  float64 `json:"max_ellipse_area"`
	MaxAxisRatio    float64 `json:"max_axis_ratio"`
	MatchDistanceSq int     `json:"match_distance_sq"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toResponse converts a store.Profile to a profileResponse.
func toResponse(p *store.Profile) profileResponse {
	return profileResponse{
		ID:              p.ID,
		Name:            p.Name,
		Threshold:       p.Threshold,
		MinContourArea:  p.MinContourArea,
		MinEllipseArea:  p.MinEllipseArea,
		MaxEllipseArea:  p.MaxEllipseArea,
		MaxAxisRatio:    p.MaxAxisRatio,
		MatchDistanceSq: p.MatchDistanceSq,
		CreatedAt:       p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:       p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// apply copies the set fields of req onto p.
func (req profileRequest) apply(p *store.Profile) {
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Threshold != nil {
		p.Threshold = *req.Threshold
	}
	if req.MinContourArea != nil {
		p.MinContourArea = *req.MinContourArea
	}
	if req.MinEllipseArea != nil {
		p.MinEllipseArea = *req.MinEllipseArea
	}
	if req.MaxEllipseArea != nil {
		p.MaxEllipseArea = *req.MaxEllipseArea
	}
	if req.MaxAxisRatio != nil {
		p.MaxAxisRatio = *req.MaxAxisRatio
	}
	if req.MatchDistanceSq != nil {
		p.MatchDistanceSq = *req.MatchDistanceSq
	}
}

// validate checks p by applying it to the default configuration.
func validate(p *store.Profile) error {
	cfg := config.Default()
	p.ApplyTo(&cfg)
	return cfg.Validate()
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/profiles and returns all profiles.
func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	response := listProfilesResponse{
		Profiles: make([]profileResponse, 0, len(profiles)),
	}

	for _, p := range profiles {
		response.Profiles = append(response.Profiles, toResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/profiles/{id} and returns a single profile.
func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(profile))
}

// create handles POST /api/profiles. Omitted values default to the
// built-in configuration.
func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate required fields
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	profile := store.ProfileFromConfig(uuid.New().String(), req.Name, config.Default())
	req.apply(profile)

	if err := validate(profile); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.Profiles().GetByName(profile.Name); err == nil {
		writeError(w, http.StatusConflict, "Profile name already exists")
		return
	}

	if err := h.store.Profiles().Create(profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(profile))
}

// update handles PUT /api/profiles/{id} and updates an existing profile.
func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	oldName := profile.Name
	req.apply(profile)
	if err := validate(profile); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if profile.Name != oldName {
		if _, err := h.store.Profiles().GetByName(profile.Name); err == nil {
			writeError(w, http.StatusConflict, "Profile name already exists")
			return
		}
	}

	if err := h.store.Profiles().Update(profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	// Keep the active setting pointing at the renamed profile
	if profile.Name != oldName {
		if active, err := h.store.Settings().Get(store.SettingActiveProfile); err == nil && active == oldName {
			h.store.Settings().Set(store.SettingActiveProfile, profile.Name)
		}
	}

	writeJSON(w, http.StatusOK, toResponse(profile))
}

// delete handles DELETE /api/profiles/{id} and removes a profile.
func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	if err := h.store.Profiles().Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}

	// A deleted profile cannot stay active
	if active, err := h.store.Settings().Get(store.SettingActiveProfile); err == nil && active == profile.Name {
		h.store.Settings().Delete(store.SettingActiveProfile)
	}

	w.WriteHeader(http.StatusNoContent)
}

// activate handles POST /api/profiles/{id}/activate. The active profile is
// applied on the next start.
func (h *ProfileHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	if err := h.store.Settings().Set(store.SettingActiveProfile, profile.Name); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to activate profile")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(profile))
}

// active handles GET /api/profiles/active.
func (h *ProfileHandler) active(w http.ResponseWriter, r *http.Request) {
	name, err := h.store.Settings().Get(store.SettingActiveProfile)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No active profile")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get active profile")
		return
	}

	profile, err := h.store.Profiles().GetByName(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No active profile")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get active profile")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(profile))
}
