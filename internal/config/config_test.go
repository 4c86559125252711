package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/touchsurface/internal/detector"
	"github.com/ayusman/touchsurface/internal/preprocess"
	"github.com/ayusman/touchsurface/internal/tracker"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "touchsurface.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

func TestDefault_MatchesStageDefaults(t *testing.T) {
	cfg := Default()

	if diff := cmp.Diff(preprocess.DefaultParams(), cfg.PreprocessParams()); diff != "" {
		t.Errorf("PreprocessParams() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(detector.DefaultConfig(), cfg.DetectorConfig()); diff != "" {
		t.Errorf("DetectorConfig() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(tracker.DefaultConfig(), cfg.TrackerConfig()); diff != "" {
		t.Errorf("TrackerConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
preprocess:
  threshold: 20
tracker:
  id_policy: monotonic
  match_policy: exclusive
  refresh_on_match: true
loop:
  video: clips/session.avi
server:
  addr: 127.0.0.1:9000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	threshold := float32(20)
	want.Preprocess.Threshold = &threshold
	want.Tracker.IDPolicy = IDPolicyMonotonic
	want.Tracker.MatchPolicy = MatchPolicyExclusive
	want.Tracker.RefreshOnMatch = true
	want.Loop.Video = "clips/session.avi"
	want.Server.Addr = "127.0.0.1:9000"

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	tc := cfg.TrackerConfig()
	if tc.IDPolicy != tracker.IDMonotonic || tc.MatchPolicy != tracker.MatchExclusive || !tc.RefreshOnMatch {
		t.Errorf("TrackerConfig() = %+v, want monotonic exclusive refreshing", tc)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name        string
		contents    string
		wantInvalid bool
	}{
		{name: "malformed yaml", contents: "preprocess: [", wantInvalid: false},
		{name: "zero kernel", contents: "preprocess:\n  wide_kernel: 0\n", wantInvalid: true},
		{name: "threshold above max", contents: "preprocess:\n  threshold: 300\n", wantInvalid: true},
		{name: "inverted area bounds", contents: "detector:\n  min_ellipse_area: 200\n", wantInvalid: true},
		{name: "too few contour points", contents: "detector:\n  min_contour_points: 3\n", wantInvalid: true},
		{name: "axis ratio below one", contents: "detector:\n  max_axis_ratio: 0.5\n", wantInvalid: true},
		{name: "unknown id policy", contents: "tracker:\n  id_policy: random\n", wantInvalid: true},
		{name: "unknown match policy", contents: "tracker:\n  match_policy: hungarian\n", wantInvalid: true},
		{name: "negative max age", contents: "tracker:\n  max_age: -1\n", wantInvalid: true},
		{name: "missing server address", contents: "server:\n  addr: \"\"\n", wantInvalid: true},
		{name: "negative hook queue", contents: "hooks:\n  queue_size: -1\n", wantInvalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.contents))
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if got := errors.Is(err, ErrInvalid); got != tt.wantInvalid {
				t.Errorf("errors.Is(err, ErrInvalid) = %v, want %v (err: %v)", got, tt.wantInvalid, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "touchsurface.yaml")

	cfg := Default()
	cfg.Detector.MaxEllipseArea = 220
	cfg.Store.Profile = "desk"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_Invalid(t *testing.T) {
	cfg := Default()
	cfg.Tracker.MaxAge = 0

	err := Save(cfg, filepath.Join(t.TempDir(), "bad.yaml"))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("Save() error = %v, want ErrInvalid", err)
	}
}

func TestPreprocessParams_Streaming(t *testing.T) {
	explicit := func(v float32) *float32 { return &v }
	tests := []struct {
		name      string
		threshold *float32
		want      float32
	}{
		{name: "unset threshold switches", threshold: nil, want: preprocess.StreamingThreshold},
		{name: "explicit threshold is kept", threshold: explicit(18), want: 18},
		{name: "explicit file default is kept", threshold: explicit(preprocess.DefaultThreshold), want: preprocess.DefaultThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Preprocess.Streaming = true
			cfg.Preprocess.Threshold = tt.threshold

			if got := cfg.PreprocessParams().Threshold; got != tt.want {
				t.Errorf("Threshold = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestLoad_ExplicitDefaultThresholdWithStreaming(t *testing.T) {
	path := writeFile(t, `
preprocess:
  threshold: 15
  streaming: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.PreprocessParams().Threshold; got != 15 {
		t.Errorf("Threshold = %g, want the explicit 15", got)
	}

	cfg.Preprocess.Threshold = nil
	if got := cfg.PreprocessParams().Threshold; got != preprocess.StreamingThreshold {
		t.Errorf("Threshold = %g, want %g once unset", got, preprocess.StreamingThreshold)
	}
}
