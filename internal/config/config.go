// Package config loads touchsurface settings from YAML and converts them into
// the options of each pipeline stage.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/touchsurface/internal/detector"
	"github.com/ayusman/touchsurface/internal/preprocess"
	"github.com/ayusman/touchsurface/internal/tracker"
)

// ErrInvalid is returned when a configuration value is out of range.
var ErrInvalid = errors.New("invalid configuration")

// Tracker policy names accepted in YAML.
const (
	IDPolicySize         = "size"
	IDPolicyMonotonic    = "monotonic"
	MatchPolicyNearest   = "nearest"
	MatchPolicyExclusive = "exclusive"
)

// Config is the full application configuration.
type Config struct {
	Preprocess PreprocessConfig `yaml:"preprocess" json:"preprocess"`
	Detector   DetectorConfig   `yaml:"detector" json:"detector"`
	Tracker    TrackerConfig    `yaml:"tracker" json:"tracker"`
	Loop       LoopConfig       `yaml:"loop" json:"loop"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Hooks      HooksConfig      `yaml:"hooks" json:"hooks"`
}

type PreprocessConfig struct {
	WideKernel   int     `yaml:"wide_kernel" json:"wide_kernel"`
	MediumKernel int     `yaml:"medium_kernel" json:"medium_kernel"`
	SmallKernel  int     `yaml:"small_kernel" json:"small_kernel"`
	// Threshold is nil unless set explicitly; see EffectiveThreshold.
	Threshold *float32 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	// Streaming switches to the lower threshold used for live feeds when
	// Threshold is nil.
	Streaming bool `yaml:"streaming" json:"streaming"`
}

// EffectiveThreshold returns the explicit threshold if one is set, else the
// streaming or file default.
func (p PreprocessConfig) EffectiveThreshold() float32 {
	switch {
	case p.Threshold != nil:
		return *p.Threshold
	case p.Streaming:
		return preprocess.StreamingThreshold
	default:
		return preprocess.DefaultThreshold
	}
}

type DetectorConfig struct {
	MinContourArea   float64 `yaml:"min_contour_area" json:"min_contour_area"`
	MinContourPoints int     `yaml:"min_contour_points" json:"min_contour_points"`
	MaxAxisRatio     float64 `yaml:"max_axis_ratio" json:"max_axis_ratio"`
	MinEllipseArea   float64 `yaml:"min_ellipse_area" json:"min_ellipse_area"`
	MaxEllipseArea   float64 `yaml:"max_ellipse_area" json:"max_ellipse_area"`
}

type TrackerConfig struct {
	MatchDistanceSq int    `yaml:"match_distance_sq" json:"match_distance_sq"`
	MaxAge          int    `yaml:"max_age" json:"max_age"`
	IDPolicy        string `yaml:"id_policy" json:"id_policy"`
	MatchPolicy     string `yaml:"match_policy" json:"match_policy"`
	RefreshOnMatch  bool   `yaml:"refresh_on_match" json:"refresh_on_match"`
}

type LoopConfig struct {
	Background string `yaml:"background" json:"background"`
	Video      string `yaml:"video" json:"video"`
	WindowName string `yaml:"window_name" json:"window_name"`
	// WaitMs is the per-frame key wait and so the frame pacing.
	WaitMs   int  `yaml:"wait_ms" json:"wait_ms"`
	Headless bool `yaml:"headless" json:"headless"`
	Verbose  bool `yaml:"verbose" json:"verbose"`
}

type ServerConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	WebDir  string `yaml:"web_dir" json:"web_dir"`
	// JPEGQuality is used for the MJPEG stream and WebSocket previews.
	JPEGQuality int `yaml:"jpeg_quality" json:"jpeg_quality"`
}

type StoreConfig struct {
	Path    string `yaml:"path" json:"path"`
	Profile string `yaml:"profile" json:"profile"`
}

// HooksConfig locates touch event hooks. An empty Dir disables them.
type HooksConfig struct {
	Dir       string `yaml:"dir" json:"dir"`
	TimeoutMs int    `yaml:"timeout_ms" json:"timeout_ms"`
	QueueSize int    `yaml:"queue_size" json:"queue_size"`
}

// Default returns the built-in configuration.
func Default() Config {
	pp := preprocess.DefaultParams()
	dc := detector.DefaultConfig()
	tc := tracker.DefaultConfig()

	return Config{
		Preprocess: PreprocessConfig{
			WideKernel:   pp.WideKernel,
			MediumKernel: pp.MediumKernel,
			SmallKernel:  pp.SmallKernel,
		},
		Detector: DetectorConfig{
			MinContourArea:   dc.MinContourArea,
			MinContourPoints: dc.MinContourPoints,
			MaxAxisRatio:     dc.MaxAxisRatio,
			MinEllipseArea:   dc.MinEllipseArea,
			MaxEllipseArea:   dc.MaxEllipseArea,
		},
		Tracker: TrackerConfig{
			MatchDistanceSq: tc.MatchDistanceSq,
			MaxAge:          tc.MaxAge,
			IDPolicy:        IDPolicySize,
			MatchPolicy:     MatchPolicyNearest,
		},
		Loop: LoopConfig{
			Background: "background.png",
			Video:      "touch.avi",
			WindowName: "touchsurface",
			WaitMs:     30,
		},
		Server: ServerConfig{
			Enabled:     true,
			Addr:        ":8080",
			JPEGQuality: 80,
		},
		Hooks: HooksConfig{
			TimeoutMs: 2000,
			QueueSize: 64,
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result. Keys missing from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("loaded config is invalid: %w", err)
	}

	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(cfg Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks that every value is usable.
func (c Config) Validate() error {
	p := c.Preprocess
	if p.WideKernel <= 0 || p.MediumKernel <= 0 || p.SmallKernel <= 0 {
		return fmt.Errorf("%w: blur kernels must be positive (%d, %d, %d)", ErrInvalid, p.WideKernel, p.MediumKernel, p.SmallKernel)
	}
	if th := p.EffectiveThreshold(); th < 0 || th > preprocess.MaxValue {
		return fmt.Errorf("%w: threshold %g out of range [0, %d]", ErrInvalid, th, preprocess.MaxValue)
	}

	d := c.Detector
	if d.MinContourArea < 0 {
		return fmt.Errorf("%w: min contour area must not be negative", ErrInvalid)
	}
	if d.MinContourPoints < 5 {
		return fmt.Errorf("%w: min contour points %d is below the five an ellipse fit needs", ErrInvalid, d.MinContourPoints)
	}
	if d.MaxAxisRatio < 1 {
		return fmt.Errorf("%w: max axis ratio %g must be at least 1", ErrInvalid, d.MaxAxisRatio)
	}
	if d.MinEllipseArea < 0 || d.MaxEllipseArea < d.MinEllipseArea {
		return fmt.Errorf("%w: ellipse area bounds [%g, %g]", ErrInvalid, d.MinEllipseArea, d.MaxEllipseArea)
	}

	t := c.Tracker
	if t.MatchDistanceSq <= 0 {
		return fmt.Errorf("%w: match distance must be positive", ErrInvalid)
	}
	if t.MaxAge <= 0 {
		return fmt.Errorf("%w: max age must be positive", ErrInvalid)
	}
	if _, err := parseIDPolicy(t.IDPolicy); err != nil {
		return err
	}
	if _, err := parseMatchPolicy(t.MatchPolicy); err != nil {
		return err
	}

	if c.Loop.WaitMs < 0 {
		return fmt.Errorf("%w: wait must not be negative", ErrInvalid)
	}
	if c.Server.JPEGQuality < 1 || c.Server.JPEGQuality > 100 {
		return fmt.Errorf("%w: jpeg quality %d out of range [1, 100]", ErrInvalid, c.Server.JPEGQuality)
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("%w: server address is required", ErrInvalid)
	}
	if c.Hooks.TimeoutMs < 0 || c.Hooks.QueueSize < 0 {
		return fmt.Errorf("%w: hook timeout and queue size must not be negative", ErrInvalid)
	}

	return nil
}

// PreprocessParams returns the preprocessor options.
func (c Config) PreprocessParams() preprocess.Params {
	return preprocess.Params{
		WideKernel:   c.Preprocess.WideKernel,
		MediumKernel: c.Preprocess.MediumKernel,
		SmallKernel:  c.Preprocess.SmallKernel,
		Threshold:    c.Preprocess.EffectiveThreshold(),
	}
}

// DetectorConfig returns the detector filters.
func (c Config) DetectorConfig() detector.Config {
	return detector.Config{
		MinContourArea:   c.Detector.MinContourArea,
		MinContourPoints: c.Detector.MinContourPoints,
		MaxAxisRatio:     c.Detector.MaxAxisRatio,
		MinEllipseArea:   c.Detector.MinEllipseArea,
		MaxEllipseArea:   c.Detector.MaxEllipseArea,
	}
}

// TrackerConfig returns the tracker options. Unknown policy names fall back
// to the defaults; Validate reports them.
func (c Config) TrackerConfig() tracker.Config {
	idPolicy, _ := parseIDPolicy(c.Tracker.IDPolicy)
	matchPolicy, _ := parseMatchPolicy(c.Tracker.MatchPolicy)
	return tracker.Config{
		MatchDistanceSq: c.Tracker.MatchDistanceSq,
		MaxAge:          c.Tracker.MaxAge,
		IDPolicy:        idPolicy,
		MatchPolicy:     matchPolicy,
		RefreshOnMatch:  c.Tracker.RefreshOnMatch,
	}
}

func parseIDPolicy(name string) (tracker.IDPolicy, error) {
	switch name {
	case IDPolicySize, "":
		return tracker.IDFromSize, nil
	case IDPolicyMonotonic:
		return tracker.IDMonotonic, nil
	}
	return tracker.IDFromSize, fmt.Errorf("%w: unknown id policy %q", ErrInvalid, name)
}

func parseMatchPolicy(name string) (tracker.MatchPolicy, error) {
	switch name {
	case MatchPolicyNearest, "":
		return tracker.MatchNearest, nil
	case MatchPolicyExclusive:
		return tracker.MatchExclusive, nil
	}
	return tracker.MatchNearest, fmt.Errorf("%w: unknown match policy %q", ErrInvalid, name)
}
