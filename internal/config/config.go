package config

import (
	"encoding/json"
	"os"
	"time"
)

// Limits for the candidate cap.
const (
	MaxCandidatesSingle = 1
	MaxCandidatesMulti  = 8
)

// Config holds runtime configuration for detection, tracking and editing.
// Fields may be loaded from a JSON file and overridden by command-line flags.
type Config struct {
	Debug bool `json:"debug"`

	// Detection
	Aggressiveness   float64 `json:"aggressiveness"`
	MaxCandidates    int     `json:"max_candidates"`
	MultiCapture     bool    `json:"multi_capture"`
	AnalysisWidth    int     `json:"analysis_width"`
	WeightByContrast bool    `json:"weight_by_contrast"`
	DetectEveryTicks int     `json:"detect_every_ticks"`
	DetectIntervalMS int     `json:"detect_interval_ms"`

	// Tracking
	MinIoU        float64 `json:"min_iou"`
	MinCorners    int     `json:"min_corners"`
	AutoLock      bool    `json:"auto_lock"`
	PinManual     bool    `json:"pin_manual"`
	DefaultOnLoss bool    `json:"default_on_loss"`

	// Editing
	MinRegionSize  float64 `json:"min_region_size"`
	HandleFraction float64 `json:"handle_fraction"`
	HandleMinSize  float64 `json:"handle_min_size"`

	// Host
	ListenAddr string `json:"listen_addr"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:            false,
		Aggressiveness:   50,
		MaxCandidates:    MaxCandidatesSingle,
		MultiCapture:     false,
		AnalysisWidth:    320,
		WeightByContrast: false,
		DetectEveryTicks: 6,
		DetectIntervalMS: 0,
		MinIoU:           0.2,
		MinCorners:       3,
		AutoLock:         true,
		PinManual:        true,
		DefaultOnLoss:    false,
		MinRegionSize:    40,
		HandleFraction:   1.0 / 36.0,
		HandleMinSize:    12,
		ListenAddr:       ":8090",
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.Aggressiveness < 0 {
		c.Aggressiveness = 0
	}
	if c.Aggressiveness > 100 {
		c.Aggressiveness = 100
	}
	if c.MaxCandidates < 1 {
		c.MaxCandidates = MaxCandidatesSingle
	}
	if c.MaxCandidates > MaxCandidatesMulti {
		c.MaxCandidates = MaxCandidatesMulti
	}
	if c.AnalysisWidth < 32 {
		c.AnalysisWidth = 320
	}
	if c.DetectEveryTicks < 1 {
		c.DetectEveryTicks = 6
	}
	if c.DetectIntervalMS < 0 {
		c.DetectIntervalMS = 0
	}
	if c.MinIoU <= 0 || c.MinIoU >= 1 {
		c.MinIoU = 0.2
	}
	if c.MinCorners < 1 || c.MinCorners > 4 {
		c.MinCorners = 3
	}
	if c.MinRegionSize <= 0 {
		c.MinRegionSize = 40
	}
	if c.HandleFraction <= 0 || c.HandleFraction > 0.5 {
		c.HandleFraction = 1.0 / 36.0
	}
	if c.HandleMinSize <= 0 {
		c.HandleMinSize = 12
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8090"
	}
	return nil
}

// Candidates is the effective candidate cap; multi-frame capture raises it
// to the maximum.
func (c *Config) Candidates() int {
	if c.MultiCapture {
		return MaxCandidatesMulti
	}
	return c.MaxCandidates
}

// DetectInterval is zero when detection cadence is tick based.
func (c *Config) DetectInterval() time.Duration {
	return time.Duration(c.DetectIntervalMS) * time.Millisecond
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return DefaultConfig(), err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
