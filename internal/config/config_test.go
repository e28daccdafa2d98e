package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	cfg := DefaultConfig()
	cfg.Aggressiveness = 80
	cfg.MultiCapture = true
	cfg.DetectIntervalMS = 250
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Aggressiveness != 80 || !got.MultiCapture {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if got.Candidates() != MaxCandidatesMulti {
		t.Errorf("Candidates() = %d, want %d", got.Candidates(), MaxCandidatesMulti)
	}
	if got.DetectInterval() != 250*time.Millisecond {
		t.Errorf("DetectInterval() = %v", got.DetectInterval())
	}
}

func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if cfg == nil || cfg.MinIoU != 0.2 {
		t.Errorf("expected defaults alongside error, got %+v", cfg)
	}
}

func TestValidate_Clamps(t *testing.T) {
	cfg := &Config{
		Aggressiveness: 250,
		MaxCandidates:  40,
		MinIoU:         3,
		MinCorners:     9,
		HandleFraction: -1,
	}
	_ = cfg.Validate()

	if cfg.Aggressiveness != 100 {
		t.Errorf("Aggressiveness = %v, want 100", cfg.Aggressiveness)
	}
	if cfg.MaxCandidates != MaxCandidatesMulti {
		t.Errorf("MaxCandidates = %d", cfg.MaxCandidates)
	}
	if cfg.MinIoU != 0.2 || cfg.MinCorners != 3 {
		t.Errorf("tracking thresholds not reset: %v %d", cfg.MinIoU, cfg.MinCorners)
	}
	if cfg.AnalysisWidth != 320 || cfg.DetectEveryTicks != 6 || cfg.MinRegionSize != 40 {
		t.Errorf("zero values not defaulted: %+v", cfg)
	}
}
