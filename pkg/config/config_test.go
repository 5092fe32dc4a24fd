package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Experiment.Rounds != 4 || cfg.Experiment.Channels != 4 {
		t.Errorf("default experiment geometry = %dx%d, want 4x4",
			cfg.Experiment.Rounds, cfg.Experiment.Channels)
	}
	if cfg.Experiment.Format != "png" {
		t.Errorf("default format = %q, want png", cfg.Experiment.Format)
	}
	if cfg.Projection.Func != "max" || cfg.Projection.Source != "gonum" {
		t.Errorf("default projection = %s from %s, want max from gonum",
			cfg.Projection.Func, cfg.Projection.Source)
	}
	if cfg.Filter.HighPassSigma != 0 || cfg.Filter.LowPassSigma != 0 {
		t.Error("filters should be off by default")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig should fall back to defaults, got error: %v", err)
	}
	if cfg.Experiment.Rounds != DefaultConfig().Experiment.Rounds {
		t.Error("missing config file should yield defaults")
	}
}

func TestLoadConfigPartialOverride(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, "config.yaml")
	partial := []byte("experiment:\n  rounds: 6\nprojection:\n  func: mean\n")
	if err := os.WriteFile(configPath, partial, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Experiment.Rounds != 6 {
		t.Errorf("rounds = %d, want the override 6", cfg.Experiment.Rounds)
	}
	if cfg.Experiment.Channels != 4 {
		t.Errorf("channels = %d, want the default 4", cfg.Experiment.Channels)
	}
	if cfg.Projection.Func != "mean" {
		t.Errorf("projection func = %q, want the override mean", cfg.Projection.Func)
	}
	if cfg.Projection.Clip != "clip" {
		t.Errorf("projection clip = %q, want the default clip", cfg.Projection.Clip)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	cfg := DefaultConfig()
	cfg.Experiment.ZPlanes = 7
	cfg.Output.Verbose = false

	configPath := filepath.Join(tempDir, "nested", "config.yaml")
	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Experiment.ZPlanes != 7 {
		t.Errorf("zplanes = %d, want 7", loaded.Experiment.ZPlanes)
	}
	if loaded.Output.Verbose {
		t.Error("verbose should round-trip as false")
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, "config.yaml")
	if err := CreateDefaultConfigFile(configPath); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}
}
