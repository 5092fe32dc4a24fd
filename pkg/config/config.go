// Package config provides configuration loading and management for
// fishstack. It handles loading configuration from YAML files and provides
// default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Experiment build parameters
	Experiment struct {
		// FOVs is the number of fields of view to build
		FOVs int `yaml:"fovs"`

		// Rounds is the number of imaging rounds
		Rounds int `yaml:"rounds"`

		// Channels is the number of fluorescence channels per round
		Channels int `yaml:"channels"`

		// ZPlanes is the number of z-planes; 0 builds a planar experiment
		ZPlanes int `yaml:"zplanes"`

		// TileWidth is the tile width in pixels
		TileWidth int `yaml:"tileWidth"`

		// TileHeight is the tile height in pixels
		TileHeight int `yaml:"tileHeight"`

		// Format is the tile pixel encoding, "png" or "f32.gz"
		Format string `yaml:"format"`

		// AuxImages lists auxiliary image types built alongside the primary
		AuxImages []string `yaml:"auxImages"`

		// Seed drives the synthetic tile generator
		Seed int64 `yaml:"seed"`

		// Pretty switches all manifests to indented JSON
		Pretty bool `yaml:"pretty"`
	} `yaml:"experiment"`

	// Projection parameters
	Projection struct {
		// Dims lists the axes to collapse, e.g. ["z"]
		Dims []string `yaml:"dims"`

		// Func is the reduction function name, e.g. "max" or "mean"
		Func string `yaml:"func"`

		// Source is the function registry Func is resolved from
		Source string `yaml:"source"`

		// Clip is the normalization method, "clip" or "scale_by_image"
		Clip string `yaml:"clip"`
	} `yaml:"projection"`

	// Filter parameters
	Filter struct {
		// HighPassSigma is the Gaussian high-pass sigma in pixels; 0 disables
		HighPassSigma float64 `yaml:"highPassSigma"`

		// LowPassSigma is the Gaussian low-pass sigma in pixels; 0 disables
		LowPassSigma float64 `yaml:"lowPassSigma"`
	} `yaml:"filter"`

	// Decode parameters
	Decode struct {
		// Threshold is the minimum peak intensity for a pixel to decode
		Threshold float64 `yaml:"threshold"`
	} `yaml:"decode"`

	// Output parameters
	Output struct {
		// SaveIntermediate saves plane renders after each pipeline stage
		SaveIntermediate bool `yaml:"saveIntermediate"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default experiment parameters
	cfg.Experiment.FOVs = 1
	cfg.Experiment.Rounds = 4
	cfg.Experiment.Channels = 4
	cfg.Experiment.ZPlanes = 3
	cfg.Experiment.TileWidth = 256
	cfg.Experiment.TileHeight = 256
	cfg.Experiment.Format = "png"
	cfg.Experiment.AuxImages = []string{"nuclei"}
	cfg.Experiment.Seed = 0
	cfg.Experiment.Pretty = true

	// Set default projection parameters
	cfg.Projection.Dims = []string{"z"}
	cfg.Projection.Func = "max"
	cfg.Projection.Source = "gonum"
	cfg.Projection.Clip = "clip"

	// Filters are off by default
	cfg.Filter.HighPassSigma = 0
	cfg.Filter.LowPassSigma = 0

	// Set default decode parameters
	cfg.Decode.Threshold = 0.5

	// Set default output parameters
	cfg.Output.SaveIntermediate = false
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
