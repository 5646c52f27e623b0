// Package config provides configuration loading and management for the
// propagation tools. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the simulation configuration loaded from YAML
type Config struct {
	// Grid parameters
	Grid struct {
		// Dims is the number of samples along each axis of the square grid
		Dims int `yaml:"dims"`

		// Extent is the physical side length of the grid in meters
		Extent float64 `yaml:"extent"`
	} `yaml:"grid"`

	// Beam parameters
	Beam struct {
		// Wavelengths lists the wavelengths to simulate, in meters
		Wavelengths []float64 `yaml:"wavelengths"`

		// WaistRadius is the 1/e amplitude radius of the Gaussian beam in meters
		WaistRadius float64 `yaml:"waistRadius"`
	} `yaml:"beam"`

	// Propagation parameters
	Propagation struct {
		// Distances lists the propagation distances to sweep, in meters
		Distances []float64 `yaml:"distances"`

		// NumOversampling is the transfer-function supersampling factor
		NumOversampling int `yaml:"numOversampling"`

		// RefractiveIndex of the propagation medium
		RefractiveIndex float64 `yaml:"refractiveIndex"`
	} `yaml:"propagation"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default grid parameters: a 256x256 grid over 10 mm
	cfg.Grid.Dims = 256
	cfg.Grid.Extent = 10e-3

	// Set default beam parameters: a 1 mm waist at 633 nm
	cfg.Beam.Wavelengths = []float64{633e-9}
	cfg.Beam.WaistRadius = 1e-3

	// Set default propagation parameters
	cfg.Propagation.Distances = []float64{0.01, 0.1, 1.0}
	cfg.Propagation.NumOversampling = 2
	cfg.Propagation.RefractiveIndex = 1.0

	// Set default output parameters
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
