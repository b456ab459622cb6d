package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/helio-sim/driftsim/internal/device"
)

const (
	DefaultTMax          = 1.0
	DefaultVoltage       = 0.0
	DefaultMuIonic       = 1e-6
	DefaultMuElectronic  = 1e-2
	DefaultRelTol        = 1e-3
	DefaultMaxIterations = 100
	DefaultMaxSteps      = 200000
)

type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Stabilize StabilizeConfig `yaml:"stabilize"`
	Solver    SolverConfig    `yaml:"solver"`
}

type DeviceConfig struct {
	MuIonic        float64 `yaml:"mu_ionic"`
	MuElectronic   float64 `yaml:"mu_electronic"`
	AppliedVoltage float64 `yaml:"applied_voltage"`
	TMax           float64 `yaml:"tmax"`
	Analysis       bool    `yaml:"analysis"`
}

type StabilizeConfig struct {
	RelTol        float64 `yaml:"rtol"`
	MaxIterations int     `yaml:"max_iterations"`
	Force         bool    `yaml:"force"`
}

type SolverConfig struct {
	MaxSteps int `yaml:"max_steps"`
}

func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			MuIonic:        DefaultMuIonic,
			MuElectronic:   DefaultMuElectronic,
			AppliedVoltage: DefaultVoltage,
			TMax:           DefaultTMax,
			Analysis:       true,
		},
		Stabilize: StabilizeConfig{
			RelTol:        DefaultRelTol,
			MaxIterations: DefaultMaxIterations,
			Force:         true,
		},
		Solver: SolverConfig{
			MaxSteps: DefaultMaxSteps,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Device.MuIonic < 0 || c.Device.MuElectronic < 0 {
		return fmt.Errorf("mobilities must be non-negative")
	}
	if c.Device.TMax <= 0 {
		return fmt.Errorf("tmax must be positive, got %g", c.Device.TMax)
	}
	if c.Stabilize.RelTol <= 0 {
		return fmt.Errorf("rtol must be positive, got %g", c.Stabilize.RelTol)
	}
	return nil
}

// Params builds the initial parameter record for a run.
func (c *Config) Params() device.Params {
	return device.Params{
		TPoints:         10,
		Mesh:            device.MeshLog,
		AnalysisEnabled: c.Device.Analysis,
		AppliedVoltage:  c.Device.AppliedVoltage,
		MuIonic:         c.Device.MuIonic,
		MuElectronic:    c.Device.MuElectronic,
	}.WithHorizon(c.Device.TMax)
}
