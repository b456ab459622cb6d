package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Device.TMax <= 0 {
		t.Error("tmax should be positive")
	}
	if cfg.Stabilize.RelTol != 1e-3 {
		t.Errorf("rtol = %g, want 1e-3", cfg.Stabilize.RelTol)
	}
	if !cfg.Stabilize.Force {
		t.Error("stabilization should be forced by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestParamsDerivation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device.TMax = 2.5
	cfg.Device.AppliedVoltage = 0.7

	par := cfg.Params()
	if par.TMax != 2.5 {
		t.Errorf("tmax = %g, want 2.5", par.TMax)
	}
	if par.T0 != 2.5/1e8 {
		t.Errorf("t0 = %g, want tmax/1e8", par.T0)
	}
	if par.TPoints != 10 {
		t.Errorf("tpoints = %d, want 10", par.TPoints)
	}
	if par.AppliedVoltage != 0.7 {
		t.Errorf("vapp = %g, want 0.7", par.AppliedVoltage)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Device.MuIonic = 3e-7
	cfg.Stabilize.MaxIterations = 42

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Device.MuIonic != 3e-7 {
		t.Errorf("mu_ionic = %g, want 3e-7", loaded.Device.MuIonic)
	}
	if loaded.Stabilize.MaxIterations != 42 {
		t.Errorf("max_iterations = %d, want 42", loaded.Stabilize.MaxIterations)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative mobility", func(c *Config) { c.Device.MuIonic = -1 }},
		{"zero tmax", func(c *Config) { c.Device.TMax = 0 }},
		{"zero rtol", func(c *Config) { c.Stabilize.RelTol = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("electronic")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Device.MuIonic != 0 {
		t.Errorf("electronic preset should disable ionic transport, got %g", cfg.Device.MuIonic)
	}

	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}

	if len(ListPresets()) == 0 {
		t.Error("expected at least one preset")
	}
}
