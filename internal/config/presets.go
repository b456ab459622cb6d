package config

import "sort"

// Presets are named device setups covering the transport regimes the
// horizon estimator distinguishes.
var Presets = map[string]*Config{
	"perovskite": {
		Device: DeviceConfig{
			MuIonic: 1e-6, MuElectronic: 1e-2, AppliedVoltage: 0.8,
			TMax: 1.0, Analysis: true,
		},
		Stabilize: StabilizeConfig{RelTol: DefaultRelTol, MaxIterations: DefaultMaxIterations, Force: true},
		Solver:    SolverConfig{MaxSteps: DefaultMaxSteps},
	},
	"slow-ion": {
		Device: DeviceConfig{
			MuIonic: 1e-10, MuElectronic: 1e-2, AppliedVoltage: 0.6,
			TMax: 10.0, Analysis: true,
		},
		Stabilize: StabilizeConfig{RelTol: DefaultRelTol, MaxIterations: 200, Force: true},
		Solver:    SolverConfig{MaxSteps: DefaultMaxSteps},
	},
	"electronic": {
		Device: DeviceConfig{
			MuIonic: 0, MuElectronic: 1e-1, AppliedVoltage: 0.5,
			TMax: 1.0, Analysis: true,
		},
		Stabilize: StabilizeConfig{RelTol: DefaultRelTol, MaxIterations: DefaultMaxIterations, Force: true},
		Solver:    SolverConfig{MaxSteps: DefaultMaxSteps},
	},
	"dim-light": {
		Device: DeviceConfig{
			MuIonic: 0, MuElectronic: 1e-3, AppliedVoltage: 0.1,
			TMax: 0.1, Analysis: true,
		},
		Stabilize: StabilizeConfig{RelTol: 1e-4, MaxIterations: DefaultMaxIterations, Force: true},
		Solver:    SolverConfig{MaxSteps: DefaultMaxSteps},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
