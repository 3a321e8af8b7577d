package main

import (
	"flag"
	"testing"

	"github.com/banshee-data/powerguard/internal/config"
	"github.com/banshee-data/powerguard/internal/fsutil"
	"github.com/banshee-data/powerguard/internal/hal"
)

func TestFlagDefaults(t *testing.T) {
	tests := []struct {
		name string
		got  *string
		want string
	}{
		{"port", port, "/dev/ttyS0"},
		{"config", configFile, config.DefaultConfigPath},
		{"model", modelFile, ""},
		{"scenario", scenario, "normal"},
		{"display-png", displayPNG, ""},
		{"env", envFile, ".env"},
	}
	for _, tc := range tests {
		if tc.got == nil {
			t.Fatalf("%s flag not defined", tc.name)
		}
		if *tc.got != tc.want {
			t.Errorf("-%s default = %q, want %q", tc.name, *tc.got, tc.want)
		}
	}
	if showVer == nil || *showVer {
		t.Error("-version should default to false")
	}
}

func newFlagSet(args ...string) (*flag.FlagSet, map[string]*string) {
	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	vals := map[string]*string{}
	for name := range envFlags {
		vals[name] = fset.String(name, "default-"+name, "")
	}
	fset.Parse(args)
	return fset, vals
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"POWERGUARD_PORT":     "/dev/ttyUSB0",
		"POWERGUARD_SCENARIO": "bypass",
		"POWERGUARD_MODEL":    "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	fset, vals := newFlagSet("-scenario", "overload")
	if err := applyEnv(fset, lookup); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}

	want := map[string]string{
		"port":     "/dev/ttyUSB0",   // from env
		"scenario": "overload",       // command line wins
		"model":    "default-model",  // empty env value ignored
		"config":   "default-config", // unset
	}
	for name, w := range want {
		if got := *vals[name]; got != w {
			t.Errorf("%s = %q, want %q", name, got, w)
		}
	}
}

func TestLoadModel(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	cfg := config.EmptyDeviceConfig()

	m, err := loadModel(fs, "", cfg)
	if err != nil {
		t.Fatalf("built-in model: %v", err)
	}
	if m.WindowSamples != cfg.GetWindowSamples() || m.Axes != cfg.GetAxesPerSample() {
		t.Errorf("built-in model sized %d×%d", m.WindowSamples, m.Axes)
	}

	// A model with a different shape still loads.
	fs.WriteFile("small.json", []byte(`{
		"labels": ["normal", "theft"],
		"window_samples": 2,
		"axes": 1,
		"weights": [[0, 0], [1, 0]],
		"bias": [0, 0]
	}`))
	m, err = loadModel(fs, "small.json", cfg)
	if err != nil {
		t.Fatalf("loadModel: %v", err)
	}
	if m.InputLength() != 2 {
		t.Errorf("InputLength() = %d, want 2", m.InputLength())
	}

	if _, err := loadModel(fs, "missing.json", cfg); err == nil {
		t.Error("expected error for a missing model")
	}
}

func meanCurrent(s *hal.SimulatedSensor) float64 {
	total := 0.0
	for i := 0; i < 100; i++ {
		total += s.ReadCurrent()
	}
	return total / 100
}

func TestNewSensor_AppliesScenario(t *testing.T) {
	relay := hal.NewMemoryPin("relay")

	if got := meanCurrent(newSensor(hal.ScenarioNormal, relay)); got > 0.05 {
		t.Errorf("normal scenario with relay off draws %.3f A, want ~0", got)
	}
	if got := meanCurrent(newSensor(hal.ScenarioBypass, relay)); got < 0.3 {
		t.Errorf("bypass scenario with relay off draws %.3f A, want the load current", got)
	}
}
