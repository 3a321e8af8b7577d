package hal

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

// Scenario selects what the simulated installation is doing.
type Scenario string

const (
	// ScenarioNormal draws the nominal load only while the relay is on.
	ScenarioNormal Scenario = "normal"
	// ScenarioBypass keeps drawing current with the relay off, as a meter
	// bypass would.
	ScenarioBypass Scenario = "bypass"
	// ScenarioOverload draws several times the nominal load with the relay on.
	ScenarioOverload Scenario = "overload"
)

// ParseScenario accepts a scenario name, case-insensitively.
func ParseScenario(s string) (Scenario, error) {
	switch sc := Scenario(strings.ToLower(strings.TrimSpace(s))); sc {
	case "":
		return ScenarioNormal, nil
	case ScenarioNormal, ScenarioBypass, ScenarioOverload:
		return sc, nil
	default:
		return "", fmt.Errorf("unknown scenario %q: expected normal, bypass or overload", s)
	}
}

// SimulatedSensorConfig describes the simulated mains supply and load.
type SimulatedSensorConfig struct {
	NominalVoltage float64 // volts RMS
	VoltageNoise   float64 // standard deviation, volts
	LoadCurrent    float64 // amps drawn by the metered load
	CurrentNoise   float64 // standard deviation, amps
	Scenario       Scenario
	Seed           uint64
}

// DefaultSimulatedSensorConfig is a 230 V supply feeding a ~100 W load.
func DefaultSimulatedSensorConfig() SimulatedSensorConfig {
	return SimulatedSensorConfig{
		NominalVoltage: 230,
		VoltageNoise:   0.8,
		LoadCurrent:    0.45,
		CurrentNoise:   0.01,
		Scenario:       ScenarioNormal,
		Seed:           1,
	}
}

// SimulatedSensor produces noisy voltage and current readings. The current
// follows the relay's hardware readback, so toggling the relay over the serial
// line changes what the sampling worker measures.
type SimulatedSensor struct {
	mu      sync.Mutex
	cfg     SimulatedSensorConfig
	relay   Pin
	voltage distuv.Normal
	current distuv.Normal
}

// NewSimulatedSensor builds a sensor whose load is switched by relay.
func NewSimulatedSensor(cfg SimulatedSensorConfig, relay Pin) *SimulatedSensor {
	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	return &SimulatedSensor{
		cfg:     cfg,
		relay:   relay,
		voltage: distuv.Normal{Mu: cfg.NominalVoltage, Sigma: cfg.VoltageNoise, Src: src},
		current: distuv.Normal{Mu: 0, Sigma: cfg.CurrentNoise, Src: src},
	}
}

// Init always succeeds for the simulation.
func (s *SimulatedSensor) Init() error { return nil }

// SetScenario switches the simulated installation behaviour.
func (s *SimulatedSensor) SetScenario(sc Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Scenario = sc
}

func (s *SimulatedSensor) ReadVoltage() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return math.Max(0, s.voltage.Rand())
}

func (s *SimulatedSensor) ReadCurrent() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var load float64
	relayOn := s.relay != nil && s.relay.Get()
	switch {
	case relayOn && s.cfg.Scenario == ScenarioOverload:
		load = 3 * s.cfg.LoadCurrent
	case relayOn:
		load = s.cfg.LoadCurrent
	case s.cfg.Scenario == ScenarioBypass:
		load = s.cfg.LoadCurrent
	}
	return math.Max(0, load+s.current.Rand())
}
