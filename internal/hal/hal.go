// Package hal defines the hardware collaborators the device core talks to:
// digital output pins with readback, and the mains sensor.
package hal

import (
	"sync/atomic"
)

// Pin is a digital output whose level can be read back. The readback is the
// source of truth for the output state; callers never cache it.
type Pin interface {
	Set(on bool)
	Get() bool
}

// Sensor reads instantaneous mains voltage (volts) and current (amps).
// Calibration lives in the driver, not in the core.
type Sensor interface {
	ReadVoltage() float64
	ReadCurrent() float64
}

// Initializer is implemented by collaborators that can report whether the
// hardware answered at startup.
type Initializer interface {
	Init() error
}

// MemoryPin is a Pin held in memory, used for simulated and test hardware.
type MemoryPin struct {
	name  string
	level atomic.Bool
	// sets counts every Set call; useful to tests asserting on side effects.
	sets atomic.Int64
}

// NewMemoryPin returns a low pin with the given name.
func NewMemoryPin(name string) *MemoryPin {
	return &MemoryPin{name: name}
}

func (p *MemoryPin) Set(on bool) {
	p.level.Store(on)
	p.sets.Add(1)
}

func (p *MemoryPin) Get() bool { return p.level.Load() }

// Name returns the pin name given at construction.
func (p *MemoryPin) Name() string { return p.name }

// Sets returns the number of Set calls so far.
func (p *MemoryPin) Sets() int64 { return p.sets.Load() }
