// Package state holds the device snapshot shared between the sampling,
// command and display workers.
package state

import (
	"sync"

	"github.com/banshee-data/powerguard/internal/monitoring"
)

// Phase is the display's rendering mode. Only the sampling worker moves it.
type Phase uint8

const (
	PhaseBoot Phase = iota
	PhaseLoading
	PhaseRun
	PhaseAlert
)

func (p Phase) String() string {
	switch p {
	case PhaseBoot:
		return "BOOT"
	case PhaseLoading:
		return "LOADING"
	case PhaseRun:
		return "RUN"
	case PhaseAlert:
		return "ALERT"
	default:
		return "UNKNOWN"
	}
}

// Snapshot is the latest device state. It is a plain value: readers get a
// copy and never hold a reference into the store.
type Snapshot struct {
	Voltage          float64 // volts
	Current          float64 // amps
	Power            float64 // watts
	TheftProbability float64 // smoothed, 0..1
	Alert            bool
	RelayOn          bool
	Phase            Phase
	Progress         float64 // 0..1, meaningful only in PhaseLoading
}

// Store guards a single Snapshot with one mutex. Reads and writes copy the
// whole value under the lock, so a reader sees a snapshot from before or after
// a write and never a mix of the two.
//
// A Store that was not built with NewStore has no lock; it then falls back to
// unsynchronized access instead of blocking or panicking, and says so once.
type Store struct {
	mu   *sync.Mutex
	snap Snapshot
}

// NewStore returns a Store in PhaseBoot with zeroed metrics.
func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, snap: Snapshot{Phase: PhaseBoot}}
}

// Write replaces the whole snapshot.
func (s *Store) Write(snap Snapshot) {
	if s == nil {
		return
	}
	if s.mu == nil {
		warnUnsynchronized()
		s.snap = snap
		return
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Read returns a consistent copy of the snapshot.
func (s *Store) Read() Snapshot {
	if s == nil {
		return Snapshot{Phase: PhaseBoot}
	}
	if s.mu == nil {
		warnUnsynchronized()
		return s.snap
	}
	s.mu.Lock()
	snap := s.snap
	s.mu.Unlock()
	return snap
}

// Synchronized reports whether the store has a lock.
func (s *Store) Synchronized() bool {
	return s != nil && s.mu != nil
}

func warnUnsynchronized() {
	monitoring.LogOnce("state.unsynchronized", "state store has no lock; continuing unsynchronized")
}
