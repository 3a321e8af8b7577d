// Package sampling reads the sensor on a fixed grid, classifies each window
// of samples and turns the result into a debounced theft alert.
package sampling

import (
	"context"
	"time"

	"github.com/banshee-data/powerguard/internal/classifier"
	"github.com/banshee-data/powerguard/internal/hal"
	"github.com/banshee-data/powerguard/internal/monitoring"
	"github.com/banshee-data/powerguard/internal/schedule"
	"github.com/banshee-data/powerguard/internal/serialmux"
	"github.com/banshee-data/powerguard/internal/state"
)

// SnapshotWriter receives whole-snapshot updates.
type SnapshotWriter interface {
	Write(snap state.Snapshot)
}

// Config sizes the sampling loop.
type Config struct {
	Period        time.Duration
	WindowSamples int
	Axes          int
	Decision      DecisionConfig
}

// Worker owns the sensor side of the device.
type Worker struct {
	cfg      Config
	sensor   hal.Sensor
	relay    hal.Pin
	alert    hal.Pin
	model    classifier.Classifier
	store    SnapshotWriter
	out      serialmux.LineWriter
	clock    schedule.Clock
	features *FeatureBuffer
	decider  *Decider

	tick    *schedule.Periodic
	loading bool
	sums    [3]float64
}

// NewWorker wires a sampling worker. relay is read back on every sample;
// alert is driven from each window's decision.
func NewWorker(cfg Config, sensor hal.Sensor, relay, alert hal.Pin, model classifier.Classifier,
	store SnapshotWriter, out serialmux.LineWriter, clock schedule.Clock) *Worker {
	features := NewFeatureBuffer(cfg.WindowSamples, cfg.Axes)
	return &Worker{
		cfg:      cfg,
		sensor:   sensor,
		relay:    relay,
		alert:    alert,
		model:    model,
		store:    store,
		out:      out,
		clock:    clock,
		features: features,
		decider:  NewDecider(cfg.Decision),
		loading:  true,
	}
}

// Run samples window after window until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if _, err := w.Window(ctx); err != nil {
			return err
		}
	}
}

// Window collects one full window, classifies it and publishes the outcome.
// The returned Decision is nil when the classifier failed. Errors come only
// from ctx.
func (w *Worker) Window(ctx context.Context) (*Decision, error) {
	if w.tick == nil {
		w.tick = schedule.NewPeriodic(w.clock, w.cfg.Period)
	}

	w.features.Reset()
	w.sums = [3]float64{}
	n := w.features.Samples()
	for k := 1; k <= n; k++ {
		v, i, p, relayOn := w.sample()
		if w.loading {
			w.store.Write(state.Snapshot{
				Voltage:  v,
				Current:  i,
				Power:    p,
				RelayOn:  relayOn,
				Phase:    state.PhaseLoading,
				Progress: float64(k) / float64(n),
			})
		}
		if err := w.tick.Wait(ctx); err != nil {
			return nil, err
		}
	}
	w.loading = false

	return w.classify(), nil
}

func (w *Worker) sample() (v, i, p float64, relayOn bool) {
	v = w.sensor.ReadVoltage()
	i = w.sensor.ReadCurrent()
	p = v * i
	relayOn = w.relay.Get()
	w.features.Put(v, i, p, relayOn)
	w.sums[0] += v
	w.sums[1] += i
	w.sums[2] += p
	return v, i, p, relayOn
}

func (w *Worker) classify() *Decision {
	res, err := w.model.Classify(w.features.Values())
	if err != nil {
		code := classifier.StatusOf(err)
		monitoring.Logf("sampling: classifier failed: %v", err)
		w.emit(FormatClassifierError(code))
		return nil
	}

	relayOn := w.relay.Get()
	d := w.decider.Update(TheftProbability(res, relayOn))
	w.alert.Set(d.Alert)

	n := float64(w.features.Samples())
	v, i, p := w.sums[0]/n, w.sums[1]/n, w.sums[2]/n
	w.emit(FormatTelemetry(v, i, p, d.EWMA, d.Alert))

	phase := state.PhaseRun
	if d.Alert {
		phase = state.PhaseAlert
	}
	w.store.Write(state.Snapshot{
		Voltage:          v,
		Current:          i,
		Power:            p,
		TheftProbability: d.EWMA,
		Alert:            d.Alert,
		RelayOn:          relayOn,
		Phase:            phase,
		Progress:         1,
	})
	return &d
}

func (w *Worker) emit(line string) {
	if err := w.out.WriteLine(line); err != nil {
		monitoring.Logf("sampling: failed to write %q: %v", line, err)
	}
}
