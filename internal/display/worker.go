package display

import (
	"context"
	"time"

	"github.com/banshee-data/powerguard/internal/monitoring"
	"github.com/banshee-data/powerguard/internal/schedule"
	"github.com/banshee-data/powerguard/internal/state"
)

// SnapshotReader supplies the state to draw.
type SnapshotReader interface {
	Read() state.Snapshot
}

// Worker renders at a fixed rate. It only ever reads the store.
type Worker struct {
	store    SnapshotReader
	renderer *Renderer
	clock    schedule.Clock
	period   time.Duration
}

// NewWorker renders store through renderer every period.
func NewWorker(store SnapshotReader, renderer *Renderer, clock schedule.Clock, period time.Duration) *Worker {
	return &Worker{store: store, renderer: renderer, clock: clock, period: period}
}

// Frame renders the current snapshot once.
func (w *Worker) Frame() View {
	view, err := w.renderer.Render(w.store.Read(), w.clock.Now())
	if err != nil {
		monitoring.LogOnce("display.present", "display: present failed: %v", err)
	}
	return view
}

// Run renders until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	tick := schedule.NewPeriodic(w.clock, w.period)
	for {
		w.Frame()
		if err := tick.Wait(ctx); err != nil {
			return err
		}
	}
}
