// Package command implements the host-to-device half of the serial line
// protocol: it drains incoming bytes, assembles lines and switches the relay.
package command

import (
	"context"
	"errors"
	"time"

	"github.com/banshee-data/powerguard/internal/hal"
	"github.com/banshee-data/powerguard/internal/monitoring"
	"github.com/banshee-data/powerguard/internal/schedule"
	"github.com/banshee-data/powerguard/internal/serialmux"
)

// MaxLineLength is the number of usable bytes in the command buffer.
const MaxLineLength = 31

// Commands and replies on the serial line.
const (
	CmdRelayOn  = "RELAY:ON"
	CmdRelayOff = "RELAY:OFF"

	ReplyRelayOn  = "OK:RELAY:ON"
	ReplyRelayOff = "OK:RELAY:OFF"
	ReplyUnknown  = "ERR:UNKNOWN_CMD"
)

// LineBuffer assembles newline-terminated lines from single bytes. Carriage
// returns are ignored; bytes past MaxLineLength are dropped but the line still
// ends at the next newline.
type LineBuffer struct {
	buf [MaxLineLength]byte
	n   int
}

// Feed adds one byte. It returns the buffered line and true when c is a
// newline, resetting the buffer.
func (b *LineBuffer) Feed(c byte) (string, bool) {
	switch c {
	case '\r':
		return "", false
	case '\n':
		line := string(b.buf[:b.n])
		b.n = 0
		return line, true
	}
	if b.n < len(b.buf) {
		b.buf[b.n] = c
		b.n++
	}
	return "", false
}

// Len returns the number of buffered bytes.
func (b *LineBuffer) Len() int { return b.n }

// Execute applies one command line to the relay and returns the reply. An
// empty line is not a command and produces no reply (ok is false). The relay
// is switched before Execute returns, so it has changed before the reply is
// sent.
func Execute(line string, relay hal.Pin) (reply string, ok bool) {
	switch line {
	case "":
		return "", false
	case CmdRelayOn:
		relay.Set(true)
		return ReplyRelayOn, true
	case CmdRelayOff:
		relay.Set(false)
		return ReplyRelayOff, true
	default:
		return ReplyUnknown, true
	}
}

// Worker polls the serial link for commands on a short fixed period.
type Worker struct {
	link   serialmux.LinkInterface
	relay  hal.Pin
	clock  schedule.Clock
	period time.Duration

	lines   LineBuffer
	chunk   [64]byte
	readErr string
}

// NewWorker builds a command worker reading and replying on link.
func NewWorker(link serialmux.LinkInterface, relay hal.Pin, clock schedule.Clock, period time.Duration) *Worker {
	return &Worker{link: link, relay: relay, clock: clock, period: period}
}

// Poll drains every byte currently available and handles complete lines.
// It never waits for more input than the link's poll timeout.
func (w *Worker) Poll() error {
	for {
		n, err := w.link.Read(w.chunk[:])
		for _, c := range w.chunk[:n] {
			line, done := w.lines.Feed(c)
			if !done {
				continue
			}
			reply, ok := Execute(line, w.relay)
			if !ok {
				continue
			}
			if err := w.link.WriteLine(reply); err != nil {
				monitoring.Logf("command: failed to reply %q: %v", reply, err)
			}
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// Run polls until ctx is done. Read errors do not stop polling; a closed
// link ends the loop.
func (w *Worker) Run(ctx context.Context) error {
	tick := schedule.NewPeriodic(w.clock, w.period)
	for {
		err := w.Poll()
		if errors.Is(err, serialmux.ErrClosed) {
			return err
		}
		w.noteRead(err)
		if err := tick.Wait(ctx); err != nil {
			return err
		}
	}
}

// noteRead logs read failures on change only, so an unplugged port does not
// log every poll.
func (w *Worker) noteRead(err error) {
	switch {
	case err == nil && w.readErr != "":
		monitoring.Logf("command: reads recovered after: %s", w.readErr)
		w.readErr = ""
	case err != nil && err.Error() != w.readErr:
		w.readErr = err.Error()
		monitoring.Logf("command: read failed: %v", err)
	}
}
