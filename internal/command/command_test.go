package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/powerguard/internal/hal"
	"github.com/banshee-data/powerguard/internal/monitoring"
	"github.com/banshee-data/powerguard/internal/schedule"
	"github.com/banshee-data/powerguard/internal/serialmux"
)

func feed(b *LineBuffer, s string) []string {
	var lines []string
	for i := 0; i < len(s); i++ {
		if line, ok := b.Feed(s[i]); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestLineBuffer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "RELAY:ON\n", []string{"RELAY:ON"}},
		{"crlf", "RELAY:OFF\r\n", []string{"RELAY:OFF"}},
		{"two lines", "A\nB\n", []string{"A", "B"}},
		{"empty line", "\n", []string{""}},
		{"no newline", "RELAY:ON", nil},
		{"stray carriage returns", "RE\rLAY\r:ON\n", []string{"RELAY:ON"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var b LineBuffer
			if diff := cmp.Diff(tc.want, feed(&b, tc.input)); diff != "" {
				t.Errorf("lines mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLineBuffer_OverflowDropsExtraBytes(t *testing.T) {
	var b LineBuffer
	long := strings.Repeat("X", 100)

	if lines := feed(&b, long); lines != nil {
		t.Fatalf("no line should be parsed without a newline, got %v", lines)
	}
	if b.Len() != MaxLineLength {
		t.Errorf("buffer length = %d, want %d", b.Len(), MaxLineLength)
	}

	lines := feed(&b, "\n")
	if len(lines) != 1 || lines[0] != strings.Repeat("X", MaxLineLength) {
		t.Errorf("overflowed line = %q", lines)
	}
	if b.Len() != 0 {
		t.Errorf("buffer not reset after newline, len = %d", b.Len())
	}

	// The buffer is usable again after the reset.
	if diff := cmp.Diff([]string{"RELAY:ON"}, feed(&b, "RELAY:ON\n")); diff != "" {
		t.Errorf("post-reset mismatch (-want +got):\n%s", diff)
	}
}

func TestLineBuffer_OverflowKeepsPrefix(t *testing.T) {
	var b LineBuffer
	// A valid command followed by enough junk to overflow is still not a
	// valid command: the kept prefix includes the junk up to 31 bytes.
	lines := feed(&b, "RELAY:ON"+strings.Repeat("?", 40)+"\n")
	if len(lines) != 1 || len(lines[0]) != MaxLineLength || !strings.HasPrefix(lines[0], "RELAY:ON?") {
		t.Errorf("unexpected line %q", lines)
	}
}

func TestExecute(t *testing.T) {
	tests := []struct {
		line      string
		initial   bool
		wantReply string
		wantOK    bool
		wantRelay bool
	}{
		{"RELAY:ON", false, ReplyRelayOn, true, true},
		{"RELAY:OFF", true, ReplyRelayOff, true, false},
		{"relay:on", false, ReplyUnknown, true, false},
		{"RELAY:TOGGLE", true, ReplyUnknown, true, true},
		{"", true, "", false, true},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			relay := hal.NewMemoryPin("relay")
			relay.Set(tc.initial)

			reply, ok := Execute(tc.line, relay)
			if reply != tc.wantReply || ok != tc.wantOK {
				t.Errorf("Execute(%q) = %q, %v; want %q, %v", tc.line, reply, ok, tc.wantReply, tc.wantOK)
			}
			if relay.Get() != tc.wantRelay {
				t.Errorf("relay = %v, want %v", relay.Get(), tc.wantRelay)
			}
		})
	}
}

func newTestWorker() (*Worker, *serialmux.TestableSerialPort, *hal.MemoryPin) {
	port := serialmux.NewTestableSerialPort()
	relay := hal.NewMemoryPin("relay")
	clock := schedule.NewFakeClock(time.Unix(0, 0))
	return NewWorker(serialmux.NewLink(port), relay, clock, 10*time.Millisecond), port, relay
}

func TestWorker_PollRepliesAndSwitchesRelay(t *testing.T) {
	w, port, relay := newTestWorker()

	port.AddReadData([]byte("RELAY:ON\r\n\nBOGUS\nRELAY:OFF\nRELAY:ON\n"))
	if err := w.Poll(); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	want := []string{"OK:RELAY:ON", "ERR:UNKNOWN_CMD", "OK:RELAY:OFF", "OK:RELAY:ON"}
	if diff := cmp.Diff(want, port.WrittenLines()); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
	if !relay.Get() {
		t.Error("relay should be on after the last command")
	}
}

func TestWorker_RelaySwitchedBeforeReply(t *testing.T) {
	w, port, relay := newTestWorker()

	var relayAtReply []bool
	port.OnWrite = func([]byte) { relayAtReply = append(relayAtReply, relay.Get()) }

	port.AddReadData([]byte("RELAY:ON\nRELAY:OFF\n"))
	w.Poll()

	if diff := cmp.Diff([]bool{true, false}, relayAtReply); diff != "" {
		t.Errorf("relay state seen at reply time (-want +got):\n%s", diff)
	}
}

func TestWorker_PartialLinesAcrossPolls(t *testing.T) {
	w, port, relay := newTestWorker()

	port.AddReadData([]byte("RELAY:"))
	w.Poll()
	if len(port.WrittenLines()) != 0 {
		t.Fatal("no reply expected for a partial line")
	}

	port.AddReadData([]byte("ON\n"))
	w.Poll()
	if diff := cmp.Diff([]string{"OK:RELAY:ON"}, port.WrittenLines()); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
	if !relay.Get() {
		t.Error("relay should be on")
	}
}

func TestWorker_PollReturnsReadError(t *testing.T) {
	w, port, _ := newTestWorker()
	boom := errors.New("framing error")
	port.ReadError = boom
	if err := w.Poll(); !errors.Is(err, boom) {
		t.Errorf("Poll() error = %v, want %v", err, boom)
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	w, port, relay := newTestWorker()
	port.AddReadData([]byte("RELAY:ON\n"))

	ctx, cancel := context.WithCancel(context.Background())
	port.OnWrite = func([]byte) { cancel() }

	if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if !relay.Get() {
		t.Error("relay should be on")
	}
}

func TestWorker_RunStopsWhenLinkClosed(t *testing.T) {
	port := serialmux.NewTestableSerialPort()
	link := serialmux.NewLink(port)
	link.Close()

	w := NewWorker(link, hal.NewMemoryPin("relay"), schedule.NewFakeClock(time.Unix(0, 0)), time.Millisecond)
	if err := w.Run(context.Background()); !errors.Is(err, serialmux.ErrClosed) {
		t.Errorf("Run() error = %v, want ErrClosed", err)
	}
}

// failingLink fails every read with err until reads reaches recoverAt, then
// returns no data. The context is cancelled after stopAt reads.
type failingLink struct {
	err       error
	reads     int
	recoverAt int
	stopAt    int
	cancel    context.CancelFunc
}

func (l *failingLink) Read(p []byte) (int, error) {
	l.reads++
	if l.reads >= l.stopAt {
		l.cancel()
	}
	if l.reads < l.recoverAt {
		return 0, l.err
	}
	return 0, nil
}

func (l *failingLink) WriteLine(string) error { return nil }
func (l *failingLink) Close() error           { return nil }

func captureLogs(t *testing.T) *[]string {
	t.Helper()
	var logs []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })
	return &logs
}

func TestWorker_PersistentReadErrorLoggedOnce(t *testing.T) {
	logs := captureLogs(t)

	ctx, cancel := context.WithCancel(context.Background())
	link := &failingLink{err: errors.New("device not configured"), recoverAt: 50, stopAt: 60, cancel: cancel}
	w := NewWorker(link, hal.NewMemoryPin("relay"), schedule.NewFakeClock(time.Unix(0, 0)), 10*time.Millisecond)

	if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}

	want := []string{
		"command: read failed: device not configured",
		"command: reads recovered after: device not configured",
	}
	if diff := cmp.Diff(want, *logs); diff != "" {
		t.Errorf("logs mismatch (-want +got):\n%s", diff)
	}
}

func TestWorker_NewReadErrorLoggedAgain(t *testing.T) {
	logs := captureLogs(t)
	w, _, _ := newTestWorker()

	w.noteRead(errors.New("framing error"))
	w.noteRead(errors.New("framing error"))
	w.noteRead(errors.New("parity error"))
	w.noteRead(nil)
	w.noteRead(nil)

	if len(*logs) != 3 {
		t.Errorf("logged %d lines, want 3: %q", len(*logs), *logs)
	}
}
