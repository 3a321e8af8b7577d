// Package serialmux carries the device's line protocol over one serial port.
// Several workers write to the same port (command replies, telemetry), so
// line writes are serialized; reads are short polls that never wait for input.
package serialmux

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/banshee-data/powerguard/internal/monitoring"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// ErrClosed is returned by operations on a closed Link.
var ErrClosed = errors.New("serial link closed")

// LineWriter writes one protocol line.
type LineWriter interface {
	// WriteLine writes line followed by a single newline.
	WriteLine(line string) error
}

// LinkInterface defines the interface for the Link type.
type LinkInterface interface {
	LineWriter
	// Read polls the port for whatever bytes are available. It returns
	// (0, nil) when nothing arrived within PollReadTimeout.
	Read(p []byte) (int, error)
	// Close closes the serial port.
	Close() error
}

// Link is a serial port shared by the command and sampling workers.
type Link[T SerialPorter] struct {
	port    T
	writeMu sync.Mutex
	readMu  sync.Mutex

	closing   bool
	closingMu sync.Mutex
}

// NewLink wraps port. Ports that support read timeouts are set to
// PollReadTimeout so Read never blocks for long.
func NewLink[T SerialPorter](port T) *Link[T] {
	if tp, ok := any(port).(TimeoutSerialPorter); ok {
		if err := tp.SetReadTimeout(PollReadTimeout); err != nil {
			monitoring.Logf("serial: failed to set read timeout: %v", err)
		}
	}
	return &Link[T]{port: port}
}

func (l *Link[T]) isClosing() bool {
	l.closingMu.Lock()
	defer l.closingMu.Unlock()
	return l.closing
}

// WriteLine writes a newline-terminated line. Concurrent callers never
// interleave within a line.
func (l *Link[T]) WriteLine(line string) error {
	if l.isClosing() {
		return ErrClosed
	}
	if !strings.HasSuffix(line, "\n") {
		line += "\n" // ensure line ends with a newline
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	n, err := l.port.Write([]byte(line))
	if err != nil {
		return err
	}
	if n != len(line) {
		return ErrWriteFailed
	}
	return nil
}

// Read polls the port. End of input from stream-backed ports counts as
// "nothing available" so callers keep polling.
func (l *Link[T]) Read(p []byte) (int, error) {
	if l.isClosing() {
		return 0, ErrClosed
	}

	l.readMu.Lock()
	defer l.readMu.Unlock()
	n, err := l.port.Read(p)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

// Close closes the underlying port. Further reads and writes fail with
// ErrClosed.
func (l *Link[T]) Close() error {
	l.closingMu.Lock()
	if l.closing {
		l.closingMu.Unlock()
		return nil
	}
	l.closing = true
	l.closingMu.Unlock()
	return l.port.Close()
}
