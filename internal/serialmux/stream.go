package serialmux

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/banshee-data/powerguard/internal/monitoring"
)

// StreamPort adapts a blocking reader/writer pair (stdin/stdout in
// development mode) into a SerialPorter whose reads never block: a goroutine
// pumps the reader into a buffer and Read returns what has arrived so far.
type StreamPort struct {
	w io.Writer

	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

// NewStreamPort starts pumping r. Lines written to the port go to w.
func NewStreamPort(r io.Reader, w io.Writer) *StreamPort {
	p := &StreamPort{w: w}
	go p.pump(r)
	return p
}

func (p *StreamPort) pump(r io.Reader) {
	chunk := make([]byte, 256)
	for {
		n, err := r.Read(chunk)
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		p.buf.Write(chunk[:n])
		p.mu.Unlock()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				monitoring.Logf("serial: input stream error: %v", err)
			}
			return
		}
	}
}

// Read returns buffered input, or (0, nil) when there is none.
func (p *StreamPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	if p.buf.Len() == 0 {
		return 0, nil
	}
	return p.buf.Read(b)
}

func (p *StreamPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}
	return p.w.Write(b)
}

// Close stops delivering input. The wrapped reader and writer stay open.
func (p *StreamPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
