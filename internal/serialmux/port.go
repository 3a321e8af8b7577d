package serialmux

import (
	"io"
	"time"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with timeout capabilities.
// Ports implementing it are switched to short read timeouts by NewLink so a
// read never waits for input longer than PollReadTimeout.
type TimeoutSerialPorter interface {
	SerialPorter
	// SetReadTimeout sets the read timeout for the serial port.
	SetReadTimeout(timeout time.Duration) error
}

// PollReadTimeout bounds how long a single poll read may wait for input.
const PollReadTimeout = time.Millisecond
