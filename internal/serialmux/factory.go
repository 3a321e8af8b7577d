package serialmux

import (
	"fmt"

	"go.bug.st/serial"
)

// NewRealLink opens the serial port at path with the given options and wraps
// it in a Link.
func NewRealLink(path string, opts PortOptions) (*Link[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	return NewLink[serial.Port](port), nil
}
