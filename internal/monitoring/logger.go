package monitoring

import (
	"log"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
// Diagnostics never go to the serial line; that belongs to the host protocol.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

var (
	onceMu   sync.Mutex
	onceSeen = map[string]bool{}
)

// LogOnce logs through Logf the first time key is seen and drops every later
// call with the same key. It returns true when the message was logged.
func LogOnce(key, format string, v ...interface{}) bool {
	onceMu.Lock()
	if onceSeen[key] {
		onceMu.Unlock()
		return false
	}
	onceSeen[key] = true
	onceMu.Unlock()

	Logf(format, v...)
	return true
}

// resetOnce clears LogOnce history. Used by tests.
func resetOnce() {
	onceMu.Lock()
	defer onceMu.Unlock()
	onceSeen = map[string]bool{}
}
