// Package debug gates diagnostic output behind the LV_DEBUG environment
// variable. With LV_DEBUG set, messages go to stderr with microsecond
// timestamps and the coordinator re-audits the edge-coverage invariant
// after every mutation; unset, every call here is a no-op.
package debug

import (
	"log"
	"os"
)

var (
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("LV_DEBUG") != "" {
		SetEnabled(true)
	}
}

// Enabled reports whether diagnostics are on.
func Enabled() bool {
	return enabled
}

// SetEnabled turns diagnostics on or off at runtime. Tests use this to
// exercise audit paths without touching the environment.
func SetEnabled(on bool) {
	enabled = on
	if on && logger == nil {
		logger = log.New(os.Stderr, "[LV_DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
}

// Log writes a printf-style message when diagnostics are on.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}
