package logger

import (
	"log"
	"strings"
	"sync/atomic"
)

var debugEnabled atomic.Bool

// SetLevel enables Debugf output for "DEBUG"; any other level silences it.
func SetLevel(level string) {
	debugEnabled.Store(strings.EqualFold(strings.TrimSpace(level), "DEBUG"))
}

// DebugEnabled reports whether Debugf writes anything.
func DebugEnabled() bool { return debugEnabled.Load() }

// Debugf logs through the standard logger when the level is DEBUG.
func Debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	log.Printf("[DEBUG] "+format, args...)
}
