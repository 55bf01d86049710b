package internal

import (
	"strconv"
	"sync/atomic"
)

var (
	quietMode atomic.Bool // Whether console log duplication is suppressed.
	debugMode atomic.Bool // Whether debug logging is enabled.
)

// Parses the linker flags into runtime defaults.
//
// rawQuiet and rawDebug are set via ldflags at build time. Unparseable values
// leave the corresponding mode disabled.
func init() {
	if v, err := strconv.ParseBool(rawQuiet); err == nil {
		quietMode.Store(v)
	}
	if v, err := strconv.ParseBool(rawDebug); err == nil {
		debugMode.Store(v)
	}
}

// Returns true if log output should not be duplicated to stderr.
func IsQuiet() bool {
	return quietMode.Load()
}

// Returns true if debug logging is enabled.
func IsDebug() bool {
	return debugMode.Load()
}
