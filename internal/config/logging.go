package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// LevelTrace is a custom log level below Debug, for dumping every
// dispatched event (RunOne/DeliverOne, per-step filter correction) when
// diagnosing a specific replay rather than just watching progress.
const LevelTrace = slog.Level(-8)

// LevelQuiet is a custom log level above Error, suppressing all slog
// output. `reactorctl simulate` prints its run summary straight to
// stdout via fmt.Printf; quiet mode keeps that output free of
// interleaved log lines for scripted/piped invocations.
const LevelQuiet = slog.Level(12)

// ParseLogLevel converts a string to a slog.Level.
// Supported values: trace, debug, info, warn, error, quiet (case-insensitive).
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "quiet":
		return LevelQuiet, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: trace, debug, info, warn, error, quiet)", s)
	}
}

// ReplaceLogLevelNames customizes level names for the custom levels
// this package adds: Trace reads "TRACE" rather than slog's default
// "DEBUG-4", and Quiet reads "QUIET" rather than "ERROR+4" in the rare
// case something logs at or above it.
func ReplaceLogLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level, ok := a.Value.Any().(slog.Level)
		if ok {
			switch level {
			case LevelTrace:
				a.Value = slog.StringValue("TRACE")
			case LevelQuiet:
				a.Value = slog.StringValue("QUIET")
			}
		}
	}
	return a
}
