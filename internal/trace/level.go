package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff     Level = iota // no tracing
	LevelError                // only failed spans
	LevelRequest              // server lifecycle + LSP requests
	LevelProcess              // external compiler invocations
	LevelDebug                // everything including index builds
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelRequest:
		return "request"
	case LevelProcess:
		return "process"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "request":
		return LevelRequest, nil
	case "process":
		return LevelProcess, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|request|process|debug)", s)
	}
}

// ShouldEmit returns true if the given scope should emit at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelOff:
		return false
	case LevelError:
		return false // failures are emitted through Span.Fail
	case LevelRequest:
		return scope <= ScopeRequest
	case LevelProcess:
		return scope <= ScopeProcess
	case LevelDebug:
		return true
	}
	return false
}
