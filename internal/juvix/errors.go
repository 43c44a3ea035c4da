package juvix

import (
	"errors"
	"strings"
)

// ErrNotFound reports that the configured binary could not be started.
var ErrNotFound = errors.New("juvix binary not found; install it with `juvixmode install` or set bin.path")

// ExitError is a compiler run that finished with a non-zero status.
type ExitError struct {
	Argv   []string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return "Juvix's Error: " + e.Stderr
}

// Command renders the argv for log messages.
func (e *ExitError) Command() string {
	return strings.Join(e.Argv, " ")
}

// IsExit reports whether err is an ExitError and returns it.
func IsExit(err error) (*ExitError, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr, true
	}
	return nil, false
}
