package main

import (
	"os"
	"strings"

	"juvixmode/internal/config"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	mode := uiMode(strings.ToLower(strings.TrimSpace(value)))
	switch mode {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return mode, nil
	}
	return "", errInvalidFlag("ui", value, "auto|on|off")
}

func shouldUseTUI(mode uiMode) bool {
	if mode == uiModeAuto {
		return isTerminal(os.Stdout)
	}
	return mode == uiModeOn
}

// taskPresentation is how one task run shows up in the terminal.
type taskPresentation struct {
	tui    bool
	reveal string
}

func newTaskPresentation(ui, reveal, fallback string) (taskPresentation, error) {
	mode, err := readUIMode(ui)
	if err != nil {
		return taskPresentation{}, err
	}
	if reveal == "" {
		reveal = fallback
	}
	switch reveal {
	case config.RevealAlways, config.RevealSilent, config.RevealNever:
	default:
		return taskPresentation{}, errInvalidFlag("reveal", reveal, "always|silent|never")
	}
	return taskPresentation{tui: shouldUseTUI(mode), reveal: reveal}, nil
}

// streams reports whether child output can go straight to the terminal.
// The progress view owns the screen, and the other reveal policies need
// the outcome before anything is printed.
func (p taskPresentation) streams() bool {
	return !p.tui && p.reveal == config.RevealAlways
}
