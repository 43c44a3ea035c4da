package ui

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"juvixmode/internal/tasks"
)

var (
	workingColor = color.New(color.FgCyan)
	doneColor    = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// PlainSink writes one line per step start and per finished file. It is
// used when stdout is not a terminal.
type PlainSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPlainSink returns a sink writing to w. Colors follow color.NoColor.
func NewPlainSink(w io.Writer) *PlainSink {
	return &PlainSink{w: w}
}

// OnEvent implements tasks.Sink.
func (s *PlainSink) OnEvent(ev tasks.Event) {
	line := plainLine(ev)
	if line == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, line)
}

func plainLine(ev tasks.Event) string {
	subject := ev.File
	if subject == "" {
		subject = ev.Task
	}
	switch ev.Status {
	case tasks.StatusWorking:
		step := ev.Step
		if ev.Steps > 1 {
			step = fmt.Sprintf("%s %d/%d", ev.Step, ev.StepIndex, ev.Steps)
		}
		return fmt.Sprintf("%s %s (%s)", workingColor.Sprint("running"), subject, step)
	case tasks.StatusDone:
		if ev.Steps == 0 {
			return ""
		}
		return fmt.Sprintf("%s %s in %s", doneColor.Sprint("done"), subject, ev.Elapsed.Round(time.Millisecond))
	case tasks.StatusError:
		if ev.Steps == 0 {
			return ""
		}
		err := ev.Err
		var runErr *tasks.RunError
		if errors.As(err, &runErr) {
			err = runErr.Err
		}
		return fmt.Sprintf("%s %s (%s): %v", errorColor.Sprint("error"), subject, ev.Step, err)
	default:
		return ""
	}
}
