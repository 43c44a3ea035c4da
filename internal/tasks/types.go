// Package tasks defines the compiler and vamp-ir tasks and runs them over
// source files, reporting progress as events.
package tasks

import "time"

// Status captures progress state of one task run.
type Status string

const (
	// StatusQueued indicates the run is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates a step of the run is executing.
	StatusWorking Status = "working"
	// StatusDone indicates every step succeeded.
	StatusDone Status = "done"
	// StatusError indicates a step failed; later steps were skipped.
	StatusError Status = "error"
)

// Event reports progress for a file. File is empty for tasks that take no
// file, and for the summary event sent once every run has finished.
type Event struct {
	File      string
	Task      string
	Step      string
	StepIndex int // 1-based index of Step, 0 before the first step
	Steps     int
	Status    Status
	Err       error
	Elapsed   time.Duration
}

// Progress is the fraction of steps finished for this file.
func (e Event) Progress() float64 {
	switch {
	case e.Status == StatusDone || e.Status == StatusError:
		return 1
	case e.Steps <= 0 || e.StepIndex <= 0:
		return 0
	default:
		return float64(e.StepIndex-1) / float64(e.Steps)
	}
}

// Sink consumes progress events.
type Sink interface {
	OnEvent(Event)
}
