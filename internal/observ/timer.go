// Package observ measures the stages of a highlight or task pipeline.
package observ

import (
	"fmt"
	"strings"
	"time"
)

// Stage records the duration and metadata of one pipeline stage.
type Stage struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks the execution time of consecutive stages, e.g. the
// run/decode/index/encode steps of a semantic tokens request.
type Timer struct {
	stages []Stage
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{stages: make([]Stage, 0, 4)} }

// Begin starts a new stage and returns its index.
func (t *Timer) Begin(name string) int {
	t.stages = append(t.stages, Stage{Name: name, Start: time.Now()})
	return len(t.stages) - 1
}

// End finishes a stage by its index.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.stages) {
		return
	}
	s := &t.stages[idx]
	s.Dur = time.Since(s.Start)
	s.Note = note
}

// Summary returns a multi-line table of all tracked stages.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, s := range report.Stages {
		fmt.Fprintf(&sb, "  %-12s %7.2f ms", s.Name, s.DurationMS)
		if s.Note != "" {
			sb.WriteString("  // " + s.Note)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "  %-12s %7.2f ms\n", "total", report.TotalMS)
	return sb.String()
}

// Line renders the stages on one line for log output: "run=3.10ms decode=0.20ms".
func (t *Timer) Line() string {
	report := t.Report()
	parts := make([]string, 0, len(report.Stages))
	for _, s := range report.Stages {
		parts = append(parts, fmt.Sprintf("%s=%.2fms", s.Name, s.DurationMS))
	}
	return strings.Join(parts, " ")
}

// StageReport is the serialisable form of one stage.
type StageReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates all stages with the total duration.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Stages  []StageReport `json:"stages"`
}

// Report returns the stages and their total in milliseconds.
func (t *Timer) Report() Report {
	if len(t.stages) == 0 {
		return Report{}
	}
	report := Report{
		Stages: make([]StageReport, len(t.stages)),
	}
	var total time.Duration
	for i, stage := range t.stages {
		total += stage.Dur
		report.Stages[i] = StageReport{
			Name:       stage.Name,
			DurationMS: durationToMillis(stage.Dur),
			Note:       stage.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
