package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"juvixmode/internal/config"
	"juvixmode/internal/juvix"
	"juvixmode/internal/trace"
)

// ErrNoFile is returned when a task that needs a file is run without one.
var ErrNoFile = errors.New("task needs a file")

// Runner executes task definitions.
type Runner struct {
	Settings config.Settings
	// Exec runs the processes; nil means juvix.ExecRunner.
	Exec      juvix.Runner
	Tracer    trace.Tracer
	Sink      Sink
	Workspace string
	// Jobs limits the number of files processed at once; <= 0 means GOMAXPROCS.
	Jobs int
	// Stdout and Stderr receive process output as it is produced.
	Stdout io.Writer
	Stderr io.Writer
}

// RunError is a failed run for one file.
type RunError struct {
	File string
	Step string
	Err  error
}

func (e *RunError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.File, e.Step, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Run executes def for each file. A failing file does not stop the others;
// the returned error joins every *RunError. Cancelling ctx kills the running
// processes and skips the files not yet started.
func (r *Runner) Run(ctx context.Context, def Definition, files []string) error {
	if len(files) == 0 {
		if def.NeedsFile {
			return fmt.Errorf("%s: %w", def.Name, ErrNoFile)
		}
		files = []string{""}
	}
	sink := r.Sink
	if sink == nil {
		sink = nopSink{}
	}
	if r.Tracer != nil {
		ctx = trace.WithTracer(ctx, r.Tracer)
	}
	ctx, span := trace.StartSpan(ctx, trace.ScopeRequest, "task "+def.Name)

	for _, f := range files {
		sink.OnEvent(Event{File: f, Task: def.Name, Steps: len(def.Steps), Status: StatusQueued})
	}

	jobs := r.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	stdout := lockedWriter(r.Stdout)
	stderr := stdout
	if r.Stderr != r.Stdout {
		stderr = lockedWriter(r.Stderr)
	}

	var (
		mu       sync.Mutex
		failures []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := r.runFile(gctx, def, file, sink, stdout, stderr); err != nil {
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		span.Fail(err)
		return err
	}
	sink.OnEvent(Event{Task: def.Name, Status: summaryStatus(failures)})
	if len(failures) > 0 {
		err = errors.Join(failures...)
		span.Fail(err)
		return err
	}
	span.End("")
	return nil
}

func summaryStatus(failures []error) Status {
	if len(failures) > 0 {
		return StatusError
	}
	return StatusDone
}

func (r *Runner) runFile(ctx context.Context, def Definition, file string, sink Sink, stdout, stderr io.Writer) error {
	path := file
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	vars := Vars{
		File:             path,
		Workspace:        r.Workspace,
		GlobalFlags:      r.Settings.GlobalFlags(),
		CompilationFlags: r.Settings.CompilationFlags(),
	}
	start := time.Now()
	for i, step := range def.Steps {
		sink.OnEvent(Event{
			File:      file,
			Task:      def.Name,
			Step:      step.Name,
			StepIndex: i + 1,
			Steps:     len(def.Steps),
			Status:    StatusWorking,
			Elapsed:   time.Since(start),
		})
		if err := r.runStep(ctx, step, vars, stdout, stderr); err != nil {
			runErr := &RunError{File: file, Step: step.Name, Err: err}
			sink.OnEvent(Event{
				File:      file,
				Task:      def.Name,
				Step:      step.Name,
				StepIndex: i + 1,
				Steps:     len(def.Steps),
				Status:    StatusError,
				Err:       runErr,
				Elapsed:   time.Since(start),
			})
			return runErr
		}
	}
	sink.OnEvent(Event{
		File:      file,
		Task:      def.Name,
		StepIndex: len(def.Steps),
		Steps:     len(def.Steps),
		Status:    StatusDone,
		Elapsed:   time.Since(start),
	})
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step, vars Vars, stdout, stderr io.Writer) error {
	args, err := Expand(step.Args, vars)
	if err != nil {
		return err
	}
	dir, err := ExpandString(step.Dir, vars)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = r.Workspace
	}
	client := juvix.NewClient(r.executable(step.Tool), nil,
		juvix.WithRunner(r.Exec), juvix.WithTracer(r.Tracer))
	_, err = client.Run(ctx, juvix.Invocation{
		Argv:   append([]string{client.Exec()}, args...),
		Dir:    dir,
		Stdout: stdout,
		Stderr: stderr,
	})
	return err
}

func (r *Runner) executable(tool Tool) string {
	switch tool {
	case ToolJuvix:
		return r.Settings.JuvixExec()
	case ToolVampir:
		return r.Settings.VampirExec()
	default:
		return string(tool)
	}
}

// ShouldReveal reports whether task output is shown for the revealPanel
// setting: always, only on failure for silent, and never for never.
func ShouldReveal(reveal string, failed bool) bool {
	switch reveal {
	case config.RevealNever:
		return false
	case config.RevealSilent:
		return failed
	default:
		return true
	}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func lockedWriter(w io.Writer) io.Writer {
	if w == nil {
		return nil
	}
	return &syncWriter{w: w}
}
