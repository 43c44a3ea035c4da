// Package prof captures Go runtime profiles of a juvixmode process, e.g. a
// long-running language server.
package prof

import (
	"errors"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options name the output files; empty paths disable that profile.
type Options struct {
	CPU   string
	Mem   string
	Trace string
}

// Session is a set of running profiles.
type Session struct {
	mem       string
	cpuFile   *os.File
	traceFile *os.File
	stopped   bool
}

// Start begins the CPU profile and runtime trace requested by opts. The
// heap profile is written by Stop.
func Start(opts Options) (*Session, error) {
	s := &Session{mem: opts.Mem}
	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		s.cpuFile = f
	}
	if opts.Trace != "" {
		f, err := os.Create(opts.Trace)
		if err != nil {
			s.stopCPU()
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			s.stopCPU()
			return nil, err
		}
		s.traceFile = f
	}
	return s, nil
}

func (s *Session) stopCPU() {
	if s.cpuFile == nil {
		return
	}
	pprof.StopCPUProfile()
	_ = s.cpuFile.Close()
	s.cpuFile = nil
}

// Stop ends the profiles and writes the heap profile. Calling it again is
// a no-op.
func (s *Session) Stop() error {
	if s == nil || s.stopped {
		return nil
	}
	s.stopped = true
	var errs []error
	if s.traceFile != nil {
		trace.Stop()
		errs = append(errs, s.traceFile.Close())
		s.traceFile = nil
	}
	s.stopCPU()
	if s.mem != "" {
		errs = append(errs, writeHeap(s.mem))
	}
	return errors.Join(errs...)
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
