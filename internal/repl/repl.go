// Package repl drives an interactive compiler session over pipes.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"juvixmode/internal/juvix"
	"juvixmode/internal/trace"
)

// ErrClosed is returned when writing to a session whose process has exited.
var ErrClosed = errors.New("repl session closed")

// Language selects how the session is started.
type Language int

const (
	// Juvix runs `juvix repl` and loads files with :load.
	Juvix Language = iota
	// Core runs `juvix dev core eval <file>`.
	Core
)

func (l Language) String() string {
	if l == Core {
		return "JuvixCore"
	}
	return "Juvix"
}

// LanguageOf classifies a source file by extension.
func LanguageOf(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".juvix":
		return Juvix, true
	case ".jvc":
		return Core, true
	default:
		return Juvix, false
	}
}

// Options configure Start.
type Options struct {
	Exec     string
	Language Language
	File     string
	Dir      string
	Stdout   io.Writer
	Stderr   io.Writer
	Tracer   trace.Tracer

	// QuitTimeout bounds how long Close waits after :quit before killing
	// the process. Zero means two seconds.
	QuitTimeout time.Duration
}

// Session is a running REPL process.
type Session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	span  *trace.Span
	quit  time.Duration

	mu   sync.Mutex
	file string
	// loaded is the file's modification time when it was last (re)loaded.
	loaded time.Time

	done    chan struct{}
	waitErr error
}

// Start launches the REPL. For Juvix with a File, the file is loaded right
// away; Core requires a File.
func Start(ctx context.Context, opts Options) (*Session, error) {
	exe := opts.Exec
	if exe == "" {
		exe = "juvix"
	}
	var args []string
	switch opts.Language {
	case Core:
		if opts.File == "" {
			return nil, fmt.Errorf("%s repl needs a file", opts.Language)
		}
		args = []string{"dev", "core", "eval", opts.File}
	default:
		args = []string{"repl"}
	}

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = opts.Dir
	cmd.Stdout = orDiscard(opts.Stdout)
	cmd.Stderr = orDiscard(opts.Stderr)
	cmd.WaitDelay = time.Second
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	span := trace.Begin(tracer, trace.ScopeProcess, "repl", trace.CurrentSpan(ctx))
	span.WithExtra("argv", strings.Join(cmd.Args, " "))

	if err := cmd.Start(); err != nil {
		span.Fail(err)
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", juvix.ErrNotFound, exe)
		}
		return nil, err
	}

	quit := opts.QuitTimeout
	if quit <= 0 {
		quit = 2 * time.Second
	}
	s := &Session{
		cmd:   cmd,
		stdin: stdin,
		span:  span,
		quit:  quit,
		file:  opts.File,
		done:  make(chan struct{}),
	}
	s.loaded = modTime(opts.File)
	go s.wait()

	if opts.Language == Juvix && opts.File != "" {
		if err := s.Load(opts.File); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Session) wait() {
	err := s.cmd.Wait()
	s.waitErr = err
	if err != nil {
		s.span.Fail(err)
	} else {
		s.span.End("")
	}
	close(s.done)
}

// Send writes one line of input.
func (s *Session) Send(text string) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.stdin, strings.TrimRight(text, "\n")+"\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return nil
}

// Load loads file and makes it the file Reload refers to.
func (s *Session) Load(file string) error {
	s.mu.Lock()
	s.file = file
	s.loaded = modTime(file)
	s.mu.Unlock()
	return s.Send(":load " + file)
}

// Reload reloads the current file.
func (s *Session) Reload() error {
	file := s.File()
	if file == "" {
		return errors.New("no file loaded")
	}
	s.markLoaded(file)
	return s.Send(":reload " + file)
}

func (s *Session) markLoaded(file string) {
	mt := modTime(file)
	s.mu.Lock()
	if s.file == file {
		s.loaded = mt
	}
	s.mu.Unlock()
}

// changedSinceLoad reports whether the current file was modified after it
// was last loaded.
func (s *Session) changedSinceLoad() bool {
	s.mu.Lock()
	file, loaded := s.file, s.loaded
	s.mu.Unlock()
	mt := modTime(file)
	return !mt.IsZero() && !mt.Equal(loaded)
}

// File returns the file last loaded.
func (s *Session) File() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file
}

// Quit asks the REPL to exit and closes its input.
func (s *Session) Quit() error {
	err := s.Send(":quit")
	s.mu.Lock()
	_ = s.stdin.Close()
	s.mu.Unlock()
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

// Close quits the REPL, killing it if it has not exited within the quit
// timeout, and waits for it.
func (s *Session) Close() error {
	_ = s.Quit()
	select {
	case <-s.done:
	case <-time.After(s.quit):
		_ = s.cmd.Process.Kill()
		<-s.done
	}
	return nil
}

// Done is closed when the process exits.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the process exits and returns its exit error.
func (s *Session) Wait() error {
	<-s.done
	return s.waitErr
}

// WatchReload polls the current file's modification time every interval
// and sends :reload when it differs from the time the file was last
// loaded, so edits made before the watcher starts are not missed. It
// returns when ctx is done or the session ends.
func (s *Session) WatchReload(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.C:
			if !s.changedSinceLoad() {
				continue
			}
			if err := s.Reload(); err != nil {
				return err
			}
		}
	}
}

func modTime(path string) time.Time {
	if path == "" {
		return time.Time{}
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
