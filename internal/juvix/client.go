// Package juvix invokes the Juvix compiler binary and returns its output.
package juvix

import (
	"bytes"
	"context"
	"os"
	"strconv"
	"strings"

	"juvixmode/internal/trace"
)

// Client runs compiler subcommands with a fixed executable and global flags.
type Client struct {
	exec   string
	flags  []string
	runner Runner
	tracer trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the os/exec based runner.
func WithRunner(r Runner) Option {
	return func(c *Client) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithTracer records every invocation as a process span.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// NewClient returns a client for the binary exec. globalFlags are inserted
// right after the executable for subcommands that honour them.
func NewClient(exec string, globalFlags []string, opts ...Option) *Client {
	c := &Client{
		exec:   exec,
		flags:  append([]string(nil), globalFlags...),
		runner: ExecRunner{},
		tracer: trace.Nop,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exec returns the executable the client runs.
func (c *Client) Exec() string { return c.exec }

// GlobalFlags returns a copy of the global flags.
func (c *Client) GlobalFlags() []string { return append([]string(nil), c.flags...) }

// Runner returns the runner used for invocations.
func (c *Client) Runner() Runner { return c.runner }

func (c *Client) withFlags(args ...string) []string {
	argv := make([]string, 0, 1+len(c.flags)+len(args))
	argv = append(argv, c.exec)
	argv = append(argv, c.flags...)
	return append(argv, args...)
}

// Run executes inv, tracing it and converting a non-zero exit into an
// *ExitError that still carries the captured output in the Result.
func (c *Client) Run(ctx context.Context, inv Invocation) (Result, error) {
	tracer := c.tracer
	if tracer == trace.Nop {
		tracer = trace.FromContext(ctx)
	}
	span := trace.Begin(tracer, trace.ScopeProcess, processName(inv.Argv), trace.CurrentSpan(ctx))
	span.WithExtra("argv", strings.Join(inv.Argv, " "))

	res, err := c.runner.Run(ctx, inv)
	if err != nil {
		span.Fail(err)
		return res, err
	}
	span.WithExtra("exit", strconv.Itoa(res.ExitCode))
	if res.ExitCode != 0 {
		exitErr := &ExitError{Argv: inv.Argv, Code: res.ExitCode, Stderr: string(res.Stderr)}
		span.Fail(exitErr)
		return res, exitErr
	}
	span.End("")
	return res, nil
}

func processName(argv []string) string {
	if len(argv) == 0 {
		return "exec"
	}
	name := argv[0]
	for _, a := range argv[1:] {
		if strings.HasPrefix(a, "-") {
			continue
		}
		name += " " + a
		if a != "dev" {
			break
		}
	}
	return name
}

// Highlight runs `dev highlight` on path, feeding text as the file content.
func (c *Client) Highlight(ctx context.Context, path, text string) ([]byte, error) {
	res, err := c.Run(ctx, Invocation{
		Argv:  c.withFlags("dev", "highlight", "--format", "json", path, "--stdin"),
		Stdin: text,
	})
	if err != nil {
		return nil, err
	}
	return res.Stdout, nil
}

// Format returns the formatted source of the file at path as saved on disk.
func (c *Client) Format(ctx context.Context, path string) (string, error) {
	res, err := c.Run(ctx, Invocation{
		Argv: c.withFlags("dev", "scope", path, "--with-comments"),
	})
	if err != nil {
		return "", err
	}
	return string(res.Stdout), nil
}

// Root returns the project root directory of path.
func (c *Client) Root(ctx context.Context, path string) (string, error) {
	res, err := c.Run(ctx, Invocation{Argv: c.withFlags("dev", "root", path)})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// GlobalRoot returns the root of the global project, i.e. the root the
// compiler reports for a directory outside any project.
func (c *Client) GlobalRoot(ctx context.Context) (string, error) {
	res, err := c.Run(ctx, Invocation{
		Argv: c.withFlags("dev", "root"),
		Dir:  os.TempDir(),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// Typecheck runs `typecheck` on path. The Result is returned even when the
// check fails so callers can parse the reported errors.
func (c *Client) Typecheck(ctx context.Context, path string) (Result, error) {
	argv := append([]string{c.exec, "typecheck", path}, c.flags...)
	return c.Run(ctx, Invocation{Argv: argv})
}

// Doc renders HTML documentation for path into outDir.
func (c *Client) Doc(ctx context.Context, outDir, path string) error {
	_, err := c.Run(ctx, Invocation{
		Argv: c.withFlags("dev", "doc", "--output-dir", outDir, path),
	})
	return err
}

// Version returns the first line of `--version` with "version " shortened
// to "v", e.g. "Juvix v0.6.0-abc123".
func (c *Client) Version(ctx context.Context) (string, error) {
	res, err := c.Run(ctx, Invocation{Argv: []string{c.exec, "--version"}})
	if err != nil {
		return "", err
	}
	out := strings.ReplaceAll(string(res.Stdout), "version ", "v")
	return firstLine(out), nil
}

// NumericVersion returns the first line of `--numeric-version`.
func (c *Client) NumericVersion(ctx context.Context) (string, error) {
	res, err := c.Run(ctx, Invocation{Argv: []string{c.exec, "--numeric-version"}})
	if err != nil {
		return "", err
	}
	return firstLine(string(res.Stdout)), nil
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\r\n")
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// Available reports whether exec can be started and answers --version.
func Available(ctx context.Context, runner Runner, exec string) bool {
	if runner == nil {
		runner = ExecRunner{}
	}
	res, err := runner.Run(ctx, Invocation{Argv: []string{exec, "--version"}})
	return err == nil && res.ExitCode == 0 && len(bytes.TrimSpace(res.Stdout)) > 0
}
