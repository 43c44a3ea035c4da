package juvix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
)

// Invocation is one external process call.
type Invocation struct {
	Argv  []string
	Stdin string
	Dir   string
	Env   []string // appended to the current environment

	// Stdout and Stderr, when set, receive the output as it is produced in
	// addition to it being captured in the Result.
	Stdout io.Writer
	Stderr io.Writer
}

// Result is the captured outcome of an Invocation that ran to completion.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes invocations. A non-zero exit is reported through
// Result.ExitCode, not as an error.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// ExecRunner runs invocations with os/exec. Cancelling ctx kills the child.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	if len(inv.Argv) == 0 || inv.Argv[0] == "" {
		return Result{}, errors.New("empty command line")
	}
	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}
	if inv.Stdin != "" {
		cmd.Stdin = strings.NewReader(inv.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = teeTo(&stdout, inv.Stdout)
	cmd.Stderr = teeTo(&stderr, inv.Stderr)

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return res, fmt.Errorf("%w: %s", ErrNotFound, inv.Argv[0])
	}
	return res, fmt.Errorf("run %s: %w", inv.Argv[0], err)
}

func teeTo(buf *bytes.Buffer, extra io.Writer) io.Writer {
	if extra == nil {
		return buf
	}
	return io.MultiWriter(buf, extra)
}
