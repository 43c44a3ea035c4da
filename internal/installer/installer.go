// Package installer installs the compiler and probes for installed tools.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"juvixmode/internal/juvix"
)

// ScriptURL is the upstream installer script.
const ScriptURL = "https://raw.githubusercontent.com/anoma/juvix-installer/main/juvix-installer.sh"

// ErrUnsupportedPlatform is returned on platforms the installer script does
// not support.
var ErrUnsupportedPlatform = errors.New("juvix is not supported on Windows yet")

// Installer runs the upstream installer script through a shell.
type Installer struct {
	Runner juvix.Runner
	// GOOS overrides runtime.GOOS.
	GOOS   string
	URL    string
	Shell  string
	Stdout io.Writer
	Stderr io.Writer
}

func (i Installer) goos() string {
	if i.GOOS != "" {
		return i.GOOS
	}
	return runtime.GOOS
}

// Command returns the shell invocation that downloads and runs the script.
func (i Installer) Command() []string {
	url := i.URL
	if url == "" {
		url = ScriptURL
	}
	shell := i.Shell
	if shell == "" {
		shell = "sh"
	}
	script := fmt.Sprintf("curl --proto '=https' --tlsv1.2 -sSf %s | %s", url, shell)
	return []string{shell, "-c", script}
}

// Install runs the script non-interactively.
func (i Installer) Install(ctx context.Context) error {
	if i.goos() == "windows" {
		return ErrUnsupportedPlatform
	}
	argv := i.Command()
	client := juvix.NewClient(argv[0], nil, juvix.WithRunner(i.Runner))
	_, err := client.Run(ctx, juvix.Invocation{
		Argv:   argv,
		Env:    []string{"JUVIX_INSTALLER_ASSUME_YES=1"},
		Stdout: i.Stdout,
		Stderr: i.Stderr,
	})
	if err != nil {
		if exitErr, ok := juvix.IsExit(err); ok {
			return fmt.Errorf("installation failed with exit code %d", exitErr.Code)
		}
		return fmt.Errorf("installation failed: %w", err)
	}
	return nil
}

// Binary is the outcome of probing one executable.
type Binary struct {
	Name    string
	Exec    string
	Version string
	Err     error
}

// Found reports whether the probe succeeded.
func (b Binary) Found() bool { return b.Err == nil }

// CheckBinary runs `exec --version` and records the first output line.
// A missing binary or a non-zero exit is reported in Err.
func CheckBinary(ctx context.Context, runner juvix.Runner, name, exec string) Binary {
	b := Binary{Name: name, Exec: exec}
	client := juvix.NewClient(exec, nil, juvix.WithRunner(runner))
	res, err := client.Run(ctx, juvix.Invocation{Argv: []string{exec, "--version"}})
	if err != nil {
		b.Err = err
		return b
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(res.Stdout)), "\n")
	b.Version = strings.TrimSpace(line)
	if b.Version == "" {
		b.Err = fmt.Errorf("%s --version printed nothing", exec)
	}
	return b
}
