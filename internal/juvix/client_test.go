package juvix_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"juvixmode/internal/juvix"
	"juvixmode/internal/testkit"
	"juvixmode/internal/trace"
)

func TestHighlightArgvAndStdin(t *testing.T) {
	fake := testkit.NewFakeRunner().On("dev highlight", testkit.Response{Stdout: `{"face":[]}`})
	c := juvix.NewClient("juvix", []string{"--no-colors"}, juvix.WithRunner(fake))

	out, err := c.Highlight(context.Background(), "/w/A.juvix", "module A;")
	require.NoError(t, err)
	assert.Equal(t, `{"face":[]}`, string(out))

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"juvix", "--no-colors", "dev", "highlight", "--format", "json", "/w/A.juvix", "--stdin"}, calls[0].Argv)
	assert.Equal(t, "module A;", calls[0].Stdin)
}

func TestNonZeroExitBecomesExitError(t *testing.T) {
	fake := testkit.NewFakeRunner().On("dev highlight", testkit.Response{Stderr: "A.juvix:1:1: error", ExitCode: 1})
	c := juvix.NewClient("juvix", nil, juvix.WithRunner(fake))

	_, err := c.Highlight(context.Background(), "A.juvix", "")
	require.Error(t, err)
	exitErr, ok := juvix.IsExit(err)
	require.True(t, ok)
	assert.Equal(t, 1, exitErr.Code)
	assert.Equal(t, "Juvix's Error: A.juvix:1:1: error", err.Error())
	assert.Equal(t, "juvix dev highlight --format json A.juvix --stdin", exitErr.Command())
}

func TestSubcommandArgv(t *testing.T) {
	fake := testkit.NewFakeRunner()
	fake.On("root", testkit.Response{Stdout: "/proj/\n"})
	fake.On("--version", testkit.Response{Stdout: "Juvix version 0.6.1-abc\nBranch: main\n"})
	fake.On("--numeric-version", testkit.Response{Stdout: "0.6.1\n"})
	c := juvix.NewClient("/opt/juvix", []string{"--only-errors"}, juvix.WithRunner(fake))
	ctx := context.Background()

	_, err := c.Format(ctx, "A.juvix")
	require.NoError(t, err)
	root, err := c.Root(ctx, "A.juvix")
	require.NoError(t, err)
	assert.Equal(t, "/proj/", root)
	_, err = c.Typecheck(ctx, "A.juvix")
	require.NoError(t, err)
	require.NoError(t, c.Doc(ctx, "/proj/doc", "A.juvix"))
	v, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Juvix v0.6.1-abc", v)
	nv, err := c.NumericVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.6.1", nv)
	_, err = c.GlobalRoot(ctx)
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 7)
	assert.Equal(t, []string{"/opt/juvix", "--only-errors", "dev", "scope", "A.juvix", "--with-comments"}, calls[0].Argv)
	assert.Equal(t, []string{"/opt/juvix", "--only-errors", "dev", "root", "A.juvix"}, calls[1].Argv)
	assert.Equal(t, []string{"/opt/juvix", "typecheck", "A.juvix", "--only-errors"}, calls[2].Argv)
	assert.Equal(t, []string{"/opt/juvix", "--only-errors", "dev", "doc", "--output-dir", "/proj/doc", "A.juvix"}, calls[3].Argv)
	assert.Equal(t, []string{"/opt/juvix", "--version"}, calls[4].Argv)
	assert.Equal(t, []string{"/opt/juvix", "--numeric-version"}, calls[5].Argv)
	assert.Equal(t, []string{"/opt/juvix", "--only-errors", "dev", "root"}, calls[6].Argv)
	assert.Equal(t, os.TempDir(), calls[6].Dir)
}

func TestVersionSupport(t *testing.T) {
	assert.Equal(t, "0.6.0", juvix.SupportedVersion())

	ok, err := juvix.Supported("0.6.0")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = juvix.Supported("0.10.2")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = juvix.Supported("0.5.9")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = juvix.Supported("nightly")
	assert.Error(t, err)

	fake := testkit.NewFakeRunner().On("--numeric-version", testkit.Response{Stdout: "0.5.1\n"})
	c := juvix.NewClient("juvix", nil, juvix.WithRunner(fake))
	ok, installed, err := c.IsVersionSupported(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "0.5.1", installed)
}

func TestRunIsTraced(t *testing.T) {
	var buf bytes.Buffer
	tracer := trace.NewStreamTracer(&buf, trace.LevelProcess, trace.FormatText)
	fake := testkit.NewFakeRunner().On("dev root", testkit.Response{Stdout: "/p"})
	c := juvix.NewClient("juvix", nil, juvix.WithRunner(fake), juvix.WithTracer(tracer))

	_, err := c.Root(context.Background(), "x.juvix")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "→ juvix dev root")
	assert.Contains(t, buf.String(), "exit=0")
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	ctx := context.Background()

	res, err := juvix.ExecRunner{}.Run(ctx, juvix.Invocation{
		Argv:  []string{sh, "-c", "cat; echo oops >&2; exit 3"},
		Stdin: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "hello", string(res.Stdout))
	assert.Equal(t, "oops\n", string(res.Stderr))

	var live bytes.Buffer
	res, err = juvix.ExecRunner{}.Run(ctx, juvix.Invocation{
		Argv:   []string{sh, "-c", "echo $GREETING"},
		Env:    []string{"GREETING=hi"},
		Stdout: &live,
	})
	require.NoError(t, err)
	assert.Equal(t, "hi\n", live.String())
	assert.Equal(t, "hi\n", string(res.Stdout))

	_, err = juvix.ExecRunner{}.Run(ctx, juvix.Invocation{Argv: []string{filepath.Join(t.TempDir(), "missing-juvix")}})
	assert.True(t, errors.Is(err, juvix.ErrNotFound), "got %v", err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = juvix.ExecRunner{}.Run(cctx, juvix.Invocation{Argv: []string{sh, "-c", "sleep 5"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAvailable(t *testing.T) {
	fake := testkit.NewFakeRunner().On("--version", testkit.Response{Stdout: "vamp-ir 0.1.3"})
	assert.True(t, juvix.Available(context.Background(), fake, "vamp-ir"))

	missing := testkit.NewFakeRunner()
	missing.Default = testkit.Response{Err: juvix.ErrNotFound}
	assert.False(t, juvix.Available(context.Background(), missing, "vamp-ir"))
}
