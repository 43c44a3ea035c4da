package tasks

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"juvixmode/internal/config"
	"juvixmode/internal/juvix"
	"juvixmode/internal/testkit"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) forFile(file string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.File == file {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func statuses(events []Event) []Status {
	out := make([]Status, len(events))
	for i, e := range events {
		out[i] = e.Status
	}
	return out
}

func newRunner(fake *testkit.FakeRunner, sink Sink) *Runner {
	s := config.Default()
	s.Opts.NoColors = true
	return &Runner{Settings: s, Exec: fake, Sink: sink, Workspace: "/w", Jobs: 2}
}

func TestRunTypecheckCollectsFailures(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "A.juvix")
	b := filepath.Join(dir, "B.juvix")
	fake := testkit.NewFakeRunner().OnFunc("typecheck", func(inv juvix.Invocation) testkit.Response {
		if inv.Argv[2] == b {
			return testkit.Response{Stderr: "B.juvix:1:1: error: nope", ExitCode: 1}
		}
		return testkit.Response{Stdout: "Well done!"}
	})
	rec := &recorder{}
	def, _ := Lookup(Builtins(), "typecheck")

	err := newRunner(fake, rec).Run(context.Background(), def, []string{a, b})
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, b, runErr.File)
	_, isExit := juvix.IsExit(err)
	assert.True(t, isExit)

	assert.Equal(t, []Status{StatusQueued, StatusWorking, StatusDone}, statuses(rec.forFile(a)))
	assert.Equal(t, []Status{StatusQueued, StatusWorking, StatusError}, statuses(rec.forFile(b)))
	assert.Equal(t, Event{Task: "typecheck", Status: StatusError}, rec.last())

	calls := fake.CallsTo("typecheck")
	require.Len(t, calls, 2)
	for _, inv := range calls {
		assert.Equal(t, "/w", inv.Dir)
		assert.Equal(t, "--no-colors", inv.Argv[3])
	}
}

func TestRunChainsSteps(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Main.juvix")
	fake := testkit.NewFakeRunner().On("wasmer", testkit.Response{Stdout: "hello\n"})
	rec := &recorder{}
	var out bytes.Buffer
	r := newRunner(fake, rec)
	r.Stdout = &out
	def, _ := Lookup(Builtins(), "run")

	require.NoError(t, r.Run(context.Background(), def, []string{file}))

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"juvix", "compile", file, "--no-colors"}, calls[0].Argv)
	assert.Equal(t, []string{"wasmer", filepath.Join(dir, "Main.wasm")}, calls[1].Argv)
	assert.Equal(t, "hello\n", out.String())

	events := rec.forFile(file)
	require.Len(t, events, 4)
	assert.Equal(t, "compile", events[1].Step)
	assert.Equal(t, 1, events[1].StepIndex)
	assert.Equal(t, "wasmer", events[2].Step)
	assert.InDelta(t, 0.5, events[2].Progress(), 1e-9)
	assert.Equal(t, StatusDone, events[3].Status)
	assert.Equal(t, StatusDone, rec.last().Status)
}

func TestRunStopsAtFailedStep(t *testing.T) {
	file := filepath.Join(t.TempDir(), "Main.juvix")
	fake := testkit.NewFakeRunner().On("compile", testkit.Response{Stderr: "boom", ExitCode: 1})
	def, _ := Lookup(Builtins(), "run")

	err := newRunner(fake, nil).Run(context.Background(), def, []string{file})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile: Juvix's Error: boom")
	assert.Empty(t, fake.CallsTo("wasmer"))
}

func TestRunVampirTasks(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "range.pir")
	fake := testkit.NewFakeRunner()
	r := newRunner(fake, nil)
	r.Settings.Vampir.Path = "/opt/bin"
	ctx := context.Background()

	setup, _ := Lookup(Builtins(), "vampir setup")
	require.NoError(t, r.Run(ctx, setup, nil))
	compile, _ := Lookup(Builtins(), "vampir compile")
	require.NoError(t, r.Run(ctx, compile, []string{file}))

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{filepath.Join("/opt/bin", "vamp-ir"), "setup", "--unchecked", "-o", "params.pp"}, calls[0].Argv)
	assert.Equal(t, "/w", calls[0].Dir)
	assert.Equal(t, []string{
		filepath.Join("/opt/bin", "vamp-ir"), "compile", "-u", "params.pp", "--unchecked",
		"-s", file, "-o", "range.plonk",
	}, calls[1].Argv)
	assert.Equal(t, dir, calls[1].Dir)
}

func TestRunNeedsFile(t *testing.T) {
	def, _ := Lookup(Builtins(), "typecheck")
	err := newRunner(testkit.NewFakeRunner(), nil).Run(context.Background(), def, nil)
	require.ErrorIs(t, err, ErrNoFile)
}

func TestRunMissingBinary(t *testing.T) {
	fake := testkit.NewFakeRunner()
	fake.Default = testkit.Response{Err: juvix.ErrNotFound}
	def, _ := Lookup(Builtins(), "doctor")

	err := newRunner(fake, nil).Run(context.Background(), def, nil)
	require.ErrorIs(t, err, juvix.ErrNotFound)
}

func TestRunCancelled(t *testing.T) {
	fake := testkit.NewFakeRunner().On("doctor", testkit.Response{Block: true})
	def, _ := Lookup(Builtins(), "doctor")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- newRunner(fake, nil).Run(ctx, def, nil) }()
	<-fake.Started()
	cancel()

	err := <-done
	require.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestShouldReveal(t *testing.T) {
	cases := []struct {
		reveal string
		failed bool
		want   bool
	}{
		{config.RevealAlways, false, true},
		{config.RevealAlways, true, true},
		{config.RevealSilent, false, false},
		{config.RevealSilent, true, true},
		{config.RevealNever, true, false},
	}
	for _, tc := range cases {
		name := tc.reveal
		if tc.failed {
			name += " failed"
		}
		t.Run(strings.ReplaceAll(name, " ", "_"), func(t *testing.T) {
			assert.Equal(t, tc.want, ShouldReveal(tc.reveal, tc.failed))
		})
	}
}
