// Package testkit provides test doubles for code that shells out to the
// compiler.
package testkit

import (
	"context"
	"strings"
	"sync"

	"juvixmode/internal/juvix"
)

// Response is a canned process outcome.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error

	// Block makes the call wait until its context is cancelled.
	Block bool
}

type rule struct {
	sub string
	fn  func(inv juvix.Invocation) Response
}

// FakeRunner implements juvix.Runner from a table of subcommand rules and
// records every invocation.
type FakeRunner struct {
	mu      sync.Mutex
	rules   []rule
	calls   []juvix.Invocation
	started chan juvix.Invocation

	// Default answers invocations no rule matched.
	Default Response
}

// NewFakeRunner returns a runner answering every call with exit 0 and no
// output until rules are added.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{started: make(chan juvix.Invocation, 64)}
}

// On answers invocations whose words contain sub, e.g. "dev highlight".
// Later rules take precedence over earlier ones.
func (f *FakeRunner) On(sub string, resp Response) *FakeRunner {
	return f.OnFunc(sub, func(juvix.Invocation) Response { return resp })
}

// OnFunc is On with a computed response.
func (f *FakeRunner) OnFunc(sub string, fn func(inv juvix.Invocation) Response) *FakeRunner {
	f.mu.Lock()
	f.rules = append(f.rules, rule{sub: sub, fn: fn})
	f.mu.Unlock()
	return f
}

// Run implements juvix.Runner.
func (f *FakeRunner) Run(ctx context.Context, inv juvix.Invocation) (juvix.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	resp := f.Default
	words := " " + strings.Join(inv.Argv, " ") + " "
	matched := false
	for i := len(f.rules) - 1; i >= 0 && !matched; i-- {
		if strings.Contains(words, " "+f.rules[i].sub+" ") {
			fn := f.rules[i].fn
			f.mu.Unlock()
			resp = fn(inv)
			f.mu.Lock()
			matched = true
		}
	}
	f.mu.Unlock()

	select {
	case f.started <- inv:
	default:
	}

	if resp.Block {
		<-ctx.Done()
		return juvix.Result{}, ctx.Err()
	}
	if resp.Err != nil {
		return juvix.Result{}, resp.Err
	}
	if inv.Stdout != nil && resp.Stdout != "" {
		_, _ = inv.Stdout.Write([]byte(resp.Stdout))
	}
	if inv.Stderr != nil && resp.Stderr != "" {
		_, _ = inv.Stderr.Write([]byte(resp.Stderr))
	}
	return juvix.Result{
		Stdout:   []byte(resp.Stdout),
		Stderr:   []byte(resp.Stderr),
		ExitCode: resp.ExitCode,
	}, nil
}

// Started delivers invocations as they begin, for tests that need to wait
// for a call to be in flight.
func (f *FakeRunner) Started() <-chan juvix.Invocation {
	return f.started
}

// Calls returns the invocations seen so far.
func (f *FakeRunner) Calls() []juvix.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]juvix.Invocation(nil), f.calls...)
}

// CallsTo returns the invocations whose words contain sub.
func (f *FakeRunner) CallsTo(sub string) []juvix.Invocation {
	var out []juvix.Invocation
	for _, inv := range f.Calls() {
		if strings.Contains(" "+strings.Join(inv.Argv, " ")+" ", " "+sub+" ") {
			out = append(out, inv)
		}
	}
	return out
}
