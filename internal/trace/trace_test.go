package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Kind     string            `json:"kind"`
	Scope    string            `json:"scope"`
	SpanID   uint64            `json:"span_id"`
	ParentID uint64            `json:"parent_id"`
	Name     string            `json:"name"`
	Detail   string            `json:"detail"`
	Extra    map[string]string `json:"extra"`
}

func records(t *testing.T, buf *bytes.Buffer) []record {
	t.Helper()
	var out []record
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var r record
		require.NoError(t, json.Unmarshal([]byte(line), &r), line)
		out = append(out, r)
	}
	return out
}

func TestLevelScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeServer, false},
		{LevelError, ScopeServer, false},
		{LevelRequest, ScopeRequest, true},
		{LevelRequest, ScopeProcess, false},
		{LevelProcess, ScopeProcess, true},
		{LevelProcess, ScopeIndex, false},
		{LevelDebug, ScopeIndex, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.level.ShouldEmit(tc.scope), "%s/%s", tc.level, tc.scope)
	}

	for _, name := range []string{"off", "error", "request", "process", "debug"} {
		l, err := ParseLevel(" " + strings.ToUpper(name) + " ")
		require.NoError(t, err)
		assert.Equal(t, name, l.String())
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestStartSpanNestsUnderContextSpan(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewStreamTracer(&buf, LevelProcess, FormatNDJSON)
	ctx := WithTracer(context.Background(), tracer)

	ctx, req := StartSpan(ctx, ScopeRequest, "semanticTokens")
	_, proc := StartSpan(ctx, ScopeProcess, "juvix dev highlight")
	proc.Fail(errors.New("exit status 1"))
	Point(tracer, ScopeIndex, "install", "hidden below debug")
	req.End("")

	recs := records(t, &buf)
	require.Len(t, recs, 4)
	assert.Equal(t, "begin", recs[0].Kind)
	assert.Zero(t, recs[0].ParentID)
	assert.Equal(t, req.ID(), recs[1].ParentID)
	assert.Equal(t, "process", recs[1].Scope)

	assert.Equal(t, "end", recs[2].Kind)
	assert.Equal(t, "failed", recs[2].Detail)
	assert.Equal(t, "exit status 1", recs[2].Extra["error"])
	assert.Equal(t, "semanticTokens", recs[3].Name)
}

func TestErrorLevelEmitsOnlyFailures(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewStreamTracer(&buf, LevelError, FormatNDJSON)

	Begin(tracer, ScopeRequest, "hover", 0).End("")
	Begin(tracer, ScopeProcess, "juvix typecheck", 0).Fail(errors.New("boom"))

	recs := records(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "juvix typecheck", recs[0].Name)
	assert.Equal(t, "boom", recs[0].Extra["error"])
}

func TestDisabledTracing(t *testing.T) {
	tracer, err := New(Config{Level: LevelOff})
	require.NoError(t, err)
	assert.Equal(t, Nop, tracer)

	ctx, span := StartSpan(context.Background(), ScopeRequest, "definition")
	assert.Zero(t, span.ID())
	assert.Zero(t, CurrentSpan(ctx))
	assert.Zero(t, span.WithExtra("k", "v").End(""))
	assert.Equal(t, Nop, FromContext(WithTracer(context.Background(), nil)))
}

func TestFormats(t *testing.T) {
	f, err := ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatNDJSON, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)

	var buf bytes.Buffer
	tracer := NewStreamTracer(&buf, LevelDebug, FormatText)
	span := Begin(tracer, ScopeProcess, "vamp-ir setup", 0).WithExtra("exit", "0").WithExtra("argv", "vamp-ir setup")
	span.End("ok")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "process → vamp-ir setup")
	assert.Contains(t, lines[1], "← vamp-ir setup")
	assert.True(t, strings.HasSuffix(lines[1], "(ok) {argv=vamp-ir setup, exit=0}"), lines[1])
}
