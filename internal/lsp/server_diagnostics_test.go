package lsp

import (
	"encoding/json"
	"fmt"
	"testing"

	"juvixmode/internal/config"
	"juvixmode/internal/testkit"
)

func TestTypecheckPublishesAndClears(t *testing.T) {
	dir := t.TempDir()
	path, uri := writeSource(t, dir, "f.juvix", "module f;\nx : Nat := y;\n")
	runner := testkit.NewFakeRunner().On("typecheck", testkit.Response{
		Stderr:   fmt.Sprintf("%s:2:12-13: error:\nThe identifier y is not in scope\n", path),
		ExitCode: 1,
	})
	server, out := newTestServer(t, runner)
	openDocument(t, server, uri, "module f;\nx : Nat := y;\n")
	runPendingDiagnostics(server)

	publishes := notificationsOf(out.messages(t), "textDocument/publishDiagnostics")
	if len(publishes) != 1 {
		t.Fatalf("expected one publish, got %d", len(publishes))
	}
	var params publishDiagnosticsParams
	decodeParams(t, publishes[0], &params)
	if params.URI != uri || len(params.Diagnostics) != 1 {
		t.Fatalf("unexpected publish %+v", params)
	}
	got := params.Diagnostics[0]
	if got.Range.Start != (position{Line: 1, Character: 11}) || got.Range.End != (position{Line: 1, Character: 13}) {
		t.Fatalf("unexpected range %+v", got.Range)
	}
	if got.Message != "The identifier y is not in scope" || got.Severity != 1 || got.Source != "juvix" {
		t.Fatalf("unexpected diagnostic %+v", got)
	}

	runner.On("typecheck", testkit.Response{Stdout: "Well done! It type checks\n"})
	notifyServer(t, server, "textDocument/didSave", didSaveTextDocumentParams{TextDocument: textDocumentIdentifier{URI: uri}})
	runPendingDiagnostics(server)

	publishes = notificationsOf(out.messages(t), "textDocument/publishDiagnostics")
	if len(publishes) != 2 {
		t.Fatalf("expected a clearing publish, got %d publishes", len(publishes))
	}
	decodeParams(t, publishes[1], &params)
	if params.URI != uri || len(params.Diagnostics) != 0 {
		t.Fatalf("expected diagnostics to be cleared, got %+v", params)
	}
}

func TestTypecheckFailureWithoutLocation(t *testing.T) {
	path, uri := writeSource(t, t.TempDir(), "f.juvix", "module f;\n")
	runner := testkit.NewFakeRunner().On("typecheck", testkit.Response{Stderr: "juvix: package error\n", ExitCode: 1})
	server, out := newTestServer(t, runner)
	openDocument(t, server, uri, "module f;\n")
	runPendingDiagnostics(server)

	publishes := notificationsOf(out.messages(t), "textDocument/publishDiagnostics")
	if len(publishes) != 1 {
		t.Fatalf("expected one publish, got %d", len(publishes))
	}
	var params publishDiagnosticsParams
	decodeParams(t, publishes[0], &params)
	if len(params.Diagnostics) != 1 || params.Diagnostics[0].Message != "juvix: package error" {
		t.Fatalf("unexpected diagnostics %+v", params.Diagnostics)
	}
	calls := runner.CallsTo("typecheck")
	if len(calls) != 1 || calls[0].Argv[2] != path {
		t.Fatalf("unexpected typecheck calls %+v", calls)
	}
}

func TestTypecheckOnSettings(t *testing.T) {
	cases := []struct {
		on     string
		change bool
		save   bool
	}{
		{on: config.TypecheckOnChange, change: true, save: true},
		{on: config.TypecheckOnSave, change: false, save: true},
		{on: config.TypecheckOnNone, change: false, save: false},
	}
	for _, tc := range cases {
		t.Run(tc.on, func(t *testing.T) {
			_, uri := writeSource(t, t.TempDir(), "f.juvix", "module f;\n")
			server, _ := newTestServer(t, testkit.NewFakeRunner(), func(s *config.Settings) { s.TypecheckOn = tc.on })
			server.mu.Lock()
			server.openDocs[uri] = "module f;\n"
			server.mu.Unlock()

			notifyServer(t, server, "textDocument/didChange", didChangeTextDocumentParams{
				TextDocument:   versionedTextDocumentIdentifier{URI: uri, Version: 2},
				ContentChanges: []textDocumentContentChangeEvent{{Text: "module f;\n\n"}},
			})
			if got := pendingCheck(server, uri); got != tc.change {
				t.Fatalf("didChange scheduled=%v, want %v", got, tc.change)
			}
			notifyServer(t, server, "textDocument/didSave", didSaveTextDocumentParams{TextDocument: textDocumentIdentifier{URI: uri}})
			if got := pendingCheck(server, uri); got != tc.save {
				t.Fatalf("didSave scheduled=%v, want %v", got, tc.save)
			}
		})
	}
}

func pendingCheck(server *Server, uri string) bool {
	server.mu.Lock()
	defer server.mu.Unlock()
	_, ok := server.pendingChecks[uri]
	return ok
}

func TestTypecheckCommand(t *testing.T) {
	path, uri := writeSource(t, t.TempDir(), "f.juvix", "module f;\n")
	runner := testkit.NewFakeRunner().On("typecheck", testkit.Response{
		Stderr:   path + ":1:1: warning: unused\n",
		ExitCode: 0,
	})
	server, out := newTestServer(t, runner, func(s *config.Settings) { s.TypecheckOn = config.TypecheckOnNone })
	openDocument(t, server, uri, "module f;\n")

	request(t, server, 4, "workspace/executeCommand", executeCommandParams{
		Command:   cmdTypecheck,
		Arguments: []json.RawMessage{mustJSON(t, uri)},
	})
	server.Wait()

	msgs := out.messages(t)
	var passed bool
	decodeResult(t, responseTo(t, msgs, 4), &passed)
	if !passed {
		t.Fatalf("a check with only warnings should pass")
	}
	publishes := notificationsOf(msgs, "textDocument/publishDiagnostics")
	if len(publishes) != 1 {
		t.Fatalf("expected one publish, got %d", len(publishes))
	}
	var params publishDiagnosticsParams
	decodeParams(t, publishes[0], &params)
	if len(params.Diagnostics) != 1 || params.Diagnostics[0].Severity != 2 {
		t.Fatalf("expected one warning, got %+v", params.Diagnostics)
	}
}

func TestShutdownClearsDiagnostics(t *testing.T) {
	path, uri := writeSource(t, t.TempDir(), "f.juvix", "module f;\n")
	runner := testkit.NewFakeRunner().On("typecheck", testkit.Response{Stderr: path + ":1:1: error: bad\n", ExitCode: 1})
	server, out := newTestServer(t, runner)
	openDocument(t, server, uri, "module f;\n")
	runPendingDiagnostics(server)

	request(t, server, 9, "shutdown", nil)
	msgs := out.messages(t)
	publishes := notificationsOf(msgs, "textDocument/publishDiagnostics")
	if len(publishes) != 2 {
		t.Fatalf("expected publish then clear, got %d", len(publishes))
	}
	var params publishDiagnosticsParams
	decodeParams(t, publishes[1], &params)
	if len(params.Diagnostics) != 0 {
		t.Fatalf("expected cleared diagnostics, got %+v", params.Diagnostics)
	}
	if string(responseTo(t, msgs, 9).Result) != "null" {
		t.Fatalf("shutdown should answer null")
	}
}
