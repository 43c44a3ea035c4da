package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"juvixmode/internal/config"
	"juvixmode/internal/highlight"
	"juvixmode/internal/juvix"
	"juvixmode/internal/tasks"
	"juvixmode/internal/testkit"
)

func TestReadUIMode(t *testing.T) {
	cases := []struct {
		input string
		want  uiMode
	}{
		{"", uiModeAuto},
		{"AUTO", uiModeAuto},
		{"on", uiModeOn},
		{" off ", uiModeOff},
	}
	for _, tc := range cases {
		got, err := readUIMode(tc.input)
		if err != nil {
			t.Fatalf("readUIMode(%q) error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("readUIMode(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected an error for an invalid mode")
	}
	if !shouldUseTUI(uiModeOn) || shouldUseTUI(uiModeOff) {
		t.Fatalf("explicit modes must win over terminal detection")
	}
}

func TestTaskPresentation(t *testing.T) {
	p, err := newTaskPresentation("off", "", config.RevealAlways)
	if err != nil {
		t.Fatalf("newTaskPresentation: %v", err)
	}
	if p.tui || !p.streams() {
		t.Fatalf("plain run with reveal=always should stream, got %+v", p)
	}
	p, err = newTaskPresentation("off", config.RevealSilent, config.RevealAlways)
	if err != nil {
		t.Fatalf("newTaskPresentation: %v", err)
	}
	if p.reveal != config.RevealSilent || p.streams() {
		t.Fatalf("flag should override the setting and hold output, got %+v", p)
	}
	p, err = newTaskPresentation("on", "", config.RevealAlways)
	if err != nil {
		t.Fatalf("newTaskPresentation: %v", err)
	}
	if !p.tui || p.streams() {
		t.Fatalf("progress view must hold output, got %+v", p)
	}
	if _, err := newTaskPresentation("off", "sometimes", config.RevealAlways); err == nil {
		t.Fatalf("expected an error for an invalid reveal policy")
	}
}

func TestResolveTask(t *testing.T) {
	defs := tasks.Builtins()
	cases := []struct {
		args      []string
		wantName  string
		wantFiles []string
	}{
		{[]string{"typecheck", "A.juvix", "B.juvix"}, "typecheck", []string{"A.juvix", "B.juvix"}},
		{[]string{"dev parse", "A.juvix"}, "dev parse", []string{"A.juvix"}},
		{[]string{"dev", "scope", "A.juvix"}, "dev scope", []string{"A.juvix"}},
		{[]string{"vampir", "setup"}, "vampir setup", []string{}},
	}
	for _, tc := range cases {
		def, files, err := resolveTask(defs, tc.args)
		if err != nil {
			t.Fatalf("resolveTask(%q) error: %v", tc.args, err)
		}
		if def.Name != tc.wantName {
			t.Fatalf("resolveTask(%q) = %q, want %q", tc.args, def.Name, tc.wantName)
		}
		if strings.Join(files, ",") != strings.Join(tc.wantFiles, ",") {
			t.Fatalf("resolveTask(%q) files = %q, want %q", tc.args, files, tc.wantFiles)
		}
	}
	_, _, err := resolveTask(defs, []string{"deploy"})
	if err == nil || !strings.Contains(err.Error(), `unknown task "deploy"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRenderTokenTable(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	text := "𝔸 : Type;\n"
	tokens := []highlight.SemanticToken{
		{Line: 0, Start: 0, Length: 2, Type: highlight.EncodeTokenType("axiom")},
		{Line: 0, Start: 5, Length: 4, Type: highlight.EncodeTokenType("type")},
		{Line: 3, Start: 0, Length: 1, Type: 99},
	}
	var out bytes.Buffer
	renderTokenTable(&out, tokens, highlight.Lines(text))

	want := "1:1\t2\taxiom\t\"𝔸\"\n" +
		"1:6\t4\ttype\t\"Type\"\n" +
		"4:1\t1\tunknown\t\"\"\n"
	if out.String() != want {
		t.Fatalf("unexpected table:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestCollectStatus(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "juvix.yaml"), []byte("name: demo\nversion: 0.1.0\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	fake := testkit.NewFakeRunner()
	fake.OnFunc("--version", func(inv juvix.Invocation) testkit.Response {
		if inv.Argv[0] == "juvix" {
			return testkit.Response{Stdout: "Juvix version 0.6.2-abc\n"}
		}
		return testkit.Response{Err: juvix.ErrNotFound}
	})
	fake.On("--numeric-version", testkit.Response{Stdout: "0.6.2\n"})

	report, err := collectStatus(context.Background(), config.Default(), fake, dir)
	if err != nil {
		t.Fatalf("collectStatus: %v", err)
	}
	if !report.binaries[0].Found() || report.binaries[1].Found() || report.binaries[2].Found() {
		t.Fatalf("unexpected probes: %+v", report.binaries)
	}
	if !report.supported || report.numeric != "0.6.2" {
		t.Fatalf("version check = %v %q", report.supported, report.numeric)
	}

	var out bytes.Buffer
	renderStatus(&out, report)
	for _, want := range []string{
		"juvix    ok  Juvix version 0.6.2-abc",
		"vamp-ir  missing",
		"version  ok  0.6.2 >= " + juvix.SupportedVersion(),
		"project  demo  " + dir,
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("status output lacks %q:\n%s", want, out.String())
		}
	}
}

func TestRenderVersionJSON(t *testing.T) {
	report := buildVersionReport(true)
	report.Version = "1.2.3"
	report.Juvix = "0.6.2"
	var out bytes.Buffer
	if err := renderVersionJSON(&out, report); err != nil {
		t.Fatalf("renderVersionJSON: %v", err)
	}
	var payload versionReport
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Tool != "juvixmode" || payload.Version != "1.2.3" || payload.GitCommit != "unknown" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.SupportsJuvix != juvix.SupportedVersion() || payload.Juvix != "0.6.2" {
		t.Fatalf("unexpected juvix fields: %+v", payload)
	}
}

func TestRenderVersionPrettyProbeError(t *testing.T) {
	report := buildVersionReport(false)
	report.JuvixError = "juvix: executable not found"
	var out bytes.Buffer
	renderVersionPretty(&out, report)
	if strings.Contains(out.String(), "commit:") {
		t.Fatalf("build info printed without --build:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "juvix:  juvix: executable not found") {
		t.Fatalf("probe error missing:\n%s", out.String())
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A.juvix")
	if err := os.WriteFile(path, []byte("module A;"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writeFileAtomic(path, "module A;\n"); err != nil {
		t.Fatalf("writeFileAtomic: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "module A;\n" {
		t.Fatalf("content = %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}
}
