// Package config holds user settings for the language server and CLI.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"juvixmode/internal/trace"
)

// Settings mirrors the juvix-mode.* editor settings.
type Settings struct {
	Bin    BinSettings `toml:"bin" json:"bin"`
	Vampir BinSettings `toml:"vampir" json:"vampir"`
	Opts   Opts        `toml:"opts" json:"opts"`

	CompilationTarget  string `toml:"compilationTarget" json:"compilationTarget"`
	CompilationRuntime string `toml:"compilationRuntime" json:"compilationRuntime"`
	CompilationOutput  string `toml:"compilationOutput" json:"compilationOutput"`

	EnableSemanticSyntax bool   `toml:"enableSemanticSyntax" json:"enableSemanticSyntax"`
	TypecheckOn          string `toml:"typecheckOn" json:"typecheckOn"`
	CodeLens             bool   `toml:"codeLens" json:"codeLens"`
	ReloadReplOnSave     bool   `toml:"reloadReplOnSave" json:"reloadReplOnSave"`
	RevealPanel          string `toml:"revealPanel" json:"revealPanel"`

	Input InputSettings  `toml:"input" json:"input"`
	Cache CacheSettings  `toml:"cache" json:"cache"`
	Trace TraceSettings  `toml:"trace" json:"trace"`
	Tasks []TaskSettings `toml:"tasks" json:"tasks"`
}

// BinSettings locates an executable. An empty Path means $PATH lookup.
type BinSettings struct {
	Name string `toml:"name" json:"name"`
	Path string `toml:"path" json:"path"`
}

// Opts are the compiler's global flags.
type Opts struct {
	NoColors      bool `toml:"noColors" json:"noColors"`
	ShowNameIds   bool `toml:"showNameIds" json:"showNameIds"`
	OnlyErrors    bool `toml:"onlyErrors" json:"onlyErrors"`
	NoTermination bool `toml:"noTermination" json:"noTermination"`
	NoPositivity  bool `toml:"noPositivity" json:"noPositivity"`
	NoStdlib      bool `toml:"noStdlib" json:"noStdlib"`
}

// InputSettings configures unicode abbreviation input.
type InputSettings struct {
	Enabled            bool              `toml:"enabled" json:"enabled"`
	Leader             string            `toml:"leader" json:"leader"`
	CustomTranslations map[string]string `toml:"customTranslations" json:"customTranslations"`
}

// CacheSettings enables the highlight payload cache. Memory is the number of
// payloads kept in memory; 0 disables the in-memory layer. Entries in either
// layer are dropped once an imported module or the project manifest changes.
type CacheSettings struct {
	Memory int  `toml:"memory" json:"memory"`
	Disk   bool `toml:"disk" json:"disk"`
}

// TraceSettings selects the tracer; see package trace.
type TraceSettings struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
	Output string `toml:"output" json:"output"`
}

// TaskSettings declares a user task run like the built-in ones.
type TaskSettings struct {
	Name string   `toml:"name" json:"name"`
	Tool string   `toml:"tool" json:"tool"`
	Args []string `toml:"args" json:"args"`
}

// Typecheck triggers.
const (
	TypecheckOnChange = "change"
	TypecheckOnSave   = "save"
	TypecheckOnNone   = "none"
)

// Panel reveal modes for task output.
const (
	RevealAlways = "always"
	RevealSilent = "silent"
	RevealNever  = "never"
)

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Bin:                  BinSettings{Name: "juvix"},
		Vampir:               BinSettings{Name: "vamp-ir"},
		EnableSemanticSyntax: true,
		TypecheckOn:          TypecheckOnSave,
		CodeLens:             true,
		RevealPanel:          RevealAlways,
		Input: InputSettings{
			Enabled: true,
			Leader:  `\`,
		},
		Trace: TraceSettings{Level: "off"},
	}
}

// JuvixExec is the compiler executable, joined with Bin.Path when set.
func (s Settings) JuvixExec() string {
	return joinExec(s.Bin, "juvix")
}

// VampirExec is the vamp-ir executable.
func (s Settings) VampirExec() string {
	return joinExec(s.Vampir, "vamp-ir")
}

func joinExec(b BinSettings, fallback string) string {
	name := strings.TrimSpace(b.Name)
	if name == "" {
		name = fallback
	}
	path := strings.TrimSpace(b.Path)
	if path == "" {
		return name
	}
	return filepath.Join(path, name)
}

// GlobalFlags renders Opts as compiler flags.
func (s Settings) GlobalFlags() []string {
	var flags []string
	if s.Opts.NoColors {
		flags = append(flags, "--no-colors")
	}
	if s.Opts.ShowNameIds {
		flags = append(flags, "--show-name-ids")
	}
	if s.Opts.OnlyErrors {
		flags = append(flags, "--only-errors")
	}
	if s.Opts.NoTermination {
		flags = append(flags, "--no-termination")
	}
	if s.Opts.NoPositivity {
		flags = append(flags, "--no-positivity")
	}
	if s.Opts.NoStdlib {
		flags = append(flags, "--no-stdlib")
	}
	return flags
}

// CompilationFlags renders the compilation target, runtime and output.
func (s Settings) CompilationFlags() []string {
	var flags []string
	if v := strings.TrimSpace(s.CompilationTarget); v != "" {
		flags = append(flags, "--target", v)
	}
	if v := strings.TrimSpace(s.CompilationRuntime); v != "" {
		flags = append(flags, "--runtime", v)
	}
	if v := strings.TrimSpace(s.CompilationOutput); v != "" {
		flags = append(flags, "--output", v)
	}
	return flags
}

// Validate rejects values outside their enumerations.
func (s Settings) Validate() error {
	switch s.TypecheckOn {
	case TypecheckOnChange, TypecheckOnSave, TypecheckOnNone:
	default:
		return fmt.Errorf("typecheckOn: %q is not one of change|save|none", s.TypecheckOn)
	}
	switch s.RevealPanel {
	case RevealAlways, RevealSilent, RevealNever:
	default:
		return fmt.Errorf("revealPanel: %q is not one of always|silent|never", s.RevealPanel)
	}
	if s.Cache.Memory < 0 {
		return fmt.Errorf("cache.memory: must not be negative, got %d", s.Cache.Memory)
	}
	if _, err := trace.ParseLevel(s.Trace.Level); err != nil {
		return err
	}
	if _, err := trace.ParseFormat(s.Trace.Format); err != nil {
		return err
	}
	for i, t := range s.Tasks {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("tasks[%d]: name is required", i)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	if s.Input.CustomTranslations != nil {
		out.Input.CustomTranslations = make(map[string]string, len(s.Input.CustomTranslations))
		for k, v := range s.Input.CustomTranslations {
			out.Input.CustomTranslations[k] = v
		}
	}
	if s.Tasks != nil {
		out.Tasks = make([]TaskSettings, len(s.Tasks))
		for i, t := range s.Tasks {
			t.Args = append([]string(nil), t.Args...)
			out.Tasks[i] = t
		}
	}
	return out
}
