package config

import (
	"encoding/json"
	"fmt"
)

// Section is the key editors nest the settings under.
const Section = "juvix-mode"

// Overlay is a partial Settings as sent by workspace/didChangeConfiguration
// or initializationOptions. Absent keys keep their current value.
type Overlay struct {
	Bin    *BinOverlay  `json:"bin,omitempty"`
	Vampir *BinOverlay  `json:"vampir,omitempty"`
	Opts   *OptsOverlay `json:"opts,omitempty"`

	CompilationTarget  *string `json:"compilationTarget,omitempty"`
	CompilationRuntime *string `json:"compilationRuntime,omitempty"`
	CompilationOutput  *string `json:"compilationOutput,omitempty"`

	EnableSemanticSyntax *bool   `json:"enableSemanticSyntax,omitempty"`
	TypecheckOn          *string `json:"typecheckOn,omitempty"`
	CodeLens             *bool   `json:"codeLens,omitempty"`
	ReloadReplOnSave     *bool   `json:"reloadReplOnSave,omitempty"`
	RevealPanel          *string `json:"revealPanel,omitempty"`

	Input *InputOverlay `json:"input,omitempty"`
	Trace *TraceOverlay `json:"trace,omitempty"`
}

type BinOverlay struct {
	Name *string `json:"name,omitempty"`
	Path *string `json:"path,omitempty"`
}

type OptsOverlay struct {
	NoColors      *bool `json:"noColors,omitempty"`
	ShowNameIds   *bool `json:"showNameIds,omitempty"`
	OnlyErrors    *bool `json:"onlyErrors,omitempty"`
	NoTermination *bool `json:"noTermination,omitempty"`
	NoPositivity  *bool `json:"noPositivity,omitempty"`
	NoStdlib      *bool `json:"noStdlib,omitempty"`
}

type InputOverlay struct {
	Enabled            *bool             `json:"enabled,omitempty"`
	Leader             *string           `json:"leader,omitempty"`
	CustomTranslations map[string]string `json:"customTranslations,omitempty"`
}

type TraceOverlay struct {
	Level *string `json:"level,omitempty"`
}

// ParseOverlay accepts either {"juvix-mode": {...}} or the inner object.
func ParseOverlay(raw json.RawMessage) (Overlay, error) {
	var o Overlay
	if len(raw) == 0 || string(raw) == "null" {
		return o, nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return o, fmt.Errorf("settings: %w", err)
	}
	if inner, ok := wrapper[Section]; ok {
		raw = inner
	}
	if err := json.Unmarshal(raw, &o); err != nil {
		return o, fmt.Errorf("settings: %w", err)
	}
	return o, nil
}

// Apply returns s with every key present in o replaced. The result is
// validated; on error s is returned unchanged alongside the error.
func (s Settings) Apply(o Overlay) (Settings, error) {
	out := s.Clone()
	if o.Bin != nil {
		setString(&out.Bin.Name, o.Bin.Name)
		setString(&out.Bin.Path, o.Bin.Path)
	}
	if o.Vampir != nil {
		setString(&out.Vampir.Name, o.Vampir.Name)
		setString(&out.Vampir.Path, o.Vampir.Path)
	}
	if o.Opts != nil {
		setBool(&out.Opts.NoColors, o.Opts.NoColors)
		setBool(&out.Opts.ShowNameIds, o.Opts.ShowNameIds)
		setBool(&out.Opts.OnlyErrors, o.Opts.OnlyErrors)
		setBool(&out.Opts.NoTermination, o.Opts.NoTermination)
		setBool(&out.Opts.NoPositivity, o.Opts.NoPositivity)
		setBool(&out.Opts.NoStdlib, o.Opts.NoStdlib)
	}
	setString(&out.CompilationTarget, o.CompilationTarget)
	setString(&out.CompilationRuntime, o.CompilationRuntime)
	setString(&out.CompilationOutput, o.CompilationOutput)
	setBool(&out.EnableSemanticSyntax, o.EnableSemanticSyntax)
	setString(&out.TypecheckOn, o.TypecheckOn)
	setBool(&out.CodeLens, o.CodeLens)
	setBool(&out.ReloadReplOnSave, o.ReloadReplOnSave)
	setString(&out.RevealPanel, o.RevealPanel)
	if o.Input != nil {
		setBool(&out.Input.Enabled, o.Input.Enabled)
		setString(&out.Input.Leader, o.Input.Leader)
		if o.Input.CustomTranslations != nil {
			out.Input.CustomTranslations = o.Input.CustomTranslations
		}
	}
	if o.Trace != nil {
		setString(&out.Trace.Level, o.Trace.Level)
	}
	if err := out.Validate(); err != nil {
		return s, err
	}
	return out, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
