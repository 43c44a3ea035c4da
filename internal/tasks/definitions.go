package tasks

import (
	"fmt"
	"sort"
	"strings"

	"juvixmode/internal/config"
)

// Tool names an executable a step runs. The juvix and vamp-ir executables
// come from settings; any other tool is looked up on $PATH.
type Tool string

const (
	ToolJuvix  Tool = "juvix"
	ToolVampir Tool = "vamp-ir"
	ToolWasmer Tool = "wasmer"
)

// Step is one process invocation. Args and Dir are templates, see Expand.
type Step struct {
	Name string
	Tool Tool
	Args []string
	Dir  string
}

// Definition is a named task. A task that needs a file fails when run
// without one; other tasks run once, or once per file when files are given.
type Definition struct {
	Name      string
	Detail    string
	NeedsFile bool
	Steps     []Step
}

func juvixTask(name, detail string, args ...string) Definition {
	return Definition{
		Name:      name,
		Detail:    detail,
		NeedsFile: usesFile(args),
		Steps:     []Step{{Name: name, Tool: ToolJuvix, Args: args}},
	}
}

func vampirTask(command, detail string, args ...string) Definition {
	name := "vampir " + command
	return Definition{
		Name:      name,
		Detail:    detail,
		NeedsFile: usesFile(args),
		Steps: []Step{{
			Name: name,
			Tool: ToolVampir,
			Args: append([]string{command}, args...),
			Dir:  "${fileDirname}",
		}},
	}
}

// Builtins returns the built-in task definitions in display order.
func Builtins() []Definition {
	defs := []Definition{
		juvixTask("doctor", "check the installation", "doctor"),
		juvixTask("typecheck", "typecheck the file", "typecheck", "${file}", "${globalFlags}"),
		juvixTask("compile", "compile the file", "compile", "${compilationFlags}", "${file}", "${globalFlags}"),
		{
			Name:      "run",
			Detail:    "compile the file to wasm and run it with wasmer",
			NeedsFile: true,
			Steps: []Step{
				{Name: "compile", Tool: ToolJuvix, Args: []string{"compile", "${file}", "${globalFlags}"}},
				{Name: "wasmer", Tool: ToolWasmer, Args: []string{"${fileDirname}${pathSeparator}${fileBasenameNoExtension}.wasm"}},
			},
		},
		juvixTask("html", "render the module as HTML", "html", "${file}"),
		juvixTask("dev parse", "print the parsed module", "dev", "parse", "${file}", "${globalFlags}"),
		juvixTask("dev scope", "print the scoped module", "dev", "scope", "${file}", "${globalFlags}"),
		vampirTask("setup", "generate params.pp", "--unchecked", "-o", "params.pp"),
		vampirTask("compile", "compile the circuit",
			"-u", "params.pp", "--unchecked", "-s", "${file}", "-o", "${fileBasenameNoExtension}.plonk"),
		vampirTask("prove", "produce a proof",
			"-u", "params.pp", "--unchecked", "-c", "${fileBasenameNoExtension}.plonk", "-o", "${fileBasenameNoExtension}.proof"),
		vampirTask("verify", "verify the proof",
			"-u", "params.pp", "--unchecked", "-c", "${fileBasenameNoExtension}.plonk", "-p", "${fileBasenameNoExtension}.proof"),
	}
	return defs
}

// Definitions returns the built-ins followed by the user tasks in settings.
// A user task shadows a built-in of the same name.
func Definitions(s config.Settings) ([]Definition, error) {
	defs := Builtins()
	index := make(map[string]int, len(defs))
	for i, d := range defs {
		index[d.Name] = i
	}
	for _, t := range s.Tasks {
		def, err := fromSettings(t)
		if err != nil {
			return nil, err
		}
		if i, ok := index[def.Name]; ok {
			defs[i] = def
			continue
		}
		index[def.Name] = len(defs)
		defs = append(defs, def)
	}
	return defs, nil
}

func fromSettings(t config.TaskSettings) (Definition, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return Definition{}, fmt.Errorf("task without a name")
	}
	tool := Tool(strings.TrimSpace(t.Tool))
	if tool == "" {
		tool = ToolJuvix
	}
	for _, arg := range t.Args {
		if err := checkVars(arg); err != nil {
			return Definition{}, fmt.Errorf("task %q: %w", name, err)
		}
	}
	args := append([]string(nil), t.Args...)
	step := Step{Name: name, Tool: tool, Args: args}
	if tool == ToolVampir {
		step.Dir = "${fileDirname}"
	}
	return Definition{
		Name:      name,
		Detail:    "user task",
		NeedsFile: usesFile(args),
		Steps:     []Step{step},
	}, nil
}

// Lookup finds the definition called name.
func Lookup(defs []Definition, name string) (Definition, bool) {
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Names returns the sorted task names.
func Names(defs []Definition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	sort.Strings(names)
	return names
}

// CommandLine renders the steps with their templates unexpanded.
func (d Definition) CommandLine() string {
	parts := make([]string, len(d.Steps))
	for i, s := range d.Steps {
		parts[i] = strings.TrimSpace(string(s.Tool) + " " + strings.Join(s.Args, " "))
	}
	return strings.Join(parts, " && ")
}
