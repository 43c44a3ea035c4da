package tasks

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var varPattern = regexp.MustCompile(`\$\{([A-Za-z]+)\}`)

// Vars are the values substituted into step templates.
type Vars struct {
	File             string
	Workspace        string
	GlobalFlags      []string
	CompilationFlags []string
}

func (v Vars) scalars() map[string]string {
	base := filepath.Base(v.File)
	if v.File == "" {
		base = ""
	}
	dir := ""
	if v.File != "" {
		dir = filepath.Dir(v.File)
	}
	return map[string]string{
		"file":                    v.File,
		"fileDirname":             dir,
		"fileBasename":            base,
		"fileBasenameNoExtension": strings.TrimSuffix(base, filepath.Ext(base)),
		"pathSeparator":           string(filepath.Separator),
		"workspaceFolder":         v.Workspace,
	}
}

func (v Vars) lists() map[string][]string {
	return map[string][]string{
		"globalFlags":      v.GlobalFlags,
		"compilationFlags": v.CompilationFlags,
	}
}

var fileVars = map[string]bool{
	"file":                    true,
	"fileDirname":             true,
	"fileBasename":            true,
	"fileBasenameNoExtension": true,
}

// Expand substitutes ${name} references in args. A list variable must be
// the whole argument; it expands into zero or more arguments.
func Expand(args []string, v Vars) ([]string, error) {
	scalars := v.scalars()
	lists := v.lists()
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if m := varPattern.FindStringSubmatch(arg); m != nil && m[0] == arg {
			if list, ok := lists[m[1]]; ok {
				out = append(out, list...)
				continue
			}
		}
		expanded, err := expandString(arg, scalars)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded)
	}
	return out, nil
}

// ExpandString substitutes scalar variables in s.
func ExpandString(s string, v Vars) (string, error) {
	return expandString(s, v.scalars())
}

func expandString(s string, scalars map[string]string) (string, error) {
	var firstErr error
	out := varPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := ref[2 : len(ref)-1]
		val, ok := scalars[name]
		if !ok && firstErr == nil {
			firstErr = fmt.Errorf("unknown variable %s in %q", ref, s)
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func checkVars(arg string) error {
	for _, m := range varPattern.FindAllStringSubmatch(arg, -1) {
		name := m[1]
		if _, ok := (Vars{}).scalars()[name]; ok {
			continue
		}
		if _, ok := (Vars{}).lists()[name]; ok {
			if m[0] != arg {
				return fmt.Errorf("list variable %s must be a whole argument", m[0])
			}
			continue
		}
		return fmt.Errorf("unknown variable %s", m[0])
	}
	return nil
}

func usesFile(args []string) bool {
	for _, arg := range args {
		for _, m := range varPattern.FindAllStringSubmatch(arg, -1) {
			if fileVars[m[1]] {
				return true
			}
		}
	}
	return false
}
