package project

import (
	"path/filepath"
	"regexp"
	"strings"
)

var moduleHeader = regexp.MustCompile(`module\s+([\w.]+);`)

// ModuleHeader returns the module name declared in text, if any.
func ModuleHeader(text string) (string, bool) {
	m := moduleHeader.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ModuleName derives the module name of file inside a project rooted at
// root. Files of the global project are named by their base name alone;
// otherwise the directories between root and file become dot-separated
// qualifiers.
func ModuleName(root, globalRoot, file string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if sameDir(root, globalRoot) {
		return base
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Dir(filepath.Clean(file)))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return base
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", ".") + "." + base
}

func sameDir(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
