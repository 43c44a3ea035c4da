package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest file names, in lookup order.
const (
	ManifestYAML    = "juvix.yaml"
	ManifestPackage = "Package.juvix"
)

// FindManifest walks up from startDir to locate juvix.yaml or Package.juvix.
// When a directory holds both, juvix.yaml wins.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range []string{ManifestYAML, ManifestPackage} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// FindProjectRoot returns the directory containing the nearest manifest.
func FindProjectRoot(startDir string) (root string, ok bool, err error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return "", ok, err
	}
	return filepath.Dir(manifestPath), true, nil
}

// DependencyFiles lists the files besides file whose changes can alter what
// the compiler reports for it: imported modules plus the project manifest,
// when file belongs to a project.
func DependencyFiles(file string, imports []string) []string {
	out := append([]string(nil), imports...)
	if manifest, ok, err := FindManifest(filepath.Dir(file)); err == nil && ok {
		out = append(out, manifest)
	}
	return out
}
