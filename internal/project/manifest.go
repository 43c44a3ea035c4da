package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest describes a Juvix package. Package.juvix manifests are Juvix
// source and only contribute Root and Name.
type Manifest struct {
	Path string `yaml:"-"`
	Root string `yaml:"-"`

	Name         string       `yaml:"name"`
	Version      string       `yaml:"version"`
	Main         string       `yaml:"main"`
	Dependencies []Dependency `yaml:"dependencies"`
}

// Dependency is either a local path or a git checkout.
type Dependency struct {
	Path string
	Git  *GitDependency
}

// GitDependency pins a package in a git repository.
type GitDependency struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Ref  string `yaml:"ref"`
}

// UnmarshalYAML accepts "path/to/dep", {path: ...} and {git: {...}}.
func (d *Dependency) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		d.Path = node.Value
		return nil
	}
	var raw struct {
		Path string         `yaml:"path"`
		Git  *GitDependency `yaml:"git"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Path == "" && raw.Git == nil {
		return fmt.Errorf("line %d: dependency needs path or git", node.Line)
	}
	d.Path = raw.Path
	d.Git = raw.Git
	return nil
}

func (d Dependency) String() string {
	if d.Git != nil {
		if d.Git.Ref != "" {
			return d.Git.URL + "@" + d.Git.Ref
		}
		return d.Git.URL
	}
	return d.Path
}

// LoadManifest reads the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	m := &Manifest{Path: abs, Root: filepath.Dir(abs)}
	if filepath.Base(abs) == ManifestPackage {
		if _, err := os.Stat(abs); err != nil {
			return nil, err
		}
		m.Name = filepath.Base(m.Root)
		return m, nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", abs, err)
	}
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		m.Name = filepath.Base(m.Root)
	}
	return m, nil
}

// Load finds and reads the manifest governing startDir.
func Load(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := LoadManifest(path)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}
