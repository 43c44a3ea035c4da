package lsp

import (
	"context"
	"path/filepath"

	"juvixmode/internal/juvix"
	"juvixmode/internal/project"
)

const (
	probeVersion    = "version"
	probeGlobalRoot = "global-root"
)

// projectRootFor asks the compiler for the project root of path. When the
// compiler cannot answer, the nearest directory holding a package manifest
// is used, then the workspace root.
func (s *Server) projectRootFor(ctx context.Context, client *juvix.Client, path string) string {
	root, err := client.Root(ctx, path)
	if err == nil && root != "" {
		return root
	}
	if ctx.Err() != nil {
		return ""
	}
	s.debugf("dev root failed for %s: %v", path, err)
	if found, ok, ferr := project.FindProjectRoot(filepath.Dir(path)); ferr == nil && ok {
		return found
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspaceRoot
}

// globalRoot is memoised until the settings change.
func (s *Server) globalRoot(ctx context.Context, client *juvix.Client) (string, error) {
	s.mu.Lock()
	if s.globalMemo != "" {
		root := s.globalMemo
		s.mu.Unlock()
		return root, nil
	}
	gen := s.settingsGen
	s.mu.Unlock()

	v, err, _ := s.probes.Do(probeGlobalRoot, func() (any, error) {
		return client.GlobalRoot(ctx)
	})
	if err != nil {
		return "", err
	}
	root := v.(string)
	s.mu.Lock()
	if gen == s.settingsGen {
		s.globalMemo = root
	}
	s.mu.Unlock()
	return root, nil
}

// moduleNameFor derives the module name the file at path should declare.
func (s *Server) moduleNameFor(ctx context.Context, client *juvix.Client, path string) (string, bool) {
	root := s.projectRootFor(ctx, client, path)
	if root == "" {
		return "", false
	}
	global, err := s.globalRoot(ctx, client)
	if err != nil {
		s.debugf("global root unavailable: %v", err)
	}
	name := project.ModuleName(root, global, path)
	return name, name != ""
}

// binaryVersion returns the compiler's --version line, memoised until the
// settings change. Concurrent callers share one process.
func (s *Server) binaryVersion(ctx context.Context, client *juvix.Client) (string, error) {
	s.mu.Lock()
	if s.versionMemo != "" {
		v := s.versionMemo
		s.mu.Unlock()
		return v, nil
	}
	gen := s.settingsGen
	s.mu.Unlock()

	v, err, _ := s.probes.Do(probeVersion, func() (any, error) {
		return client.Version(ctx)
	})
	if err != nil {
		return "", err
	}
	text := v.(string)
	s.mu.Lock()
	if gen == s.settingsGen {
		s.versionMemo = text
	}
	s.mu.Unlock()
	return text, nil
}
