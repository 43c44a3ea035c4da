package lsp

import (
	"context"
	"os"

	"juvixmode/internal/abbrev"
	"juvixmode/internal/config"
	"juvixmode/internal/juvix"
)

func (s *Server) currentSettings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Server) currentClient() *juvix.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

func (s *Server) currentAbbrevs() *abbrev.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abbrevs
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdownRequested
}

func (s *Server) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseCtx == nil {
		return context.Background()
	}
	return s.baseCtx
}

// documentText returns the buffer of an open document.
func (s *Server) documentText(uri string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.openDocs[uri]
	return text, ok
}

// fileText prefers the open buffer and falls back to the file on disk.
func (s *Server) fileText(path string) (string, bool) {
	if text, ok := s.documentText(pathToURI(path)); ok {
		return text, true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}
