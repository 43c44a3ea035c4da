package lsp

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"juvixmode/internal/diagnostics"
	"juvixmode/internal/highlight"
	"juvixmode/internal/juvix"
)

// scheduleDiagnostics queues uri for a typecheck once edits settle. A new
// call restarts the timer and cancels a check that is still running.
func (s *Server) scheduleDiagnostics(uri string) {
	s.mu.Lock()
	s.pendingChecks[uri] = struct{}{}
	seq := atomic.AddUint64(&s.analysisSeq, 1)
	atomic.StoreUint64(&s.latestSeq, seq)
	if s.diagCancel != nil {
		s.diagCancel()
	}
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	delay := s.debounce
	s.debounceTimer = time.AfterFunc(delay, func() {
		s.runDiagnostics(seq)
	})
	s.mu.Unlock()
}

func (s *Server) runDiagnostics(seq uint64) {
	if seq == 0 || !s.isLatestSeq(seq) {
		return
	}
	s.mu.Lock()
	if s.shutdownRequested || len(s.pendingChecks) == 0 {
		s.mu.Unlock()
		return
	}
	if s.diagCancel != nil {
		s.diagCancel()
	}
	base := s.baseCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	s.diagCancel = cancel
	uris := make([]string, 0, len(s.pendingChecks))
	for uri := range s.pendingChecks {
		uris = append(uris, uri)
	}
	s.pendingChecks = make(map[string]struct{})
	client := s.client
	s.mu.Unlock()
	defer cancel()

	sort.Strings(uris)
	for i, uri := range uris {
		if _, err := s.typecheck(ctx, client, uri); err != nil {
			if ctx.Err() != nil {
				s.requeue(uris[i:])
				return
			}
			s.logf("typecheck %s: %v", uriToPath(uri), err)
			if errors.Is(err, juvix.ErrNotFound) {
				s.showMessage(messageError, err.Error())
				return
			}
		}
	}
}

// requeue puts back checks interrupted by a newer schedule, unless their
// document was closed meanwhile.
func (s *Server) requeue(uris []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uri := range uris {
		if _, open := s.openDocs[uri]; open {
			s.pendingChecks[uri] = struct{}{}
		}
	}
}

// typecheck runs the compiler on the saved file behind uri and publishes
// what it reports. It returns whether the check passed; the error is only
// set when the compiler could not be run at all.
func (s *Server) typecheck(ctx context.Context, client *juvix.Client, uri string) (bool, error) {
	path := uriToPath(uri)
	res, err := client.Typecheck(ctx, path)
	exitErr, failed := juvix.IsExit(err)
	if err != nil && !failed {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	output := string(res.Stderr)
	if len(res.Stdout) > 0 {
		output = string(res.Stdout) + "\n" + output
	}
	diags := diagnostics.Parse(output, filepath.Dir(path))
	if failed && len(diags) == 0 {
		message := strings.TrimSpace(exitErr.Stderr)
		if message == "" {
			message = "typecheck failed"
		}
		diags = []diagnostics.Diagnostic{{
			File:      path,
			StartLine: 1,
			StartCol:  1,
			Severity:  diagnostics.SeverityError,
			Message:   message,
		}}
	}
	s.publishTypecheck(uri, diags)
	return !failed, nil
}

// publishTypecheck publishes the diagnostics of one check of source,
// grouped by file, and clears files the previous check of source reported
// but this one did not.
func (s *Server) publishTypecheck(source string, diags []diagnostics.Diagnostic) {
	byURI := make(map[string][]lspDiagnostic)
	texts := make(map[string]string)
	for _, d := range diags {
		uri := pathToURI(d.File)
		text, ok := texts[uri]
		if !ok {
			text, _ = s.fileText(d.File)
			texts[uri] = text
		}
		byURI[uri] = append(byURI[uri], toLSPDiagnostic(d, text))
	}

	s.mu.Lock()
	for _, uri := range s.reported[source] {
		if _, again := byURI[uri]; !again {
			byURI[uri] = nil
		}
	}
	if _, ok := s.openDocs[source]; ok {
		if _, again := byURI[source]; !again {
			byURI[source] = nil
		}
	}
	reported := make([]string, 0, len(byURI))
	for uri, list := range byURI {
		if len(list) > 0 {
			s.published[uri] = struct{}{}
			reported = append(reported, uri)
		} else {
			delete(s.published, uri)
		}
	}
	if len(reported) > 0 {
		s.reported[source] = reported
	} else {
		delete(s.reported, source)
	}
	s.mu.Unlock()

	uris := make([]string, 0, len(byURI))
	for uri := range byURI {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		if err := s.sendPublish(uri, byURI[uri]); err != nil {
			s.logf("failed to publish diagnostics: %v", err)
		}
	}
}

func toLSPDiagnostic(d diagnostics.Diagnostic, text string) lspDiagnostic {
	startLine, startCol, endLine, endCol := d.Range()
	return lspDiagnostic{
		Range: lspRange{
			Start: position{Line: startLine, Character: highlight.UTF16Column(lineAt(text, startLine), startCol)},
			End:   position{Line: endLine, Character: highlight.UTF16Column(lineAt(text, endLine), endCol)},
		},
		Severity: int(d.Severity),
		Source:   "juvix",
		Message:  d.Message,
	}
}

func (s *Server) clearPublishedDiagnostics() {
	s.mu.Lock()
	if len(s.published) == 0 {
		s.mu.Unlock()
		return
	}
	prev := s.published
	s.published = make(map[string]struct{})
	s.reported = make(map[string][]string)
	s.mu.Unlock()
	uris := make([]string, 0, len(prev))
	for uri := range prev {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		if err := s.sendPublish(uri, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
}
