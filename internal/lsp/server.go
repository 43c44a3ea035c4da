package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"juvixmode/internal/abbrev"
	"juvixmode/internal/cache"
	"juvixmode/internal/config"
	"juvixmode/internal/highlight"
	"juvixmode/internal/juvix"
	"juvixmode/internal/trace"
	"juvixmode/internal/version"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Debounce time.Duration
	// Settings are the starting settings; nil means config.Default().
	Settings *config.Settings
	// Runner executes compiler processes; nil means os/exec.
	Runner juvix.Runner
	Tracer trace.Tracer
	// Cache stores raw highlight payloads; nil disables caching.
	Cache *cache.Payloads
}

// Server handles stdio JSON-RPC for the Juvix LSP.
type Server struct {
	in          *bufio.Reader
	out         *bufio.Writer
	sendMu      sync.Mutex
	mu          sync.Mutex
	openDocs    map[string]string
	versions    map[string]int
	lastTouched string
	published   map[string]struct{}
	reported    map[string][]string

	workspaceRoot     string
	shutdownRequested bool
	debounce          time.Duration
	debounceTimer     *time.Timer
	diagCancel        context.CancelFunc
	pendingChecks     map[string]struct{}
	analysisSeq       uint64
	latestSeq         uint64
	baseCtx           context.Context

	settings    config.Settings
	settingsGen uint64
	client      *juvix.Client
	runner      juvix.Runner
	tracer      trace.Tracer
	abbrevs     *abbrev.Table
	index       *highlight.Store
	cache       *cache.Payloads

	inflight     map[string]context.CancelFunc
	wg           sync.WaitGroup
	probes       singleflight.Group
	versionMemo  string
	globalMemo   string
	nextClientID int64
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	settings := config.Default()
	if opts.Settings != nil {
		settings = opts.Settings.Clone()
	}
	runner := opts.Runner
	if runner == nil {
		runner = juvix.ExecRunner{}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	s := &Server{
		in:            bufio.NewReader(in),
		out:           bufio.NewWriter(out),
		openDocs:      make(map[string]string),
		versions:      make(map[string]int),
		published:     make(map[string]struct{}),
		reported:      make(map[string][]string),
		pendingChecks: make(map[string]struct{}),
		debounce:      debounce,
		settings:      settings,
		runner:        runner,
		tracer:        tracer,
		index:         highlight.NewStore(),
		cache:         opts.Cache,
		inflight:      make(map[string]context.CancelFunc),
	}
	s.client = s.newClient(settings)
	table, err := abbrev.New(settings.Input.CustomTranslations)
	if err != nil {
		s.logf("custom translations ignored: %v", err)
		table, _ = abbrev.New(nil)
	}
	s.abbrevs = table
	return s
}

func (s *Server) newClient(settings config.Settings) *juvix.Client {
	return juvix.NewClient(settings.JuvixExec(), settings.GlobalFlags(),
		juvix.WithRunner(s.runner),
		juvix.WithTracer(s.tracer),
	)
}

// Run serves LSP requests until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = trace.WithTracer(ctx, s.tracer)
	s.mu.Unlock()
	defer s.wg.Wait()
	span := trace.Begin(s.tracer, trace.ScopeServer, "lsp", 0)
	defer span.End("")
	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.cancelInflight()
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logf("failed to parse message: %v", err)
			continue
		}
		if msg.Method == "" {
			// responses to server-initiated requests
			if msg.Error != nil {
				s.logf("client error for request %s: %s", string(msg.ID), msg.Error.Message)
			}
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			if errors.Is(err, ErrExit) || errors.Is(err, ErrExitWithoutShutdown) {
				s.cancelInflight()
				return err
			}
			return err
		}
	}
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return s.handleInitialized()
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		if s.isShutdown() {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "$/cancelRequest":
		return s.handleCancelRequest(msg)
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "workspace/executeCommand":
		return s.handleExecuteCommand(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/semanticTokens/full":
		return s.handleSemanticTokens(msg)
	case "textDocument/hover":
		return s.handleHover(msg)
	case "textDocument/definition":
		return s.handleDefinition(msg)
	case "textDocument/formatting":
		return s.handleFormatting(msg)
	case "textDocument/codeLens":
		return s.handleCodeLens(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	root := ""
	if params.RootURI != "" {
		root = uriToPath(params.RootURI)
	}
	if root == "" && params.RootPath != "" {
		root = params.RootPath
	}
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = uriToPath(params.WorkspaceFolders[0].URI)
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	s.mu.Lock()
	s.workspaceRoot = root
	s.mu.Unlock()
	if len(params.InitializationOptions) > 0 {
		s.applySettings(params.InitializationOptions)
	}

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2,
				Save: saveOptions{
					IncludeText: true,
				},
			},
			HoverProvider:              true,
			DefinitionProvider:         true,
			DocumentFormattingProvider: true,
			SemanticTokensProvider: &semanticTokensOptions{
				Legend: semanticTokensLegend{
					TokenTypes:     highlight.TokenTypes,
					TokenModifiers: highlight.TokenModifiers,
				},
				Full: true,
			},
			CodeLensProvider: &codeLensOptions{},
			ExecuteCommandProvider: &executeCommandOptions{
				Commands: commandNames(),
			},
		},
		ServerInfo: serverInfo{Name: "juvixmode", Version: version.Version},
	}
	return s.sendResponse(msg.ID, result)
}

// handleInitialized warns when the installed compiler is missing or older
// than the supported version.
func (s *Server) handleInitialized() error {
	client := s.currentClient()
	ctx := s.context()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ok, installed, err := client.IsVersionSupported(ctx)
		switch {
		case ctx.Err() != nil:
		case errors.Is(err, juvix.ErrNotFound):
			s.showMessage(messageError, err.Error())
		case err != nil:
			s.logf("version check failed: %v", err)
		case !ok:
			s.showMessage(messageWarning, fmt.Sprintf(
				"Juvix %s is older than the supported version %s; some features may not work",
				installed, juvix.SupportedVersion()))
		}
	}()
	return nil
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	if s.diagCancel != nil {
		s.diagCancel()
	}
	s.mu.Unlock()
	s.cancelInflight()
	s.clearPublishedDiagnostics()
	s.index.Reset()
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	s.openDocs[uri] = params.TextDocument.Text
	s.versions[uri] = params.TextDocument.Version
	s.lastTouched = uri
	on := s.settings.TypecheckOn
	s.mu.Unlock()
	if on != config.TypecheckOnNone {
		s.scheduleDiagnostics(uri)
	}
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	text := s.openDocs[uri]
	text = applyChanges(text, params.ContentChanges)
	s.openDocs[uri] = text
	s.versions[uri] = params.TextDocument.Version
	s.lastTouched = uri
	on := s.settings.TypecheckOn
	s.mu.Unlock()
	s.debugf("didChange: uri=%s version=%d", uri, params.TextDocument.Version)
	if on == config.TypecheckOnChange {
		s.scheduleDiagnostics(uri)
	}
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	if params.Text != nil {
		s.openDocs[uri] = *params.Text
	}
	s.lastTouched = uri
	on := s.settings.TypecheckOn
	s.mu.Unlock()
	s.debugf("didSave: uri=%s", uri)
	if typecheckEnabled(on) {
		s.scheduleDiagnostics(uri)
	}
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	delete(s.openDocs, uri)
	delete(s.versions, uri)
	delete(s.pendingChecks, uri)
	if s.lastTouched == uri {
		s.lastTouched = ""
	}
	s.mu.Unlock()
	s.index.Remove(uriToPath(uri))
	s.publishTypecheck(uri, nil)
	return nil
}

func (s *Server) handleCancelRequest(msg *rpcMessage) error {
	var params cancelParams
	if err := json.Unmarshal(msg.Params, &params); err != nil || len(params.ID) == 0 {
		return nil
	}
	s.mu.Lock()
	cancel := s.inflight[string(params.ID)]
	s.mu.Unlock()
	if cancel != nil {
		s.debugf("cancel request %s", string(params.ID))
		cancel()
	}
	return nil
}

func (s *Server) cancelInflight() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.inflight))
	for _, cancel := range s.inflight {
		cancels = append(cancels, cancel)
	}
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// Wait blocks until every request goroutine has answered.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) sendPublish(uri string, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	return s.notify("textDocument/publishDiagnostics", publishDiagnosticsParams{
		URI:         uri,
		Diagnostics: list,
	})
}

func (s *Server) notify(method string, params any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	}
	return s.send(msg)
}

// request sends a server-initiated request. Replies are logged by Run and
// otherwise ignored.
func (s *Server) request(method string, params any) error {
	id := atomic.AddInt64(&s.nextClientID, 1)
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      fmt.Sprintf("juvixmode-%d", id),
		"method":  method,
		"params":  params,
	}
	return s.send(msg)
}

func (s *Server) showMessage(kind int, text string) {
	if err := s.notify("window/showMessage", showMessageParams{Type: kind, Message: text}); err != nil {
		s.logf("failed to show message: %v", err)
	}
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *Server) logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "lsp: "+format+"\n", args...)
}

func (s *Server) debugf(format string, args ...any) {
	if s.tracer.Level() >= trace.LevelDebug {
		s.logf(format, args...)
	}
}

func (s *Server) isLatestSeq(seq uint64) bool {
	if seq == 0 {
		return false
	}
	return seq == atomic.LoadUint64(&s.latestSeq)
}

func maxZero(value int) int {
	if value < 0 {
		return 0
	}
	return value
}
