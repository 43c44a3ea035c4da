package lsp

import (
	"context"
	"encoding/json"
	"fmt"

	"juvixmode/internal/config"
)

const (
	cmdTypecheck     = "juvix-mode.typecheck"
	cmdBinaryVersion = "juvix-mode.getBinaryVersion"
	cmdPrependText   = "juvix-mode.aux.prependText"
	cmdEnableLenses  = "juvix-mode.enableCodeLens"
	cmdDisableLenses = "juvix-mode.disableCodeLens"
)

func commandNames() []string {
	return []string{cmdTypecheck, cmdBinaryVersion, cmdPrependText, cmdEnableLenses, cmdDisableLenses}
}

func (s *Server) handleExecuteCommand(msg *rpcMessage) error {
	var params executeCommandParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	switch params.Command {
	case cmdTypecheck:
		return s.commandTypecheck(msg, params.Arguments)
	case cmdBinaryVersion:
		client := s.currentClient()
		return s.goRequest(msg, func(ctx context.Context) (any, error) {
			v, err := s.binaryVersion(ctx, client)
			if err != nil {
				return nil, err
			}
			s.showMessage(messageInfo, v)
			return v, nil
		})
	case cmdPrependText:
		return s.commandPrependText(msg, params.Arguments)
	case cmdEnableLenses, cmdDisableLenses:
		enabled := params.Command == cmdEnableLenses
		s.mu.Lock()
		s.settings.CodeLens = enabled
		s.mu.Unlock()
		return s.sendResponse(msg.ID, nil)
	default:
		return s.sendError(msg.ID, codeInvalidParams, fmt.Sprintf("unknown command %q", params.Command))
	}
}

// commandTypecheck checks the document named by the first argument, or the
// most recently touched one, and publishes the result.
func (s *Server) commandTypecheck(msg *rpcMessage, args []json.RawMessage) error {
	uri := ""
	if len(args) > 0 {
		var arg string
		if err := json.Unmarshal(args[0], &arg); err != nil {
			var doc textDocumentIdentifier
			if err := json.Unmarshal(args[0], &doc); err != nil {
				return s.sendError(msg.ID, codeInvalidParams, "invalid params")
			}
			arg = doc.URI
		}
		uri = canonicalURI(arg)
	}
	if uri == "" {
		s.mu.Lock()
		uri = s.lastTouched
		s.mu.Unlock()
	}
	if uri == "" {
		return s.sendError(msg.ID, codeInvalidParams, "no document to typecheck")
	}
	client := s.currentClient()
	return s.goRequest(msg, func(ctx context.Context) (any, error) {
		ok, err := s.typecheck(ctx, client, uri)
		if err != nil {
			return nil, err
		}
		return ok, nil
	})
}

func (s *Server) commandPrependText(msg *rpcMessage, args []json.RawMessage) error {
	if len(args) == 0 {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	var arg prependTextArgs
	if err := json.Unmarshal(args[0], &arg); err != nil || arg.Text == "" {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	uri := canonicalURI(arg.URI)
	if uri == "" {
		s.mu.Lock()
		uri = s.lastTouched
		s.mu.Unlock()
	}
	if uri == "" {
		return s.sendError(msg.ID, codeInvalidParams, "no document to edit")
	}
	edit := applyWorkspaceEditParams{
		Label: "Insert module header",
		Edit: workspaceEdit{Changes: map[string][]textEdit{
			uri: {{Range: lspRange{}, NewText: arg.Text}},
		}},
	}
	if err := s.request("workspace/applyEdit", edit); err != nil {
		return err
	}
	return s.sendResponse(msg.ID, nil)
}

// typecheckEnabled reports whether document events trigger a typecheck.
func typecheckEnabled(on string) bool {
	return on == config.TypecheckOnChange || on == config.TypecheckOnSave
}
