package lsp

import (
	"context"
	"encoding/json"
	"fmt"

	"juvixmode/internal/project"
)

func (s *Server) handleCodeLens(msg *rpcMessage) error {
	var params codeLensParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	uri := canonicalURI(params.TextDocument.URI)
	path := uriToPath(uri)
	if path == "" || !s.currentSettings().CodeLens {
		return s.sendResponse(msg.ID, []codeLens{})
	}
	text, ok := s.fileText(path)
	if !ok {
		return s.sendResponse(msg.ID, []codeLens{})
	}
	client := s.currentClient()
	return s.goRequest(msg, func(ctx context.Context) (any, error) {
		lenses := make([]codeLens, 0, 2)
		if _, declared := project.ModuleHeader(text); !declared {
			if name, ok := s.moduleNameFor(ctx, client, path); ok {
				header := fmt.Sprintf("module %s;", name)
				lenses = append(lenses, codeLens{
					Range: lspRange{},
					Command: &command{
						Title:     fmt.Sprintf("Insert %q", header),
						Command:   cmdPrependText,
						Arguments: []any{prependTextArgs{URI: uri, Text: header + "\n\n"}},
					},
				})
			}
		}
		v, err := s.binaryVersion(ctx, client)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			s.debugf("version lens skipped: %v", err)
			return lenses, nil
		}
		lenses = append(lenses, codeLens{
			Range: lspRange{End: documentEnd(lineAt(text, 0))},
			Command: &command{
				Title:   "Powered by " + v,
				Command: cmdBinaryVersion,
			},
		})
		return lenses, nil
	})
}
