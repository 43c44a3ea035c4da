package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

const errUnsaved = "save the document before formatting"

func (s *Server) handleFormatting(msg *rpcMessage) error {
	var params documentFormattingParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	uri := canonicalURI(params.TextDocument.URI)
	path := uriToPath(uri)
	if path == "" {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	disk, err := os.ReadFile(path)
	if err != nil {
		return s.sendError(msg.ID, codeRequestFailed, fmt.Sprintf("read %s: %v", path, err))
	}
	text, open := s.documentText(uri)
	if !open {
		text = string(disk)
	}
	// the compiler formats the file on disk
	if text != string(disk) {
		s.showMessage(messageWarning, errUnsaved)
		return s.sendError(msg.ID, codeRequestFailed, errUnsaved)
	}
	client := s.currentClient()
	return s.goRequest(msg, func(ctx context.Context) (any, error) {
		formatted, err := client.Format(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			s.showMessage(messageError, err.Error())
			return []textEdit{}, nil
		}
		if formatted == text {
			return []textEdit{}, nil
		}
		return []textEdit{{
			Range:   lspRange{Start: position{}, End: documentEnd(text)},
			NewText: formatted,
		}}, nil
	})
}
