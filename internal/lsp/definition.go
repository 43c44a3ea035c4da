package lsp

import (
	"encoding/json"

	"juvixmode/internal/highlight"
)

func (s *Server) handleDefinition(msg *rpcMessage) error {
	var params definitionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	uri := canonicalURI(params.TextDocument.URI)
	path := uriToPath(uri)
	text, _ := s.documentText(uri)
	line := params.Position.Line
	col := highlight.CodePointColumn(lineAt(text, line), params.Position.Character)

	target, ok := s.index.Definition(path, line, col)
	if !ok {
		return s.sendResponse(msg.ID, nil)
	}
	return s.sendResponse(msg.ID, []location{s.targetLocation(target)})
}

// targetLocation spans the definition site with the length of the reference
// that points at it.
func (s *Server) targetLocation(target highlight.GotoTarget) location {
	startCol := target.TargetStartCol
	endCol := startCol + target.Interval.Len()
	var lineText string
	if text, ok := s.fileText(target.TargetFile); ok {
		lineText = lineAt(text, target.TargetLine)
	}
	return location{
		URI: pathToURI(target.TargetFile),
		Range: lspRange{
			Start: position{Line: target.TargetLine, Character: highlight.UTF16Column(lineText, startCol)},
			End:   position{Line: target.TargetLine, Character: highlight.UTF16Column(lineText, endCol)},
		},
	}
}
