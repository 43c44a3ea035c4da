package lsp

import (
	"encoding/json"

	"juvixmode/internal/highlight"
)

func (s *Server) handleHover(msg *rpcMessage) error {
	var params hoverParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	uri := canonicalURI(params.TextDocument.URI)
	path := uriToPath(uri)
	text, _ := s.documentText(uri)
	line := params.Position.Line
	lineText := lineAt(text, line)
	col := highlight.CodePointColumn(lineText, params.Position.Character)

	if entry, ok := s.index.Hover(path, line, col); ok {
		iv := entry.Interval
		endText := lineText
		if iv.EndLine != line {
			endText = lineAt(text, iv.EndLine)
		}
		return s.sendResponse(msg.ID, hover{
			Contents: markupContent{Kind: "markdown", Value: entry.Text},
			Range: &lspRange{
				Start: position{Line: iv.Line, Character: highlight.UTF16Column(lineText, iv.StartCol)},
				End:   position{Line: iv.EndLine, Character: highlight.UTF16Column(endText, iv.EndCol+1)},
			},
		})
	}
	if h, ok := s.abbreviationHover(lineText, params.Position); ok {
		return s.sendResponse(msg.ID, h)
	}
	return s.sendResponse(msg.ID, nil)
}

// abbreviationHover explains how to type the unicode symbol under the
// cursor.
func (s *Server) abbreviationHover(lineText string, pos position) (hover, bool) {
	settings := s.currentSettings()
	if !settings.Input.Enabled {
		return hover{}, false
	}
	start := offsetForPosition(lineText, position{Character: pos.Character})
	if start >= len(lineText) {
		return hover{}, false
	}
	md, width, ok := s.currentAbbrevs().Hover(lineText[start:], settings.Input.Leader)
	if !ok {
		return hover{}, false
	}
	return hover{
		Contents: markupContent{Kind: "markdown", Value: md},
		Range: &lspRange{
			Start: pos,
			End:   position{Line: pos.Line, Character: pos.Character + width},
		},
	}, true
}
