package lsp

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"juvixmode/internal/highlight"
)

func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	if len(changes) == 0 {
		return text
	}
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := offsetForPosition(text, change.Range.Start)
		end := offsetForPosition(text, change.Range.End)
		if start < 0 {
			start = 0
		}
		if end < start {
			end = start
		}
		if start > len(text) {
			start = len(text)
		}
		if end > len(text) {
			end = len(text)
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

func offsetForPosition(text string, pos position) int {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	line := 0
	i := 0
	for i < len(text) && line < pos.Line {
		if text[i] == '\n' {
			line++
		}
		i++
	}
	if line < pos.Line {
		return len(text)
	}
	utf16Units := 0
	for i < len(text) {
		if text[i] == '\n' {
			break
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			size = 1
		}
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if utf16Units+need > pos.Character {
			break
		}
		utf16Units += need
		i += size
		if utf16Units == pos.Character {
			break
		}
	}
	return i
}

// documentEnd is the position just past the last character of text.
func documentEnd(text string) position {
	line := strings.Count(text, "\n")
	last := text[strings.LastIndex(text, "\n")+1:]
	return position{Line: line, Character: len(utf16.Encode([]rune(last)))}
}

// lineAt returns line l of text without its terminator, "" when out of
// range.
func lineAt(text string, l int) string {
	if l < 0 {
		return ""
	}
	lines := highlight.Lines(text)
	if l >= len(lines) {
		return ""
	}
	return lines[l]
}
