package highlight

import (
	"sort"
	"unicode/utf8"

	"fortio.org/safecast"
)

// SemanticToken is one single-line token in absolute UTF-16 coordinates.
type SemanticToken struct {
	Line      int
	Start     int
	Length    int
	Type      int
	Modifiers int
}

// Tokens turns face entries into single-line semantic tokens for text.
// A span covering N lines yields N tokens: the first starts at the span's
// column, later ones at column 0; the last ends at the span's end column and
// the others run to the end of their line.
func Tokens(faces []FaceToken, text string) []SemanticToken {
	lines := Lines(text)
	units := make(map[int][]uint16)
	lineUnitsAt := func(l int) []uint16 {
		if u, ok := units[l]; ok {
			return u
		}
		var u []uint16
		if l < len(lines) {
			u = lineUnits(lines[l])
		}
		units[l] = u
		return u
	}

	out := make([]SemanticToken, 0, len(faces))
	for _, f := range faces {
		iv := f.Interval
		kind := EncodeTokenType(f.TokenType)
		last := iv.EndLine
		if last < iv.Line {
			last = iv.Line
		}
		for l := iv.Line; l <= last; l++ {
			start := 0
			if l == iv.Line {
				start = iv.StartCol
			}
			var length int
			switch {
			case l == last && l == iv.Line:
				length = iv.Length
			case l == last:
				length = iv.EndCol + 1
			default:
				length = lineLength(lines, l)
			}
			start, length = utf16Span(lineUnitsAt(l), start, length)
			out = append(out, SemanticToken{
				Line:   l,
				Start:  start,
				Length: length,
				Type:   kind,
			})
		}
	}
	return out
}

func lineLength(lines []string, l int) int {
	if l < 0 || l >= len(lines) {
		return 0
	}
	return utf8.RuneCountInString(lines[l])
}

const maxUint32 = ^uint32(0)

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

// Encode sorts tokens by position and produces the relative five-integer
// encoding of semanticTokens/full. Tokens at the same position keep their
// input order.
func Encode(tokens []SemanticToken) []uint32 {
	sorted := make([]SemanticToken, len(tokens))
	copy(sorted, tokens)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line < sorted[j].Line
		}
		return sorted[i].Start < sorted[j].Start
	})

	data := make([]uint32, 0, len(sorted)*5)
	prevLine, prevStart := 0, 0
	for _, tok := range sorted {
		deltaLine := tok.Line - prevLine
		deltaStart := tok.Start
		if deltaLine == 0 {
			deltaStart = tok.Start - prevStart
		}
		data = append(data,
			safeUint32(deltaLine),
			safeUint32(deltaStart),
			safeUint32(tok.Length),
			safeUint32(tok.Type),
			safeUint32(tok.Modifiers),
		)
		prevLine, prevStart = tok.Line, tok.Start
	}
	return data
}

// DecodeTokens reverses Encode into absolute tokens.
func DecodeTokens(data []uint32) []SemanticToken {
	out := make([]SemanticToken, 0, len(data)/5)
	line, start := 0, 0
	for i := 0; i+4 < len(data); i += 5 {
		if data[i] > 0 {
			line += int(data[i])
			start = int(data[i+1])
		} else {
			start += int(data[i+1])
		}
		out = append(out, SemanticToken{
			Line:      line,
			Start:     start,
			Length:    int(data[i+2]),
			Type:      int(data[i+3]),
			Modifiers: int(data[i+4]),
		})
	}
	return out
}
