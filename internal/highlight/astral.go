package highlight

import (
	"strings"
	"unicode/utf16"
)

// The compiler counts columns in code points while LSP positions count
// UTF-16 code units, so every astral-plane character before or inside a
// token widens it by one unit.

func lineUnits(line string) []uint16 {
	return utf16.Encode([]rune(line))
}

func isHighSurrogate(u uint16) bool { return 0xD800 <= u && u <= 0xDBFF }
func isLowSurrogate(u uint16) bool  { return 0xDC00 <= u && u <= 0xDFFF }

// surrogatePairs counts complete pairs inside units[a:b], clamped to the line.
func surrogatePairs(units []uint16, a, b int) int {
	a = clamp(a, 0, len(units))
	b = clamp(b, 0, len(units))
	n := 0
	for i := a; i+1 < b; i++ {
		if isHighSurrogate(units[i]) && isLowSurrogate(units[i+1]) {
			n++
			i++
		}
	}
	return n
}

// splitsPair reports whether pos falls between the halves of a pair.
func splitsPair(units []uint16, pos int) bool {
	return pos > 0 && pos < len(units) && isLowSurrogate(units[pos]) && isHighSurrogate(units[pos-1])
}

// astralShift returns the number of UTF-16 units that must be added to end
// so that units[start:end+shift] covers the same characters as the code
// point range it was computed from. The shifted end is found as a fixed
// point: every pair pulled into the range may pull in another one.
func astralShift(units []uint16, start, end int) int {
	cur := end
	for {
		next := end + surrogatePairs(units, start, cur)
		if next == cur {
			break
		}
		cur = next
	}
	if splitsPair(units, cur) {
		cur++
	}
	return cur - end
}

// UTF16Span converts a code point column and length on line into UTF-16
// units.
func UTF16Span(line string, start, length int) (int, int) {
	units := lineUnits(line)
	return utf16Span(units, start, length)
}

func utf16Span(units []uint16, start, length int) (int, int) {
	start += astralShift(units, 0, start)
	length += astralShift(units, start, start+length)
	return start, length
}

// UTF16Column converts a code point column on line into UTF-16 units.
func UTF16Column(line string, col int) int {
	start, _ := UTF16Span(line, col, 0)
	return start
}

// CodePointColumn converts a UTF-16 column on line back to code points.
// A column inside a surrogate pair maps to the pair's character.
func CodePointColumn(line string, col int) int {
	units := 0
	cps := 0
	for _, r := range line {
		w := 1
		if r > 0xFFFF {
			w = 2
		}
		if units+w > col {
			return cps
		}
		units += w
		cps++
	}
	return cps + (col - units)
}

// Lines splits text into lines without their terminators.
func Lines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
