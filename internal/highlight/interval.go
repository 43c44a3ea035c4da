package highlight

import (
	"fmt"
	"math"
)

// RawInterval is a source span as reported by the compiler, 0-indexed.
// Length counts code points and is never decremented.
type RawInterval struct {
	File     string
	Line     int
	StartCol int
	Length   int
	EndLine  int
	EndCol   int
}

// MultiLine reports whether the span ends on a later line than it starts.
func (iv RawInterval) MultiLine() bool {
	return iv.EndLine > iv.Line
}

// Columns is the interval's column range on its first line.
func (iv RawInterval) Columns() ColumnInterval {
	if iv.MultiLine() {
		return ColumnInterval{Start: iv.StartCol, End: math.MaxInt}
	}
	return ColumnInterval{Start: iv.StartCol, End: iv.StartCol + iv.Length - 1}
}

// Display re-encodes the interval in the compiler's 1-indexed form:
// file, line, col, length, endLine, endCol.
func (iv RawInterval) Display() (string, int, int, int, int, int) {
	return iv.File, iv.Line + 1, iv.StartCol + 1, iv.Length, iv.EndLine + 1, iv.EndCol + 1
}

func (iv RawInterval) String() string {
	file, line, col, length, endLine, endCol := iv.Display()
	return fmt.Sprintf("%s:%d:%d+%d-%d:%d", file, line, col, length, endLine, endCol)
}

// ColumnInterval is an inclusive column range on one line.
type ColumnInterval struct {
	Start int
	End   int
}

// Contains reports whether col lies in [Start, End].
func (c ColumnInterval) Contains(col int) bool {
	return c.Start <= col && col <= c.End
}

// Len is the number of columns covered, 0 for an empty interval.
func (c ColumnInterval) Len() int {
	if c.End < c.Start {
		return 0
	}
	if c.End == math.MaxInt {
		return math.MaxInt
	}
	return c.End - c.Start + 1
}

// FaceToken classifies a span for semantic highlighting.
type FaceToken struct {
	Interval  RawInterval
	TokenType string
}

// GotoTarget maps a source span to the start of its definition.
type GotoTarget struct {
	Source         RawInterval
	Interval       ColumnInterval
	TargetFile     string
	TargetLine     int
	TargetStartCol int
}

// HoverEntry attaches documentation text to a span.
type HoverEntry struct {
	Interval RawInterval
	Text     string
}
