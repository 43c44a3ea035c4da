// Package diagnostics extracts located errors and warnings from compiler
// output.
package diagnostics

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Severity follows the LSP numbering.
type Severity int

const (
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one located message. Positions are 1-indexed and the end
// column is inclusive, as printed by the compiler. EndLine/EndCol are 0
// when the compiler printed only a start position.
type Diagnostic struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	Severity  Severity
	Message   string
}

// Range converts to 0-indexed coordinates with an exclusive end. A bare
// start position covers one column.
func (d Diagnostic) Range() (startLine, startCol, endLine, endCol int) {
	startLine = maxZero(d.StartLine - 1)
	startCol = maxZero(d.StartCol - 1)
	switch {
	case d.EndLine > 0:
		return startLine, startCol, maxZero(d.EndLine - 1), maxZero(d.EndCol)
	case d.EndCol > 0:
		return startLine, startCol, startLine, d.EndCol
	default:
		return startLine, startCol, startLine, startCol + 1
	}
}

// file:line:col[-endCol | -endLine:endCol]: error|warning[:] [message]
var header = regexp.MustCompile(`^(.+?):(\d+):(\d+)(?:-(\d+)(?::(\d+))?)?:\s*(error|warning)\b:?\s*(.*)$`)

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*[A-Za-z]")

// Parse reads every located message in output. Lines following a header
// belong to that message until the next header. Relative file names are
// resolved against baseDir.
func Parse(output, baseDir string) []Diagnostic {
	output = ansi.ReplaceAllString(output, "")
	var (
		out  []Diagnostic
		cur  *Diagnostic
		body []string
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Message = strings.TrimSpace(strings.Join(body, "\n"))
		out = append(out, *cur)
		cur, body = nil, nil
	}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if m := header.FindStringSubmatch(line); m != nil {
			flush()
			d := Diagnostic{
				File:      resolve(m[1], baseDir),
				StartLine: atoi(m[2]),
				StartCol:  atoi(m[3]),
				Severity:  SeverityError,
			}
			switch {
			case m[5] != "":
				d.EndLine = atoi(m[4])
				d.EndCol = atoi(m[5])
			case m[4] != "":
				d.EndCol = atoi(m[4])
			}
			if m[6] == "warning" {
				d.Severity = SeverityWarning
			}
			cur = &d
			if rest := strings.TrimSpace(m[7]); rest != "" {
				body = append(body, rest)
			}
			continue
		}
		if cur != nil {
			body = append(body, strings.TrimSpace(line))
		}
	}
	flush()
	return out
}

func resolve(file, baseDir string) string {
	file = strings.TrimSpace(file)
	if filepath.IsAbs(file) || baseDir == "" {
		return filepath.Clean(file)
	}
	return filepath.Join(baseDir, file)
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func maxZero(value int) int {
	if value < 0 {
		return 0
	}
	return value
}
