package highlight

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
)

// TestHighlightScripts runs the scripts under testdata. Commands:
//
//	source                          set the document text (input)
//	index path=<p>                  decode the input payload and install it
//	tokens                          single-line tokens of the last payload
//	encode                          semanticTokens/full data, five per line
//	definition path=<p> line=<l> col=<c>
//	hover path=<p> line=<l> col=<c>
func TestHighlightScripts(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		store := NewStore()
		var (
			text string
			last *Payload
		)
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "source":
				text = d.Input
				return fmt.Sprintf("%d lines\n", len(Lines(text)))

			case "index":
				var file string
				d.ScanArgs(t, "path", &file)
				p, err := Decode([]byte(d.Input))
				if err != nil {
					if errors.Is(err, ErrMalformedPayload) {
						return "malformed payload\n"
					}
					return fmt.Sprintf("error: %v\n", err)
				}
				idx := Build(file, p)
				store.Replace(idx)
				last = p
				faces, gotos, docs := idx.Size()
				return fmt.Sprintf("faces=%d gotos=%d docs=%d\n", faces, gotos, docs)

			case "tokens":
				if last == nil {
					d.Fatalf(t, "tokens before index")
				}
				var sb strings.Builder
				for _, tok := range Tokens(last.Face, text) {
					fmt.Fprintf(&sb, "%d:%d len=%d %s(%d)\n", tok.Line, tok.Start, tok.Length, typeName(tok.Type), tok.Type)
				}
				if sb.Len() == 0 {
					return "no tokens\n"
				}
				return sb.String()

			case "encode":
				if last == nil {
					d.Fatalf(t, "encode before index")
				}
				data := Encode(Tokens(last.Face, text))
				var sb strings.Builder
				for i := 0; i+4 < len(data); i += 5 {
					fmt.Fprintf(&sb, "%d %d %d %d %d\n", data[i], data[i+1], data[i+2], data[i+3], data[i+4])
				}
				if sb.Len() == 0 {
					return "empty\n"
				}
				return sb.String()

			case "definition":
				file, line, col := scanQuery(t, d)
				g, ok := store.Definition(file, line, col)
				if !ok {
					return "not found\n"
				}
				return fmt.Sprintf("%s %d:%d-%d:%d\n", g.TargetFile,
					g.TargetLine, g.TargetStartCol, g.TargetLine, g.TargetStartCol+g.Interval.Len())

			case "hover":
				file, line, col := scanQuery(t, d)
				h, ok := store.Hover(file, line, col)
				if !ok {
					return "not found\n"
				}
				iv := h.Interval
				return fmt.Sprintf("%q %d:%d-%d:%d\n", h.Text, iv.Line, iv.StartCol, iv.EndLine, iv.EndCol+1)

			default:
				d.Fatalf(t, "unknown command %q", d.Cmd)
				return ""
			}
		})
	})
}

func scanQuery(t *testing.T, d *datadriven.TestData) (string, int, int) {
	var (
		file      string
		line, col int
	)
	d.ScanArgs(t, "path", &file)
	d.ScanArgs(t, "line", &line)
	d.ScanArgs(t, "col", &col)
	return file, line, col
}

func typeName(i int) string {
	if i >= 0 && i < len(TokenTypes) {
		return TokenTypes[i]
	}
	return "?"
}
