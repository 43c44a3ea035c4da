package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf16"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"juvixmode/internal/cache"
	"juvixmode/internal/highlight"
	"juvixmode/internal/project"
)

var highlightCmd = &cobra.Command{
	Use:   "highlight <file>",
	Short: "Print the semantic tokens of a Juvix file",
	Args:  cobra.ExactArgs(1),
	RunE:  runHighlight,
}

func init() {
	highlightCmd.Flags().String("format", "table", "output format (table|json)")
}

func runHighlight(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "table" && format != "json" {
		return errInvalidFlag("format", format, "table|json")
	}
	ctx := cmd.Context()
	settings := settingsFrom(ctx)
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	client := newClient(ctx, settings)
	payloads, err := openCache(settings)
	if err != nil {
		return err
	}
	key := cache.KeyFor(client.Exec(), client.GlobalFlags(), path, string(text))
	raw, hit := payloads.Get(key)
	if !hit {
		raw, err = client.Highlight(ctx, path, string(text))
		if err != nil {
			return err
		}
	}
	p, err := highlight.Decode(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if !hit {
		deps := cache.StampFiles(project.DependencyFiles(path, p.TargetFiles(path)))
		if err := payloads.Put(key, path, raw, deps); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "cache: %v\n", err)
		}
	}

	tokens := highlight.Tokens(p.Face, string(text))
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		return enc.Encode(map[string][]uint32{"data": highlight.Encode(tokens)})
	}
	renderTokenTable(cmd.OutOrStdout(), tokens, highlight.Lines(string(text)))
	return nil
}

var tokenTypeColor = color.New(color.FgCyan)

// renderTokenTable prints one token per line with 1-based positions and the
// covered source text.
func renderTokenTable(out io.Writer, tokens []highlight.SemanticToken, lines []string) {
	for _, tok := range tokens {
		name := "unknown"
		if tok.Type >= 0 && tok.Type < len(highlight.TokenTypes) {
			name = highlight.TokenTypes[tok.Type]
		}
		fmt.Fprintf(out, "%d:%d\t%d\t%s\t%q\n", tok.Line+1, tok.Start+1, tok.Length,
			tokenTypeColor.Sprint(name), tokenText(lines, tok))
	}
}

func tokenText(lines []string, tok highlight.SemanticToken) string {
	if tok.Line < 0 || tok.Line >= len(lines) {
		return ""
	}
	units := utf16.Encode([]rune(lines[tok.Line]))
	start := min(max(tok.Start, 0), len(units))
	end := min(start+max(tok.Length, 0), len(units))
	return string(utf16.Decode(units[start:end]))
}
