// Package abbrev maps input abbreviations such as \lambda to the unicode
// symbols they stand for.
package abbrev

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

//go:embed abbreviations.json
var builtin []byte

// Table is an immutable abbreviation table.
type Table struct {
	bySymbol map[string][]string
	byAbbrev map[string]string
	symbols  []string // longest first
}

// New returns the built-in table extended with custom, which may override
// built-in abbreviations. Symbols are stored in NFC.
func New(custom map[string]string) (*Table, error) {
	var base map[string]string
	if err := json.Unmarshal(builtin, &base); err != nil {
		return nil, fmt.Errorf("abbreviations: %w", err)
	}
	for k, v := range custom {
		base[k] = v
	}
	t := &Table{
		bySymbol: make(map[string][]string),
		byAbbrev: make(map[string]string, len(base)),
	}
	for a, sym := range base {
		a = strings.TrimSpace(a)
		sym = norm.NFC.String(sym)
		if a == "" || sym == "" {
			continue
		}
		t.byAbbrev[a] = sym
		t.bySymbol[sym] = append(t.bySymbol[sym], a)
	}
	for sym, abbrevs := range t.bySymbol {
		sort.Slice(abbrevs, func(i, j int) bool {
			if len(abbrevs[i]) != len(abbrevs[j]) {
				return len(abbrevs[i]) < len(abbrevs[j])
			}
			return abbrevs[i] < abbrevs[j]
		})
		t.symbols = append(t.symbols, sym)
	}
	sort.Slice(t.symbols, func(i, j int) bool {
		if len(t.symbols[i]) != len(t.symbols[j]) {
			return len(t.symbols[i]) > len(t.symbols[j])
		}
		return t.symbols[i] < t.symbols[j]
	})
	return t, nil
}

// Lookup returns the symbol for an abbreviation without its leader.
func (t *Table) Lookup(abbrev string) (string, bool) {
	sym, ok := t.byAbbrev[abbrev]
	return sym, ok
}

// AllAbbreviations lists every abbreviation producing symbol, shortest first.
func (t *Table) AllAbbreviations(symbol string) []string {
	return append([]string(nil), t.bySymbol[norm.NFC.String(symbol)]...)
}

// FindSymbolsIn returns the known symbols text starts with, longest first.
func (t *Table) FindSymbolsIn(text string) []string {
	text = norm.NFC.String(text)
	var out []string
	for _, sym := range t.symbols {
		if strings.HasPrefix(text, sym) {
			out = append(out, sym)
		}
	}
	return out
}

// Hover describes how to type the symbols at the start of text. It returns
// the markdown and the width of the longest symbol in UTF-16 units, or
// ok=false when no symbol starts there.
func (t *Table) Hover(text, leader string) (markdown string, width int, ok bool) {
	symbols := t.FindSymbolsIn(text)
	if len(symbols) == 0 {
		return "", 0, false
	}
	parts := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		abbrevs := t.bySymbol[sym]
		quoted := make([]string, len(abbrevs))
		for i, a := range abbrevs {
			quoted[i] = "`" + leader + a + "`"
		}
		parts = append(parts, fmt.Sprintf("To get '%s' type: %s", sym, strings.Join(quoted, " or ")))
		if w := len(utf16.Encode([]rune(sym))); w > width {
			width = w
		}
	}
	return strings.Join(parts, "\n\n"), width, true
}

// Expand replaces every leader-prefixed abbreviation in text by its symbol,
// preferring the longest abbreviation at each position. Unknown sequences
// are left untouched.
func (t *Table) Expand(text, leader string) string {
	if leader == "" || !strings.Contains(text, leader) {
		return text
	}
	var sb strings.Builder
	for {
		i := strings.Index(text, leader)
		if i < 0 {
			sb.WriteString(text)
			return sb.String()
		}
		sb.WriteString(text[:i])
		rest := text[i+len(leader):]
		best := ""
		for a := range t.byAbbrev {
			if len(a) > len(best) && strings.HasPrefix(rest, a) {
				best = a
			}
		}
		if best == "" {
			sb.WriteString(leader)
			text = rest
			continue
		}
		sb.WriteString(t.byAbbrev[best])
		text = rest[len(best):]
	}
}
