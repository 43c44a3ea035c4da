// Package judoc renders compiler-generated HTML documentation for preview.
package judoc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"juvixmode/internal/juvix"
)

// OutputDir is where documentation for the project at root is written.
func OutputDir(root string) string {
	return filepath.Join(root, "doc")
}

// PagePath is the HTML page generated for file inside outDir.
func PagePath(outDir, file string) string {
	base := filepath.Base(file)
	return filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".html")
}

// Generate runs the doc invocation for file into OutputDir(root) and
// returns the generated page.
func Generate(ctx context.Context, client *juvix.Client, root, file string) (string, error) {
	outDir := OutputDir(root)
	if err := client.Doc(ctx, outDir, file); err != nil {
		return "", err
	}
	page := PagePath(outDir, file)
	if _, err := os.Stat(page); err != nil {
		return "", fmt.Errorf("documentation page for %s was not generated: %w", filepath.Base(file), err)
	}
	return page, nil
}
