package judoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const generatedPage = `<!DOCTYPE html><html><head>` +
	`<meta http-equiv="Content-Type" content="text/html; charset=UTF-8">` +
	`<link href="assets/linuwial.css" rel="stylesheet">` +
	`<link href="assets/source-ayu-light.css" rel="stylesheet">` +
	`<script src="assets/highlight.js"></script>` +
	`</head><body><img src="assets/tara.svg"><a href="Other.html">Other</a></body></html>`

func TestRenderRewritesAssets(t *testing.T) {
	out := Render(generatedPage, RenderOptions{AssetsURL: "/assets/", Nonce: "N0nce"})

	assert.Contains(t, out, `href="/assets/linuwial.css"`)
	assert.Contains(t, out, `href="/assets/source-ayu-light.css"`)
	assert.Contains(t, out, `<script nonce="N0nce" src="/assets/highlight.js">`)
	assert.Contains(t, out, `<img src="/assets/tara.svg">`)
	assert.Contains(t, out, `href="Other.html"`)
	assert.NotContains(t, out, "Content-Type")
	assert.Contains(t, out, `script-src 'nonce-N0nce';`)
	assert.Contains(t, out, `style-src 'self';`)
	assert.NotContains(t, out, "WebSocket")
}

func TestRenderWithoutMeta(t *testing.T) {
	out := Render("<html><head><title>A</title></head><body></body></html>", RenderOptions{
		Nonce:      "abc",
		Source:     "https://example.test",
		LiveReload: true,
	})
	assert.True(t, strings.HasPrefix(out, `<html><head><meta http-equiv="Content-Security-Policy"`))
	assert.Contains(t, out, "img-src https://example.test https:;")
	assert.Contains(t, out, `<script nonce="abc">`)
	assert.True(t, strings.HasSuffix(out, "</script>\n</body></html>"))
}

func TestNewNonce(t *testing.T) {
	a, err := NewNonce()
	require.NoError(t, err)
	b, err := NewNonce()
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	for _, r := range a {
		assert.True(t, strings.ContainsRune(nonceAlphabet, r), "unexpected %q", r)
	}
}

func TestPagePath(t *testing.T) {
	assert.Equal(t, "/p/doc/Main.html", PagePath("/p/doc", "/p/src/Main.juvix"))
	assert.Equal(t, "/p/doc", OutputDir("/p"))
}
