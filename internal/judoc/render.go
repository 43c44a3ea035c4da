package judoc

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewNonce returns a random 32 character script nonce.
func NewNonce() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(nonceAlphabet)))
	for range 32 {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(nonceAlphabet[n.Int64()])
	}
	return b.String(), nil
}

var (
	assetAttr   = regexp.MustCompile(`(href|src)="assets/([^"]*)"`)
	contentType = regexp.MustCompile(`(?i)<meta http-equiv="Content-Type"[^>]*>`)
)

// RenderOptions control how a generated page is rewritten.
type RenderOptions struct {
	// AssetsURL replaces the relative "assets" prefix, e.g. "/assets".
	AssetsURL string
	// Source is the CSP source allowed for styles, images and connections.
	Source string
	Nonce  string
	// LiveReload injects a script that reloads the page on a "reload"
	// message from the websocket at /ws.
	LiveReload bool
}

const liveReloadScript = `<script nonce="%s">
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    if (msg.type === "reload") { location.reload(); }
    if (msg.type === "error") { console.error(msg.message); }
  };
})();
</script>
`

// Render rewrites asset links to opts.AssetsURL, adds the nonce to asset
// scripts and replaces the Content-Type meta tag with a Content-Security-
// Policy that only admits scripts carrying the nonce.
func Render(page string, opts RenderOptions) string {
	assets := strings.TrimRight(opts.AssetsURL, "/")
	if assets == "" {
		assets = "assets"
	}
	source := opts.Source
	if source == "" {
		source = "'self'"
	}

	out := assetAttr.ReplaceAllStringFunc(page, func(m string) string {
		sub := assetAttr.FindStringSubmatch(m)
		attr, path := sub[1], sub[2]
		rewritten := fmt.Sprintf(`%s="%s/%s"`, attr, assets, path)
		if attr == "src" && strings.HasSuffix(path, ".js") {
			return fmt.Sprintf(`nonce="%s" %s`, opts.Nonce, rewritten)
		}
		return rewritten
	})

	csp := fmt.Sprintf(`<meta http-equiv="Content-Security-Policy" content="default-src 'none'; style-src %s; img-src %s https:; connect-src %s; script-src 'nonce-%s';">`,
		source, source, source, opts.Nonce)
	if loc := contentType.FindStringIndex(out); loc != nil {
		out = out[:loc[0]] + csp + out[loc[1]:]
	} else if i := strings.Index(strings.ToLower(out), "<head>"); i >= 0 {
		out = out[:i+len("<head>")] + csp + out[i+len("<head>"):]
	} else {
		out = csp + out
	}

	if opts.LiveReload {
		script := fmt.Sprintf(liveReloadScript, opts.Nonce)
		if i := strings.LastIndex(strings.ToLower(out), "</body>"); i >= 0 {
			out = out[:i] + script + out[i:]
		} else {
			out += script
		}
	}
	return out
}
