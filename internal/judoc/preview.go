package judoc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"juvixmode/internal/juvix"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message is pushed to preview clients over the websocket.
type Message struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// Preview serves the rendered documentation of one file and tells
// connected browsers to reload when it is regenerated.
type Preview struct {
	client *juvix.Client
	root   string
	file   string

	mu      sync.RWMutex
	page    string
	nonce   string
	lastErr error

	subMu sync.Mutex
	subs  map[chan Message]struct{}
}

// NewPreview returns a preview of file in the project at root. Call Refresh
// before serving.
func NewPreview(client *juvix.Client, root, file string) *Preview {
	return &Preview{
		client: client,
		root:   root,
		file:   file,
		subs:   make(map[chan Message]struct{}),
	}
}

// Refresh regenerates and re-renders the page with a fresh nonce. On
// failure the previous page is kept and clients receive an error message.
func (p *Preview) Refresh(ctx context.Context) error {
	err := p.refresh(ctx)
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
	if err != nil {
		p.broadcast(Message{Type: "error", Message: err.Error()})
		return err
	}
	p.broadcast(Message{Type: "reload"})
	return nil
}

func (p *Preview) refresh(ctx context.Context) error {
	path, err := Generate(ctx, p.client, p.root, p.file)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	nonce, err := NewNonce()
	if err != nil {
		return err
	}
	page := Render(string(raw), RenderOptions{
		AssetsURL:  "/assets",
		Nonce:      nonce,
		LiveReload: true,
	})
	p.mu.Lock()
	p.page = page
	p.nonce = nonce
	p.mu.Unlock()
	return nil
}

// Nonce returns the nonce of the page currently served.
func (p *Preview) Nonce() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nonce
}

// Watch polls the source file every interval and refreshes after it
// changes. Refresh errors are delivered to clients, not returned.
func (p *Preview) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	last := modTime(p.file)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			mt := modTime(p.file)
			if mt.IsZero() || mt.Equal(last) {
				continue
			}
			last = mt
			_ = p.Refresh(ctx)
		}
	}
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Handler serves the page at /, the generated assets under /assets/ and
// the reload websocket at /ws.
func (p *Preview) Handler() http.Handler {
	mux := http.NewServeMux()
	assets := filepath.Join(OutputDir(p.root), "assets")
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(assets))))
	mux.HandleFunc("/ws", p.serveWS)
	mux.HandleFunc("/", p.servePage)
	return mux
}

func (p *Preview) servePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	p.mu.RLock()
	page, lastErr := p.page, p.lastErr
	p.mu.RUnlock()
	if page == "" {
		msg := "no documentation generated yet"
		if lastErr != nil {
			msg = lastErr.Error()
		}
		http.Error(w, msg, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(page))
}

func (p *Preview) subscribe() chan Message {
	ch := make(chan Message, 8)
	p.subMu.Lock()
	p.subs[ch] = struct{}{}
	p.subMu.Unlock()
	return ch
}

func (p *Preview) unsubscribe(ch chan Message) {
	p.subMu.Lock()
	delete(p.subs, ch)
	p.subMu.Unlock()
}

func (p *Preview) broadcast(msg Message) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for ch := range p.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Clients returns the number of connected websocket clients.
func (p *Preview) Clients() int {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	return len(p.subs)
}

func (p *Preview) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	sub := p.subscribe()
	defer p.unsubscribe(sub)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()
		if err := writeJSON(conn, Message{Type: "subscribed"}); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-sub:
				if err := writeJSON(conn, msg); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			cancel()
			<-writerDone
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, msg Message) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// ListenAndServe serves the preview on addr until ctx is done.
func (p *Preview) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           p.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		return fmt.Errorf("preview server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
