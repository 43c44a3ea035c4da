package lsp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"juvixmode/internal/config"
	"juvixmode/internal/testkit"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) messages(t *testing.T) []rpcMessage {
	t.Helper()
	b.mu.Lock()
	data := append([]byte(nil), b.buf.Bytes()...)
	b.mu.Unlock()
	reader := bufio.NewReader(bytes.NewReader(data))
	var out []rpcMessage
	for {
		payload, err := readMessage(reader)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("read message: %v", err)
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		out = append(out, msg)
	}
}

func newTestServer(t *testing.T, runner *testkit.FakeRunner, configure ...func(*config.Settings)) (*Server, *syncBuffer) {
	t.Helper()
	settings := config.Default()
	for _, fn := range configure {
		fn(&settings)
	}
	out := &syncBuffer{}
	server := NewServer(bytes.NewReader(nil), out, ServerOptions{
		Debounce: time.Hour,
		Settings: &settings,
		Runner:   runner,
	})
	t.Cleanup(func() {
		server.cancelInflight()
		server.Wait()
		server.mu.Lock()
		if server.debounceTimer != nil {
			server.debounceTimer.Stop()
		}
		server.mu.Unlock()
	})
	return server, out
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func request(t *testing.T, server *Server, id int, method string, params any) {
	t.Helper()
	msg := &rpcMessage{
		JSONRPC: "2.0",
		ID:      json.RawMessage(strconv.Itoa(id)),
		Method:  method,
		Params:  mustJSON(t, params),
	}
	if err := server.handleMessage(msg); err != nil {
		t.Fatalf("%s: %v", method, err)
	}
}

func notifyServer(t *testing.T, server *Server, method string, params any) {
	t.Helper()
	msg := &rpcMessage{JSONRPC: "2.0", Method: method, Params: mustJSON(t, params)}
	if err := server.handleMessage(msg); err != nil {
		t.Fatalf("%s: %v", method, err)
	}
}

func responseTo(t *testing.T, msgs []rpcMessage, id int) rpcMessage {
	t.Helper()
	want := strconv.Itoa(id)
	for _, msg := range msgs {
		if msg.Method == "" && string(msg.ID) == want {
			return msg
		}
	}
	t.Fatalf("no response to request %d in %d messages", id, len(msgs))
	return rpcMessage{}
}

func notificationsOf(msgs []rpcMessage, method string) []rpcMessage {
	var out []rpcMessage
	for _, msg := range msgs {
		if msg.Method == method {
			out = append(out, msg)
		}
	}
	return out
}

func decodeResult(t *testing.T, msg rpcMessage, v any) {
	t.Helper()
	if msg.Error != nil {
		t.Fatalf("unexpected error response: %d %s", msg.Error.Code, msg.Error.Message)
	}
	if err := json.Unmarshal(msg.Result, v); err != nil {
		t.Fatalf("decode result %s: %v", string(msg.Result), err)
	}
}

func writeSource(t *testing.T, dir, name, text string) (string, string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path, pathToURI(path)
}

func openDocument(t *testing.T, server *Server, uri, text string) {
	t.Helper()
	notifyServer(t, server, "textDocument/didOpen", didOpenTextDocumentParams{
		TextDocument: textDocumentItem{URI: uri, LanguageID: "Juvix", Version: 1, Text: text},
	})
}

func runPendingDiagnostics(server *Server) {
	server.mu.Lock()
	if server.debounceTimer != nil {
		server.debounceTimer.Stop()
	}
	server.mu.Unlock()
	server.runDiagnostics(atomic.LoadUint64(&server.latestSeq))
}

const basicSource = "module f;\nopen import Unit;\nvalue := Unit;\n"

func basicPayload(path string) string {
	return fmt.Sprintf(`{"face":[[[%[1]q,1,8,1,1,8],"module"],[[%[1]q,1,1,6,1,6],"keyword"],`+
		`[[%[1]q,2,1,4,2,4],"keyword"],[[%[1]q,2,6,6,2,11],"keyword"],[[%[1]q,2,13,4,2,16],"module"],`+
		`[[%[1]q,3,1,5,3,5],"function"],[[%[1]q,3,10,4,3,13],"type"]],`+
		`"goto":[[[%[1]q,3,10,4],["/lib/Unit.juvix",1,1]],[[%[1]q,2,13,4],["/lib/Unit.juvix",1,8]]],`+
		`"doc":[[[%[1]q,3,10,4,3,13],"The unit type."]]}`, path)
}

func decodeParams(t *testing.T, msg rpcMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(msg.Params, v); err != nil {
		t.Fatalf("decode params %s: %v", string(msg.Params), err)
	}
}

func jsonString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
