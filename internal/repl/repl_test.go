package repl

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"juvixmode/internal/juvix"
)

const fakeREPL = `#!/bin/sh
echo "args: $*"
while IFS= read -r line; do
  echo "got: $line"
  if [ "$line" = ":quit" ]; then exit 0; fi
done
`

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func fakeExec(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "juvix")
	require.NoError(t, os.WriteFile(path, []byte(fakeREPL), 0o755))
	return path
}

func sourceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Main.juvix")
	require.NoError(t, os.WriteFile(path, []byte("module Main;\n"), 0o644))
	return path
}

func TestSessionLoadSendQuit(t *testing.T) {
	exe := fakeExec(t)
	file := sourceFile(t)
	var out lockedBuffer

	s, err := Start(context.Background(), Options{Exec: exe, File: file, Stdout: &out})
	require.NoError(t, err)
	require.NoError(t, s.Send("1 + 2"))
	require.NoError(t, s.Reload())
	require.NoError(t, s.Quit())
	require.NoError(t, s.Wait())

	want := "args: repl\n" +
		"got: :load " + file + "\n" +
		"got: 1 + 2\n" +
		"got: :reload " + file + "\n" +
		"got: :quit\n"
	assert.Equal(t, want, out.String())

	assert.ErrorIs(t, s.Send("late"), ErrClosed)
}

func TestCoreSession(t *testing.T) {
	exe := fakeExec(t)
	var out lockedBuffer

	_, err := Start(context.Background(), Options{Exec: exe, Language: Core})
	require.Error(t, err)

	s, err := Start(context.Background(), Options{Exec: exe, Language: Core, File: "A.jvc", Stdout: &out})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.Equal(t, "args: dev core eval A.jvc\ngot: :quit\n", out.String())
}

func TestReloadWithoutFile(t *testing.T) {
	s, err := Start(context.Background(), Options{Exec: fakeExec(t)})
	require.NoError(t, err)
	defer s.Close()
	require.ErrorContains(t, s.Reload(), "no file loaded")
}

func TestWatchReload(t *testing.T) {
	exe := fakeExec(t)
	file := sourceFile(t)
	var out lockedBuffer
	s, err := Start(context.Background(), Options{Exec: exe, File: file, Stdout: &out})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	watched := make(chan error, 1)
	go func() { watched <- s.WatchReload(ctx, 10*time.Millisecond) }()

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(file, future, future))

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("got: :reload "+file))
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-watched, context.Canceled)
}

func TestWatchReloadSeesEditMadeBeforeWatching(t *testing.T) {
	exe := fakeExec(t)
	file := sourceFile(t)
	var out lockedBuffer
	s, err := Start(context.Background(), Options{Exec: exe, File: file, Stdout: &out})
	require.NoError(t, err)
	defer s.Close()

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(file, future, future))

	ctx, cancel := context.WithCancel(context.Background())
	watched := make(chan error, 1)
	go func() { watched <- s.WatchReload(ctx, 10*time.Millisecond) }()

	reload := "got: :reload " + file
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), reload)
	}, 5*time.Second, 10*time.Millisecond)

	// The reload becomes the new baseline; an unchanged file is not reloaded again.
	time.Sleep(100 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-watched, context.Canceled)
	assert.Equal(t, 1, strings.Count(out.String(), reload))
}

func TestCloseKillsStuckProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "juvix")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexec sleep 30\n"), 0o755))

	s, err := Start(context.Background(), Options{Exec: path, QuitTimeout: 50 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	select {
	case <-s.Done():
	default:
		t.Fatal("process still running after Close")
	}
}

func TestMissingBinary(t *testing.T) {
	_, err := Start(context.Background(), Options{Exec: filepath.Join(t.TempDir(), "nope")})
	require.ErrorIs(t, err, juvix.ErrNotFound)
}

func TestLanguageOf(t *testing.T) {
	lang, ok := LanguageOf("/w/A.juvix")
	assert.True(t, ok)
	assert.Equal(t, Juvix, lang)
	lang, ok = LanguageOf("B.JVC")
	assert.True(t, ok)
	assert.Equal(t, Core, lang)
	_, ok = LanguageOf("C.txt")
	assert.False(t, ok)
}
