package cache

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when Entry format changes.
const diskSchemaVersion uint16 = 2

// DiskCache stores highlight payloads by Key under the user cache dir.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// Entry is the on-disk record.
type Entry struct {
	Schema  uint16
	Path    string
	Stored  int64 // unix seconds
	Payload []byte
	Deps    []Stamp
}

// OpenDiskCache initializes a disk cache at $XDG_CACHE_HOME/<app>, falling
// back to ~/.cache/<app>.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewDiskCache(filepath.Join(base, app))
}

// NewDiskCache uses dir as the cache root.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key Key) string {
	return filepath.Join(c.dir, "highlight", hex.EncodeToString(key[:])+".mp")
}

// Put serializes and atomically writes an entry.
func (c *DiskCache) Put(key Key, path string, payload []byte, deps []Stamp) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	entry := Entry{
		Schema:  diskSchemaVersion,
		Path:    path,
		Stored:  time.Now().Unix(),
		Payload: payload,
		Deps:    deps,
	}
	if err := msgpack.NewEncoder(f).Encode(&entry); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		return err
	}
	committed = true
	return nil
}

// Get reads an entry. Entries written by another schema version are
// treated as missing.
func (c *DiskCache) Get(key Key) (Entry, bool, error) {
	if c == nil {
		return Entry{}, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	defer f.Close()

	var entry Entry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return Entry{}, false, err
	}
	if entry.Schema != diskSchemaVersion {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// DropAll removes every cached entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "highlight"))
}
