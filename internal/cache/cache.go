// Package cache memoises raw highlight payloads by the inputs that produced
// them.
package cache

import (
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Key identifies one highlight run.
type Key [sha256.Size]byte

// KeyFor hashes the invocation and the document. Files the output depends
// on beyond the document (imported modules, the project manifest) are
// checked separately through the stamps passed to Put.
func KeyFor(exec string, flags []string, path, text string) Key {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00", exec)
	for _, f := range flags {
		fmt.Fprintf(h, "%s\x00", f)
	}
	fmt.Fprintf(h, "\x01%s\x00%d\x00", path, len(text))
	h.Write([]byte(text))
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Payloads is a two-level payload cache. Either level may be absent.
// An entry whose dependency stamps no longer match the files on disk is a
// miss in both levels.
type Payloads struct {
	mem  *lru.Cache[Key, record]
	disk *DiskCache
}

type record struct {
	payload []byte
	deps    []Stamp
}

// New builds a cache holding up to memSize payloads in memory, backed by
// disk when non-nil. It returns nil when both levels are disabled.
func New(memSize int, disk *DiskCache) (*Payloads, error) {
	if memSize <= 0 && disk == nil {
		return nil, nil
	}
	p := &Payloads{disk: disk}
	if memSize > 0 {
		mem, err := lru.New[Key, record](memSize)
		if err != nil {
			return nil, err
		}
		p.mem = mem
	}
	return p, nil
}

// Get returns the payload for k. A disk hit is promoted to memory.
func (p *Payloads) Get(k Key) ([]byte, bool) {
	if p == nil {
		return nil, false
	}
	if p.mem != nil {
		if r, ok := p.mem.Get(k); ok {
			if fresh(r.deps) {
				return r.payload, true
			}
			p.mem.Remove(k)
		}
	}
	if p.disk != nil {
		entry, ok, err := p.disk.Get(k)
		if err == nil && ok && fresh(entry.Deps) {
			if p.mem != nil {
				p.mem.Add(k, record{payload: entry.Payload, deps: entry.Deps})
			}
			return entry.Payload, true
		}
	}
	return nil, false
}

// Put stores payload under k in every enabled level. deps are the files
// besides the document that the payload was computed from.
func (p *Payloads) Put(k Key, path string, payload []byte, deps []Stamp) error {
	if p == nil {
		return nil
	}
	if p.mem != nil {
		p.mem.Add(k, record{payload: payload, deps: deps})
	}
	if p.disk != nil {
		return p.disk.Put(k, path, payload, deps)
	}
	return nil
}

// Purge clears every level.
func (p *Payloads) Purge() error {
	if p == nil {
		return nil
	}
	if p.mem != nil {
		p.mem.Purge()
	}
	return p.disk.DropAll()
}
