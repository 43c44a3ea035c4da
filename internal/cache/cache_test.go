package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDependsOnEveryInput(t *testing.T) {
	base := KeyFor("juvix", []string{"--no-colors"}, "/a.juvix", "module a;")
	assert.Equal(t, base, KeyFor("juvix", []string{"--no-colors"}, "/a.juvix", "module a;"))
	assert.NotEqual(t, base, KeyFor("juvix2", []string{"--no-colors"}, "/a.juvix", "module a;"))
	assert.NotEqual(t, base, KeyFor("juvix", nil, "/a.juvix", "module a;"))
	assert.NotEqual(t, base, KeyFor("juvix", []string{"--no-colors"}, "/b.juvix", "module a;"))
	assert.NotEqual(t, base, KeyFor("juvix", []string{"--no-colors"}, "/a.juvix", "module b;"))
}

func TestDisabledCacheIsNil(t *testing.T) {
	p, err := New(0, nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	_, ok := p.Get(Key{})
	assert.False(t, ok)
	assert.NoError(t, p.Put(Key{}, "x", []byte("y"), nil))
	assert.NoError(t, p.Purge())
}

func TestMemoryEviction(t *testing.T) {
	p, err := New(2, nil)
	require.NoError(t, err)
	k1 := KeyFor("j", nil, "1", "")
	k2 := KeyFor("j", nil, "2", "")
	k3 := KeyFor("j", nil, "3", "")
	require.NoError(t, p.Put(k1, "1", []byte("one"), nil))
	require.NoError(t, p.Put(k2, "2", []byte("two"), nil))
	require.NoError(t, p.Put(k3, "3", []byte("three"), nil))

	_, ok := p.Get(k1)
	assert.False(t, ok, "oldest entry evicted")
	v, ok := p.Get(k3)
	require.True(t, ok)
	assert.Equal(t, "three", string(v))
}

func TestDiskRoundTripAndPromotion(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	disk, err := OpenDiskCache("juvixmode")
	require.NoError(t, err)

	writer, err := New(0, disk)
	require.NoError(t, err)
	k := KeyFor("juvix", nil, "/p/A.juvix", "module A;")
	require.NoError(t, writer.Put(k, "/p/A.juvix", []byte(`{"face":[]}`), nil))

	entry, ok, err := disk.Get(k)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/p/A.juvix", entry.Path)

	reader, err := New(4, disk)
	require.NoError(t, err)
	v, ok := reader.Get(k)
	require.True(t, ok)
	assert.Equal(t, `{"face":[]}`, string(v))

	require.NoError(t, disk.DropAll())
	v, ok = reader.Get(k)
	require.True(t, ok, "promoted to memory before the disk was cleared")
	assert.Equal(t, `{"face":[]}`, string(v))

	require.NoError(t, reader.Purge())
	_, ok = reader.Get(k)
	assert.False(t, ok)
}

func TestDiskCorruptEntry(t *testing.T) {
	disk, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)
	k := KeyFor("j", nil, "x", "")
	require.NoError(t, disk.Put(k, "x", []byte("p"), nil))

	// Overwrite with garbage: decode error is reported, not a hit.
	require.NoError(t, os.WriteFile(disk.pathFor(k), []byte{0xc1}, 0o644))
	_, ok, err := disk.Get(k)
	assert.Error(t, err)
	assert.False(t, ok)

	entries, err := os.ReadDir(filepath.Join(disk.Dir(), "highlight"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestChangedDependencyInvalidatesEntry(t *testing.T) {
	dir := t.TempDir()
	imported := filepath.Join(dir, "Lib.juvix")
	require.NoError(t, os.WriteFile(imported, []byte("module Lib;\n"), 0o644))
	disk, err := NewDiskCache(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	p, err := New(4, disk)
	require.NoError(t, err)
	k := KeyFor("juvix", nil, "/p/A.juvix", "module A; import Lib;")
	require.NoError(t, p.Put(k, "/p/A.juvix", []byte("payload"), StampFiles([]string{imported, imported, ""})))

	v, ok := p.Get(k)
	require.True(t, ok)
	assert.Equal(t, "payload", string(v))

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(imported, later, later))
	_, ok = p.Get(k)
	assert.False(t, ok, "memory level must notice the changed import")

	// A fresh process sees the same entry through the disk level only.
	reader, err := New(0, disk)
	require.NoError(t, err)
	_, ok = reader.Get(k)
	assert.False(t, ok, "disk level must notice the changed import")

	require.NoError(t, os.Remove(imported))
	entry, ok, err := disk.Get(k)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entry.Deps, 1)
	assert.False(t, fresh(entry.Deps))
}

func TestMissingDependencyStaysFreshWhileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "Gone.juvix")
	stamps := StampFiles([]string{missing})
	require.Len(t, stamps, 1)
	assert.Equal(t, int64(-1), stamps[0].ModTime)
	assert.True(t, fresh(stamps))

	require.NoError(t, os.WriteFile(missing, []byte("module Gone;"), 0o644))
	assert.False(t, fresh(stamps))
}
