package cache

import (
	"os"
	"slices"
)

// Stamp records the state of a file a cached payload depends on, such as a
// module its goto targets point into.
type Stamp struct {
	Path    string
	ModTime int64 // unix nanoseconds, -1 when the file was missing
	Size    int64
}

// StampFiles stats paths, ignoring duplicates and empty names.
func StampFiles(paths []string) []Stamp {
	paths = slices.Clone(paths)
	slices.Sort(paths)
	paths = slices.Compact(paths)
	out := make([]Stamp, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		out = append(out, stampFile(p))
	}
	return out
}

func stampFile(path string) Stamp {
	info, err := os.Stat(path)
	if err != nil {
		return Stamp{Path: path, ModTime: -1}
	}
	return Stamp{Path: path, ModTime: info.ModTime().UnixNano(), Size: info.Size()}
}

// fresh reports whether every stamped file is still as recorded.
func fresh(stamps []Stamp) bool {
	for _, s := range stamps {
		if stampFile(s.Path) != s {
			return false
		}
	}
	return true
}
