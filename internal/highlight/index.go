package highlight

// Index holds the per-line lookup tables built from one highlight run of a
// single document. It is never mutated after Build returns.
type Index struct {
	Path  string
	Faces map[int][]FaceToken
	Gotos map[int][]GotoTarget
	Docs  map[int][]HoverEntry
}

// Build indexes every entry of p under its first line, keeping the
// compiler's emission order within a line. Entries are keyed by the
// requesting document, not by the file named inside each interval.
func Build(path string, p *Payload) *Index {
	idx := &Index{
		Path:  path,
		Faces: make(map[int][]FaceToken),
		Gotos: make(map[int][]GotoTarget),
		Docs:  make(map[int][]HoverEntry),
	}
	if p == nil {
		return idx
	}
	for _, f := range p.Face {
		appendAt(idx.Faces, f.Interval.Line, f)
	}
	for _, g := range p.Goto {
		appendAt(idx.Gotos, g.Source.Line, g)
	}
	for _, d := range p.Doc {
		appendAt(idx.Docs, d.Interval.Line, d)
	}
	return idx
}

func appendAt[T any](table map[int][]T, line int, v T) {
	table[line] = append(table[line], v)
}

// Definition returns the first goto entry on line whose source columns
// contain col.
func (idx *Index) Definition(line, col int) (GotoTarget, bool) {
	if idx == nil {
		return GotoTarget{}, false
	}
	for _, g := range idx.Gotos[line] {
		if g.Interval.Contains(col) {
			return g, true
		}
	}
	return GotoTarget{}, false
}

// Hover returns the first doc entry on line whose columns contain col.
// Multi-line entries match any column from their start onward.
func (idx *Index) Hover(line, col int) (HoverEntry, bool) {
	if idx == nil {
		return HoverEntry{}, false
	}
	for _, d := range idx.Docs[line] {
		if d.Interval.Columns().Contains(col) {
			return d, true
		}
	}
	return HoverEntry{}, false
}

// Face returns the first face token on line whose columns contain col.
func (idx *Index) Face(line, col int) (FaceToken, bool) {
	if idx == nil {
		return FaceToken{}, false
	}
	for _, f := range idx.Faces[line] {
		if f.Interval.Columns().Contains(col) {
			return f, true
		}
	}
	return FaceToken{}, false
}

// Size reports the number of entries of each kind.
func (idx *Index) Size() (faces, gotos, docs int) {
	if idx == nil {
		return 0, 0, 0
	}
	for _, l := range idx.Faces {
		faces += len(l)
	}
	for _, l := range idx.Gotos {
		gotos += len(l)
	}
	for _, l := range idx.Docs {
		docs += len(l)
	}
	return faces, gotos, docs
}
