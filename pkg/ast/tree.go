package ast

import (
	"path"
	"sort"
)

// Tree is a project's root build file plus every file it may include via
// subdir(). Files are keyed by their slash-separated path.
type Tree struct {
	Root  *SourceFile
	files map[string]*SourceFile
}

// NewTree creates a tree and links parents in every file.
func NewTree(root *SourceFile, others ...*SourceFile) *Tree {
	t := &Tree{
		Root:  root,
		files: make(map[string]*SourceFile),
	}
	t.Add(root)
	for _, f := range others {
		t.Add(f)
	}
	return t
}

// Add registers a file.
func (t *Tree) Add(f *SourceFile) {
	if f == nil {
		return
	}
	SetParents(f)
	t.files[path.Clean(f.Path)] = f
}

// Lookup returns the file registered under p.
func (t *Tree) Lookup(p string) (*SourceFile, bool) {
	f, ok := t.files[path.Clean(p)]
	return f, ok
}

// Files returns all files sorted by path.
func (t *Tree) Files() []*SourceFile {
	out := make([]*SourceFile, 0, len(t.files))
	for _, f := range t.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// SubdirPath returns the build file included by subdir(dir) from the file at from.
func SubdirPath(from, dir string) string {
	return path.Join(path.Dir(from), dir, "meson.build")
}
