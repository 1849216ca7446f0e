package modules

import (
	"sort"

	"github.com/jward/grove/internal/source"
)

// Link is one `mod name;` declaration and the file it resolved to.
// Unresolved declarations are kept with Resolved == false.
type Link struct {
	Parent   source.FileID
	Name     string
	Child    source.FileID
	Resolved bool
}

// TreeDescriptor is the module graph of one root snapshot. It is immutable
// once built and safe to share between readers.
type TreeDescriptor struct {
	files    []source.FileID
	links    []Link
	children map[source.FileID][]int // indexes into links
	parents  map[source.FileID][]int
}

// Build links per-file descriptors through resolver. The result depends only
// on the set of inputs, never on their order: files are sorted by FileID and
// links keep declaration order within a file.
func Build(files []FileDescriptor, resolver FileResolver) *TreeDescriptor {
	sorted := make([]FileDescriptor, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].File < sorted[j].File })

	t := &TreeDescriptor{
		files:    make([]source.FileID, 0, len(sorted)),
		children: make(map[source.FileID][]int),
		parents:  make(map[source.FileID][]int),
	}
	members := make(map[source.FileID]bool, len(sorted))
	for _, f := range sorted {
		members[f.File] = true
		t.files = append(t.files, f.File)
	}

	for _, f := range sorted {
		if f.Descriptor == nil {
			continue
		}
		for _, sub := range f.Descriptor.Submodules {
			link := Link{Parent: f.File, Name: sub.Name}
			if child, ok := resolver.Resolve(f.File, sub.Name); ok && members[child] {
				link.Child = child
				link.Resolved = true
			}
			idx := len(t.links)
			t.links = append(t.links, link)
			t.children[f.File] = append(t.children[f.File], idx)
			if link.Resolved {
				t.parents[link.Child] = append(t.parents[link.Child], idx)
			}
		}
	}
	return t
}

// Files returns every file of the graph in FileID order.
func (t *TreeDescriptor) Files() []source.FileID {
	return append([]source.FileID(nil), t.files...)
}

// Links returns every declaration, resolved or not.
func (t *TreeDescriptor) Links() []Link {
	return append([]Link(nil), t.links...)
}

// Children returns the declarations made by file.
func (t *TreeDescriptor) Children(file source.FileID) []Link {
	return t.collect(t.children[file])
}

// Parents returns the declarations that resolved to file. A well-formed
// crate has at most one.
func (t *TreeDescriptor) Parents(file source.FileID) []Link {
	return t.collect(t.parents[file])
}

// Roots returns the files no declaration resolved to, in FileID order.
func (t *TreeDescriptor) Roots() []source.FileID {
	var roots []source.FileID
	for _, f := range t.files {
		if len(t.parents[f]) == 0 {
			roots = append(roots, f)
		}
	}
	return roots
}

// Unresolved returns the declarations that did not resolve to a member file.
func (t *TreeDescriptor) Unresolved() []Link {
	var out []Link
	for _, l := range t.links {
		if !l.Resolved {
			out = append(out, l)
		}
	}
	return out
}

func (t *TreeDescriptor) collect(idxs []int) []Link {
	if len(idxs) == 0 {
		return nil
	}
	out := make([]Link, len(idxs))
	for i, idx := range idxs {
		out[i] = t.links[idx]
	}
	return out
}

// Equal reports whether t and other describe the same graph.
func (t *TreeDescriptor) Equal(other *TreeDescriptor) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	if len(t.files) != len(other.files) || len(t.links) != len(other.links) {
		return false
	}
	for i := range t.files {
		if t.files[i] != other.files[i] {
			return false
		}
	}
	for i := range t.links {
		if t.links[i] != other.links[i] {
			return false
		}
	}
	return true
}
