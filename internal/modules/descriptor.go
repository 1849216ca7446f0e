// Package modules extracts per-file module declarations and links them into
// a whole-root module graph.
package modules

import (
	"slices"

	"github.com/jward/grove/internal/source"
	"github.com/jward/grove/internal/syntax"
)

// Descriptor summarizes the out-of-line sub-modules a file declares, in
// declaration order. Inline modules (`mod x { ... }`) live in the same file
// and are not part of the graph.
type Descriptor struct {
	Submodules []Submodule
}

// Submodule is one `mod name;` declaration.
type Submodule struct {
	Name string
}

// Extract builds the Descriptor for a parsed file. Only top-level
// declarations are considered.
func Extract(tree *syntax.Tree) *Descriptor {
	root := tree.Root()
	d := &Descriptor{}
	count := int(root.NamedChildCount())
	for i := 0; i < count; i++ {
		item := root.NamedChild(i)
		if item.Type() != "mod_item" {
			continue
		}
		if item.ChildByFieldName("body") != nil {
			continue
		}
		name := item.ChildByFieldName("name")
		if name == nil {
			continue
		}
		d.Submodules = append(d.Submodules, Submodule{Name: tree.NodeText(name)})
	}
	return d
}

// Equal reports whether two descriptors declare the same sub-modules in the
// same order.
func (d *Descriptor) Equal(other *Descriptor) bool {
	if d == nil || other == nil {
		return d == other
	}
	return slices.Equal(d.Submodules, other.Submodules)
}

// FileDescriptor pairs a file with its descriptor for Build.
type FileDescriptor struct {
	File       source.FileID
	Descriptor *Descriptor
}
