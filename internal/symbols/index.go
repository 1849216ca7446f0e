// Package symbols extracts declared symbols from syntax trees and aggregates
// them into searchable, immutable indexes.
package symbols

import (
	"sort"
	"strings"

	"github.com/jward/grove/internal/source"
	"github.com/jward/grove/internal/syntax"
)

// Symbol is one declaration. Offsets are byte offsets into the file text.
type Symbol struct {
	File      source.FileID
	Name      string
	Kind      string
	StartByte int
	EndByte   int
	// NameStart is the offset of the identifier, for navigation.
	NameStart int
}

// Extractor pulls symbols out of one parsed file.
type Extractor interface {
	Extract(file source.FileID, tree *syntax.Tree) []Symbol
}

// Index is an immutable, sorted collection of symbols. An *Index is shared
// between readers and never copied or mutated after construction.
type Index struct {
	entries []Symbol
}

// FileTree is the per-file input to ForFiles.
type FileTree struct {
	File source.FileID
	Tree *syntax.Tree
}

// ForFile builds the index for a single file.
func ForFile(ex Extractor, file source.FileID, tree *syntax.Tree) *Index {
	return newIndex(ex.Extract(file, tree))
}

// ForFiles builds one index over several files sequentially.
func ForFiles(ex Extractor, files []FileTree) *Index {
	parts := make([][]Symbol, len(files))
	for i, f := range files {
		parts[i] = ex.Extract(f.File, f.Tree)
	}
	return Merge(parts...)
}

// Merge joins per-file partial results into one index. The result depends
// only on the multiset of symbols, not on the order of parts.
func Merge(parts ...[]Symbol) *Index {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	all := make([]Symbol, 0, n)
	for _, p := range parts {
		all = append(all, p...)
	}
	return newIndex(all)
}

func newIndex(entries []Symbol) *Index {
	sort.Slice(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
	return &Index{entries: entries}
}

func less(a, b Symbol) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if a.File != b.File {
		return a.File < b.File
	}
	if a.StartByte != b.StartByte {
		return a.StartByte < b.StartByte
	}
	return a.Kind < b.Kind
}

// Len returns the number of symbols.
func (x *Index) Len() int {
	return len(x.entries)
}

// Symbols returns a copy of every symbol in index order.
func (x *Index) Symbols() []Symbol {
	return append([]Symbol(nil), x.entries...)
}

// Lookup returns the symbols named exactly name.
func (x *Index) Lookup(name string) []Symbol {
	lo := sort.Search(len(x.entries), func(i int) bool { return x.entries[i].Name >= name })
	hi := lo
	for hi < len(x.entries) && x.entries[hi].Name == name {
		hi++
	}
	return append([]Symbol(nil), x.entries[lo:hi]...)
}

// WithPrefix returns the symbols whose name starts with prefix.
func (x *Index) WithPrefix(prefix string) []Symbol {
	lo := sort.Search(len(x.entries), func(i int) bool { return x.entries[i].Name >= prefix })
	hi := lo
	for hi < len(x.entries) && strings.HasPrefix(x.entries[hi].Name, prefix) {
		hi++
	}
	return append([]Symbol(nil), x.entries[lo:hi]...)
}

// Equal reports whether two indexes hold the same symbols.
func (x *Index) Equal(other *Index) bool {
	if x == nil || other == nil {
		return x == other
	}
	if len(x.entries) != len(other.entries) {
		return false
	}
	for i := range x.entries {
		if x.entries[i] != other.entries[i] {
			return false
		}
	}
	return true
}
