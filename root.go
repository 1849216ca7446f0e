package grove

import (
	"fmt"
	"sort"

	"github.com/jward/grove/internal/modules"
	"github.com/jward/grove/internal/symbols"
	"github.com/jward/grove/internal/syntax"
	"github.com/jward/grove/internal/text"
)

// SourceRoot is the read capability shared by both kinds of root. The set of
// implementations is closed: *WritableSourceRoot and *ReadonlySourceRoot.
type SourceRoot interface {
	// Contains reports whether id is a member of the root.
	Contains(id FileID) bool

	// ModuleTree returns the module graph of the current snapshot. The only
	// possible error is ErrCanceled, and only from a writable root.
	ModuleTree() (*modules.TreeDescriptor, error)

	// Lines returns the line index of id. It panics with *MembershipFault
	// when id is not a member.
	Lines(id FileID) *text.LineIndex

	// Syntax returns the syntax tree of id. It panics with *MembershipFault
	// when id is not a member.
	Syntax(id FileID) *syntax.Tree

	// Symbols appends the root's symbol indexes to acc. On error acc is
	// returned unchanged; the only possible error is ErrCanceled.
	Symbols(acc []*symbols.Index) ([]*symbols.Index, error)

	sourceRoot()
}

var (
	_ SourceRoot = (*WritableSourceRoot)(nil)
	_ SourceRoot = (*ReadonlySourceRoot)(nil)
)

// MembershipFault is the panic value raised when a per-file read names a file
// the root does not contain.
type MembershipFault struct {
	File FileID
	Root string // "writable" or "readonly"
}

func (e *MembershipFault) Error() string {
	return fmt.Sprintf("grove: %s root: unknown file %d", e.Root, uint32(e.File))
}

// FileSet is the membership of a writable root together with the resolver
// used to link its modules. A *FileSet is replaced, never mutated.
type FileSet struct {
	files    map[FileID]struct{}
	resolver modules.FileResolver
}

func newFileSet(files map[FileID]struct{}, resolver modules.FileResolver) *FileSet {
	if resolver == nil {
		resolver = modules.NopResolver{}
	}
	return &FileSet{files: files, resolver: resolver}
}

// Contains reports whether id is in the set.
func (s *FileSet) Contains(id FileID) bool {
	_, ok := s.files[id]
	return ok
}

// Len returns the number of files.
func (s *FileSet) Len() int {
	return len(s.files)
}

// Files returns the members in FileID order.
func (s *FileSet) Files() []FileID {
	return sortedIDs(s.files)
}

// Resolver returns the active resolver.
func (s *FileSet) Resolver() modules.FileResolver {
	return s.resolver
}

func sortedIDs[V any](m map[FileID]V) []FileID {
	ids := make([]FileID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
