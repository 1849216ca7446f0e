package grove

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jward/grove/internal/modules"
	"github.com/jward/grove/internal/symbols"
	"github.com/jward/grove/internal/syntax"
	"github.com/jward/grove/internal/telemetry"
	"github.com/jward/grove/internal/text"
)

// ReadonlySourceRoot is an immutable snapshot of a fixed set of files. The
// module tree and the symbol index are built once at construction; line
// indices and syntax trees are computed lazily and memoized per file.
type ReadonlySourceRoot struct {
	files      map[FileID]*fileData
	moduleTree *modules.TreeDescriptor
	symbols    *symbols.Index

	parser syntax.Parser
	faults telemetry.FaultReporter
}

// NewReadonlySourceRoot parses files in parallel and builds the module tree
// and symbol index. A nil resolver resolves nothing. ctx only carries the
// tracing span; construction is never canceled.
//
// Duplicate FileIDs in files panic. A parser panic is reported and then
// re-raised on the calling goroutine.
func NewReadonlySourceRoot(ctx context.Context, files []File, resolver modules.FileResolver, opts ...Option) *ReadonlySourceRoot {
	s := newSettings(opts)
	if resolver == nil {
		resolver = modules.NopResolver{}
	}

	data := make(map[FileID]*fileData, len(files))
	for _, f := range files {
		if _, dup := data[f.ID]; dup {
			panic(fmt.Sprintf("grove: duplicate file %d in read-only root", uint32(f.ID)))
		}
		data[f.ID] = newFileData(f.Text)
	}

	start := time.Now()
	ctx, end := telemetry.StartBuild(ctx, len(files))
	defer end()

	b := &builder{files: files, settings: s}
	b.parseAll(ctx)
	tree := b.linkModules(ctx, resolver)
	index := b.indexSymbols(ctx)

	s.logger.Debug("built read-only root",
		slog.Int("files", len(files)),
		slog.Int("links", len(tree.Links())),
		slog.Int("symbols", index.Len()),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &ReadonlySourceRoot{
		files:      data,
		moduleTree: tree,
		symbols:    index,
		parser:     s.parser,
		faults:     s.faults,
	}
}

func (r *ReadonlySourceRoot) sourceRoot() {}

// Contains reports whether id is a member of the root.
func (r *ReadonlySourceRoot) Contains(id FileID) bool {
	_, ok := r.files[id]
	return ok
}

// ModuleTree returns the module tree built at construction. It never fails.
func (r *ReadonlySourceRoot) ModuleTree() (*modules.TreeDescriptor, error) {
	return r.moduleTree, nil
}

// Lines returns the memoized line index of id.
func (r *ReadonlySourceRoot) Lines(id FileID) *text.LineIndex {
	return r.data(id).lineIndex()
}

// Syntax returns the memoized syntax tree of id, parsing it on first use.
func (r *ReadonlySourceRoot) Syntax(id FileID) *syntax.Tree {
	return r.data(id).syntaxTree(id, r.parser, r.faults)
}

// Symbols appends the root's single symbol index to acc. It never fails.
func (r *ReadonlySourceRoot) Symbols(acc []*symbols.Index) ([]*symbols.Index, error) {
	return append(acc, r.symbols), nil
}

// Files returns the members in FileID order.
func (r *ReadonlySourceRoot) Files() []FileID {
	return sortedIDs(r.files)
}

// Len returns the number of files.
func (r *ReadonlySourceRoot) Len() int {
	return len(r.files)
}

func (r *ReadonlySourceRoot) data(id FileID) *fileData {
	d, ok := r.files[id]
	if !ok {
		panic(&MembershipFault{File: id, Root: "readonly"})
	}
	return d
}
