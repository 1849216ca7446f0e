package grove

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/jward/grove/internal/incr"
	"github.com/jward/grove/internal/modules"
	"github.com/jward/grove/internal/symbols"
	"github.com/jward/grove/internal/syntax"
	"github.com/jward/grove/internal/text"
)

// WritableSourceRoot is a mutable root. Every derived artifact is computed
// lazily through an incremental query store and reused until an edit
// invalidates it.
//
// Reads are safe for concurrent use with each other and with ApplyChanges.
// Concurrent ApplyChanges calls are serialized.
type WritableSourceRoot struct {
	writeMu sync.Mutex
	db      *database
	logger  *slog.Logger
}

// NewWritableSourceRoot returns an empty root whose resolver resolves
// nothing.
func NewWritableSourceRoot(opts ...Option) *WritableSourceRoot {
	s := newSettings(opts)
	return &WritableSourceRoot{db: newDatabase(s), logger: s.logger}
}

// ApplyChanges applies one edit batch. Removals and sets are collected over
// the whole batch and a file that is both removed and set stays a member,
// whatever the record order. Each set is written to the store immediately;
// the new membership is published once, after all texts. A nil resolver
// keeps the active one. An empty batch without a resolver is a no-op.
//
// Nothing is recomputed here. Reads that started before the batch and are
// still running observe ErrCanceled.
func (w *WritableSourceRoot) ApplyChanges(changes []Change, resolver modules.FileResolver) {
	if len(changes) == 0 && resolver == nil {
		return
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	removed := make(map[FileID]struct{})
	set := make(map[FileID]struct{})
	for _, c := range changes {
		if c.IsRemoval() {
			removed[c.File] = struct{}{}
			continue
		}
		w.db.fileText.Set(c.File, *c.Text)
		set[c.File] = struct{}{}
	}

	prev, _ := w.db.fileSet.Peek(unit{})
	files := make(map[FileID]struct{}, prev.Len()+len(set))
	maps.Copy(files, prev.files)
	for id := range removed {
		delete(files, id)
	}
	maps.Copy(files, set)
	if resolver == nil {
		resolver = prev.Resolver()
	}
	rev := w.db.fileSet.Set(unit{}, newFileSet(files, resolver))

	w.logger.Debug("applied changes",
		slog.Int("set", len(set)),
		slog.Int("removed", len(removed)),
		slog.Int("files", len(files)),
		slog.Uint64("revision", uint64(rev)),
	)
}

func (w *WritableSourceRoot) sourceRoot() {}

// Contains reports whether id is in the current file set.
func (w *WritableSourceRoot) Contains(id FileID) bool {
	set, _ := w.db.fileSet.Peek(unit{})
	return set.Contains(id)
}

// ModuleTree returns the module tree of the current snapshot, or ErrCanceled
// when an edit batch lands before it is complete.
func (w *WritableSourceRoot) ModuleTree() (*modules.TreeDescriptor, error) {
	f := w.db.rt.Begin()
	tree, err := w.db.moduleTree.Get(f, unit{})
	if err != nil {
		return nil, fmt.Errorf("grove: module tree: %w", err)
	}
	return tree, nil
}

// Symbols appends one index per member file to acc, in FileID order. On
// ErrCanceled acc is returned unchanged.
func (w *WritableSourceRoot) Symbols(acc []*symbols.Index) ([]*symbols.Index, error) {
	f := w.db.rt.Begin()
	set, err := w.db.currentFileSet(f)
	if err != nil {
		return acc, fmt.Errorf("grove: symbols: %w", err)
	}
	ids := set.Files()
	out := make([]*symbols.Index, 0, len(ids))
	for _, id := range ids {
		idx, err := w.db.fileSymbols.Get(f, id)
		if err != nil {
			return acc, fmt.Errorf("grove: symbols: file %d: %w", id, err)
		}
		out = append(out, idx)
	}
	return append(acc, out...), nil
}

// Lines returns the line index of id. A concurrent edit makes the read retry
// against the newer snapshot.
func (w *WritableSourceRoot) Lines(id FileID) *text.LineIndex {
	return retry(func(f *incr.Frame) (*text.LineIndex, error) {
		if err := w.db.member(f, id); err != nil {
			return nil, err
		}
		return w.db.fileLines.Get(f, id)
	}, w.db.rt)
}

// Syntax returns the syntax tree of id. A concurrent edit makes the read
// retry against the newer snapshot.
func (w *WritableSourceRoot) Syntax(id FileID) *syntax.Tree {
	return retry(func(f *incr.Frame) (*syntax.Tree, error) {
		if err := w.db.member(f, id); err != nil {
			return nil, err
		}
		return w.db.fileSyntax.Get(f, id)
	}, w.db.rt)
}

// Files returns the current members in FileID order.
func (w *WritableSourceRoot) Files() []FileID {
	set, _ := w.db.fileSet.Peek(unit{})
	return set.Files()
}

// Revision returns the revision of the newest committed input.
func (w *WritableSourceRoot) Revision() Revision {
	return w.db.rt.Revision()
}

// retry runs read in fresh frames until it completes without ErrCanceled.
// Single-file reads are always valid against the newest snapshot, so there
// is nothing to report to the caller.
func retry[V any](read func(f *incr.Frame) (V, error), rt *incr.Runtime) V {
	for {
		v, err := read(rt.Begin())
		if err == nil {
			return v
		}
		if !errors.Is(err, incr.ErrCanceled) {
			panic(err)
		}
	}
}
