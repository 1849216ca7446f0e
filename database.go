package grove

import (
	"github.com/jward/grove/internal/incr"
	"github.com/jward/grove/internal/modules"
	"github.com/jward/grove/internal/symbols"
	"github.com/jward/grove/internal/syntax"
	"github.com/jward/grove/internal/text"
)

// unit is the key of singleton queries.
type unit struct{}

// database is the incremental query graph behind a writable root.
//
//	file_text[id] ─┬─> file_lines[id]
//	               └─> file_syntax[id] ─┬─> file_symbols[id]
//	                                    └─> module_descriptor[id] ─┐
//	file_set ──────────────────────────────────────────────────────┴─> module_tree
type database struct {
	rt *incr.Runtime

	fileText *incr.Input[FileID, string]
	fileSet  *incr.Input[unit, *FileSet]

	fileSyntax       *incr.Derived[FileID, *syntax.Tree]
	fileLines        *incr.Derived[FileID, *text.LineIndex]
	fileSymbols      *incr.Derived[FileID, *symbols.Index]
	moduleDescriptor *incr.Derived[FileID, *modules.Descriptor]
	moduleTree       *incr.Derived[unit, *modules.TreeDescriptor]
}

func newDatabase(s settings) *database {
	rt := incr.NewRuntime()
	db := &database{
		rt:       rt,
		fileText: incr.NewInput[FileID, string](rt, "file_text"),
		fileSet:  incr.NewInput[unit, *FileSet](rt, "file_set"),
	}

	db.fileSyntax = incr.NewDerived(rt, "file_syntax", func(f *incr.Frame, id FileID) (*syntax.Tree, error) {
		src, _, err := db.fileText.Get(f, id)
		if err != nil {
			return nil, err
		}
		return parse(s.parser, s.faults, id, src), nil
	}).WithCapacity(s.syntaxCache)

	db.fileLines = incr.NewDerived(rt, "file_lines", func(f *incr.Frame, id FileID) (*text.LineIndex, error) {
		src, _, err := db.fileText.Get(f, id)
		if err != nil {
			return nil, err
		}
		return text.NewLineIndex(src), nil
	})

	db.fileSymbols = incr.NewDerived(rt, "file_symbols", func(f *incr.Frame, id FileID) (*symbols.Index, error) {
		tree, err := db.fileSyntax.Get(f, id)
		if err != nil {
			return nil, err
		}
		return symbols.ForFile(s.extractor, id, tree), nil
	}).WithEqual((*symbols.Index).Equal)

	db.moduleDescriptor = incr.NewDerived(rt, "module_descriptor", func(f *incr.Frame, id FileID) (*modules.Descriptor, error) {
		tree, err := db.fileSyntax.Get(f, id)
		if err != nil {
			return nil, err
		}
		return modules.Extract(tree), nil
	}).WithEqual((*modules.Descriptor).Equal)

	db.moduleTree = incr.NewDerived(rt, "module_tree", func(f *incr.Frame, _ unit) (*modules.TreeDescriptor, error) {
		set, err := db.currentFileSet(f)
		if err != nil {
			return nil, err
		}
		ids := set.Files()
		descs := make([]modules.FileDescriptor, 0, len(ids))
		for _, id := range ids {
			if err := f.Canceled(); err != nil {
				return nil, err
			}
			d, err := db.moduleDescriptor.Get(f, id)
			if err != nil {
				return nil, err
			}
			descs = append(descs, modules.FileDescriptor{File: id, Descriptor: d})
		}
		return modules.Build(descs, set.Resolver()), nil
	}).WithEqual((*modules.TreeDescriptor).Equal)

	db.fileSet.Set(unit{}, newFileSet(map[FileID]struct{}{}, nil))
	return db
}

func (db *database) currentFileSet(f *incr.Frame) (*FileSet, error) {
	set, ok, err := db.fileSet.Get(f, unit{})
	if err != nil {
		return nil, err
	}
	if !ok {
		return newFileSet(map[FileID]struct{}{}, nil), nil
	}
	return set, nil
}

// member fails with a MembershipFault panic when id is not in the snapshot
// f is pinned to.
func (db *database) member(f *incr.Frame, id FileID) error {
	set, err := db.currentFileSet(f)
	if err != nil {
		return err
	}
	if !set.Contains(id) {
		panic(&MembershipFault{File: id, Root: "writable"})
	}
	return nil
}
