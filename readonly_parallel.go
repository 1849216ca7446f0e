package grove

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/jward/grove/internal/modules"
	"github.com/jward/grove/internal/symbols"
	"github.com/jward/grove/internal/syntax"
	"github.com/jward/grove/internal/telemetry"
)

// builder holds the intermediate results of read-only root construction.
// Every slice is indexed by position in files, so workers never share a slot.
//
//	Phase A (parallel): parse each file and extract its module descriptor.
//	Merge 1 (serial):   link descriptors into the module tree.
//	Phase B (parallel): extract symbols from each Phase A tree.
//	Merge 2 (serial):   merge the per-file symbols into one index.
type builder struct {
	files []File
	settings

	trees []*syntax.Tree
	descs []modules.FileDescriptor
}

var errPoolAborted = errors.New("grove: worker panicked")

// workerPanic carries a panic out of a pool worker so it can be re-raised on
// the constructing goroutine.
type workerPanic struct {
	value any
}

func (b *builder) parseAll(ctx context.Context) {
	_, span := telemetry.StartPhase(ctx, "readonly_root.parse")
	defer span.End()

	b.trees = make([]*syntax.Tree, len(b.files))
	b.descs = make([]modules.FileDescriptor, len(b.files))
	b.forEach(func(i int) {
		f := b.files[i]
		tree := parse(b.parser, b.faults, f.ID, f.Text)
		b.trees[i] = tree
		b.descs[i] = modules.FileDescriptor{File: f.ID, Descriptor: modules.Extract(tree)}
	})
}

func (b *builder) linkModules(ctx context.Context, resolver modules.FileResolver) *modules.TreeDescriptor {
	_, span := telemetry.StartPhase(ctx, "readonly_root.modules")
	defer span.End()
	return modules.Build(b.descs, resolver)
}

func (b *builder) indexSymbols(ctx context.Context) *symbols.Index {
	_, span := telemetry.StartPhase(ctx, "readonly_root.symbols")
	defer span.End()

	parts := make([][]symbols.Symbol, len(b.files))
	b.forEach(func(i int) {
		parts[i] = b.extractor.Extract(b.files[i].ID, b.trees[i])
	})
	b.trees = nil
	return symbols.Merge(parts...)
}

// forEach runs fn for every file index on a pool of at most b.workers
// goroutines. After the first panic no new work is started; once the pool
// has drained, the panic of the lowest index is re-raised.
func (b *builder) forEach(fn func(i int)) {
	if len(b.files) == 0 {
		return
	}
	panics := make([]*workerPanic, len(b.files))

	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(min(b.workers, len(b.files)))
	for i := range b.files {
		g.Go(func() (err error) {
			if gctx.Err() != nil {
				return nil
			}
			defer func() {
				if r := recover(); r != nil {
					panics[i] = &workerPanic{value: r}
					err = errPoolAborted
				}
			}()
			fn(i)
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range panics {
		if p != nil {
			panic(p.value)
		}
	}
}
