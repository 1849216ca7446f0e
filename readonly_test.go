package grove

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/grove/internal/modules"
	"github.com/jward/grove/internal/symbols"
	"github.com/jward/grove/internal/syntax"
)

func newScenarioReadonly(t *testing.T, opts ...Option) *ReadonlySourceRoot {
	t.Helper()
	return NewReadonlySourceRoot(context.Background(), scenarioFiles(), scenarioResolver(), opts...)
}

// =============================================================================
// Construction
// =============================================================================

func TestReadonly_Scenario(t *testing.T) {
	t.Parallel()
	root := newScenarioReadonly(t)

	tree, err := root.ModuleTree()
	require.NoError(t, err)
	assert.Equal(t, []modules.Link{
		{Parent: 1, Name: "a", Child: 2, Resolved: true},
		{Parent: 1, Name: "b", Child: 3, Resolved: true},
	}, tree.Children(1))
	assert.Equal(t, FileID(1), tree.Parents(2)[0].Parent)
	assert.Equal(t, FileID(1), tree.Parents(3)[0].Parent)

	acc, err := root.Symbols(nil)
	require.NoError(t, err)
	require.Len(t, acc, 1)

	foo := acc[0].Lookup("foo")
	require.Len(t, foo, 1)
	assert.Equal(t, FileID(2), foo[0].File)
	bar := acc[0].Lookup("bar")
	require.Len(t, bar, 1)
	assert.Equal(t, FileID(3), bar[0].File)
}

func TestReadonly_SymbolsAppends(t *testing.T) {
	t.Parallel()
	root := newScenarioReadonly(t)
	prev := symbols.Merge()

	acc, err := root.Symbols([]*symbols.Index{prev})
	require.NoError(t, err)
	require.Len(t, acc, 2)
	assert.Same(t, prev, acc[0])

	again, err := root.Symbols(nil)
	require.NoError(t, err)
	assert.Same(t, acc[1], again[0], "the index handle is shared, not copied")
}

func TestReadonly_Membership(t *testing.T) {
	t.Parallel()
	root := newScenarioReadonly(t)

	assert.True(t, root.Contains(1))
	assert.False(t, root.Contains(4))
	assert.Equal(t, []FileID{1, 2, 3}, root.Files())
	assert.Equal(t, 3, root.Len())

	requireMembershipFault(t, 4, func() { root.Lines(4) })
	requireMembershipFault(t, 4, func() { root.Syntax(4) })
}

func TestReadonly_Empty(t *testing.T) {
	t.Parallel()
	root := NewReadonlySourceRoot(context.Background(), nil, nil)

	tree, err := root.ModuleTree()
	require.NoError(t, err)
	assert.Empty(t, tree.Files())

	acc, err := root.Symbols(nil)
	require.NoError(t, err)
	require.Len(t, acc, 1)
	assert.Equal(t, 0, acc[0].Len())
}

func TestReadonly_DuplicateFilePanics(t *testing.T) {
	t.Parallel()
	files := append(scenarioFiles(), File{ID: 2, Text: "fn again(){}"})
	assert.Panics(t, func() {
		NewReadonlySourceRoot(context.Background(), files, nil)
	})
}

func TestReadonly_NilResolverLeavesModulesUnresolved(t *testing.T) {
	t.Parallel()
	root := NewReadonlySourceRoot(context.Background(), scenarioFiles(), nil)
	tree, err := root.ModuleTree()
	require.NoError(t, err)
	assert.Len(t, tree.Unresolved(), 2)
	assert.Equal(t, []FileID{1, 2, 3}, tree.Roots())
}

// =============================================================================
// Parallel construction
// =============================================================================

// crateFiles returns a crate of n files where file 1 declares every other
// file as a submodule.
func crateFiles(n int) ([]File, modules.NameResolver) {
	resolver := modules.NameResolver{}
	var decls strings.Builder
	files := []File{{ID: 1}}
	for i := 2; i <= n; i++ {
		name := fmt.Sprintf("m%d", i)
		fmt.Fprintf(&decls, "mod %s;\n", name)
		resolver[name] = FileID(i)
		files = append(files, File{
			ID:   FileID(i),
			Text: fmt.Sprintf("pub struct S%d;\nfn f%d() {}\nfn shared() {}\n", i, i),
		})
	}
	files[0].Text = decls.String() + "fn main() {}\n"
	return files, resolver
}

func TestReadonly_ParallelMatchesSequential(t *testing.T) {
	t.Parallel()
	files, resolver := crateFiles(60)

	seq := NewReadonlySourceRoot(context.Background(), files, resolver, WithWorkers(1))

	shuffled := append([]File(nil), files...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	par := NewReadonlySourceRoot(context.Background(), shuffled, resolver, WithWorkers(8))

	seqTree, _ := seq.ModuleTree()
	parTree, _ := par.ModuleTree()
	assert.Equal(t, seqTree.Links(), parTree.Links())
	assert.True(t, seqTree.Equal(parTree))

	seqSyms, _ := seq.Symbols(nil)
	parSyms, _ := par.Symbols(nil)
	assert.Equal(t, seqSyms[0].Symbols(), parSyms[0].Symbols())
	assert.Len(t, parSyms[0].Lookup("shared"), 59)
}

func TestReadonly_ConstructionParserPanic(t *testing.T) {
	t.Parallel()
	p := &panickingParser{trigger: "boom"}
	p.armed.Store(true)
	faults := &recordingFaults{}
	files, resolver := crateFiles(20)
	files[5].Text = "fn boom() {}"

	assert.PanicsWithValue(t, "parser exploded", func() {
		NewReadonlySourceRoot(context.Background(), files, resolver,
			WithParser(p), WithFaultReporter(faults), WithWorkers(4))
	})
	assert.Equal(t, []string{"fn boom() {}"}, faults.recorded())
}

// =============================================================================
// Lazy per-file artifacts
// =============================================================================

func TestReadonly_LinesAndSyntaxAreMemoized(t *testing.T) {
	t.Parallel()
	p := &countingParser{}
	root := newScenarioReadonly(t, WithParser(p))
	afterBuild := p.calls.Load()
	assert.Equal(t, int32(3), afterBuild)

	assert.Same(t, root.Lines(2), root.Lines(2))
	assert.Equal(t, 1, root.Lines(2).LineCount())

	first := root.Syntax(2)
	assert.Same(t, first, root.Syntax(2))
	assert.Equal(t, "fn foo(){}", first.Text())
	assert.Equal(t, afterBuild+1, p.calls.Load(), "syntax is reparsed once after construction")
}

func TestReadonly_ConcurrentFirstSyntax(t *testing.T) {
	t.Parallel()
	root := newScenarioReadonly(t)

	const readers = 16
	trees := make([]*syntax.Tree, readers)
	var wg sync.WaitGroup
	for i := range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trees[i] = root.Syntax(1)
		}()
	}
	wg.Wait()

	for _, tree := range trees {
		assert.Same(t, trees[0], tree)
	}
}

func TestReadonly_LazySyntaxParserPanic(t *testing.T) {
	t.Parallel()
	p := &panickingParser{trigger: "foo"}
	faults := &recordingFaults{}
	root := newScenarioReadonly(t, WithParser(p), WithFaultReporter(faults))

	p.armed.Store(true)
	assert.PanicsWithValue(t, "parser exploded", func() { root.Syntax(2) })
	assert.Equal(t, []string{"fn foo(){}"}, faults.recorded())

	p.armed.Store(false)
	assert.Equal(t, "fn foo(){}", root.Syntax(2).Text(), "a failed parse publishes nothing")
}

func TestReadonly_ConcurrentReadersShareOneTree(t *testing.T) {
	t.Parallel()
	root := NewReadonlySourceRoot(context.Background(),
		[]File{{ID: 1, Text: wideFile(1000)}, {ID: 2, Text: "fn other() {}"}},
		modules.NameResolver{"m0": 2})
	tree := root.Syntax(1)
	wantDesc, wantIdx := consumeTree(1, tree)
	wantTree, _ := root.ModuleTree()

	const readers = 8
	var wg sync.WaitGroup
	for range readers {
		wg.Add(2)
		go func() {
			defer wg.Done()
			desc, idx := consumeTree(1, root.Syntax(1))
			assert.True(t, wantDesc.Equal(desc))
			assert.True(t, wantIdx.Equal(idx))
		}()
		go func() {
			defer wg.Done()
			mt, err := root.ModuleTree()
			assert.NoError(t, err)
			assert.Same(t, wantTree, mt)
			acc, err := root.Symbols(nil)
			assert.NoError(t, err)
			if assert.Len(t, acc, 1) {
				assert.Equal(t, 2001, acc[0].Len())
				assert.Len(t, acc[0].Lookup("f999"), 1)
			}
			assert.Equal(t, 2001, root.Lines(1).LineCount(), "trailing newline opens an empty line")
		}()
	}
	wg.Wait()
	assert.Same(t, tree, root.Syntax(1))
}
