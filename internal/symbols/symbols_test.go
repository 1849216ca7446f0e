package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/grove/internal/source"
	"github.com/jward/grove/internal/syntax"
)

func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	return syntax.NewRustParser().Parse(src)
}

func names(syms []Symbol) []string {
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = s.Name
	}
	return out
}

// =============================================================================
// TreeExtractor
// =============================================================================

func TestTreeExtractor_TopLevelItems(t *testing.T) {
	t.Parallel()
	src := `struct Point { x: i32 }
enum Color { Red }
trait Shape { fn area(&self) -> f64; }
const MAX: u32 = 1;
static NAME: &str = "x";
type Alias = u8;
fn foo() {}
mod inner { fn nested() {} }
macro_rules! m { () => {} }
`
	syms := TreeExtractor{}.Extract(7, parse(t, src))

	kinds := map[string]string{}
	for _, s := range syms {
		kinds[s.Name] = s.Kind
		assert.Equal(t, source.FileID(7), s.File)
	}
	assert.Equal(t, map[string]string{
		"Point":  "struct",
		"Color":  "enum",
		"Shape":  "trait",
		"area":   "function",
		"MAX":    "const",
		"NAME":   "static",
		"Alias":  "type",
		"foo":    "function",
		"inner":  "module",
		"nested": "function",
		"m":      "macro",
	}, kinds)
}

func TestTreeExtractor_ImplMethods(t *testing.T) {
	t.Parallel()
	src := "struct S;\nimpl S { fn new() -> S { S } fn get(&self) {} }\n"
	syms := TreeExtractor{}.Extract(1, parse(t, src))
	assert.ElementsMatch(t, []string{"S", "new", "get"}, names(syms))
}

func TestTreeExtractor_Offsets(t *testing.T) {
	t.Parallel()
	src := "fn foo() {}"
	syms := TreeExtractor{}.Extract(1, parse(t, src))
	require.Len(t, syms, 1)
	assert.Equal(t, 0, syms[0].StartByte)
	assert.Equal(t, len(src), syms[0].EndByte)
	assert.Equal(t, 3, syms[0].NameStart)
}

// =============================================================================
// Index
// =============================================================================

func TestForFiles_ScenarioContents(t *testing.T) {
	t.Parallel()
	idx := ForFiles(TreeExtractor{}, []FileTree{
		{File: 2, Tree: parse(t, "fn foo(){}")},
		{File: 3, Tree: parse(t, "fn bar(){}")},
	})
	require.Equal(t, 2, idx.Len())

	foo := idx.Lookup("foo")
	require.Len(t, foo, 1)
	assert.Equal(t, source.FileID(2), foo[0].File)

	bar := idx.Lookup("bar")
	require.Len(t, bar, 1)
	assert.Equal(t, source.FileID(3), bar[0].File)
}

func TestMerge_OrderIndependent(t *testing.T) {
	t.Parallel()
	a := []Symbol{{File: 1, Name: "x", Kind: "function"}, {File: 1, Name: "b", Kind: "struct"}}
	b := []Symbol{{File: 2, Name: "x", Kind: "function"}}
	c := []Symbol{{File: 3, Name: "a", Kind: "const"}}

	first := Merge(a, b, c)
	second := Merge(c, b, a)
	assert.True(t, first.Equal(second))
	assert.Equal(t, []string{"a", "b", "x", "x"}, names(first.Symbols()))
}

func TestIndex_LookupAndPrefix(t *testing.T) {
	t.Parallel()
	idx := Merge([]Symbol{
		{File: 1, Name: "parse"},
		{File: 1, Name: "parse_expr"},
		{File: 2, Name: "parse"},
		{File: 2, Name: "print"},
	})

	assert.Len(t, idx.Lookup("parse"), 2)
	assert.Empty(t, idx.Lookup("pars"))
	assert.Equal(t, []string{"parse", "parse", "parse_expr"}, names(idx.WithPrefix("pars")))
	assert.Len(t, idx.WithPrefix(""), 4)
	assert.Empty(t, idx.WithPrefix("z"))
}

func TestIndex_Equal(t *testing.T) {
	t.Parallel()
	x := Merge([]Symbol{{Name: "a"}})
	assert.True(t, x.Equal(Merge([]Symbol{{Name: "a"}})))
	assert.False(t, x.Equal(Merge([]Symbol{{Name: "b"}})))
	assert.False(t, x.Equal(nil))
	assert.True(t, (*Index)(nil).Equal(nil))
}
