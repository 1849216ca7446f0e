package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineIndex_Empty(t *testing.T) {
	t.Parallel()
	l := NewLineIndex("")
	assert.Equal(t, 1, l.LineCount())
	assert.Equal(t, LineCol{0, 0}, l.LineCol(0))
	assert.Equal(t, LineCol{0, 0}, l.LineCol(10), "offsets past the end clamp")
}

func TestLineIndex_LineCol(t *testing.T) {
	t.Parallel()
	l := NewLineIndex("mod a;\nmod b;\n\nfn x() {}")
	require.Equal(t, 4, l.LineCount())

	assert.Equal(t, LineCol{0, 0}, l.LineCol(0))
	assert.Equal(t, LineCol{0, 6}, l.LineCol(6), "newline belongs to its line")
	assert.Equal(t, LineCol{1, 0}, l.LineCol(7))
	assert.Equal(t, LineCol{2, 0}, l.LineCol(14))
	assert.Equal(t, LineCol{3, 3}, l.LineCol(18))
}

func TestLineIndex_OffsetRoundTrip(t *testing.T) {
	t.Parallel()
	src := "fn foo() {}\n  fn bar() {}\n"
	l := NewLineIndex(src)
	for off := 0; off <= len(src); off++ {
		pos := l.LineCol(off)
		got, ok := l.Offset(pos)
		require.True(t, ok, "offset %d -> %v", off, pos)
		assert.Equal(t, off, got)
	}
}

func TestLineIndex_OffsetOutOfRange(t *testing.T) {
	t.Parallel()
	l := NewLineIndex("ab\ncd")

	_, ok := l.Offset(LineCol{Line: 2})
	assert.False(t, ok)
	_, ok = l.Offset(LineCol{Line: 0, Col: 3})
	assert.False(t, ok, "column past the newline")
	_, ok = l.Offset(LineCol{Line: -1})
	assert.False(t, ok)

	start, ok := l.LineStart(1)
	require.True(t, ok)
	assert.Equal(t, 3, start)
}

func TestLineCol_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "3:5", LineCol{Line: 2, Col: 4}.String())
}
