// Package text maps byte offsets in source text to line/column positions.
package text

import (
	"fmt"
	"sort"
	"strings"
)

// LineCol is a zero-based line and byte column.
type LineCol struct {
	Line int
	Col  int
}

func (lc LineCol) String() string {
	return fmt.Sprintf("%d:%d", lc.Line+1, lc.Col+1)
}

// LineIndex is an immutable table of line start offsets. It is a pure
// function of the text it was built from and safe for concurrent use.
type LineIndex struct {
	starts []int // starts[i] is the byte offset of line i
	size   int
}

// NewLineIndex scans text once and records the start of every line.
func NewLineIndex(text string) *LineIndex {
	starts := make([]int, 1, strings.Count(text, "\n")+1)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts, size: len(text)}
}

// LineCount returns the number of lines, counting a trailing empty line.
func (l *LineIndex) LineCount() int {
	return len(l.starts)
}

// Len returns the length in bytes of the indexed text.
func (l *LineIndex) Len() int {
	return l.size
}

// LineCol converts a byte offset to a position. Offsets past the end of the
// text are clamped to the end.
func (l *LineIndex) LineCol(offset int) LineCol {
	if offset < 0 {
		offset = 0
	}
	if offset > l.size {
		offset = l.size
	}
	line := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset }) - 1
	return LineCol{Line: line, Col: offset - l.starts[line]}
}

// Offset converts a position back to a byte offset. It returns false when
// the line does not exist or the column runs past the end of that line.
func (l *LineIndex) Offset(pos LineCol) (int, bool) {
	if pos.Line < 0 || pos.Line >= len(l.starts) || pos.Col < 0 {
		return 0, false
	}
	end := l.size
	if pos.Line+1 < len(l.starts) {
		end = l.starts[pos.Line+1] - 1 // exclude the newline
	}
	off := l.starts[pos.Line] + pos.Col
	if off > end {
		return 0, false
	}
	return off, true
}

// LineStart returns the byte offset at which line begins.
func (l *LineIndex) LineStart(line int) (int, bool) {
	if line < 0 || line >= len(l.starts) {
		return 0, false
	}
	return l.starts[line], true
}
