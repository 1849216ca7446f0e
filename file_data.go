package grove

import (
	"sync/atomic"

	"github.com/jward/grove/internal/syntax"
	"github.com/jward/grove/internal/telemetry"
	"github.com/jward/grove/internal/text"
)

// fileData is the memo cell of one file in a read-only root. Both slots are
// filled at most once; concurrent first readers may compute in parallel but
// only the first published value is ever returned.
type fileData struct {
	text   string
	lines  atomic.Pointer[text.LineIndex]
	syntax atomic.Pointer[syntax.Tree]
}

func newFileData(src string) *fileData {
	return &fileData{text: src}
}

func (d *fileData) lineIndex() *text.LineIndex {
	if l := d.lines.Load(); l != nil {
		return l
	}
	l := text.NewLineIndex(d.text)
	if d.lines.CompareAndSwap(nil, l) {
		return l
	}
	return d.lines.Load()
}

func (d *fileData) syntaxTree(id FileID, p syntax.Parser, faults telemetry.FaultReporter) *syntax.Tree {
	if t := d.syntax.Load(); t != nil {
		return t
	}
	t := parse(p, faults, id, d.text)
	if d.syntax.CompareAndSwap(nil, t) {
		return t
	}
	return d.syntax.Load()
}

// parse runs p on text. A parser panic is reported together with the text
// that caused it and then re-raised unchanged.
func parse(p syntax.Parser, faults telemetry.FaultReporter, id FileID, src string) *syntax.Tree {
	defer func() {
		if r := recover(); r != nil {
			faults.ParserFault(id, src, r)
			panic(r)
		}
	}()
	return p.Parse(src)
}
