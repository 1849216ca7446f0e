package grove

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/grove/internal/modules"
	"github.com/jward/grove/internal/symbols"
	"github.com/jward/grove/internal/syntax"
)

var rustParser = syntax.NewRustParser()

func scenarioFiles() []File {
	return []File{
		{ID: 1, Text: "mod a; mod b;"},
		{ID: 2, Text: "fn foo(){}"},
		{ID: 3, Text: "fn bar(){}"},
	}
}

func scenarioResolver() modules.NameResolver {
	return modules.NameResolver{"a": 2, "b": 3}
}

func scenarioChanges() []Change {
	var out []Change
	for _, f := range scenarioFiles() {
		out = append(out, SetText(f.ID, f.Text))
	}
	return out
}

// requireMembershipFault runs fn and asserts it panics with a
// *MembershipFault naming id.
func requireMembershipFault(t *testing.T, id FileID, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		fault, ok := r.(*MembershipFault)
		require.True(t, ok, "expected *MembershipFault, got %#v", r)
		assert.Equal(t, id, fault.File)
	}()
	fn()
}

// =============================================================================
// Test doubles
// =============================================================================

type recordingFaults struct {
	mu     sync.Mutex
	texts  []string
	causes []any
}

func (r *recordingFaults) ParserFault(_ FileID, text string, cause any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	r.causes = append(r.causes, cause)
}

func (r *recordingFaults) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

type countingParser struct {
	calls atomic.Int32
}

func (p *countingParser) Parse(text string) *syntax.Tree {
	p.calls.Add(1)
	return rustParser.Parse(text)
}

// blockingParser parks the first parse of a text containing trigger until
// release is closed.
type blockingParser struct {
	trigger string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingParser(trigger string) *blockingParser {
	return &blockingParser{
		trigger: trigger,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (p *blockingParser) Parse(text string) *syntax.Tree {
	if strings.Contains(text, p.trigger) {
		p.once.Do(func() { close(p.started) })
		<-p.release
	}
	return rustParser.Parse(text)
}

// panickingParser panics on texts containing trigger while armed.
type panickingParser struct {
	trigger string
	armed   atomic.Bool
}

func (p *panickingParser) Parse(text string) *syntax.Tree {
	if p.armed.Load() && strings.Contains(text, p.trigger) {
		panic("parser exploded")
	}
	return rustParser.Parse(text)
}

// wideFile returns one file with n module declarations and n functions, big
// enough that concurrent walks of its tree overlap.
func wideFile(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "mod m%d;\nfn f%d(x: u32) -> u32 { x + %d }\n", i, i, i)
	}
	return b.String()
}

// consumeTree derives a module descriptor and a symbol index from a shared
// tree, the way both roots consume it.
func consumeTree(id FileID, tree *syntax.Tree) (*modules.Descriptor, *symbols.Index) {
	return modules.Extract(tree), symbols.ForFile(symbols.TreeExtractor{}, id, tree)
}
