// Package syntax wraps tree-sitter parsing behind the Parser interface the
// source roots consume.
package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser turns text into a syntax tree. Implementations must be safe for
// concurrent use. A Parser may panic on pathological input; callers isolate
// that at the call site rather than treating it as an error value.
type Parser interface {
	Parse(text string) *Tree
}

// Tree is an immutable parse result. A *Tree is the shared handle: it is
// passed around by pointer and read by any number of goroutines at once.
//
// tree-sitter trees memoize node wrappers as they are visited, so the
// underlying tree is never navigated directly. Each Root call walks a
// private shallow copy instead.
type Tree struct {
	tree     *sitter.Tree
	src      []byte
	language string
}

// NewTree wraps an already-parsed tree-sitter tree. src must be the exact
// bytes the tree was parsed from.
func NewTree(tree *sitter.Tree, src []byte, language string) *Tree {
	return &Tree{tree: tree, src: src, language: language}
}

// Root returns the root node of a private view of the tree. Nodes reached
// from one Root call belong to a single reader and must not be shared with
// other goroutines; each reader calls Root itself.
func (t *Tree) Root() *sitter.Node {
	return t.tree.Copy().RootNode()
}

// Text returns the source text the tree was parsed from.
func (t *Tree) Text() string {
	return string(t.src)
}

// Source returns the source bytes the tree was parsed from. Callers must
// not modify the returned slice.
func (t *Tree) Source() []byte {
	return t.src
}

// Language returns the canonical language name of the tree.
func (t *Tree) Language() string {
	return t.language
}

// Grammar returns the tree-sitter language used to parse the tree.
func (t *Tree) Grammar() *sitter.Language {
	lang, _ := GrammarForLanguage(t.language)
	return lang
}

// NodeText returns the source text spanned by n.
func (t *Tree) NodeText(n *sitter.Node) string {
	return n.Content(t.src)
}

// HasErrors reports whether the parser had to recover from syntax errors.
func (t *Tree) HasErrors() bool {
	return t.Root().HasError()
}

// TreeSitterParser parses one language with tree-sitter. A fresh
// sitter.Parser is created per call, so a single value is goroutine-safe.
type TreeSitterParser struct {
	language string
	grammar  *sitter.Language
}

// NewParser returns a Parser for the named language.
func NewParser(language string) (*TreeSitterParser, error) {
	grammar, ok := GrammarForLanguage(language)
	if !ok {
		return nil, fmt.Errorf("syntax: unsupported language %q", language)
	}
	return &TreeSitterParser{language: language, grammar: grammar}, nil
}

// NewRustParser returns the Parser used by default for source roots.
func NewRustParser() *TreeSitterParser {
	p, err := NewParser("rust")
	if err != nil {
		panic(err)
	}
	return p
}

// Parse parses text. tree-sitter recovers from syntax errors on its own, so
// the only failure left is a broken parser setup, which panics.
func (p *TreeSitterParser) Parse(text string) *Tree {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.grammar)

	src := []byte(text)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		panic(fmt.Sprintf("syntax: tree-sitter parse failed: %v", err))
	}
	return NewTree(tree, src, p.language)
}
