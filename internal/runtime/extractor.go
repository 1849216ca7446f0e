package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/risor-io/risor/object"

	"github.com/jward/grove/internal/source"
	"github.com/jward/grove/internal/symbols"
	"github.com/jward/grove/internal/syntax"
)

// ScriptExtractor is a symbols.Extractor driven by a Risor script. The
// script runs once per file with these globals:
//
//	file_id                 the FileID being indexed
//	root                    the root Node of the file's tree
//	node_text(node)         source text of a node
//	node_child(node, field) child by field name, or nil
//	query(pattern, node)    tree-sitter query matches
//	emit(kind, name[, item]) records a symbol
//	log.info/warn/error     structured logging
type ScriptExtractor struct {
	rt     *Runtime
	source string
	label  string
}

var _ symbols.Extractor = (*ScriptExtractor)(nil)

// NewScriptExtractor loads the script at path and checks it against an empty
// file so syntax errors surface before indexing starts.
func NewScriptExtractor(rt *Runtime, path string) (*ScriptExtractor, error) {
	src, err := rt.LoadScript(path)
	if err != nil {
		return nil, err
	}
	return NewSourceExtractor(rt, src, path)
}

// NewSourceExtractor is NewScriptExtractor for inline source.
func NewSourceExtractor(rt *Runtime, src, label string) (*ScriptExtractor, error) {
	x := &ScriptExtractor{rt: rt, source: src, label: label}
	if _, err := x.run(context.Background(), 0, syntax.NewRustParser().Parse("")); err != nil {
		return nil, err
	}
	return x, nil
}

// Extract implements symbols.Extractor. A script failure is logged and the
// symbols emitted before it are kept.
func (x *ScriptExtractor) Extract(file source.FileID, tree *syntax.Tree) []symbols.Symbol {
	out, err := x.run(context.Background(), file, tree)
	if err != nil {
		x.rt.logger.Error("symbol script failed",
			slog.String("script", x.label),
			slog.Any("file_id", uint32(file)),
			slog.String("error", err.Error()),
		)
	}
	return out
}

func (x *ScriptExtractor) run(ctx context.Context, file source.FileID, tree *syntax.Tree) ([]symbols.Symbol, error) {
	root, err := object.NewProxy(tree.Root())
	if err != nil {
		return nil, fmt.Errorf("runtime: proxy root: %w", err)
	}
	var out []symbols.Symbol
	err = x.rt.RunSource(ctx, x.source, x.label, map[string]any{
		"file_id":   int64(file),
		"root":      root,
		"node_text": makeNodeTextFn(tree),
		"query":     makeQueryFn(tree),
		"emit":      makeEmitFn(file, tree, &out),
	})
	return out, err
}
