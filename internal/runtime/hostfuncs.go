package runtime

import (
	"context"
	"log/slog"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/grove/internal/source"
	"github.com/jward/grove/internal/symbols"
	"github.com/jward/grove/internal/syntax"
)

func nodeArg(fn string, arg object.Object) (*sitter.Node, *object.Error) {
	proxy, ok := arg.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected proxy (Node), got %s", fn, arg.Type())
	}
	node, ok := proxy.Interface().(*sitter.Node)
	if !ok {
		return nil, object.Errorf("%s: expected *sitter.Node, got %T", fn, proxy.Interface())
	}
	return node, nil
}

// makeNodeTextFn creates "node_text" for nodes of tree.
//
// node_text(node) → string
//
// Risor's proxy system cannot convert strings to []byte for
// node.Content([]byte), so the tree's source is bound Go-side.
func makeNodeTextFn(tree *syntax.Tree) *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, errObj := nodeArg("node_text", args[0])
		if errObj != nil {
			return errObj
		}
		return object.NewString(tree.NodeText(node))
	})
}

// makeQueryFn creates "query" for nodes of tree.
//
// query(pattern, node) → []map[string]Node
//
// Each map has capture names as keys and proxied Nodes as values.
func makeQueryFn(tree *syntax.Tree) *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("query", 2, len(args))
		}
		pattern, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("query: pattern must be a string, got %s", args[0].Type())
		}
		node, errObj := nodeArg("query", args[1])
		if errObj != nil {
			return errObj
		}

		q, err := sitter.NewQuery([]byte(pattern.Value()), tree.Grammar())
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, node)

		results := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, tree.Source())

			captures := make(map[string]object.Object, len(match.Captures))
			for _, c := range match.Captures {
				name := q.CaptureNameForId(c.Index)
				p, err := object.NewProxy(c.Node)
				if err != nil {
					return object.Errorf("query: proxy error for capture %q: %v", name, err)
				}
				captures[name] = p
			}
			results = append(results, object.NewMap(captures))
		}
		return object.NewList(results)
	})
}

// makeNodeChildFn creates "node_child", a ChildByFieldName wrapper that
// returns Risor nil instead of a proxied Go nil pointer.
//
// node_child(node, field) → Node or nil
func makeNodeChildFn() *object.Builtin {
	return object.NewBuiltin("node_child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("node_child", 2, len(args))
		}
		node, errObj := nodeArg("node_child", args[0])
		if errObj != nil {
			return errObj
		}
		field, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("node_child: field must be a string, got %s", args[1].Type())
		}

		child := node.ChildByFieldName(field.Value())
		if child == nil {
			return object.Nil
		}
		p, err := object.NewProxy(child)
		if err != nil {
			return object.Errorf("node_child: proxy error: %v", err)
		}
		return p
	})
}

// makeEmitFn creates "emit", which records one symbol of file.
//
// emit(kind, name_node)            item span is name_node's parent
// emit(kind, name_node, item_node) item span is item_node
func makeEmitFn(file source.FileID, tree *syntax.Tree, out *[]symbols.Symbol) *object.Builtin {
	return object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 && len(args) != 3 {
			return object.Errorf("emit: expected 2 or 3 arguments, got %d", len(args))
		}
		kind, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("emit: kind must be a string, got %s", args[0].Type())
		}
		name, errObj := nodeArg("emit", args[1])
		if errObj != nil {
			return errObj
		}
		item := name.Parent()
		if len(args) == 3 {
			if item, errObj = nodeArg("emit", args[2]); errObj != nil {
				return errObj
			}
		}
		if item == nil {
			item = name
		}

		*out = append(*out, symbols.Symbol{
			File:      file,
			Name:      tree.NodeText(name),
			Kind:      kind.Value(),
			StartByte: int(item.StartByte()),
			EndByte:   int(item.EndByte()),
			NameStart: int(name.StartByte()),
		})
		return object.Nil
	})
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, slog.String("source", "script"))
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, slog.String("source", "script"))
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, slog.String("source", "script"))
}
