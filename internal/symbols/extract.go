package symbols

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/grove/internal/source"
	"github.com/jward/grove/internal/syntax"
)

// itemKinds maps Rust declaration node types to symbol kinds. Every entry
// carries its identifier in the "name" field.
var itemKinds = map[string]string{
	"function_item":           "function",
	"function_signature_item": "function",
	"struct_item":             "struct",
	"enum_item":               "enum",
	"union_item":              "union",
	"trait_item":              "trait",
	"type_item":               "type",
	"const_item":              "const",
	"static_item":             "static",
	"mod_item":                "module",
	"macro_definition":        "macro",
}

// TreeExtractor walks the tree natively and records every named item,
// including items nested in impl blocks, traits and inline modules.
type TreeExtractor struct{}

// Extract implements Extractor.
func (TreeExtractor) Extract(file source.FileID, tree *syntax.Tree) []Symbol {
	var out []Symbol
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if kind, ok := itemKinds[n.Type()]; ok {
			if name := n.ChildByFieldName("name"); name != nil {
				out = append(out, Symbol{
					File:      file,
					Name:      tree.NodeText(name),
					Kind:      kind,
					StartByte: int(n.StartByte()),
					EndByte:   int(n.EndByte()),
					NameStart: int(name.StartByte()),
				})
			}
		}
		count := int(n.NamedChildCount())
		for i := 0; i < count; i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.Root())
	return out
}
