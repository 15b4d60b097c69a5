package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/agentic-research/codegraph/api"
)

// extractRust walks a Rust source file. `use` declarations map to imports
// (`use x::*` → namespace, `use x as y` → names ["y"]); `pub` items are the
// exports; impl blocks emit methods named Type.method.
func extractRust(root *sitter.Node, src []byte, res *api.ParseResult) {
	eachNamedChild(root, func(n *sitter.Node) {
		rustItem(n, src, res)
	})
}

func rustItem(n *sitter.Node, src []byte, res *api.ParseResult) {
	pub := hasChildOfType(n, "visibility_modifier")
	emit := func(kind, name string, at *sitter.Node) {
		if name == "" {
			return
		}
		res.Symbols = append(res.Symbols, decl(kind, name, at, src))
		if pub {
			res.Exports = append(res.Exports, api.Export{Name: name})
		}
	}

	switch n.Type() {
	case "use_declaration":
		if arg := n.ChildByFieldName("argument"); arg != nil {
			res.Imports = append(res.Imports, rustUse(arg, src)...)
		}
	case "function_item":
		emit(api.KindFunction, content(n.ChildByFieldName("name"), src), n)
	case "struct_item":
		emit(api.KindClass, content(n.ChildByFieldName("name"), src), n)
	case "enum_item":
		emit(api.KindEnum, content(n.ChildByFieldName("name"), src), n)
	case "trait_item":
		emit(api.KindInterface, content(n.ChildByFieldName("name"), src), n)
	case "type_item":
		emit(api.KindType, content(n.ChildByFieldName("name"), src), n)
	case "const_item", "static_item":
		emit(api.KindVariable, content(n.ChildByFieldName("name"), src), n)
	case "mod_item":
		emit(api.KindNamespace, content(n.ChildByFieldName("name"), src), n)
		if body := n.ChildByFieldName("body"); body != nil {
			eachNamedChild(body, func(inner *sitter.Node) { rustItem(inner, src, res) })
		}
	case "impl_item":
		typeName := rustTypeName(n.ChildByFieldName("type"), src)
		if typeName == "" {
			return
		}
		if body := n.ChildByFieldName("body"); body != nil {
			eachNamedChild(body, func(member *sitter.Node) {
				if member.Type() != "function_item" {
					return
				}
				if mn := content(member.ChildByFieldName("name"), src); mn != "" {
					res.Symbols = append(res.Symbols, decl(api.KindMethod, typeName+"."+mn, member, src))
				}
			})
		}
	}
}

// rustUse flattens a use tree into imports. Grouped lists (`use a::{b, c}`)
// become one import per leaf with the full path as source.
func rustUse(arg *sitter.Node, src []byte) []api.Import {
	switch arg.Type() {
	case "use_as_clause":
		path := content(arg.ChildByFieldName("path"), src)
		alias := content(arg.ChildByFieldName("alias"), src)
		return []api.Import{{Source: path, Names: []string{alias}, IsDefault: true}}
	case "use_wildcard":
		path := content(arg, src)
		path = strings.TrimSuffix(path, "::*")
		return []api.Import{{Source: path, IsNamespace: true, Names: []string{}}}
	case "scoped_use_list":
		prefix := content(arg.ChildByFieldName("path"), src)
		var out []api.Import
		if list := arg.ChildByFieldName("list"); list != nil {
			eachNamedChild(list, func(item *sitter.Node) {
				for _, imp := range rustUse(item, src) {
					if imp.Source == "" {
						continue
					}
					imp.Source = prefix + "::" + imp.Source
					out = append(out, imp)
				}
			})
		}
		return out
	case "use_list":
		var out []api.Import
		eachNamedChild(arg, func(item *sitter.Node) {
			out = append(out, rustUse(item, src)...)
		})
		return out
	default:
		// identifier or scoped_identifier
		path := content(arg, src)
		if path == "" {
			return nil
		}
		name := path
		if i := strings.LastIndex(path, "::"); i >= 0 {
			name = path[i+2:]
		}
		return []api.Import{{Source: path, Names: []string{name}, IsDefault: true}}
	}
}

func rustTypeName(t *sitter.Node, src []byte) string {
	for t != nil {
		switch t.Type() {
		case "generic_type":
			t = t.ChildByFieldName("type")
		case "reference_type":
			t = t.NamedChild(0)
		default:
			return content(t, src)
		}
	}
	return ""
}
