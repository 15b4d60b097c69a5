package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/agentic-research/codegraph/api"
)

// extractCSharp walks a C# compilation unit. `using` directives map to
// imports; a base_list's first entry populates extends and the remainder
// implements. Public types, nested ones included, are the exports.
func extractCSharp(root *sitter.Node, src []byte, res *api.ParseResult) {
	csScope(root, src, res)
}

func csScope(scope *sitter.Node, src []byte, res *api.ParseResult) {
	eachNamedChild(scope, func(n *sitter.Node) {
		switch n.Type() {
		case "using_directive":
			source := ""
			eachNamedChild(n, func(c *sitter.Node) {
				switch c.Type() {
				case "qualified_name", "identifier":
					source = content(c, src)
				}
			})
			if source != "" {
				res.Imports = append(res.Imports, api.Import{
					Source: source, Names: []string{lastDotted(source)}, IsDefault: true,
				})
			}
		case "namespace_declaration", "file_scoped_namespace_declaration":
			if name := content(n.ChildByFieldName("name"), src); name != "" {
				res.Symbols = append(res.Symbols, decl(api.KindNamespace, name, n, src))
			}
			if body := n.ChildByFieldName("body"); body != nil {
				csScope(body, src, res)
			} else {
				// File-scoped namespaces keep members as siblings.
				csScope(n, src, res)
			}
		case "class_declaration", "interface_declaration", "struct_declaration",
			"record_declaration", "enum_declaration":
			csType(n, src, res)
		}
	})
}

func csIsPublic(n *sitter.Node, src []byte) bool {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c != nil && c.Type() == "modifier" && strings.TrimSpace(content(c, src)) == "public" {
			return true
		}
	}
	return false
}

func csType(n *sitter.Node, src []byte, res *api.ParseResult) {
	name := content(n.ChildByFieldName("name"), src)
	if name == "" {
		return
	}
	kind := api.KindClass
	switch n.Type() {
	case "interface_declaration":
		kind = api.KindInterface
	case "enum_declaration":
		kind = api.KindEnum
	}
	sym := decl(kind, name, n, src)

	eachNamedChild(n, func(c *sitter.Node) {
		if c.Type() != "base_list" {
			return
		}
		eachNamedChild(c, func(base *sitter.Node) {
			text := csTypeName(base, src)
			if text == "" {
				return
			}
			if sym.Extends == "" {
				sym.Extends = text
			} else {
				sym.Implements = append(sym.Implements, text)
			}
		})
	})
	res.Symbols = append(res.Symbols, sym)
	if csIsPublic(n, src) {
		res.Exports = append(res.Exports, api.Export{Name: name})
	}

	if body := n.ChildByFieldName("body"); body != nil {
		eachNamedChild(body, func(m *sitter.Node) {
			switch m.Type() {
			case "method_declaration", "constructor_declaration":
				if mn := content(m.ChildByFieldName("name"), src); mn != "" {
					res.Symbols = append(res.Symbols, decl(api.KindMethod, name+"."+mn, m, src))
				}
			case "property_declaration":
				if pn := content(m.ChildByFieldName("name"), src); pn != "" {
					res.Symbols = append(res.Symbols, decl(api.KindProperty, name+"."+pn, m, src))
				}
			case "field_declaration":
				eachNamedChild(m, func(vd *sitter.Node) {
					if vd.Type() != "variable_declaration" {
						return
					}
					eachNamedChild(vd, func(d *sitter.Node) {
						if d.Type() != "variable_declarator" {
							return
						}
						if id := d.NamedChild(0); id != nil {
							res.Symbols = append(res.Symbols, decl(api.KindProperty, name+"."+content(id, src), m, src))
						}
					})
				})
			case "class_declaration", "interface_declaration", "struct_declaration", "enum_declaration":
				csType(m, src, res)
			}
		})
	}
}

func csTypeName(t *sitter.Node, src []byte) string {
	switch t.Type() {
	case "identifier", "qualified_name", "generic_name":
		text := content(t, src)
		if i := strings.IndexByte(text, '<'); i >= 0 {
			text = text[:i]
		}
		return text
	}
	return ""
}
