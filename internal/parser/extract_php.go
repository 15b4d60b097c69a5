package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/agentic-research/codegraph/api"
)

// extractPHP walks a PHP program. `use` declarations and include/require
// expressions map to imports; classes, interfaces, traits, enums, and
// functions become symbols; exports follow the underscore convention.
func extractPHP(root *sitter.Node, src []byte, res *api.ParseResult) {
	phpScope(root, src, res, "")
	addUnderscoreExports(res)
}

func phpScope(scope *sitter.Node, src []byte, res *api.ParseResult, nsPrefix string) {
	eachNamedChild(scope, func(n *sitter.Node) {
		switch n.Type() {
		case "namespace_definition":
			name := content(n.ChildByFieldName("name"), src)
			if name != "" {
				res.Symbols = append(res.Symbols, decl(api.KindNamespace, name, n, src))
			}
			if body := n.ChildByFieldName("body"); body != nil {
				phpScope(body, src, res, name)
			}
		case "namespace_use_declaration":
			eachNamedChild(n, func(clause *sitter.Node) {
				if clause.Type() != "namespace_use_clause" {
					return
				}
				source := ""
				alias := ""
				eachNamedChild(clause, func(part *sitter.Node) {
					switch part.Type() {
					case "qualified_name", "name":
						if source == "" {
							source = content(part, src)
						} else {
							alias = content(part, src)
						}
					}
				})
				if source == "" {
					return
				}
				name := alias
				if name == "" {
					name = lastBackslashed(source)
				}
				res.Imports = append(res.Imports, api.Import{
					Source: source, Names: []string{name}, IsDefault: true,
				})
			})
		case "expression_statement":
			phpIncludes(n, src, res)
		case "function_definition":
			if name := content(n.ChildByFieldName("name"), src); name != "" {
				res.Symbols = append(res.Symbols, decl(api.KindFunction, name, n, src))
			}
		case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration":
			phpClassLike(n, src, res)
		case "const_declaration":
			eachNamedChild(n, func(el *sitter.Node) {
				if el.Type() != "const_element" {
					return
				}
				if id := el.NamedChild(0); id != nil {
					res.Symbols = append(res.Symbols, decl(api.KindVariable, content(id, src), n, src))
				}
			})
		}
	})
}

// phpIncludes finds include/require expressions nested in a statement.
func phpIncludes(n *sitter.Node, src []byte, res *api.ParseResult) {
	switch n.Type() {
	case "include_expression", "include_once_expression", "require_expression", "require_once_expression":
		source := ""
		eachNamedChild(n, func(arg *sitter.Node) {
			if source == "" {
				source = strings.Trim(content(arg, src), `"'()`)
			}
		})
		if source != "" {
			res.Imports = append(res.Imports, api.Import{Source: source, IsDefault: true, Names: []string{}})
		}
		return
	}
	eachNamedChild(n, func(c *sitter.Node) { phpIncludes(c, src, res) })
}

func phpClassLike(n *sitter.Node, src []byte, res *api.ParseResult) {
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
		switch c.Type() {
		case "base_clause":
			eachNamedChild(c, func(base *sitter.Node) {
				if sym.Extends == "" {
					sym.Extends = content(base, src)
				} else {
					sym.Implements = append(sym.Implements, content(base, src))
				}
			})
		case "class_interface_clause":
			eachNamedChild(c, func(iface *sitter.Node) {
				sym.Implements = append(sym.Implements, content(iface, src))
			})
		}
	})
	res.Symbols = append(res.Symbols, sym)

	if body := n.ChildByFieldName("body"); body != nil {
		eachNamedChild(body, func(m *sitter.Node) {
			switch m.Type() {
			case "method_declaration":
				if mn := content(m.ChildByFieldName("name"), src); mn != "" {
					res.Symbols = append(res.Symbols, decl(api.KindMethod, name+"."+mn, m, src))
				}
			case "property_declaration":
				eachNamedChild(m, func(pe *sitter.Node) {
					if pe.Type() != "property_element" {
						return
					}
					pn := strings.TrimPrefix(content(pe, src), "$")
					if i := strings.IndexByte(pn, '='); i >= 0 {
						pn = strings.TrimSpace(pn[:i])
					}
					if pn != "" {
						res.Symbols = append(res.Symbols, decl(api.KindProperty, name+"."+pn, m, src))
					}
				})
			}
		})
	}
}

func lastBackslashed(s string) string {
	if i := strings.LastIndexByte(s, '\\'); i >= 0 {
		return s[i+1:]
	}
	return s
}
