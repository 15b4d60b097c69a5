package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/agentic-research/codegraph/api"
)

// extractCPP walks a C++ translation unit: everything the C extractor
// handles, plus classes with base clauses, namespaces, and out-of-line
// method definitions (Class::method).
func extractCPP(root *sitter.Node, src []byte, res *api.ParseResult) {
	cppScope(root, src, res, "")
	addUnderscoreExports(res)
}

func cppScope(scope *sitter.Node, src []byte, res *api.ParseResult, nsPrefix string) {
	eachNamedChild(scope, func(n *sitter.Node) {
		switch n.Type() {
		case "namespace_definition":
			name := content(n.ChildByFieldName("name"), src)
			if name != "" {
				res.Symbols = append(res.Symbols, decl(api.KindNamespace, name, n, src))
			}
			if body := n.ChildByFieldName("body"); body != nil {
				cppScope(body, src, res, name)
			}
		case "class_specifier", "struct_specifier":
			cppClass(n, src, res)
		case "function_definition":
			cppFunction(n, src, res)
		case "template_declaration":
			eachNamedChild(n, func(inner *sitter.Node) {
				switch inner.Type() {
				case "class_specifier", "struct_specifier":
					cppClass(inner, src, res)
				case "function_definition":
					cppFunction(inner, src, res)
				}
			})
		default:
			cTopLevel(n, src, res)
		}
	})
}

// cppFunction distinguishes free functions from out-of-line methods by a
// qualified declarator (Class::method).
func cppFunction(n *sitter.Node, src []byte, res *api.ParseResult) {
	d := n.ChildByFieldName("declarator")
	for d != nil && d.Type() != "function_declarator" {
		d = d.ChildByFieldName("declarator")
	}
	if d == nil {
		return
	}
	inner := d.ChildByFieldName("declarator")
	if inner == nil {
		return
	}
	if inner.Type() == "qualified_identifier" {
		scope := content(inner.ChildByFieldName("scope"), src)
		name := content(inner.ChildByFieldName("name"), src)
		if scope != "" && name != "" {
			res.Symbols = append(res.Symbols, decl(api.KindMethod, scope+"."+name, n, src))
		}
		return
	}
	if name := cDeclaratorName(inner, src); name != "" {
		res.Symbols = append(res.Symbols, decl(api.KindFunction, name, n, src))
	}
}

func cppClass(n *sitter.Node, src []byte, res *api.ParseResult) {
	name := content(n.ChildByFieldName("name"), src)
	if name == "" || n.ChildByFieldName("body") == nil {
		// Forward declaration.
		return
	}
	cls := decl(api.KindClass, name, n, src)

	eachNamedChild(n, func(c *sitter.Node) {
		if c.Type() != "base_class_clause" {
			return
		}
		eachNamedChild(c, func(base *sitter.Node) {
			text := content(base, src)
			switch base.Type() {
			case "access_specifier":
				return
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return
			}
			if cls.Extends == "" {
				cls.Extends = text
			} else {
				cls.Implements = append(cls.Implements, text)
			}
		})
	})
	res.Symbols = append(res.Symbols, cls)

	if body := n.ChildByFieldName("body"); body != nil {
		eachNamedChild(body, func(m *sitter.Node) {
			switch m.Type() {
			case "function_definition":
				d := m.ChildByFieldName("declarator")
				if mn := cDeclaratorName(d, src); mn != "" {
					res.Symbols = append(res.Symbols, decl(api.KindMethod, name+"."+mn, m, src))
				}
			case "field_declaration":
				if fd := m.ChildByFieldName("declarator"); fd != nil {
					if fd.Type() == "function_declarator" {
						if mn := cDeclaratorName(fd, src); mn != "" {
							res.Symbols = append(res.Symbols, decl(api.KindMethod, name+"."+mn, m, src))
						}
					} else if fn := cDeclaratorName(fd, src); fn != "" {
						res.Symbols = append(res.Symbols, decl(api.KindProperty, name+"."+fn, m, src))
					}
				}
			}
		})
	}
}
