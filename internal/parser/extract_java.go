package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/agentic-research/codegraph/api"
)

// extractJava walks a Java compilation unit. `import a.b.C` → names ["C"];
// `import a.b.*` → namespace. Public types, nested ones included, are the exports.
func extractJava(root *sitter.Node, src []byte, res *api.ParseResult) {
	eachNamedChild(root, func(n *sitter.Node) {
		switch n.Type() {
		case "import_declaration":
			imp := api.Import{IsDefault: true}
			eachNamedChild(n, func(c *sitter.Node) {
				switch c.Type() {
				case "scoped_identifier", "identifier":
					imp.Source = content(c, src)
				case "asterisk":
					imp.IsNamespace = true
					imp.IsDefault = false
				}
			})
			if imp.IsNamespace {
				imp.Names = []string{}
			} else if imp.Source != "" {
				imp.Names = []string{lastDotted(imp.Source)}
			}
			res.Imports = append(res.Imports, imp)
		case "package_declaration":
			eachNamedChild(n, func(c *sitter.Node) {
				if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
					res.Symbols = append(res.Symbols, decl(api.KindNamespace, content(c, src), n, src))
				}
			})
		default:
			javaType(n, src, res)
		}
	})
}

func javaIsPublic(n *sitter.Node, src []byte) bool {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c != nil && c.Type() == "modifiers" {
			return strings.Contains(content(c, src), "public")
		}
	}
	return false
}

func javaType(n *sitter.Node, src []byte, res *api.ParseResult) {
	var kind string
	switch n.Type() {
	case "class_declaration":
		kind = api.KindClass
	case "interface_declaration":
		kind = api.KindInterface
	case "enum_declaration":
		kind = api.KindEnum
	case "record_declaration":
		kind = api.KindClass
	default:
		return
	}

	name := content(n.ChildByFieldName("name"), src)
	if name == "" {
		return
	}
	sym := decl(kind, name, n, src)

	if super := n.ChildByFieldName("superclass"); super != nil {
		// superclass → "extends Base"
		eachNamedChild(super, func(t *sitter.Node) {
			if sym.Extends == "" {
				sym.Extends = javaTypeName(t, src)
			}
		})
	}
	if ifaces := n.ChildByFieldName("interfaces"); ifaces != nil {
		eachNamedChild(ifaces, func(list *sitter.Node) {
			if list.Type() != "type_list" {
				return
			}
			eachNamedChild(list, func(t *sitter.Node) {
				sym.Implements = append(sym.Implements, javaTypeName(t, src))
			})
		})
	}
	res.Symbols = append(res.Symbols, sym)
	if javaIsPublic(n, src) {
		res.Exports = append(res.Exports, api.Export{Name: name})
	}

	if body := n.ChildByFieldName("body"); body != nil {
		eachNamedChild(body, func(m *sitter.Node) {
			switch m.Type() {
			case "method_declaration", "constructor_declaration":
				if mn := content(m.ChildByFieldName("name"), src); mn != "" {
					res.Symbols = append(res.Symbols, decl(api.KindMethod, name+"."+mn, m, src))
				}
			case "field_declaration":
				eachNamedChild(m, func(d *sitter.Node) {
					if d.Type() != "variable_declarator" {
						return
					}
					if fn := content(d.ChildByFieldName("name"), src); fn != "" {
						res.Symbols = append(res.Symbols, decl(api.KindProperty, name+"."+fn, m, src))
					}
				})
			case "class_declaration", "interface_declaration", "enum_declaration":
				javaType(m, src, res)
			}
		})
	}
}

func javaTypeName(t *sitter.Node, src []byte) string {
	if t.Type() == "generic_type" {
		if inner := t.NamedChild(0); inner != nil {
			return content(inner, src)
		}
	}
	return content(t, src)
}
