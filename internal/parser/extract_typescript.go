package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/agentic-research/codegraph/api"
)

// extractTypeScript walks a TypeScript, TSX, or JavaScript tree. The three
// grammars share node type names for everything extracted here.
func extractTypeScript(root *sitter.Node, src []byte, res *api.ParseResult) {
	eachNamedChild(root, func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			res.Imports = append(res.Imports, tsImport(n, src))
		case "export_statement":
			tsExport(n, src, res)
		default:
			tsDeclaration(n, src, res, "")
		}
	})
	collectDynamicImports(root, src, res)
}

// tsImport decodes one import statement.
//
//	import def from "m"        → default
//	import * as ns from "m"    → namespace, names=[ns]
//	import {a, b as c} from "m" → names=[a, c]
//	import type {T} from "m"   → type-only
func tsImport(n *sitter.Node, src []byte) api.Import {
	imp := api.Import{
		Source:     unquote(content(n.ChildByFieldName("source"), src)),
		IsTypeOnly: hasChildOfType(n, "type"),
	}
	eachNamedChild(n, func(c *sitter.Node) {
		if c.Type() != "import_clause" {
			return
		}
		eachNamedChild(c, func(part *sitter.Node) {
			switch part.Type() {
			case "identifier":
				imp.IsDefault = true
				imp.Names = append(imp.Names, content(part, src))
			case "namespace_import":
				imp.IsNamespace = true
				eachNamedChild(part, func(id *sitter.Node) {
					if id.Type() == "identifier" {
						imp.Names = append(imp.Names, content(id, src))
					}
				})
			case "named_imports":
				eachNamedChild(part, func(spec *sitter.Node) {
					if spec.Type() != "import_specifier" {
						return
					}
					local := spec.ChildByFieldName("alias")
					if local == nil {
						local = spec.ChildByFieldName("name")
					}
					if name := content(local, src); name != "" {
						imp.Names = append(imp.Names, name)
					}
				})
			}
		})
	})
	return imp
}

// collectDynamicImports finds import("x") calls anywhere in the tree.
func collectDynamicImports(n *sitter.Node, src []byte, res *api.ParseResult) {
	if n.Type() == "call_expression" {
		if fn := n.Child(0); fn != nil && fn.Type() == "import" {
			imp := api.Import{IsDynamic: true, Names: []string{}}
			if args := n.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
				imp.Source = unquote(content(args.NamedChild(0), src))
			}
			res.Imports = append(res.Imports, imp)
		}
	}
	eachNamedChild(n, func(c *sitter.Node) { collectDynamicImports(c, src, res) })
}

// tsExport handles export statements: wrapped declarations, export clauses,
// re-exports, and export default.
func tsExport(n *sitter.Node, src []byte, res *api.ParseResult) {
	isDefault := hasChildOfType(n, "default")
	source := unquote(content(n.ChildByFieldName("source"), src))

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		before := len(res.Symbols)
		tsDeclaration(decl, src, res, "")
		for _, sym := range res.Symbols[before:] {
			if sym.Kind == api.KindMethod || sym.Kind == api.KindProperty {
				continue
			}
			res.Exports = append(res.Exports, api.Export{Name: sym.Name, IsDefault: isDefault})
		}
		return
	}

	exported := false
	eachNamedChild(n, func(c *sitter.Node) {
		switch c.Type() {
		case "export_clause":
			eachNamedChild(c, func(spec *sitter.Node) {
				if spec.Type() != "export_specifier" {
					return
				}
				name := content(spec.ChildByFieldName("alias"), src)
				if name == "" {
					name = content(spec.ChildByFieldName("name"), src)
				}
				if name != "" {
					exported = true
					res.Exports = append(res.Exports, api.Export{
						Name:       name,
						IsReExport: source != "",
						Source:     source,
					})
				}
			})
		case "namespace_export":
			exported = true
			res.Exports = append(res.Exports, api.Export{Name: "*", IsReExport: true, Source: source})
		}
	})
	if exported {
		return
	}

	if source != "" {
		// export * from "m" with no clause
		res.Exports = append(res.Exports, api.Export{Name: "*", IsReExport: true, Source: source})
		return
	}
	if isDefault {
		// export default <expression> — name the export after the expression
		// when it is a bare identifier, else "default".
		name := "default"
		if v := n.ChildByFieldName("value"); v != nil && v.Type() == "identifier" {
			name = content(v, src)
		} else {
			eachNamedChild(n, func(c *sitter.Node) {
				if name == "default" && c.Type() == "identifier" {
					name = content(c, src)
				}
			})
		}
		res.Exports = append(res.Exports, api.Export{Name: name, IsDefault: true})
	}
}

// tsDeclaration emits symbols for one top-level declaration node.
func tsDeclaration(n *sitter.Node, src []byte, res *api.ParseResult, nsPrefix string) {
	qualify := func(name string) string {
		if nsPrefix != "" {
			return nsPrefix + "." + name
		}
		return name
	}

	switch n.Type() {
	case "class_declaration", "abstract_class_declaration":
		tsClass(n, src, res, qualify)
	case "function_declaration", "generator_function_declaration":
		if name := content(n.ChildByFieldName("name"), src); name != "" {
			res.Symbols = append(res.Symbols, decl(api.KindFunction, qualify(name), n, src))
		}
	case "interface_declaration":
		if name := content(n.ChildByFieldName("name"), src); name != "" {
			res.Symbols = append(res.Symbols, decl(api.KindInterface, qualify(name), n, src))
		}
	case "type_alias_declaration":
		if name := content(n.ChildByFieldName("name"), src); name != "" {
			res.Symbols = append(res.Symbols, decl(api.KindType, qualify(name), n, src))
		}
	case "enum_declaration":
		if name := content(n.ChildByFieldName("name"), src); name != "" {
			res.Symbols = append(res.Symbols, decl(api.KindEnum, qualify(name), n, src))
		}
	case "lexical_declaration", "variable_declaration":
		eachNamedChild(n, func(d *sitter.Node) {
			if d.Type() != "variable_declarator" {
				return
			}
			if name := content(d.ChildByFieldName("name"), src); name != "" && !strings.ContainsAny(name, "{[") {
				res.Symbols = append(res.Symbols, decl(api.KindVariable, qualify(name), n, src))
			}
		})
	case "module", "internal_module":
		name := unquote(content(n.ChildByFieldName("name"), src))
		if name == "" {
			return
		}
		res.Symbols = append(res.Symbols, decl(api.KindNamespace, qualify(name), n, src))
		if body := n.ChildByFieldName("body"); body != nil {
			eachNamedChild(body, func(inner *sitter.Node) {
				if inner.Type() == "export_statement" {
					if d := inner.ChildByFieldName("declaration"); d != nil {
						tsDeclaration(d, src, res, qualify(name))
					}
					return
				}
				tsDeclaration(inner, src, res, qualify(name))
			})
		}
	}
}

// tsClass emits the class symbol, its heritage, and its members.
func tsClass(n *sitter.Node, src []byte, res *api.ParseResult, qualify func(string) string) {
	name := content(n.ChildByFieldName("name"), src)
	if name == "" {
		return
	}
	cls := decl(api.KindClass, qualify(name), n, src)

	eachNamedChild(n, func(c *sitter.Node) {
		if c.Type() != "class_heritage" {
			return
		}
		eachNamedChild(c, func(clause *sitter.Node) {
			switch clause.Type() {
			case "extends_clause":
				eachNamedChild(clause, func(base *sitter.Node) {
					if cls.Extends == "" {
						cls.Extends = content(base, src)
					} else {
						cls.Implements = append(cls.Implements, content(base, src))
					}
				})
			case "implements_clause":
				eachNamedChild(clause, func(iface *sitter.Node) {
					cls.Implements = append(cls.Implements, content(iface, src))
				})
			}
		})
		// JS grammar puts the base expression directly under class_heritage.
		if c.NamedChildCount() > 0 && c.NamedChild(0).Type() != "extends_clause" && c.NamedChild(0).Type() != "implements_clause" && cls.Extends == "" {
			cls.Extends = content(c.NamedChild(0), src)
		}
	})
	res.Symbols = append(res.Symbols, cls)

	if body := n.ChildByFieldName("body"); body != nil {
		eachNamedChild(body, func(m *sitter.Node) {
			switch m.Type() {
			case "method_definition":
				if mn := content(m.ChildByFieldName("name"), src); mn != "" {
					res.Symbols = append(res.Symbols, decl(api.KindMethod, qualify(name)+"."+mn, m, src))
				}
			case "public_field_definition", "field_definition":
				if fn := content(m.ChildByFieldName("name"), src); fn != "" {
					res.Symbols = append(res.Symbols, decl(api.KindProperty, qualify(name)+"."+fn, m, src))
				}
			}
		})
	}
}
