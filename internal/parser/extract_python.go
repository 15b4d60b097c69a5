package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/agentic-research/codegraph/api"
)

// extractPython walks a Python module.
//
// Import rules (normative): `import a.b` → source "a.b", names ["b"],
// default; `import x as y` → names ["y"]; `from m import a, b` →
// names ["a","b"]; `from m import *` → namespace; relative imports keep
// their leading dots in source.
//
// Exports: `__all__` wins when present; otherwise every top-level symbol
// whose name does not begin with "_".
func extractPython(root *sitter.Node, src []byte, res *api.ParseResult) {
	var all []string
	hasAll := false

	eachNamedChild(root, func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			eachNamedChild(n, func(item *sitter.Node) {
				if imp, ok := pyPlainImport(item, src); ok {
					res.Imports = append(res.Imports, imp)
				}
			})
		case "import_from_statement":
			res.Imports = append(res.Imports, pyFromImport(n, src))
		case "future_import_statement":
			// `from __future__ import x` — uninteresting for the graph.
		case "expression_statement":
			eachNamedChild(n, func(expr *sitter.Node) {
				if expr.Type() != "assignment" {
					return
				}
				left := expr.ChildByFieldName("left")
				name := content(left, src)
				if name == "__all__" {
					hasAll = true
					all = append(all, pyStringList(expr.ChildByFieldName("right"), src)...)
					return
				}
				if left != nil && left.Type() == "identifier" && name != "" {
					res.Symbols = append(res.Symbols, decl(api.KindVariable, name, n, src))
				}
			})
		default:
			pyDefinition(n, src, res)
		}
	})

	if hasAll {
		for _, name := range all {
			res.Exports = append(res.Exports, api.Export{Name: name})
		}
		return
	}
	addUnderscoreExports(res)
}

// pyPlainImport decodes one clause of `import ...`.
func pyPlainImport(item *sitter.Node, src []byte) (api.Import, bool) {
	switch item.Type() {
	case "dotted_name":
		source := content(item, src)
		return api.Import{Source: source, Names: []string{lastDotted(source)}, IsDefault: true}, true
	case "aliased_import":
		source := content(item.ChildByFieldName("name"), src)
		alias := content(item.ChildByFieldName("alias"), src)
		return api.Import{Source: source, Names: []string{alias}, IsDefault: true}, true
	}
	return api.Import{}, false
}

// pyFromImport decodes `from m import ...`. The module_name node content
// preserves leading dots for relative imports.
func pyFromImport(n *sitter.Node, src []byte) api.Import {
	imp := api.Import{Source: content(n.ChildByFieldName("module_name"), src)}

	if hasChildOfType(n, "wildcard_import") {
		imp.IsNamespace = true
		imp.Names = []string{}
		return imp
	}

	// Named children after module_name are the imported items.
	module := n.ChildByFieldName("module_name")
	eachNamedChild(n, func(item *sitter.Node) {
		if module != nil && item.StartByte() == module.StartByte() {
			return
		}
		switch item.Type() {
		case "dotted_name":
			imp.Names = append(imp.Names, content(item, src))
		case "aliased_import":
			imp.Names = append(imp.Names, content(item.ChildByFieldName("alias"), src))
		}
	})
	return imp
}

// pyStringList pulls string literals out of a list/tuple expression.
func pyStringList(n *sitter.Node, src []byte) []string {
	if n == nil {
		return nil
	}
	var out []string
	eachNamedChild(n, func(item *sitter.Node) {
		if item.Type() != "string" {
			return
		}
		s := content(item, src)
		s = strings.Trim(s, `"'`)
		if s != "" {
			out = append(out, s)
		}
	})
	return out
}

// pyDefinition emits symbols for class and function definitions, unwrapping
// decorators. Class bodies yield methods named Class.method; the first base
// populates extends and the remainder implements.
func pyDefinition(n *sitter.Node, src []byte, res *api.ParseResult) {
	if n.Type() == "decorated_definition" {
		if def := n.ChildByFieldName("definition"); def != nil {
			pyDefinition(def, src, res)
		}
		return
	}

	switch n.Type() {
	case "function_definition":
		if name := content(n.ChildByFieldName("name"), src); name != "" {
			res.Symbols = append(res.Symbols, decl(api.KindFunction, name, n, src))
		}
	case "class_definition":
		name := content(n.ChildByFieldName("name"), src)
		if name == "" {
			return
		}
		cls := decl(api.KindClass, name, n, src)
		if supers := n.ChildByFieldName("superclasses"); supers != nil {
			eachNamedChild(supers, func(base *sitter.Node) {
				text := content(base, src)
				switch base.Type() {
				case "identifier", "attribute":
				case "keyword_argument":
					// metaclass=..., not a base
					return
				default:
					return
				}
				if cls.Extends == "" {
					cls.Extends = text
				} else {
					cls.Implements = append(cls.Implements, text)
				}
			})
		}
		res.Symbols = append(res.Symbols, cls)

		if body := n.ChildByFieldName("body"); body != nil {
			eachNamedChild(body, func(stmt *sitter.Node) {
				member := stmt
				if member.Type() == "decorated_definition" {
					member = member.ChildByFieldName("definition")
					if member == nil {
						return
					}
				}
				if member.Type() != "function_definition" {
					return
				}
				if mn := content(member.ChildByFieldName("name"), src); mn != "" {
					res.Symbols = append(res.Symbols, decl(api.KindMethod, name+"."+mn, member, src))
				}
			})
		}
	}
}
