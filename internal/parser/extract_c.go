package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/agentic-research/codegraph/api"
)

// extractC walks a C translation unit. `#include` directives map to
// imports; quoted includes are the resolvable kind, system includes route
// to module nodes downstream. Exports follow the underscore convention.
func extractC(root *sitter.Node, src []byte, res *api.ParseResult) {
	eachNamedChild(root, func(n *sitter.Node) {
		cTopLevel(n, src, res)
	})
	addUnderscoreExports(res)
}

func cTopLevel(n *sitter.Node, src []byte, res *api.ParseResult) {
	switch n.Type() {
	case "preproc_include":
		if imp, ok := cInclude(n, src); ok {
			res.Imports = append(res.Imports, imp)
		}
	case "function_definition":
		if name := cDeclaratorName(n.ChildByFieldName("declarator"), src); name != "" {
			res.Symbols = append(res.Symbols, decl(api.KindFunction, name, n, src))
		}
	case "declaration":
		// Covers both prototypes and globals; prototypes read as functions.
		eachNamedChild(n, func(d *sitter.Node) {
			switch d.Type() {
			case "function_declarator":
				if name := cDeclaratorName(d, src); name != "" {
					res.Symbols = append(res.Symbols, decl(api.KindFunction, name, n, src))
				}
			case "init_declarator":
				if name := cDeclaratorName(d.ChildByFieldName("declarator"), src); name != "" {
					res.Symbols = append(res.Symbols, decl(api.KindVariable, name, n, src))
				}
			case "identifier":
				res.Symbols = append(res.Symbols, decl(api.KindVariable, content(d, src), n, src))
			}
		})
	case "struct_specifier", "union_specifier":
		if name := content(n.ChildByFieldName("name"), src); name != "" && n.ChildByFieldName("body") != nil {
			res.Symbols = append(res.Symbols, decl(api.KindClass, name, n, src))
		}
	case "enum_specifier":
		if name := content(n.ChildByFieldName("name"), src); name != "" && n.ChildByFieldName("body") != nil {
			res.Symbols = append(res.Symbols, decl(api.KindEnum, name, n, src))
		}
	case "type_definition":
		eachNamedChild(n, func(d *sitter.Node) {
			if d.Type() == "type_identifier" {
				res.Symbols = append(res.Symbols, decl(api.KindType, content(d, src), n, src))
			}
		})
	case "preproc_ifdef", "preproc_if":
		// Header guards: extract the guarded content.
		eachNamedChild(n, func(inner *sitter.Node) { cTopLevel(inner, src, res) })
	}
}

// cInclude decodes `#include "x.h"` and `#include <x.h>`.
func cInclude(n *sitter.Node, src []byte) (api.Import, bool) {
	path := n.ChildByFieldName("path")
	if path == nil {
		return api.Import{}, false
	}
	raw := content(path, src)
	source := strings.Trim(raw, `"<>`)
	if source == "" {
		return api.Import{}, false
	}
	return api.Import{Source: source, Names: []string{}}, true
}

// cDeclaratorName digs the identifier out of nested declarators
// (pointers, arrays, functions).
func cDeclaratorName(d *sitter.Node, src []byte) string {
	for d != nil {
		switch d.Type() {
		case "identifier", "field_identifier":
			return content(d, src)
		case "pointer_declarator", "array_declarator", "parenthesized_declarator", "function_declarator":
			next := d.ChildByFieldName("declarator")
			if next == nil {
				next = d.NamedChild(0)
			}
			d = next
		default:
			return ""
		}
	}
	return ""
}
