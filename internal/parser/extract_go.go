package parser

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/agentic-research/codegraph/api"
)

// extractGo walks a Go source file. One import binds one package name, the
// analogue of Python's `import a.b`; dot imports map to namespace imports.
// Exported names are the capitalised ones.
func extractGo(root *sitter.Node, src []byte, res *api.ParseResult) {
	eachNamedChild(root, func(n *sitter.Node) {
		switch n.Type() {
		case "import_declaration":
			eachNamedChild(n, func(c *sitter.Node) {
				switch c.Type() {
				case "import_spec":
					res.Imports = append(res.Imports, goImportSpec(c, src))
				case "import_spec_list":
					eachNamedChild(c, func(spec *sitter.Node) {
						if spec.Type() == "import_spec" {
							res.Imports = append(res.Imports, goImportSpec(spec, src))
						}
					})
				}
			})
		case "function_declaration":
			if name := content(n.ChildByFieldName("name"), src); name != "" {
				res.Symbols = append(res.Symbols, decl(api.KindFunction, name, n, src))
			}
		case "method_declaration":
			name := content(n.ChildByFieldName("name"), src)
			recv := goReceiverType(n.ChildByFieldName("receiver"), src)
			if name == "" {
				return
			}
			if recv != "" {
				name = recv + "." + name
			}
			res.Symbols = append(res.Symbols, decl(api.KindMethod, name, n, src))
		case "type_declaration":
			eachNamedChild(n, func(spec *sitter.Node) {
				if spec.Type() != "type_spec" {
					return
				}
				name := content(spec.ChildByFieldName("name"), src)
				if name == "" {
					return
				}
				kind := api.KindType
				if t := spec.ChildByFieldName("type"); t != nil {
					switch t.Type() {
					case "struct_type":
						kind = api.KindClass
					case "interface_type":
						kind = api.KindInterface
					}
				}
				res.Symbols = append(res.Symbols, decl(kind, name, spec, src))
			})
		case "const_declaration", "var_declaration":
			eachNamedChild(n, func(spec *sitter.Node) {
				if spec.Type() != "const_spec" && spec.Type() != "var_spec" {
					return
				}
				eachNamedChild(spec, func(id *sitter.Node) {
					if id.Type() == "identifier" {
						// Only the name field holds declared identifiers;
						// the value expression can also contain them.
						if nameField := spec.ChildByFieldName("name"); nameField != nil && id.StartByte() != nameField.StartByte() {
							return
						}
						res.Symbols = append(res.Symbols, decl(api.KindVariable, content(id, src), spec, src))
					}
				})
			})
		}
	})

	for _, sym := range res.Symbols {
		if sym.Kind == api.KindMethod {
			continue
		}
		if isUpperInitial(sym.Name) {
			res.Exports = append(res.Exports, api.Export{Name: sym.Name})
		}
	}
}

func goImportSpec(spec *sitter.Node, src []byte) api.Import {
	imp := api.Import{
		Source:    unquote(content(spec.ChildByFieldName("path"), src)),
		IsDefault: true,
	}
	if name := spec.ChildByFieldName("name"); name != nil {
		switch name.Type() {
		case "dot":
			imp.IsDefault = false
			imp.IsNamespace = true
		case "blank_identifier":
			imp.Names = []string{"_"}
		default:
			imp.Names = []string{content(name, src)}
		}
		return imp
	}
	if imp.Source != "" {
		imp.Names = []string{lastSlashed(imp.Source)}
	}
	return imp
}

// goReceiverType digs the receiver's base type name out of its parameter list.
func goReceiverType(recv *sitter.Node, src []byte) string {
	if recv == nil {
		return ""
	}
	var name string
	eachNamedChild(recv, func(param *sitter.Node) {
		if param.Type() != "parameter_declaration" || name != "" {
			return
		}
		t := param.ChildByFieldName("type")
		for t != nil {
			switch t.Type() {
			case "pointer_type":
				t = t.NamedChild(0)
			case "generic_type":
				t = t.ChildByFieldName("type")
			case "type_identifier":
				name = content(t, src)
				return
			default:
				name = content(t, src)
				return
			}
		}
	})
	return name
}

func lastSlashed(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return s[i+1:]
		}
	}
	return s
}
