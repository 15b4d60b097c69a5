package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/agentic-research/codegraph/api"
)

// extractRuby walks a Ruby program. `require`/`require_relative` calls map
// to imports; classes, modules, methods, and constant assignments become
// symbols; exports follow the underscore convention.
func extractRuby(root *sitter.Node, src []byte, res *api.ParseResult) {
	eachNamedChild(root, func(n *sitter.Node) {
		rubyStatement(n, src, res, "")
	})
	addUnderscoreExports(res)
}

func rubyStatement(n *sitter.Node, src []byte, res *api.ParseResult, owner string) {
	switch n.Type() {
	case "call":
		method := content(n.ChildByFieldName("method"), src)
		if method != "require" && method != "require_relative" {
			return
		}
		if args := n.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
			source := rubyStringContent(args.NamedChild(0), src)
			if source == "" {
				return
			}
			imp := api.Import{Source: source, IsDefault: true, Names: []string{lastSlashed(source)}}
			res.Imports = append(res.Imports, imp)
		}
	case "class":
		name := content(n.ChildByFieldName("name"), src)
		if name == "" {
			return
		}
		full := name
		if owner != "" {
			full = owner + "." + name
		}
		cls := decl(api.KindClass, full, n, src)
		if super := n.ChildByFieldName("superclass"); super != nil {
			base := content(super, src)
			cls.Extends = strings.TrimSpace(strings.TrimPrefix(base, "<"))
		}
		res.Symbols = append(res.Symbols, cls)
		rubyBody(n, src, res, full)
	case "module":
		name := content(n.ChildByFieldName("name"), src)
		if name == "" {
			return
		}
		full := name
		if owner != "" {
			full = owner + "." + name
		}
		res.Symbols = append(res.Symbols, decl(api.KindNamespace, full, n, src))
		rubyBody(n, src, res, full)
	case "method":
		name := content(n.ChildByFieldName("name"), src)
		if name == "" {
			return
		}
		if owner != "" {
			res.Symbols = append(res.Symbols, decl(api.KindMethod, owner+"."+name, n, src))
		} else {
			res.Symbols = append(res.Symbols, decl(api.KindFunction, name, n, src))
		}
	case "singleton_method":
		name := content(n.ChildByFieldName("name"), src)
		if name == "" {
			return
		}
		target := owner
		if obj := n.ChildByFieldName("object"); obj != nil && obj.Type() == "constant" {
			target = content(obj, src)
		}
		if target != "" {
			res.Symbols = append(res.Symbols, decl(api.KindMethod, target+"."+name, n, src))
		} else {
			res.Symbols = append(res.Symbols, decl(api.KindFunction, name, n, src))
		}
	case "assignment":
		left := n.ChildByFieldName("left")
		if left != nil && left.Type() == "constant" && owner == "" {
			res.Symbols = append(res.Symbols, decl(api.KindVariable, content(left, src), n, src))
		}
	}
}

func rubyBody(n *sitter.Node, src []byte, res *api.ParseResult, owner string) {
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	eachNamedChild(body, func(stmt *sitter.Node) {
		rubyStatement(stmt, src, res, owner)
	})
}

// rubyStringContent unwraps a string node to its literal content.
func rubyStringContent(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	if n.Type() == "string" {
		var sb strings.Builder
		eachNamedChild(n, func(part *sitter.Node) {
			if part.Type() == "string_content" {
				sb.WriteString(content(part, src))
			}
		})
		if sb.Len() > 0 {
			return sb.String()
		}
		return strings.Trim(content(n, src), `"'`)
	}
	return strings.Trim(content(n, src), `"'`)
}
