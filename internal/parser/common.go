package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/agentic-research/codegraph/api"
)

const maxSignatureLen = 240

// content returns the source text of n, guarding against stale byte ranges.
func content(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if start >= uint32(len(src)) || end > uint32(len(src)) || start > end {
		return ""
	}
	return string(src[start:end])
}

// decl builds a SymbolDecl at n's position. Lines are 1-based inclusive,
// columns 0-based (tree-sitter rows are 0-based).
func decl(kind, name string, n *sitter.Node, src []byte) api.SymbolDecl {
	sp, ep := n.StartPoint(), n.EndPoint()
	return api.SymbolDecl{
		Kind:      kind,
		Name:      name,
		Signature: signature(n, src),
		StartLine: int(sp.Row) + 1,
		StartCol:  int(sp.Column),
		EndLine:   int(ep.Row) + 1,
		EndCol:    int(ep.Column),
	}
}

// signature is the declaration head: node text up to its body child (or the
// first newline), whitespace-collapsed and capped.
func signature(n *sitter.Node, src []byte) string {
	end := n.EndByte()
	if body := n.ChildByFieldName("body"); body != nil {
		end = body.StartByte()
	}
	start := n.StartByte()
	if start >= uint32(len(src)) || end > uint32(len(src)) || start >= end {
		return ""
	}
	text := string(src[start:end])
	if i := strings.IndexByte(text, '\n'); i >= 0 && n.ChildByFieldName("body") == nil {
		text = text[:i]
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxSignatureLen {
		text = text[:maxSignatureLen]
	}
	return strings.TrimSpace(text)
}

// eachNamedChild calls fn for every named child of n.
func eachNamedChild(n *sitter.Node, fn func(child *sitter.Node)) {
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		if c := n.NamedChild(i); c != nil {
			fn(c)
		}
	}
}

// hasChildOfType reports whether n has any child (named or not) of type t.
func hasChildOfType(n *sitter.Node, t string) bool {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		if c := n.Child(i); c != nil && c.Type() == t {
			return true
		}
	}
	return false
}

// unquote strips one layer of matching quotes from a string literal.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// lastDotted returns the final segment of a dotted path ("a.b.c" → "c").
func lastDotted(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// isUpperInitial reports whether s starts with an uppercase letter.
func isUpperInitial(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// addUnderscoreExports appends an export for every symbol whose name does
// not begin with "_" — the convention for languages without an explicit
// export notion. Methods are skipped: the owning type carries the export.
func addUnderscoreExports(res *api.ParseResult) {
	seen := make(map[string]bool)
	for _, sym := range res.Symbols {
		if sym.Kind == api.KindMethod || sym.Kind == api.KindProperty {
			continue
		}
		if strings.HasPrefix(sym.Name, "_") || seen[sym.Name] {
			continue
		}
		seen[sym.Name] = true
		res.Exports = append(res.Exports, api.Export{Name: sym.Name})
	}
}
