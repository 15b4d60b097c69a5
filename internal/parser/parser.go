// Package parser turns source text into a ParseResult: imports, exports,
// and symbol declarations, extracted from a tree-sitter syntax tree.
//
// ParseFile is total. A malformed file, a grammar failure, or a panicking
// extractor produces a (possibly partial) ParseResult plus one diagnostic;
// it never aborts an indexing run.
package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/agentic-research/codegraph/api"
)

// Grammar bindings reject single buffers at 32 KiB and beyond; larger
// sources must go through the chunked reader interface.
const (
	maxSingleBuffer = 32768
	readChunkSize   = 4096
)

type extractFunc func(root *sitter.Node, src []byte, res *api.ParseResult)

func extractorFor(lang string) extractFunc {
	switch lang {
	case api.LangTypeScript, api.LangJavaScript:
		return extractTypeScript
	case api.LangPython:
		return extractPython
	case api.LangGo:
		return extractGo
	case api.LangRust:
		return extractRust
	case api.LangJava:
		return extractJava
	case api.LangRuby:
		return extractRuby
	case api.LangPHP:
		return extractPHP
	case api.LangC:
		return extractC
	case api.LangCPP:
		return extractCPP
	case api.LangCSharp:
		return extractCSharp
	default:
		return nil
	}
}

// ParseFile parses src as lang and extracts a ParseResult.
func ParseFile(ctx context.Context, src []byte, path, lang string) api.ParseResult {
	var res api.ParseResult

	grammar := GrammarFor(lang, path)
	extract := extractorFor(lang)
	if grammar == nil || extract == nil {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("%s: no grammar for language %q", path, lang))
		return res
	}

	tree, err := parseTree(ctx, src, grammar)
	if err != nil {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("%s: parse failed: %v", path, err))
		return res
	}
	defer tree.Close()

	// Extractors are total by construction, but grammars evolve; recover
	// keeps whatever the walk emitted before the structural surprise.
	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("%s: extractor aborted: %v", path, r))
			}
		}()
		extract(tree.RootNode(), src, &res)
	}()
	if tree.RootNode().HasError() {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("%s: syntax errors; extraction may be partial", path))
	}

	return res
}

// parseTree parses src, switching to the chunked reader interface for
// sources at or beyond the binding limit. The reader returns sequential
// 4 KiB slices starting at the requested byte offset.
func parseTree(ctx context.Context, src []byte, grammar *sitter.Language) (*sitter.Tree, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(grammar)

	if len(src) < maxSingleBuffer {
		return p.ParseCtx(ctx, nil, src)
	}

	input := sitter.Input{
		Encoding: sitter.InputEncodingUTF8,
		Read: func(offset uint32, _ sitter.Point) []byte {
			if int(offset) >= len(src) {
				return nil
			}
			end := int(offset) + readChunkSize
			if end > len(src) {
				end = len(src)
			}
			return src[offset:end]
		},
	}
	return p.ParseInputCtx(ctx, nil, input)
}
