package parser

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/agentic-research/codegraph/api"
)

// registry holds the pre-initialised grammar for each supported language.
// Initialised once, immutable thereafter — the only process-wide state in
// the module.
type registry struct {
	grammars map[string]*sitter.Language
	tsx      *sitter.Language
}

var (
	regOnce sync.Once
	reg     *registry
)

func grammars() *registry {
	regOnce.Do(func() {
		reg = &registry{
			grammars: map[string]*sitter.Language{
				api.LangTypeScript: typescript.GetLanguage(),
				api.LangJavaScript: javascript.GetLanguage(),
				api.LangPython:     python.GetLanguage(),
				api.LangGo:         golang.GetLanguage(),
				api.LangRust:       rust.GetLanguage(),
				api.LangJava:       java.GetLanguage(),
				api.LangRuby:       ruby.GetLanguage(),
				api.LangPHP:        php.GetLanguage(),
				api.LangC:          c.GetLanguage(),
				api.LangCPP:        cpp.GetLanguage(),
				api.LangCSharp:     csharp.GetLanguage(),
			},
			tsx: tsx.GetLanguage(),
		}
	})
	return reg
}

// GrammarFor selects the grammar for a language and path. TSX files get the
// TSX grammar; every other TypeScript file gets the plain TS grammar.
func GrammarFor(lang, path string) *sitter.Language {
	r := grammars()
	if lang == api.LangTypeScript && strings.EqualFold(filepath.Ext(path), ".tsx") {
		return r.tsx
	}
	return r.grammars[lang]
}

// Supported reports whether lang has a registered grammar.
func Supported(lang string) bool {
	_, ok := grammars().grammars[lang]
	return ok
}
