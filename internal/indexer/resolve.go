package indexer

import (
	"path"
	"strings"

	"github.com/agentic-research/codegraph/api"
)

// resolveImport maps an import source string to another file in the same
// repo, best-effort per language: relative-path normalisation, extension
// search, and module search. known is the set of discovered repo-relative
// slash paths. Returns the resolved repo-relative path.
func resolveImport(known map[string]bool, fromPath, source, lang string) (string, bool) {
	if source == "" {
		return "", false
	}
	fromDir := path.Dir(fromPath)

	switch lang {
	case api.LangTypeScript, api.LangJavaScript:
		if !strings.HasPrefix(source, ".") {
			return "", false
		}
		base := path.Clean(path.Join(fromDir, source))
		return firstExisting(known,
			base,
			base+".ts", base+".tsx", base+".js", base+".mjs", base+".cjs",
			base+"/index.ts", base+"/index.tsx", base+"/index.js")

	case api.LangPython:
		if strings.HasPrefix(source, ".") {
			dots := 0
			for dots < len(source) && source[dots] == '.' {
				dots++
			}
			dir := fromDir
			for i := 1; i < dots; i++ {
				dir = path.Dir(dir)
			}
			rest := strings.ReplaceAll(source[dots:], ".", "/")
			base := path.Clean(path.Join(dir, rest))
			return firstExisting(known, base+".py", base+"/__init__.py")
		}
		base := strings.ReplaceAll(source, ".", "/")
		return firstExisting(known, base+".py", base+"/__init__.py")

	case api.LangGo:
		// Go imports name packages; match the deepest directory whose
		// slash path is a suffix of the import path.
		return resolveDirImport(known, source)

	case api.LangRust:
		trimmed := source
		for _, prefix := range []string{"crate::", "self::", "super::"} {
			trimmed = strings.TrimPrefix(trimmed, prefix)
		}
		base := strings.ReplaceAll(trimmed, "::", "/")
		return firstExisting(known,
			base+".rs", base+"/mod.rs",
			"src/"+base+".rs", "src/"+base+"/mod.rs",
			path.Clean(path.Join(fromDir, base+".rs")),
			path.Clean(path.Join(fromDir, base, "mod.rs")))

	case api.LangJava:
		base := strings.ReplaceAll(source, ".", "/")
		return firstExisting(known,
			base+".java",
			"src/main/java/"+base+".java",
			"src/"+base+".java")

	case api.LangCSharp:
		base := strings.ReplaceAll(source, ".", "/")
		return firstExisting(known, base+".cs", "src/"+base+".cs")

	case api.LangRuby:
		base := source
		if resolved, ok := firstExisting(known,
			path.Clean(path.Join(fromDir, base+".rb")),
			path.Clean(path.Join(fromDir, base)),
			base+".rb",
			"lib/"+base+".rb"); ok {
			return resolved, true
		}
		return "", false

	case api.LangPHP:
		base := strings.ReplaceAll(strings.TrimPrefix(source, "\\"), "\\", "/")
		return firstExisting(known,
			base+".php",
			"src/"+base+".php",
			path.Clean(path.Join(fromDir, source)))

	case api.LangC, api.LangCPP:
		// Best-effort #include search: next to the including file, then
		// from the repo root. System headers fall through to modules.
		return firstExisting(known,
			path.Clean(path.Join(fromDir, source)),
			source,
			"include/"+source)
	}
	return "", false
}

func firstExisting(known map[string]bool, candidates ...string) (string, bool) {
	for _, c := range candidates {
		if known[c] {
			return c, true
		}
	}
	return "", false
}

// resolveDirImport finds a file in the directory best matching a
// package-style import path (deepest suffix match wins).
func resolveDirImport(known map[string]bool, importPath string) (string, bool) {
	segments := strings.Split(importPath, "/")
	for start := 0; start < len(segments); start++ {
		dir := strings.Join(segments[start:], "/")
		for p := range known {
			if path.Dir(p) == dir {
				return bestInDir(known, dir), true
			}
		}
	}
	return "", false
}

// bestInDir picks the lexicographically first file in dir so resolution is
// deterministic across runs.
func bestInDir(known map[string]bool, dir string) string {
	best := ""
	for p := range known {
		if path.Dir(p) != dir {
			continue
		}
		if best == "" || p < best {
			best = p
		}
	}
	return best
}

// isTestFile reports whether a repo-relative path matches the test-file
// heuristic: **/*.test.* or **/__tests__/**.
func isTestFile(p string) bool {
	if strings.Contains(p, "/__tests__/") || strings.HasPrefix(p, "__tests__/") {
		return true
	}
	base := path.Base(p)
	return strings.Contains(base, ".test.")
}
