// Package discover walks a repo root and yields candidate source files.
//
// Discovery goes through a billy.Filesystem so tests can run against an
// in-memory tree; production callers pass osfs rooted at "/" together with
// the absolute repo root.
// Enumeration is sorted lexicographically by repo-relative path so that
// downstream row IDs are stable across runs of the same input.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/codegraph/api"
)

// DiscoveredFile is one source file found under the root.
type DiscoveredFile struct {
	Path         string // repo-relative, slash-separated
	AbsolutePath string
	Lang         string
	Mtime        time.Time
	Size         int64
}

// langByExt is the fixed extension table. Unmapped extensions are skipped.
var langByExt = map[string]string{
	".ts":  api.LangTypeScript,
	".tsx": api.LangTypeScript,
	".js":  api.LangJavaScript,
	".mjs": api.LangJavaScript,
	".cjs": api.LangJavaScript,
	".py":  api.LangPython,
	".go":  api.LangGo,
	".rs":  api.LangRust,
	".java": api.LangJava,
	".rb":  api.LangRuby,
	".php": api.LangPHP,
	".c":   api.LangC,
	".h":   api.LangC,
	".cc":  api.LangCPP,
	".cpp": api.LangCPP,
	".hpp": api.LangCPP,
	".cs":  api.LangCSharp,
}

// prunedDirs are never descended into.
var prunedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	"dist":         true,
	"build":        true,
	".venv":        true,
	"__pycache__":  true,
}

// LangForPath returns the language for a path by extension, or "" if unmapped.
func LangForPath(path string) string {
	return langByExt[strings.ToLower(filepath.Ext(path))]
}

// Walk enumerates source files under root on fsys. extraExclude adds
// directory names to the built-in pruned set.
func Walk(fsys billy.Filesystem, root string, extraExclude []string) ([]DiscoveredFile, error) {
	pruned := prunedDirs
	if len(extraExclude) > 0 {
		pruned = make(map[string]bool, len(prunedDirs)+len(extraExclude))
		for k := range prunedDirs {
			pruned[k] = true
		}
		for _, name := range extraExclude {
			pruned[name] = true
		}
	}

	var out []DiscoveredFile
	err := util.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal: one bad directory
			// never aborts discovery.
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		base := filepath.Base(path)
		if info.IsDir() {
			if path == root {
				return nil
			}
			if pruned[base] || strings.HasPrefix(base, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		lang := LangForPath(path)
		if lang == "" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		out = append(out, DiscoveredFile{
			Path:         filepath.ToSlash(rel),
			AbsolutePath: path,
			Lang:         lang,
			Mtime:        info.ModTime(),
			Size:         info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
