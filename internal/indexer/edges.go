package indexer

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/agentic-research/codegraph/api"
	"github.com/agentic-research/codegraph/internal/store"
)

// Edge weights. Structural edges carry full weight; name-matched ones less.
const (
	weightStructural = 1.0
	weightReference  = 0.9
	weightTest       = 0.8
)

// applyFile persists one parsed file atomically: upsert the file row,
// wipe its old symbols and edges, insert fresh symbols, derive edges, and
// refresh the file's search entries — all in a single transaction.
func (ix *Indexer) applyFile(repoID int64, pf parsedFile, known map[string]bool, summary *api.IndexSummary) error {
	warn := func(format string, args ...any) {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf(format, args...))
	}

	return ix.Store.WithTx(func(tx *sql.Tx) error {
		file, err := ix.Store.UpsertFile(tx, repoID, pf.disc.Path, pf.disc.Lang, pf.sha256, pf.disc.Mtime, pf.disc.Size)
		if err != nil {
			return err
		}
		// Edge cleanup first: it selects by the file's current symbol rows.
		if err := ix.Store.DeleteEdgesByFile(tx, file.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM search_index WHERE entity_type = 'symbol'
			AND entity_id IN (SELECT id FROM symbols WHERE file_id = ?)`, file.ID); err != nil {
			return fmt.Errorf("clear symbol search entries: %w", err)
		}
		if err := ix.Store.DeleteSymbolsByFile(tx, file.ID); err != nil {
			return err
		}

		symbols, err := ix.insertSymbols(tx, repoID, file.ID, pf, warn)
		if err != nil {
			return err
		}
		if err := ix.deriveEdges(tx, repoID, file, pf, symbols, known, warn); err != nil {
			return err
		}
		return ix.refreshFileSearch(tx, repoID, file, symbols)
	})
}

// insertSymbols stores the parse result's symbols and returns them with IDs
// assigned, keyed for later edge derivation.
func (ix *Indexer) insertSymbols(tx *sql.Tx, repoID, fileID int64, pf parsedFile, warn func(string, ...any)) ([]store.SymbolRecord, error) {
	out := make([]store.SymbolRecord, 0, len(pf.result.Symbols))
	for _, d := range pf.result.Symbols {
		sym := store.SymbolRecord{
			RepoID:    repoID,
			FileID:    fileID,
			Kind:      d.Kind,
			Name:      d.Name,
			FqName:    d.Name,
			Signature: d.Signature,
			StartLine: d.StartLine,
			StartCol:  d.StartCol,
			EndLine:   d.EndLine,
			EndCol:    d.EndCol,
		}
		err := ix.Store.InsertSymbol(tx, &sym)
		if errors.Is(err, store.ErrFqNameConflict) {
			warn("%s: %v", pf.disc.Path, err)
		} else if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, nil
}

// deriveEdges computes the file's edge set from its ParseResult, per the
// derivation rules: DEFINES for every symbol, EXPORTS for every exported
// name, IMPORTS to resolved files or module nodes, REFERENCES for imported
// names, EXTENDS/IMPLEMENTS resolved by short name, and TESTS from test
// files to their import targets.
func (ix *Indexer) deriveEdges(tx *sql.Tx, repoID int64, file store.FileRecord, pf parsedFile, symbols []store.SymbolRecord, known map[string]bool, warn func(string, ...any)) error {
	decls := pf.result.Symbols

	byName := make(map[string]*store.SymbolRecord, len(symbols))
	for i := range symbols {
		if _, ok := byName[symbols[i].Name]; !ok {
			byName[symbols[i].Name] = &symbols[i]
		}
	}

	insert := func(e store.EdgeRecord) error {
		e.RepoID = repoID
		return ix.Store.InsertEdge(tx, &e)
	}

	// DEFINES: file → each of its symbols.
	for i := range symbols {
		if err := insert(store.EdgeRecord{
			SrcType: api.EntityFile, SrcID: file.ID,
			Rel:     api.RelDefines,
			DstType: api.EntitySymbol, DstID: symbols[i].ID,
			Weight: weightStructural,
		}); err != nil {
			return err
		}
	}

	// EXPORTS: file → matching symbol, creating a placeholder lazily when
	// the exported name has no declaration in the file (re-exports).
	for _, exp := range pf.result.Exports {
		if exp.Name == "" || exp.Name == "*" {
			continue
		}
		target, ok := byName[exp.Name]
		if !ok {
			placeholder := store.SymbolRecord{
				RepoID: repoID, FileID: file.ID,
				Kind: api.KindVariable, Name: exp.Name,
				StartLine: 1, EndLine: 1,
			}
			err := ix.Store.InsertSymbol(tx, &placeholder)
			if err != nil && !errors.Is(err, store.ErrFqNameConflict) {
				return err
			}
			byName[exp.Name] = &placeholder
			target = &placeholder
		}
		if err := insert(store.EdgeRecord{
			SrcType: api.EntityFile, SrcID: file.ID,
			Rel:     api.RelExports,
			DstType: api.EntitySymbol, DstID: target.ID,
			Weight: weightStructural,
		}); err != nil {
			return err
		}
	}

	// IMPORTS and REFERENCES.
	testFile := isTestFile(file.Path)
	for _, imp := range pf.result.Imports {
		if imp.Source == "" {
			continue
		}
		resolved, ok := resolveImport(known, file.Path, imp.Source, file.Lang)
		if !ok {
			mod, err := ix.Store.UpsertModule(tx, repoID, imp.Source, "", "")
			if err != nil {
				return err
			}
			if err := insert(store.EdgeRecord{
				SrcType: api.EntityFile, SrcID: file.ID,
				Rel:     api.RelImports,
				DstType: api.EntityModule, DstID: mod.ID,
				Weight: weightStructural,
			}); err != nil {
				return err
			}
			continue
		}

		target, err := ix.Store.FindFileByPathTx(tx, repoID, resolved)
		if errors.Is(err, store.ErrNotFound) {
			warn("%s: import %q resolves to %s, which is not indexed", file.Path, imp.Source, resolved)
			continue
		}
		if err != nil {
			return err
		}
		if err := insert(store.EdgeRecord{
			SrcType: api.EntityFile, SrcID: file.ID,
			Rel:     api.RelImports,
			DstType: api.EntityFile, DstID: target.ID,
			Weight: weightStructural,
		}); err != nil {
			return err
		}
		if testFile {
			if err := insert(store.EdgeRecord{
				SrcType: api.EntityFile, SrcID: file.ID,
				Rel:     api.RelTests,
				DstType: api.EntityFile, DstID: target.ID,
				Weight: weightTest,
			}); err != nil {
				return err
			}
		}

		for _, name := range imp.Names {
			if name == "" || name == "_" {
				continue
			}
			ix.Store.AddRef(name, file.ID)
			sym, err := ix.Store.FindSymbolInFileTx(tx, repoID, target.ID, name)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := insert(store.EdgeRecord{
				SrcType: api.EntityFile, SrcID: file.ID,
				Rel:     api.RelReferences,
				DstType: api.EntitySymbol, DstID: sym.ID,
				Weight: weightReference,
			}); err != nil {
				return err
			}
		}
	}

	// EXTENDS / IMPLEMENTS: resolve each base by short name, first within
	// the file, then through the file's imports. First match wins;
	// unresolved bases are skipped.
	for i, d := range decls {
		if d.Extends == "" && len(d.Implements) == 0 {
			continue
		}
		src := symbols[i]
		link := func(rel, base string) error {
			base = shortBaseName(base)
			if base == "" {
				return nil
			}
			ix.Store.AddRef(base, file.ID)
			target, ok := ix.resolveBase(tx, repoID, file, pf, base, byName, known)
			if !ok {
				return nil
			}
			return insert(store.EdgeRecord{
				SrcType: api.EntitySymbol, SrcID: src.ID,
				Rel:     rel,
				DstType: api.EntitySymbol, DstID: target,
				Weight: weightStructural,
			})
		}
		if d.Extends != "" {
			if err := link(api.RelExtends, d.Extends); err != nil {
				return err
			}
		}
		for _, iface := range d.Implements {
			if err := link(api.RelImplements, iface); err != nil {
				return err
			}
		}
	}

	return nil
}

// resolveBase finds the symbol a base-class name refers to: a declaration
// in the same file, else the first import that binds the name, resolved to
// its defining file.
func (ix *Indexer) resolveBase(tx *sql.Tx, repoID int64, file store.FileRecord, pf parsedFile, base string, byName map[string]*store.SymbolRecord, known map[string]bool) (int64, bool) {
	if local, ok := byName[base]; ok && local.ID != 0 {
		return local.ID, true
	}
	for _, imp := range pf.result.Imports {
		bound := false
		for _, n := range imp.Names {
			if n == base {
				bound = true
				break
			}
		}
		if !bound {
			continue
		}
		resolved, ok := resolveImport(known, file.Path, imp.Source, file.Lang)
		if !ok {
			continue
		}
		target, err := ix.Store.FindFileByPathTx(tx, repoID, resolved)
		if err != nil {
			continue
		}
		sym, err := ix.Store.FindSymbolInFileTx(tx, repoID, target.ID, base)
		if err != nil {
			continue
		}
		return sym.ID, true
	}
	return 0, false
}

// shortBaseName strips qualifiers and generics from a heritage expression:
// "ns.Base<T>" → "Base".
func shortBaseName(s string) string {
	if i := strings.IndexAny(s, "<("); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexAny(s, ".:\\"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// refreshFileSearch rewrites the FTS rows for the file and its symbols:
// the file entry carries path plus symbol names, each symbol entry its
// fq_name plus signature.
func (ix *Indexer) refreshFileSearch(tx *sql.Tx, repoID int64, file store.FileRecord, symbols []store.SymbolRecord) error {
	var sb strings.Builder
	sb.WriteString(file.Path)
	for i := range symbols {
		sb.WriteByte(' ')
		sb.WriteString(symbols[i].Name)
	}
	if err := ix.Store.UpsertSearchEntry(tx, repoID, api.EntityFile, file.ID, sb.String()); err != nil {
		return err
	}
	for i := range symbols {
		text := symbols[i].Name
		if symbols[i].FqName != "" {
			text = symbols[i].FqName
		}
		if symbols[i].Signature != "" {
			text += " " + symbols[i].Signature
		}
		if err := ix.Store.UpsertSearchEntry(tx, repoID, api.EntitySymbol, symbols[i].ID, text); err != nil {
			return err
		}
	}
	return nil
}
