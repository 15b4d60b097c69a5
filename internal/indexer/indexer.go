// Package indexer orchestrates indexing runs: discover → hash → parse →
// diff → persist. Parsing is fanned out across workers; results are applied
// to the store single-writer in sorted path order, one transaction per
// file, so row IDs and edges are reproducible between runs of the same
// input.
package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/codegraph/api"
	"github.com/agentic-research/codegraph/internal/discover"
	"github.com/agentic-research/codegraph/internal/hasher"
	"github.com/agentic-research/codegraph/internal/parser"
	"github.com/agentic-research/codegraph/internal/store"
)

// Index modes.
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
)

var (
	// ErrIndexBusy means another index of the same repo is in flight.
	ErrIndexBusy = errors.New("index already running for repo")
	// ErrUnknownMode is an input error.
	ErrUnknownMode = errors.New("unknown index mode")
)

// Indexer drives indexing runs against one store.
type Indexer struct {
	Store   *store.Store
	FS      billy.Filesystem
	Exclude []string

	lockMu sync.Mutex
	active map[string]bool
}

// New creates an Indexer reading files through fsys.
func New(st *store.Store, fsys billy.Filesystem) *Indexer {
	return &Indexer{
		Store:  st,
		FS:     fsys,
		active: make(map[string]bool),
	}
}

// parsedFile is the output of the parse fan-out for one discovered file.
type parsedFile struct {
	disc    discover.DiscoveredFile
	sha256  string
	result  api.ParseResult
	skip    bool // incremental: content unchanged
	readErr error
}

// Index runs one full or incremental pass over rootPath. It is single-writer
// per repo: a second concurrent call for the same root fails fast with
// ErrIndexBusy. The run is cancellable at file boundaries; work committed
// before cancellation stays durable and is reflected in the summary.
func (ix *Indexer) Index(ctx context.Context, rootPath, mode string) (api.IndexSummary, error) {
	start := time.Now()

	if mode == "" {
		mode = ModeFull
	}
	if mode != ModeFull && mode != ModeIncremental {
		return api.IndexSummary{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	rootPath, err := filepath.Abs(rootPath)
	if err != nil {
		return api.IndexSummary{}, fmt.Errorf("resolve root: %w", err)
	}
	info, err := ix.FS.Stat(rootPath)
	if err != nil {
		return api.IndexSummary{}, fmt.Errorf("stat repo root %s: %w", rootPath, err)
	}
	if !info.IsDir() {
		return api.IndexSummary{}, fmt.Errorf("repo root %s is not a directory", rootPath)
	}

	if !ix.tryLock(rootPath) {
		return api.IndexSummary{}, fmt.Errorf("%w: %s", ErrIndexBusy, rootPath)
	}
	defer ix.unlock(rootPath)

	repo, err := ix.Store.UpsertRepo(rootPath)
	if err != nil {
		return api.IndexSummary{}, err
	}

	summary := api.IndexSummary{
		RunID:    uuid.NewString(),
		RepoID:   repo.ID,
		RootPath: rootPath,
		Mode:     mode,
	}

	discovered, err := discover.Walk(ix.FS, rootPath, ix.Exclude)
	if err != nil {
		return summary, fmt.Errorf("discover %s: %w", rootPath, err)
	}

	existing, err := ix.Store.ListFilesByRepo(repo.ID)
	if err != nil {
		return summary, err
	}
	existingByPath := make(map[string]store.FileRecord, len(existing))
	for _, f := range existing {
		existingByPath[f.Path] = f
	}

	known := make(map[string]bool, len(discovered))
	for _, d := range discovered {
		known[d.Path] = true
	}

	parsed := ix.parseAll(ctx, discovered, existingByPath, mode)

	// Apply in discovery (sorted) order, one transaction per file.
	for _, pf := range parsed {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		if pf.readErr != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %v", pf.disc.Path, pf.readErr))
			summary.FilesSkipped++
			continue
		}
		if pf.skip {
			summary.FilesSkipped++
			continue
		}
		summary.Warnings = append(summary.Warnings, pf.result.Diagnostics...)
		if err := ix.applyFile(repo.ID, pf, known, &summary); err != nil {
			// Transaction failures are fatal; committed files stay durable.
			return summary, err
		}
		summary.FilesIndexed++
	}

	// Reconcile: drop rows for files no longer discovered.
	if !summary.Cancelled {
		for _, f := range existing {
			if known[f.Path] {
				continue
			}
			fileID := f.ID
			if err := ix.Store.WithTx(func(tx *sql.Tx) error {
				return ix.Store.DeleteFileByID(tx, fileID)
			}); err != nil {
				return summary, err
			}
			summary.FilesDeleted++
		}

		if err := ix.refreshModuleSearch(repo.ID); err != nil {
			return summary, err
		}
		if err := ix.Store.FlushRefs(repo.ID); err != nil {
			return summary, err
		}
	}

	if summary.SymbolCount, err = ix.Store.CountSymbolsByRepo(repo.ID); err != nil {
		return summary, err
	}
	if summary.EdgeCount, err = ix.Store.CountEdgesByRepo(repo.ID); err != nil {
		return summary, err
	}
	if summary.ModuleCount, err = ix.Store.CountModulesByRepo(repo.ID); err != nil {
		return summary, err
	}
	summary.DurationMs = time.Since(start).Milliseconds()
	return summary, nil
}

func (ix *Indexer) tryLock(root string) bool {
	ix.lockMu.Lock()
	defer ix.lockMu.Unlock()
	if ix.active[root] {
		return false
	}
	ix.active[root] = true
	return true
}

func (ix *Indexer) unlock(root string) {
	ix.lockMu.Lock()
	delete(ix.active, root)
	ix.lockMu.Unlock()
}

// parseAll hashes and parses every discovered file on a bounded worker
// pool. Parsing is pure, so fan-out order doesn't matter; the results slice
// preserves discovery order for the deterministic apply pass.
func (ix *Indexer) parseAll(ctx context.Context, discovered []discover.DiscoveredFile, existing map[string]store.FileRecord, mode string) []parsedFile {
	parsed := make([]parsedFile, len(discovered))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, d := range discovered {
		g.Go(func() error {
			pf := parsedFile{disc: d}
			data, err := util.ReadFile(ix.FS, d.AbsolutePath)
			if err != nil {
				pf.readErr = fmt.Errorf("read: %w", err)
				parsed[i] = pf
				return nil
			}
			pf.sha256 = hasher.HashBytes(data)

			if mode == ModeIncremental {
				if prev, ok := existing[d.Path]; ok &&
					prev.SHA256 == pf.sha256 &&
					prev.Mtime.Unix() == d.Mtime.Unix() &&
					prev.SizeBytes == d.Size {
					pf.skip = true
					parsed[i] = pf
					return nil
				}
			}

			pf.result = parser.ParseFile(gctx, data, d.Path, d.Lang)
			parsed[i] = pf
			return nil
		})
	}
	// Workers never return errors; per-file failures ride in parsedFile.
	_ = g.Wait()
	return parsed
}

// refreshModuleSearch rewrites the FTS entries for every module row.
func (ix *Indexer) refreshModuleSearch(repoID int64) error {
	return ix.Store.WithTx(func(tx *sql.Tx) error {
		rows, err := tx.Query(`SELECT id, name FROM modules WHERE repo_id = ?`, repoID)
		if err != nil {
			return fmt.Errorf("list modules: %w", err)
		}
		defer func() { _ = rows.Close() }()

		type mod struct {
			id   int64
			name string
		}
		var mods []mod
		for rows.Next() {
			var m mod
			if err := rows.Scan(&m.id, &m.name); err != nil {
				return fmt.Errorf("scan module: %w", err)
			}
			mods = append(mods, m)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		for _, m := range mods {
			if err := ix.Store.UpsertSearchEntry(tx, repoID, api.EntityModule, m.id, m.name); err != nil {
				return err
			}
		}
		return nil
	})
}
