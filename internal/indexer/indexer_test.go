package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/codegraph/api"
	"github.com/agentic-research/codegraph/internal/store"
)

func newTestIndexer(t *testing.T) (*store.Store, *Indexer) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st, New(st, osfs.New("/"))
}

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func edgeSet(t *testing.T, st *store.Store, repoID int64, rel string) []store.EdgeRecord {
	t.Helper()
	edges, err := st.FindEdgesByRel(repoID, rel)
	require.NoError(t, err)
	return edges
}

// Parsing a single class with three methods, persisting, and reading back
// yields four symbols, one DEFINES edge per symbol, and one EXPORTS edge to
// the class.
func TestIndexClassRoundTrip(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"c.py": "class C:\n    def m1(self): pass\n    def m2(self): pass\n    def m3(self): pass\n",
	})
	st, ix := newTestIndexer(t)

	summary, err := ix.Index(context.Background(), root, ModeFull)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesIndexed)

	file, err := st.FindFileByPath(summary.RepoID, "c.py")
	require.NoError(t, err)
	symbols, err := st.FindSymbolsByFile(summary.RepoID, file.ID)
	require.NoError(t, err)

	fqNames := make(map[string]bool)
	for _, s := range symbols {
		fqNames[s.FqName] = true
	}
	assert.Equal(t, map[string]bool{"C": true, "C.m1": true, "C.m2": true, "C.m3": true}, fqNames)

	defines := edgeSet(t, st, summary.RepoID, api.RelDefines)
	assert.Len(t, defines, 4)

	exports := edgeSet(t, st, summary.RepoID, api.RelExports)
	require.Len(t, exports, 1)
	assert.Equal(t, file.ID, exports[0].SrcID)
}

// Indexing a two-file TypeScript repo produces the full edge complement:
// EXPORTS a.ts→A, IMPORTS b.ts→a.ts, REFERENCES b.ts→A, EXTENDS B→A.
func TestIndexTwoFileTypeScript(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.ts": "export class A {}\n",
		"b.ts": "import {A} from \"./a\";\nexport class B extends A {}\n",
	})
	st, ix := newTestIndexer(t)

	summary, err := ix.Index(context.Background(), root, ModeFull)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.FilesIndexed)

	fileA, err := st.FindFileByPath(summary.RepoID, "a.ts")
	require.NoError(t, err)
	fileB, err := st.FindFileByPath(summary.RepoID, "b.ts")
	require.NoError(t, err)

	symsA, err := st.FindSymbolsByName(summary.RepoID, "A")
	require.NoError(t, err)
	require.Len(t, symsA, 1)
	symsB, err := st.FindSymbolsByName(summary.RepoID, "B")
	require.NoError(t, err)
	require.Len(t, symsB, 1)

	exports := edgeSet(t, st, summary.RepoID, api.RelExports)
	foundExportA := false
	for _, e := range exports {
		if e.SrcID == fileA.ID && e.DstID == symsA[0].ID {
			foundExportA = true
		}
	}
	assert.True(t, foundExportA, "missing EXPORTS a.ts→A")

	imports := edgeSet(t, st, summary.RepoID, api.RelImports)
	require.Len(t, imports, 1)
	assert.Equal(t, fileB.ID, imports[0].SrcID)
	assert.Equal(t, fileA.ID, imports[0].DstID)
	assert.Equal(t, api.EntityFile, imports[0].DstType)

	references := edgeSet(t, st, summary.RepoID, api.RelReferences)
	require.Len(t, references, 1)
	assert.Equal(t, fileB.ID, references[0].SrcID)
	assert.Equal(t, symsA[0].ID, references[0].DstID)

	extends := edgeSet(t, st, summary.RepoID, api.RelExtends)
	require.Len(t, extends, 1)
	assert.Equal(t, symsB[0].ID, extends[0].SrcID)
	assert.Equal(t, symsA[0].ID, extends[0].DstID)
}

// Re-running incrementally on an unchanged tree indexes nothing, skips
// every file, and leaves IDs unchanged.
func TestIncrementalUnchangedTree(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.py": "def f(): pass\n",
		"b.py": "def g(): pass\n",
	})
	st, ix := newTestIndexer(t)

	first, err := ix.Index(context.Background(), root, ModeFull)
	require.NoError(t, err)
	filesBefore, err := st.ListFilesByRepo(first.RepoID)
	require.NoError(t, err)

	second, err := ix.Index(context.Background(), root, ModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, 0, second.FilesIndexed)
	assert.Equal(t, 2, second.FilesSkipped)

	filesAfter, err := st.ListFilesByRepo(first.RepoID)
	require.NoError(t, err)
	require.Equal(t, len(filesBefore), len(filesAfter))
	for i := range filesBefore {
		assert.Equal(t, filesBefore[i].ID, filesAfter[i].ID)
	}
}

func TestIncrementalReindexesChangedFile(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": "def f(): pass\n"})
	st, ix := newTestIndexer(t)

	first, err := ix.Index(context.Background(), root, ModeFull)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("def f(): pass\ndef h(): pass\n"), 0o644))

	second, err := ix.Index(context.Background(), root, ModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, 1, second.FilesIndexed)

	syms, err := st.FindSymbolsByName(first.RepoID, "h")
	require.NoError(t, err)
	assert.Len(t, syms, 1)
}

func TestIndexRemovesVanishedFiles(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"keep.py": "def f(): pass\n",
		"gone.py": "def g(): pass\n",
	})
	st, ix := newTestIndexer(t)

	first, err := ix.Index(context.Background(), root, ModeFull)
	require.NoError(t, err)
	assert.Equal(t, 2, first.FilesIndexed)

	require.NoError(t, os.Remove(filepath.Join(root, "gone.py")))

	second, err := ix.Index(context.Background(), root, ModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, 1, second.FilesDeleted)

	_, err = st.FindFileByPath(first.RepoID, "gone.py")
	assert.ErrorIs(t, err, store.ErrNotFound)

	syms, err := st.FindSymbolsByName(first.RepoID, "g")
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestIndexUnresolvedImportCreatesModule(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"app.py": "import requests\n\ndef fetch(): pass\n",
	})
	st, ix := newTestIndexer(t)

	summary, err := ix.Index(context.Background(), root, ModeFull)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ModuleCount)

	mod, err := st.FindModuleByName(summary.RepoID, "requests")
	require.NoError(t, err)

	imports := edgeSet(t, st, summary.RepoID, api.RelImports)
	require.Len(t, imports, 1)
	assert.Equal(t, api.EntityModule, imports[0].DstType)
	assert.Equal(t, mod.ID, imports[0].DstID)
}

func TestIndexTestFileHeuristic(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.ts":      "export class A {}\n",
		"a.test.ts": "import {A} from \"./a\";\n",
	})
	st, ix := newTestIndexer(t)

	summary, err := ix.Index(context.Background(), root, ModeFull)
	require.NoError(t, err)

	testFile, err := st.FindFileByPath(summary.RepoID, "a.test.ts")
	require.NoError(t, err)
	target, err := st.FindFileByPath(summary.RepoID, "a.ts")
	require.NoError(t, err)

	tests := edgeSet(t, st, summary.RepoID, api.RelTests)
	require.Len(t, tests, 1)
	assert.Equal(t, testFile.ID, tests[0].SrcID)
	assert.Equal(t, target.ID, tests[0].DstID)
}

func TestIndexUnknownModeIsInputError(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": "def f(): pass\n"})
	_, ix := newTestIndexer(t)

	_, err := ix.Index(context.Background(), root, "turbo")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestIndexBusy(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": "def f(): pass\n"})
	_, ix := newTestIndexer(t)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)
	require.True(t, ix.tryLock(abs))
	defer ix.unlock(abs)

	_, err = ix.Index(context.Background(), root, ModeFull)
	assert.ErrorIs(t, err, ErrIndexBusy)
}

func TestIndexCancelledBeforeApply(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": "def f(): pass\n"})
	_, ix := newTestIndexer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := ix.Index(ctx, root, ModeFull)
	require.NoError(t, err)
	assert.True(t, summary.Cancelled)
	assert.Zero(t, summary.FilesIndexed)
}

func TestIndexMalformedFileDoesNotAbortRun(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"good.py": "def f(): pass\n",
		"bad.py":  "def broken(:\n   ???\n",
	})
	st, ix := newTestIndexer(t)

	summary, err := ix.Index(context.Background(), root, ModeFull)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.FilesIndexed)

	syms, err := st.FindSymbolsByName(summary.RepoID, "f")
	require.NoError(t, err)
	assert.Len(t, syms, 1)
}

func TestIndexDeterministicIDs(t *testing.T) {
	files := map[string]string{
		"z.py": "def zf(): pass\n",
		"a.py": "def af(): pass\n",
		"m.py": "def mf(): pass\n",
	}

	rootA := writeRepo(t, files)
	stA, ixA := newTestIndexer(t)
	sumA, err := ixA.Index(context.Background(), rootA, ModeFull)
	require.NoError(t, err)

	rootB := writeRepo(t, files)
	stB, ixB := newTestIndexer(t)
	sumB, err := ixB.Index(context.Background(), rootB, ModeFull)
	require.NoError(t, err)

	filesA, err := stA.ListFilesByRepo(sumA.RepoID)
	require.NoError(t, err)
	filesB, err := stB.ListFilesByRepo(sumB.RepoID)
	require.NoError(t, err)
	require.Equal(t, len(filesA), len(filesB))
	for i := range filesA {
		assert.Equal(t, filesA[i].Path, filesB[i].Path)
		assert.Equal(t, filesA[i].ID, filesB[i].ID)
	}
}
