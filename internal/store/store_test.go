package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/codegraph/api"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mustRepo(t *testing.T, st *Store) Repo {
	t.Helper()
	repo, err := st.UpsertRepo("/tmp/testrepo")
	require.NoError(t, err)
	return repo
}

func mustFile(t *testing.T, st *Store, repoID int64, path string) FileRecord {
	t.Helper()
	var file FileRecord
	require.NoError(t, st.WithTx(func(tx *sql.Tx) error {
		var err error
		file, err = st.UpsertFile(tx, repoID, path, api.LangPython, "abc123", time.Now(), 10)
		return err
	}))
	return file
}

func mustSymbol(t *testing.T, st *Store, repoID, fileID int64, name string) SymbolRecord {
	t.Helper()
	sym := SymbolRecord{
		RepoID: repoID, FileID: fileID, Kind: api.KindFunction,
		Name: name, FqName: name,
		StartLine: 1, EndLine: 2,
	}
	require.NoError(t, st.WithTx(func(tx *sql.Tx) error {
		return st.InsertSymbol(tx, &sym)
	}))
	return sym
}

func mustEdge(t *testing.T, st *Store, repoID int64, srcType string, srcID int64, rel, dstType string, dstID int64) EdgeRecord {
	t.Helper()
	e := EdgeRecord{SrcType: srcType, SrcID: srcID, Rel: rel, DstType: dstType, DstID: dstID, RepoID: repoID}
	require.NoError(t, st.WithTx(func(tx *sql.Tx) error {
		return st.InsertEdge(tx, &e)
	}))
	return e
}

func TestUpsertRepoIdempotent(t *testing.T) {
	st := openTestStore(t)

	first, err := st.UpsertRepo("/tmp/r")
	require.NoError(t, err)
	second, err := st.UpsertRepo("/tmp/r")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	_, err = st.FindRepoByPath("/tmp/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertFileKeyedByRepoAndPath(t *testing.T) {
	st := openTestStore(t)
	repo := mustRepo(t, st)

	first := mustFile(t, st, repo.ID, "src/a.py")
	require.NoError(t, st.WithTx(func(tx *sql.Tx) error {
		second, err := st.UpsertFile(tx, repo.ID, "src/a.py", api.LangPython, "def456", time.Now(), 20)
		if err != nil {
			return err
		}
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "def456", second.SHA256)
		return nil
	}))

	count, err := st.CountFilesByRepo(repo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// Deleting a file must leave zero symbols owned by it and zero edges with
// either endpoint equal to the file or to any of its former symbols.
func TestDeleteFileCascades(t *testing.T) {
	st := openTestStore(t)
	repo := mustRepo(t, st)
	fileA := mustFile(t, st, repo.ID, "a.py")
	fileB := mustFile(t, st, repo.ID, "b.py")
	symA := mustSymbol(t, st, repo.ID, fileA.ID, "funcA")
	symB := mustSymbol(t, st, repo.ID, fileB.ID, "funcB")

	mustEdge(t, st, repo.ID, api.EntityFile, fileA.ID, api.RelDefines, api.EntitySymbol, symA.ID)
	mustEdge(t, st, repo.ID, api.EntityFile, fileB.ID, api.RelReferences, api.EntitySymbol, symA.ID)
	mustEdge(t, st, repo.ID, api.EntitySymbol, symA.ID, api.RelExtends, api.EntitySymbol, symB.ID)
	survivor := mustEdge(t, st, repo.ID, api.EntityFile, fileB.ID, api.RelDefines, api.EntitySymbol, symB.ID)

	require.NoError(t, st.WithTx(func(tx *sql.Tx) error {
		return st.DeleteFileByID(tx, fileA.ID)
	}))

	symbols, err := st.FindSymbolsByFile(repo.ID, fileA.ID)
	require.NoError(t, err)
	assert.Empty(t, symbols)

	edges, err := st.FindEdgesByRel(repo.ID, api.RelDefines)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, survivor.ID, edges[0].ID)

	refs, err := st.FindEdgesByDst(repo.ID, api.EntitySymbol, symA.ID)
	require.NoError(t, err)
	assert.Empty(t, refs)

	_, err = st.FindFileByPath(repo.ID, "a.py")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFqNameConflictDemotes(t *testing.T) {
	st := openTestStore(t)
	repo := mustRepo(t, st)
	fileA := mustFile(t, st, repo.ID, "a.py")
	fileB := mustFile(t, st, repo.ID, "b.py")

	mustSymbol(t, st, repo.ID, fileA.ID, "main")

	dup := SymbolRecord{
		RepoID: repo.ID, FileID: fileB.ID, Kind: api.KindFunction,
		Name: "main", FqName: "main", StartLine: 1, EndLine: 1,
	}
	err := st.WithTx(func(tx *sql.Tx) error {
		return st.InsertSymbol(tx, &dup)
	})
	require.ErrorIs(t, err, ErrFqNameConflict)
}

func TestFindSymbolLookups(t *testing.T) {
	st := openTestStore(t)
	repo := mustRepo(t, st)
	file := mustFile(t, st, repo.ID, "svc.py")

	sym := SymbolRecord{
		RepoID: repo.ID, FileID: file.ID, Kind: api.KindMethod,
		Name: "UserService.login", FqName: "UserService.login",
		StartLine: 10, EndLine: 20,
	}
	require.NoError(t, st.WithTx(func(tx *sql.Tx) error {
		return st.InsertSymbol(tx, &sym)
	}))

	byName, err := st.FindSymbolsByName(repo.ID, "UserService.login")
	require.NoError(t, err)
	require.Len(t, byName, 1)

	byFq, err := st.FindSymbolByFqName(repo.ID, "UserService.login")
	require.NoError(t, err)
	assert.Equal(t, sym.ID, byFq.ID)

	count, err := st.CountSymbolsByRepo(repo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertModuleByName(t *testing.T) {
	st := openTestStore(t)
	repo := mustRepo(t, st)

	var first, second ModuleRecord
	require.NoError(t, st.WithTx(func(tx *sql.Tx) error {
		var err error
		first, err = st.UpsertModule(tx, repo.ID, "lodash", "", "")
		return err
	}))
	require.NoError(t, st.WithTx(func(tx *sql.Tx) error {
		var err error
		second, err = st.UpsertModule(tx, repo.ID, "lodash", "4.17.0", "package.json")
		return err
	}))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "4.17.0", second.Version)

	found, err := st.FindModuleByName(repo.ID, "lodash")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestGetNeighboursDepthZero(t *testing.T) {
	st := openTestStore(t)
	repo := mustRepo(t, st)
	file := mustFile(t, st, repo.ID, "a.py")
	sym := mustSymbol(t, st, repo.ID, file.ID, "f")
	mustEdge(t, st, repo.ID, api.EntityFile, file.ID, api.RelDefines, api.EntitySymbol, sym.ID)

	nb, err := st.GetNeighbours(repo.ID, api.EntityFile, file.ID, 0, DirBoth)
	require.NoError(t, err)
	assert.Equal(t, []GraphRef{{Type: api.EntityFile, ID: file.ID}}, nb.Nodes)
	assert.Empty(t, nb.Edges)
}

func TestGetNeighboursBothIsSuperset(t *testing.T) {
	st := openTestStore(t)
	repo := mustRepo(t, st)
	a := mustFile(t, st, repo.ID, "a.py")
	b := mustFile(t, st, repo.ID, "b.py")
	c := mustFile(t, st, repo.ID, "c.py")
	mustEdge(t, st, repo.ID, api.EntityFile, b.ID, api.RelImports, api.EntityFile, a.ID)
	mustEdge(t, st, repo.ID, api.EntityFile, a.ID, api.RelImports, api.EntityFile, c.ID)

	both, err := st.GetNeighbours(repo.ID, api.EntityFile, a.ID, 2, DirBoth)
	require.NoError(t, err)
	out, err := st.GetNeighbours(repo.ID, api.EntityFile, a.ID, 2, DirOutgoing)
	require.NoError(t, err)
	in, err := st.GetNeighbours(repo.ID, api.EntityFile, a.ID, 2, DirIncoming)
	require.NoError(t, err)

	bothNodes := make(map[GraphRef]bool)
	for _, n := range both.Nodes {
		bothNodes[n] = true
	}
	for _, n := range out.Nodes {
		assert.True(t, bothNodes[n], "outgoing node %v missing from both", n)
	}
	for _, n := range in.Nodes {
		assert.True(t, bothNodes[n], "incoming node %v missing from both", n)
	}

	assert.Equal(t, GraphRef{Type: api.EntityFile, ID: a.ID}, both.Nodes[0], "seed comes first")
}

func TestGetNeighboursCycle(t *testing.T) {
	st := openTestStore(t)
	repo := mustRepo(t, st)
	a := mustFile(t, st, repo.ID, "a.py")
	b := mustFile(t, st, repo.ID, "b.py")
	mustEdge(t, st, repo.ID, api.EntityFile, a.ID, api.RelImports, api.EntityFile, b.ID)
	mustEdge(t, st, repo.ID, api.EntityFile, b.ID, api.RelImports, api.EntityFile, a.ID)

	nb, err := st.GetNeighbours(repo.ID, api.EntityFile, a.ID, 5, DirBoth)
	require.NoError(t, err)
	assert.Len(t, nb.Nodes, 2)
	assert.Len(t, nb.Edges, 2)
}

func TestSearchRankedAndCaseInsensitive(t *testing.T) {
	st := openTestStore(t)
	repo := mustRepo(t, st)

	require.NoError(t, st.WithTx(func(tx *sql.Tx) error {
		if err := st.UpsertSearchEntry(tx, repo.ID, api.EntitySymbol, 1, "UserService login handler"); err != nil {
			return err
		}
		if err := st.UpsertSearchEntry(tx, repo.ID, api.EntitySymbol, 2, "billing invoice generator"); err != nil {
			return err
		}
		return st.UpsertSearchEntry(tx, repo.ID, api.EntityFile, 3, "src/auth/userservice.py UserService")
	}))

	hits, err := st.Search(repo.ID, "userservice", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.NotEqual(t, int64(2), h.EntityID)
	}

	// Punctuation in the query must not produce FTS syntax errors.
	_, err = st.Search(repo.ID, `login("; DROP`, 10)
	assert.NoError(t, err)
}

func TestSearchEntryReplaced(t *testing.T) {
	st := openTestStore(t)
	repo := mustRepo(t, st)

	require.NoError(t, st.WithTx(func(tx *sql.Tx) error {
		return st.UpsertSearchEntry(tx, repo.ID, api.EntityFile, 1, "alpha")
	}))
	require.NoError(t, st.WithTx(func(tx *sql.Tx) error {
		return st.UpsertSearchEntry(tx, repo.ID, api.EntityFile, 1, "beta")
	}))

	hits, err := st.Search(repo.ID, "alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = st.Search(repo.ID, "beta", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestRefsRoundTrip(t *testing.T) {
	st := openTestStore(t)
	repo := mustRepo(t, st)

	st.AddRef("UserService", 1)
	st.AddRef("UserService", 7)
	st.AddRef("helper", 3)
	require.NoError(t, st.FlushRefs(repo.ID))

	files, err := st.FilesReferencing(repo.ID, "UserService")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 7}, files)

	none, err := st.FilesReferencing(repo.ID, "absent")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWithTxRollsBack(t *testing.T) {
	st := openTestStore(t)
	repo := mustRepo(t, st)

	err := st.WithTx(func(tx *sql.Tx) error {
		if _, err := st.UpsertFile(tx, repo.ID, "x.py", api.LangPython, "s", time.Now(), 1); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	count, err := st.CountFilesByRepo(repo.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
