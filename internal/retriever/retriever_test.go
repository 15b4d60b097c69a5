package retriever

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/codegraph/api"
	"github.com/agentic-research/codegraph/internal/hasher"
	"github.com/agentic-research/codegraph/internal/indexer"
	"github.com/agentic-research/codegraph/internal/store"
)

func newTestEngine(t *testing.T) (*store.Store, *indexer.Indexer, *Retriever) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st, indexer.New(st, osfs.New("/")), New(st)
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

func indexRepo(t *testing.T, ix *indexer.Indexer, root string) api.IndexSummary {
	t.Helper()
	summary, err := ix.Index(context.Background(), root, indexer.ModeFull)
	require.NoError(t, err)
	return summary
}

func TestClampBudget(t *testing.T) {
	assert.Equal(t, DefaultBudget, ClampBudget(0))
	assert.Equal(t, MinBudget, ClampBudget(5))
	assert.Equal(t, MaxBudget, ClampBudget(1_000_000))
	assert.Equal(t, 9000, ClampBudget(9000))
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("Fix the UserService.login() bug in auth, ASAP!")
	assert.Equal(t, []string{"fix", "the", "userservice", "login", "bug", "auth", "asap"}, tokens)
}

func TestRetrieveNotIndexed(t *testing.T) {
	_, _, ret := newTestEngine(t)
	_, err := ret.Retrieve("/does/not/exist", "anything", 0, nil)
	assert.ErrorIs(t, err, ErrNotIndexed)
}

func TestStatusLifecycle(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.py": "def f(): pass\n",
		"b.ts": "export class B {}\n",
	})
	_, ix, ret := newTestEngine(t)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	status, err := ret.Status(abs)
	require.NoError(t, err)
	assert.Equal(t, "not_indexed", status.Status)

	summary := indexRepo(t, ix, root)

	status, err = ret.Status(abs)
	require.NoError(t, err)
	assert.Equal(t, "indexed", status.Status)
	assert.Equal(t, summary.RepoID, status.RepoID)
	require.NotNil(t, status.FileCounts)
	assert.Equal(t, 2, status.FileCounts.Total)
	assert.Equal(t, 1, status.FileCounts.ByLang[api.LangPython])
	assert.Equal(t, 1, status.FileCounts.ByLang[api.LangTypeScript])
	assert.Equal(t, summary.SymbolCount, status.SymbolCount)
	assert.Equal(t, summary.EdgeCount, status.EdgeCount)
	require.NotNil(t, status.LastIndexedAt)
}

// A snippet request far past the end of the file clamps to the last line.
func TestSnippetClampsPastEOF(t *testing.T) {
	content := strings.Repeat("line\n", 49) + "line"
	root := writeRepo(t, map[string]string{"f.py": content})
	_, _, ret := newTestEngine(t)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	snip, err := ret.Snippet(abs, "f.py", 1000, 2000)
	require.NoError(t, err)
	assert.Equal(t, 50, snip.StartLine)
	assert.Equal(t, 50, snip.EndLine)
	assert.Equal(t, 50, snip.TotalLines)
}

func TestSnippetCappedAt500Lines(t *testing.T) {
	content := strings.TrimSuffix(strings.Repeat("x\n", 800), "\n")
	root := writeRepo(t, map[string]string{"big.py": content})
	_, _, ret := newTestEngine(t)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	snip, err := ret.Snippet(abs, "big.py", 1, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, snip.StartLine, 1)
	assert.LessOrEqual(t, snip.EndLine, snip.TotalLines)
	assert.LessOrEqual(t, snip.EndLine-snip.StartLine+1, 500)
}

func TestSnippetRejectsTraversal(t *testing.T) {
	root := writeRepo(t, map[string]string{"f.py": "x = 1\n"})
	_, _, ret := newTestEngine(t)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	_, err = ret.Snippet(abs, "../../etc/passwd", 1, 10)
	assert.Error(t, err)
}

func TestSearchOperation(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"auth.py": "class LoginHandler:\n    def authenticate(self): pass\n",
	})
	_, ix, ret := newTestEngine(t)
	indexRepo(t, ix, root)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	results, err := ret.Search(abs, "authenticate", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, results)

	_, err = ret.Search("/not/indexed", "x", 10)
	assert.ErrorIs(t, err, ErrNotIndexed)
}

func TestRetrieveWithHints(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"svc.py": "class UserService:\n    def login(self): pass\n    def logout(self): pass\n",
		"db.py":  "def connect(): pass\n",
	})
	_, ix, ret := newTestEngine(t)
	indexRepo(t, ix, root)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	bundle, err := ret.Retrieve(abs, "fix the login flow", 0, &api.Hints{
		Symbols: []string{"UserService"},
		Paths:   []string{"db.py"},
	})
	require.NoError(t, err)

	assert.Equal(t, abs, bundle.Repo.Root)
	assert.Nil(t, bundle.Repo.Rev)
	assert.Equal(t, "fix the login flow", bundle.Intent)
	assert.Equal(t, DefaultBudget, bundle.Limits.Budget)

	reasons := make(map[string]bool)
	for _, f := range bundle.Focus {
		reasons[f.Reason] = true
	}
	assert.True(t, reasons["hint:symbol:UserService"], "focus: %+v", bundle.Focus)
	assert.True(t, reasons["hint:path:db.py"])

	require.NotEmpty(t, bundle.Snippets)
	for _, snip := range bundle.Snippets {
		assert.Equal(t, hasher.HashString(snip.Text), snip.SHA256)
		assert.GreaterOrEqual(t, snip.StartLine, 1)
		assert.LessOrEqual(t, snip.StartLine, snip.EndLine)
	}

	assert.NotEmpty(t, bundle.Subgraph.Nodes)
	assert.LessOrEqual(t, len(bundle.Subgraph.Nodes), 128)
	assert.LessOrEqual(t, len(bundle.Subgraph.Edges), 256)
	assert.LessOrEqual(t, bundle.Limits.UsedEstimate, bundle.Limits.Budget)
}

func TestRetrieveFTSSeeding(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"billing.py": "class InvoiceGenerator:\n    def render(self): pass\n",
		"other.py":   "def unrelated(): pass\n",
	})
	_, ix, ret := newTestEngine(t)
	indexRepo(t, ix, root)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	bundle, err := ret.Retrieve(abs, "generate the invoice output", 0, nil)
	require.NoError(t, err)
	require.NotEmpty(t, bundle.Focus)
	assert.True(t, strings.HasPrefix(bundle.Focus[0].Reason, "fts:"), bundle.Focus[0].Reason)
}

// A symbol hint also pulls in the files that reference the name, through
// the cross-reference index.
func TestRetrieveHintSeedsReferencingFiles(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.py": "def helper(): pass\n",
		"b.py": "from a import helper\n\ndef caller(): pass\n",
	})
	_, ix, ret := newTestEngine(t)
	indexRepo(t, ix, root)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	bundle, err := ret.Retrieve(abs, "", 0, &api.Hints{Symbols: []string{"helper"}})
	require.NoError(t, err)

	foundRef := false
	for _, f := range bundle.Focus {
		if f.Reason == "ref:helper" {
			foundRef = true
			assert.Equal(t, api.EntityFile, f.EntityType)
			assert.Equal(t, "b.py", f.Path)
		}
	}
	assert.True(t, foundRef, "focus: %+v", bundle.Focus)
}

// When full-text search finds nothing, the task's case-preserved tokens
// fall back to the cross-reference index.
func TestRetrieveRefFallbackWhenFTSMisses(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.ts": "export class A {}\n",
		"b.ts": "import {Gadget} from \"./a\";\n",
	})
	_, ix, ret := newTestEngine(t)
	indexRepo(t, ix, root)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	bundle, err := ret.Retrieve(abs, "where does Gadget come from", 0, nil)
	require.NoError(t, err)

	foundRef := false
	for _, f := range bundle.Focus {
		if f.Reason == "ref:Gadget" {
			foundRef = true
			assert.Equal(t, "b.ts", f.Path)
		}
	}
	assert.True(t, foundRef, "focus: %+v", bundle.Focus)
}

func TestRetrieveUsesConfiguredDefaultBudget(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": "def f(): pass\n"})
	_, ix, ret := newTestEngine(t)
	indexRepo(t, ix, root)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	ret.DefaultBudget = 12000
	bundle, err := ret.Retrieve(abs, "anything", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 12000, bundle.Limits.Budget)

	// An explicit budget still wins over the configured default.
	bundle, err = ret.Retrieve(abs, "anything", 2000, nil)
	require.NoError(t, err)
	assert.Equal(t, 2000, bundle.Limits.Budget)
}

func TestRetrieveBudgetLimitsSnippets(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("class Big:\n")
	for i := 0; i < 600; i++ {
		sb.WriteString("    def method_with_a_rather_long_name_")
		sb.WriteString(strings.Repeat("x", 40))
		sb.WriteString("(self): pass\n")
	}
	root := writeRepo(t, map[string]string{"big.py": sb.String()})
	_, ix, ret := newTestEngine(t)
	indexRepo(t, ix, root)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	bundle, err := ret.Retrieve(abs, "method name big", MinBudget, nil)
	require.NoError(t, err)
	assert.Equal(t, MinBudget, bundle.Limits.Budget)
}
