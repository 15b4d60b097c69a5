package mcpserver

import (
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/codegraph/internal/indexer"
	"github.com/agentic-research/codegraph/internal/retriever"
	"github.com/agentic-research/codegraph/internal/store"
)

func TestNewRegistersTools(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srv := New(indexer.New(st, osfs.New("/")), retriever.New(st))
	require.NotNil(t, srv)
	require.NotNil(t, srv.mcp)
}
