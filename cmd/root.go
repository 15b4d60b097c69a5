// Package cmd wires the indexing and retrieval engine to its two thin
// surfaces: a cobra CLI and an MCP stdio server.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/agentic-research/codegraph/internal/config"
	"github.com/agentic-research/codegraph/internal/indexer"
	"github.com/agentic-research/codegraph/internal/retriever"
	"github.com/agentic-research/codegraph/internal/store"
)

var (
	dbPath     string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "codegraph",
	Short: "Index a source repository into a graph and retrieve task-scoped context",
	Long: `codegraph parses source files into a graph of files, symbols, modules,
and relationships persisted in SQLite, and answers context-retrieval
queries with ranked, budget-bounded bundles.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "path to the index database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to codegraph.hcl (default: <repo>/codegraph.hcl)")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "codegraph.db"
	}
	return filepath.Join(home, ".codegraph", "index.db")
}

// openStore opens the shared store, creating the parent directory.
func openStore() (*store.Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir %s: %w", dir, err)
		}
	}
	return store.Open(dbPath)
}

// newEngine builds the indexer and retriever for one repo, applying its
// config file when present.
func newEngine(st *store.Store, repoPath string) (*indexer.Indexer, *retriever.Retriever, error) {
	cfg, err := config.Load(repoPath, configPath)
	if err != nil {
		return nil, nil, err
	}
	ix := indexer.New(st, osfs.New("/"))
	ix.Exclude = cfg.Index.Exclude
	ret := retriever.New(st)
	ret.MaxSnippetLines = cfg.Retrieval.MaxSnippetLines
	ret.DefaultBudget = cfg.Retrieval.DefaultBudget
	return ix, ret, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) {
	fmt.Println(oj.JSON(v, 2))
}
