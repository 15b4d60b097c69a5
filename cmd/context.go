package cmd

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentic-research/codegraph/api"
	"github.com/agentic-research/codegraph/internal/retriever"
)

var (
	contextBudget  int
	contextPaths   []string
	contextSymbols []string
	contextLang    string
)

var contextCmd = &cobra.Command{
	Use:   "context [repo-path] [task]",
	Short: "Assemble a budget-bounded context bundle for a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoPath, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		_, ret, err := newEngine(st, repoPath)
		if err != nil {
			return err
		}
		hints := &api.Hints{Paths: contextPaths, Symbols: contextSymbols, Lang: contextLang}
		bundle, err := ret.Retrieve(repoPath, args[1], contextBudget, hints)
		if errors.Is(err, retriever.ErrNotIndexed) {
			printJSON(api.RetrievalError{Error: err.Error(), Suggestion: "repo_index"})
			return nil
		}
		if err != nil {
			return err
		}
		printJSON(bundle)
		return nil
	},
}

func init() {
	contextCmd.Flags().IntVar(&contextBudget, "budget", 0, "token budget (default 8000, clamped to [1000..32000])")
	contextCmd.Flags().StringArrayVar(&contextPaths, "path", nil, "path hint (repeatable)")
	contextCmd.Flags().StringArrayVar(&contextSymbols, "symbol", nil, "symbol hint (repeatable)")
	contextCmd.Flags().StringVar(&contextLang, "lang", "", "language hint")
	rootCmd.AddCommand(contextCmd)
}
