package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search [repo-path] [query]",
	Short: "Full-text search over indexed files, symbols, and modules",
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
		results, err := ret.Search(repoPath, args[1], searchLimit)
		if err != nil {
			return err
		}
		printJSON(results)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum results")
	rootCmd.AddCommand(searchCmd)
}
