package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	snippetStart int
	snippetEnd   int
)

var snippetCmd = &cobra.Command{
	Use:   "snippet [repo-path] [file-path]",
	Short: "Print a clamped line range from a repo file",
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
		snippet, err := ret.Snippet(repoPath, args[1], snippetStart, snippetEnd)
		if err != nil {
			return err
		}
		printJSON(snippet)
		return nil
	},
}

func init() {
	snippetCmd.Flags().IntVar(&snippetStart, "start", 0, "first line (1-based)")
	snippetCmd.Flags().IntVar(&snippetEnd, "end", 0, "last line (inclusive)")
	rootCmd.AddCommand(snippetCmd)
}
