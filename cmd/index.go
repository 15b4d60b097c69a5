package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

var indexMode string

var indexCmd = &cobra.Command{
	Use:   "index [repo-path]",
	Short: "Index a repository (full or incremental)",
	Args:  cobra.ExactArgs(1),
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

		ix, _, err := newEngine(st, repoPath)
		if err != nil {
			return err
		}
		summary, err := ix.Index(cmd.Context(), repoPath, indexMode)
		if err != nil {
			return err
		}
		printJSON(summary)
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexMode, "mode", "full", "index mode: full or incremental")
	rootCmd.AddCommand(indexCmd)
}
