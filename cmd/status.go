package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [repo-path]",
	Short: "Show index status and counts for a repository",
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

		_, ret, err := newEngine(st, repoPath)
		if err != nil {
			return err
		}
		status, err := ret.Status(repoPath)
		if err != nil {
			return err
		}
		printJSON(status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
