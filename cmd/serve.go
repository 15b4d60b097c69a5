package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/codegraph/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the indexing and retrieval operations over MCP stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		ix, ret, err := newEngine(st, ".")
		if err != nil {
			return err
		}
		return mcpserver.New(ix, ret).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
