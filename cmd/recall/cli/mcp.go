package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/recall/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve memory tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.rebuild(ctx, nil); err != nil {
			return err
		}

		tools := mcp.NewTools(a.Engine, a.Store, a.Graph, a.Guard, a.Observer)
		a.Observer.Log().Info().Msg("mcp server listening on stdio")
		return mcp.ServeStdio(ctx, mcp.NewServer(tools, version), os.Stdin, os.Stdout)
	},
}

func init() {
	RootCmd.AddCommand(mcpCmd)
}
