package cli

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/recall/internal/server"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat and graph endpoints over HTTP",
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

		addr := a.Config.Listen
		if listenAddr != "" {
			addr = listenAddr
		}
		srv := server.New(a.Agent, a.Graph, a.Store, a.Engine, a.Observer)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (default from config, 127.0.0.1:5000)")
}
