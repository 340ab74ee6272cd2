package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath   string
	verbose      bool
	jsonLogs     bool
	providerType string
	modelName    string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Conversational agent with long-term semantic memory",
	Long: `Recall answers your messages with the help of an LLM and remembers the
facts you share. Memories are stored in SQLite, indexed by embedding and
linked to keywords you can browse as a graph.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.yaml, .yml or .json)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "Log as JSON")
	RootCmd.PersistentFlags().StringVarP(&providerType, "provider", "p", "", "Chat provider (openai, ollama, gemini, anthropic, stub, cli:<binary>)")
	RootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "", "Chat model (default depends on provider)")
}
