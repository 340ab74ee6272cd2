package cli

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	rememberTitle    string
	rememberContent  string
	rememberKeywords []string
	searchK          int
)

var rememberCmd = &cobra.Command{
	Use:   "remember",
	Short: "Store a memory directly, without asking the model",
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

		if v := a.Guard.CheckEntry(rememberTitle, rememberContent); v != nil {
			return v
		}
		keywords := a.Guard.FilterKeywords(rememberKeywords)

		entry, err := a.Engine.Ingest(ctx, rememberTitle, rememberContent, keywords)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Remembered %q at position %d\n", entry.Title, entry.VectorPosition)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "List the memories most similar to a query",
	Args:  cobra.MinimumNArgs(1),
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

		entries, err := a.Engine.Retrieve(ctx, strings.Join(args, " "), searchK)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No memories found")
			return nil
		}
		for i, e := range entries {
			title := e.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(out, "%d. %s: %s", i+1, title, e.Content)
			if len(e.Keywords) > 0 {
				fmt.Fprintf(out, " [%s]", strings.Join(e.Keywords, ", "))
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the note/keyword graph as JSON elements",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, d *storeDeps) error {
			g, err := d.graph.Build(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(g.Elements())
		})
	},
}

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "List every keyword in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, d *storeDeps) error {
			keywords, err := d.store.ListAllKeywords(ctx)
			if err != nil {
				return err
			}
			for _, k := range keywords {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		})
	},
}

func init() {
	RootCmd.AddCommand(rememberCmd, searchCmd, graphCmd, keywordsCmd)

	rememberCmd.Flags().StringVarP(&rememberTitle, "title", "t", "", "Unique title for the memory")
	rememberCmd.Flags().StringVar(&rememberContent, "content", "", "The fact to remember")
	rememberCmd.Flags().StringSliceVarP(&rememberKeywords, "keywords", "k", nil, "Comma separated keywords")
	_ = rememberCmd.MarkFlagRequired("content")

	searchCmd.Flags().IntVarP(&searchK, "top", "k", 5, "Maximum number of memories to list")
}
