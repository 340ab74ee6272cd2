package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/recall/internal/ui/tui"
)

var interactive bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the agent; facts you share are remembered",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if interactive {
			return runTUI(cmd.Context(), a)
		}

		if err := a.rebuild(cmd.Context(), nil); err != nil {
			return err
		}
		return runREPL(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runREPL answers one prompt per input line until EOF or "exit".
func runREPL(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		prompt := strings.TrimSpace(scanner.Text())
		switch prompt {
		case "":
			fmt.Fprint(out, "> ")
			continue
		case "exit", "quit":
			printStats(out, a)
			return nil
		}

		turn, err := a.Agent.Process(ctx, prompt)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		} else {
			fmt.Fprintln(out, turn.Reply)
			if turn.MemoryAdded {
				fmt.Fprintln(out, "(memory updated)")
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "> ")
	}
	printStats(out, a)
	return scanner.Err()
}

func printStats(out io.Writer, a *app) {
	st := a.Agent.Stats()
	fmt.Fprintf(out, "\n%d turns, %d memories stored, %d tokens\n",
		st.Turns, st.MemoriesStored, st.TotalPromptTokens+st.TotalOutputTokens)
}

func runTUI(ctx context.Context, a *app) error {
	respond := func(prompt string) (tui.Reply, error) {
		turn, err := a.Agent.Process(ctx, prompt)
		if err != nil {
			return tui.Reply{}, err
		}
		return tui.Reply{Text: turn.Reply, Remembered: turn.MemoryAdded}, nil
	}

	model := tui.NewModel("recall", respond)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	u := tui.NewTUI(program)
	a.Agent.SetUI(u)

	go func() {
		if err := a.rebuild(ctx, u); err != nil {
			u.Log(err.Error())
		}
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui failed: %w", err)
	}
	return nil
}

func init() {
	RootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Start interactive TUI")
}
