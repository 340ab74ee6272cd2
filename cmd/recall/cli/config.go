package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/recall/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage stored settings such as API keys and base URLs",
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value (keys ending in .api_key are encrypted)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, vault, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := vault.Set(key, value); err != nil {
			return fmt.Errorf("failed to set config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved: %s\n", key)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value (secrets are masked)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, vault, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		val, err := vault.Display(args[0])
		if err != nil {
			return err
		}
		if val == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "(not set)")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), val)
		}
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the settings file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return printValidation(cmd, cfg)
	},
}

func printValidation(cmd *cobra.Command, cfg *config.Config) error {
	res := cfg.Validate()
	out := cmd.OutOrStdout()
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(out, "error: %s\n", e)
	}
	if !res.Valid {
		return fmt.Errorf("configuration is invalid")
	}
	fmt.Fprintln(out, "Configuration is valid")
	return nil
}

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configValidateCmd)
}
