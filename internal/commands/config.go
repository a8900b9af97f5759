package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/gnomegl/wagroups/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var forceInit bool

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	initConfigCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE:  runInitConfig,
	}
	initConfigCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing config file")

	showConfigCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runShowConfig,
	}

	configCmd.AddCommand(initConfigCmd, showConfigCmd)
	rootCmd.AddCommand(configCmd)
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := configPath()

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error checking config file: %w", err)
	}

	if err := config.Save(config.Default(), path); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
	return nil
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", configPath(), data)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "\n# warning: %v\n", err)
	}
	return nil
}
