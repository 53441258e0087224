package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/orcidhub/orcidhub/internal/config"
)

var (
	configInitForce bool
	configInitLocal bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the orcidhub configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Write a commented default config file",
	Long: `Write the default configuration. The file goes to PATH when given,
to .orcidhub/config.yaml with --local, and to ~/.config/orcidhub/config.yaml
otherwise. An existing file is kept unless --force is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configInitCmd.Flags().BoolVar(&configInitLocal, "local", false, "write .orcidhub/config.yaml in the current directory")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := configInitPath(args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.WriteDefaultConfig(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func configInitPath(args []string) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case configInitLocal:
		return localConfigPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".config", "orcidhub", "config.yaml"), nil
}
