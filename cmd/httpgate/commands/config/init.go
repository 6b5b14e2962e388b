package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/httpgate/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a configuration file",
	Long: `Write a configuration file with every default filled in.

By default, the file is created at $XDG_CONFIG_HOME/httpgate/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  httpgate config init

  # Initialize with custom path, overwriting an existing file
  httpgate config init --config /etc/httpgate/config.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Choose server.auth.mode and point server.auth.login_config at a realm file or login configuration")
	_, _ = fmt.Fprintln(out, "  2. Set server.tls.keystore to serve HTTPS")
	_, _ = fmt.Fprintf(out, "  3. Start the gate with: httpgate start --config %s\n", configPath)
	return nil
}
