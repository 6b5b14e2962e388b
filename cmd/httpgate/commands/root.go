// Package commands implements the httpgate CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/httpgate/cmd/httpgate/commands/config"
	"github.com/marmos91/httpgate/cmd/httpgate/commands/realm"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "httpgate",
	Short: "httpgate - authenticating HTTP front-end",
	Long: `httpgate serves HTTP routes behind a configurable authentication chain:
plain or TLS transport, Basic and form login against a static realm file or
a directory service (LDAP, Kerberos, PAM), inactivity-bounded sessions and
an owner constraint that admits a single principal.

Use "httpgate [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "httpgate %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/httpgate/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(config.Cmd)
	rootCmd.AddCommand(realm.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
