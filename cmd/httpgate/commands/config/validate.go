package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/httpgate/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the httpgate configuration file.

Checks for syntax errors, invalid values and the startup rules of the
request pipeline (login configuration, owner, keystore password).

Examples:
  # Validate default config
  httpgate config validate

  # Validate specific config file
  httpgate config validate --config /etc/httpgate/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if cfg.Server.Auth.Mode.Enabled() && cfg.Server.TLS.KeystorePath == "" {
		warnings = append(warnings, "credentials will be sent over plaintext HTTP (no keystore configured)")
	}
	if cfg.Server.Auth.Mode.Enabled() && cfg.Server.Auth.SessionTimeoutMinutes == 0 {
		warnings = append(warnings, "sessions never expire (session_timeout is 0)")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Listen:          %s://%s%s\n", cfg.Server.Scheme(), cfg.Server.Address(), cfg.Server.ContextPath)
	_, _ = fmt.Fprintf(out, "  Auth mode:       %s\n", cfg.Server.Auth.Mode)
	_, _ = fmt.Fprintf(out, "  Form auth:       %t\n", cfg.Server.Auth.FormAuth)
	_, _ = fmt.Fprintf(out, "  Session store:   %s\n", cfg.Server.Auth.SessionStore.Type)
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	return nil
}
