// Package realm implements the static realm file subcommands.
package realm

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/httpgate/internal/cli/output"
	"github.com/marmos91/httpgate/internal/cli/prompt"
	"github.com/marmos91/httpgate/pkg/auth"
)

// Cmd is the realm subcommand.
var Cmd = &cobra.Command{
	Use:   "realm",
	Short: "Manage static realm files",
	Long: `Manage the users of a static realm file (static_file auth mode).

A running gate started with watch_config picks up changes without a
restart.

Subcommands:
  add      Add a user
  passwd   Change a user's password
  delete   Delete a user
  list     List users and roles`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(passwdCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(listCmd)
}

// readPassword returns flagValue when set and otherwise prompts twice.
func readPassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, auth.ValidatePassword(flagValue)
	}

	pw, err := prompt.PasswordWithConfirmation("Password", "Confirm password", auth.MinPasswordLength)
	if err != nil {
		return "", handleAbort(err)
	}
	return pw, nil
}

// credential hashes password with bcrypt, or stores it as PLAIN: when
// plain is set.
func credential(password string, plain bool) (string, error) {
	if plain {
		return auth.PrefixPlain + password, nil
	}
	return auth.HashPassword(password)
}

func handleAbort(err error) error {
	if errors.Is(err, prompt.ErrAborted) {
		return fmt.Errorf("aborted")
	}
	return err
}

func success(cmd *cobra.Command, format string, args ...any) {
	output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, false).Success(fmt.Sprintf(format, args...))
}
