package realm

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/httpgate/pkg/auth/realm"
)

var (
	passwdPassword string
	passwdPlain    bool
)

var passwdCmd = &cobra.Command{
	Use:     "passwd <file> <username>",
	Aliases: []string{"password"},
	Short:   "Change a user's password",
	Long: `Replace the stored credential of an existing user. Roles are kept.

Examples:
  httpgate realm passwd realm.properties alice`,
	Args: cobra.ExactArgs(2),
	RunE: runPasswd,
}

func init() {
	passwdCmd.Flags().StringVarP(&passwdPassword, "password", "p", "", "New password (prompts if not provided)")
	passwdCmd.Flags().BoolVar(&passwdPlain, "plain", false, "Store the password in clear text (PLAIN:)")
}

func runPasswd(cmd *cobra.Command, args []string) error {
	path, username := args[0], args[1]

	f, err := realm.OpenFile(path)
	if err != nil {
		return err
	}
	if _, ok := f.Get(username); !ok {
		return fmt.Errorf("%w: %s", realm.ErrUserNotFound, username)
	}

	password, err := readPassword(passwdPassword)
	if err != nil {
		return err
	}
	cred, err := credential(password, passwdPlain)
	if err != nil {
		return err
	}

	if err := f.SetCredential(username, cred); err != nil {
		return err
	}
	if err := f.Save(); err != nil {
		return err
	}

	success(cmd, "Password changed for %q", username)
	return nil
}
