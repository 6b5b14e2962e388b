package realm

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/httpgate/pkg/auth/realm"
)

var (
	addPassword string
	addRoles    []string
	addPlain    bool
)

var addCmd = &cobra.Command{
	Use:   "add <file> <username>",
	Short: "Add a user",
	Long: `Add a user to a realm file, creating the file if needed.

The password is bcrypt hashed unless --plain is given. Without --password
you are prompted for it.

Examples:
  # Prompt for the password
  httpgate realm add realm.properties alice --roles admin,user

  # Non-interactive
  httpgate realm add realm.properties bob --password s3cret-pass`,
	Args: cobra.ExactArgs(2),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addPassword, "password", "p", "", "Password (prompts if not provided)")
	addCmd.Flags().StringSliceVar(&addRoles, "roles", nil, "Comma-separated roles")
	addCmd.Flags().BoolVar(&addPlain, "plain", false, "Store the password in clear text (PLAIN:)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	path, username := args[0], strings.TrimSpace(args[1])

	f, err := realm.OpenFile(path)
	if err != nil {
		return err
	}
	if _, exists := f.Get(username); exists {
		return fmt.Errorf("%w: %s", realm.ErrUserExists, username)
	}

	password, err := readPassword(addPassword)
	if err != nil {
		return err
	}
	cred, err := credential(password, addPlain)
	if err != nil {
		return err
	}

	if err := f.Add(username, realm.Entry{Credential: cred, Roles: addRoles}); err != nil {
		return err
	}
	if err := f.Save(); err != nil {
		return err
	}

	success(cmd, "User %q added to %s", username, path)
	return nil
}
