package realm

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/httpgate/internal/cli/prompt"
	"github.com/marmos91/httpgate/pkg/auth/realm"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:     "delete <file> <username>",
	Aliases: []string{"rm", "remove"},
	Short:   "Delete a user",
	Long: `Remove a user from a realm file.

Examples:
  httpgate realm delete realm.properties bob --force`,
	Args: cobra.ExactArgs(2),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	path, username := args[0], args[1]

	f, err := realm.OpenFile(path)
	if err != nil {
		return err
	}
	if _, ok := f.Get(username); !ok {
		return fmt.Errorf("%w: %s", realm.ErrUserNotFound, username)
	}

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete user %q", username), deleteForce)
	if err != nil {
		return handleAbort(err)
	}
	if !ok {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
		return nil
	}

	if err := f.Delete(username); err != nil {
		return err
	}
	if err := f.Save(); err != nil {
		return err
	}

	success(cmd, "User %q deleted", username)
	return nil
}
