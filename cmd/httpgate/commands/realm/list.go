package realm

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/httpgate/internal/cli/output"
	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/auth/realm"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:     "list <file>",
	Aliases: []string{"ls"},
	Short:   "List users and roles",
	Long: `List the users of a realm file with their roles and credential kind.
Credentials themselves are never printed.

Examples:
  httpgate realm list realm.properties
  httpgate realm list realm.properties -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listFormat, "output", "o", "table", "Output format (table|json|yaml)")
}

// UserInfo is one row of realm list.
type UserInfo struct {
	Username   string   `json:"username" yaml:"username"`
	Roles      []string `json:"roles" yaml:"roles"`
	Credential string   `json:"credential" yaml:"credential"`
}

// UserList renders as a table.
type UserList []UserInfo

// Headers implements output.TableRenderer.
func (l UserList) Headers() []string {
	return []string{"USERNAME", "ROLES", "CREDENTIAL"}
}

// Rows implements output.TableRenderer.
func (l UserList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, u := range l {
		roles := strings.Join(u.Roles, ",")
		if roles == "" {
			roles = "-"
		}
		rows = append(rows, []string{u.Username, roles, u.Credential})
	}
	return rows
}

// credentialKind names the storage scheme of a credential.
func credentialKind(stored string) string {
	switch {
	case auth.IsBcrypt(stored):
		return "bcrypt"
	case strings.HasPrefix(stored, auth.PrefixMD5):
		return "md5"
	default:
		return "plain"
	}
}

func listUsers(f *realm.File) UserList {
	users := make(UserList, 0)
	for _, name := range f.Users() {
		e, ok := f.Get(name)
		if !ok {
			continue
		}
		users = append(users, UserInfo{Username: name, Roles: e.Roles, Credential: credentialKind(e.Credential)})
	}
	return users
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(listFormat)
	if err != nil {
		return err
	}

	f, err := realm.OpenFile(args[0])
	if err != nil {
		return err
	}

	users := listUsers(f)
	p := output.NewPrinter(cmd.OutOrStdout(), format, false)
	if len(users) == 0 && format == output.FormatTable {
		p.Println("No users")
		return nil
	}
	return p.Print(users)
}
