// Package realm implements the static-file credential backend.
//
// The realm file uses the Jetty HashLoginService format, one user per line:
//
//	# comment
//	alice: $2b$10$...,admin,user
//	bob: MD5:5f4dcc3b5aa765d61d8327deb882cf99
//	carol: PLAIN:changeit,user
//
// The credential table is replaced atomically on Reload so concurrent
// Authenticate calls see either the old or the new table, never a mix.
package realm

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/magiconair/properties"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/config"
)

// BackendName is reported by Realm.Name.
const BackendName = "static_file"

// Entry is one user line of a realm file.
type Entry struct {
	Credential string
	Roles      []string
}

// Realm is a credential backend over a realm file.
type Realm struct {
	path string

	mu    sync.RWMutex
	users map[string]Entry

	watchMu sync.Mutex
	watch   *watcher
}

// Load reads the realm file at path. A missing path is reported as
// ErrMissingLoginConfig, an unreadable file as ErrInvalidLoginConfig.
func Load(path string) (*Realm, error) {
	if strings.TrimSpace(path) == "" {
		return nil, config.ConfigErrorf(config.ErrMissingLoginConfig, "static_file mode requires a realm file")
	}

	users, err := readEntries(path)
	if err != nil {
		return nil, config.NewConfigError(config.ErrInvalidLoginConfig, err)
	}

	r := &Realm{path: path, users: users}
	logger.Info("Loaded realm file", logger.File(path), "users", len(users))
	return r, nil
}

// Name implements auth.Backend.
func (r *Realm) Name() string { return BackendName }

// Path returns the realm file location.
func (r *Realm) Path() string { return r.path }

// Authenticate implements auth.Backend. Unknown users cost the same bcrypt
// comparison as known ones.
func (r *Realm) Authenticate(ctx context.Context, username, password string) (*auth.Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", auth.ErrAuthFailed, err)
	}

	r.mu.RLock()
	entry, ok := r.users[username]
	r.mu.RUnlock()

	if !ok {
		auth.BurnPasswordCheck(password)
		return nil, fmt.Errorf("%w: unknown user", auth.ErrAuthFailed)
	}
	if !auth.VerifyPassword(password, entry.Credential) {
		return nil, fmt.Errorf("%w: password mismatch", auth.ErrAuthFailed)
	}

	return &auth.Principal{
		Name:    username,
		Roles:   append([]string(nil), entry.Roles...),
		Backend: BackendName,
	}, nil
}

// Reload re-reads the realm file. On error the current table is kept.
func (r *Realm) Reload() error {
	users, err := readEntries(r.path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.users = users
	r.mu.Unlock()

	logger.Info("Reloaded realm file", logger.File(r.path), "users", len(users))
	return nil
}

// Users returns the sorted user names.
func (r *Realm) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.users))
	for name := range r.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops the file watcher, if running.
func (r *Realm) Close() error {
	r.watchMu.Lock()
	w := r.watch
	r.watch = nil
	r.watchMu.Unlock()

	if w != nil {
		return w.close()
	}
	return nil
}

func readEntries(path string) (map[string]Entry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("realm file: %w", err)
	}

	p, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	users := make(map[string]Entry, p.Len())
	for _, name := range p.Keys() {
		value, _ := p.Get(name)
		entry, err := ParseEntry(value)
		if err != nil {
			return nil, fmt.Errorf("realm file %s: user %q: %w", path, name, err)
		}
		if auth.IsPlaintext(entry.Credential) {
			logger.Warn("Realm file stores a plaintext password", logger.File(path), logger.Username(name))
		}
		users[name] = entry
	}
	return users, nil
}

// ReadFile parses a realm file without property expansion, so "${" in a
// password is taken literally.
func ReadFile(path string) (*properties.Properties, error) {
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse realm file %s: %w", path, err)
	}
	return p, nil
}

// ParseEntry splits "credential[,role...]".
func ParseEntry(value string) (Entry, error) {
	parts := strings.Split(value, ",")
	cred := strings.TrimSpace(parts[0])
	if cred == "" {
		return Entry{}, fmt.Errorf("empty credential")
	}

	var roles []string
	for _, r := range parts[1:] {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return Entry{Credential: cred, Roles: roles}, nil
}

// FormatEntry is the inverse of ParseEntry.
func FormatEntry(e Entry) string {
	return strings.Join(append([]string{e.Credential}, e.Roles...), ",")
}
