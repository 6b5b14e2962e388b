package realm

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magiconair/properties"
)

// ErrUserExists and ErrUserNotFound are returned by the File editing methods.
var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

// File is an editable realm file.
type File struct {
	path  string
	props *properties.Properties
}

// OpenFile loads path for editing. A missing file yields an empty realm.
func OpenFile(path string) (*File, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return &File{path: path, props: properties.NewProperties()}, nil
	}
	p, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &File{path: path, props: p}, nil
}

// Path returns the file location.
func (f *File) Path() string { return f.path }

// Users returns user names in file order.
func (f *File) Users() []string { return f.props.Keys() }

// Get returns the entry for name.
func (f *File) Get(name string) (Entry, bool) {
	v, ok := f.props.Get(name)
	if !ok {
		return Entry{}, false
	}
	e, err := ParseEntry(v)
	if err != nil {
		return Entry{}, false
	}
	return e, true
}

// Add inserts a new user.
func (f *File) Add(name string, e Entry) error {
	if _, ok := f.props.Get(name); ok {
		return fmt.Errorf("%w: %s", ErrUserExists, name)
	}
	return f.set(name, e)
}

// SetCredential replaces the stored credential of an existing user and keeps
// their roles.
func (f *File) SetCredential(name, credential string) error {
	e, ok := f.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	e.Credential = credential
	return f.set(name, e)
}

// Delete removes a user.
func (f *File) Delete(name string) error {
	if _, ok := f.props.Get(name); !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	f.props.Delete(name)
	return nil
}

func (f *File) set(name string, e Entry) error {
	if name == "" {
		return fmt.Errorf("empty user name")
	}
	if _, _, err := f.props.Set(name, FormatEntry(e)); err != nil {
		return fmt.Errorf("failed to set user %s: %w", name, err)
	}
	return nil
}

// Save writes the realm atomically with owner-only permissions. The
// rename is observed by a watching Realm as a single change.
func (f *File) Save() error {
	var buf bytes.Buffer
	if _, err := f.props.WriteComment(&buf, "# ", properties.UTF8); err != nil {
		return fmt.Errorf("failed to encode realm file: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create realm directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".realm-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write realm file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod realm file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
