package userdir

import (
	"encoding/json"
	"fmt"
	"os"
)

// Directory is an immutable, read-only set of users loaded once at startup.
// It is safe for unlimited concurrent readers.
type Directory struct {
	users map[string]User
	order []string
}

// usersFile matches the shape of the users configuration file:
// {"users": [{"login": ..., "description": ..., "userInfo": {...}}]}
type usersFile struct {
	Users []User `json:"users"`
}

// NewDirectory builds a directory from a list of users.
// A duplicate login is ambiguous and fails the load instead of silently
// shadowing an earlier entry.
func NewDirectory(users []User) (*Directory, error) {
	d := &Directory{
		users: make(map[string]User, len(users)),
		order: make([]string, 0, len(users)),
	}

	for _, u := range users {
		if u.Login == "" {
			return nil, fmt.Errorf("user configuration contains an entry with empty login")
		}
		if _, exists := d.users[u.Login]; exists {
			return nil, ErrDuplicateLogin{Login: u.Login}
		}
		d.users[u.Login] = u
		d.order = append(d.order, u.Login)
	}

	return d, nil
}

// LoadFromFile reads the users configuration file and builds a directory.
func LoadFromFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file %s: %w", path, err)
	}

	var file usersFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse users file %s: %w", path, err)
	}

	return NewDirectory(file.Users)
}

// Lookup returns the user for the given login
func (d *Directory) Lookup(login string) (User, error) {
	u, ok := d.users[login]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// ListAll returns all users in configuration order, for the selection page
func (d *Directory) ListAll() []User {
	all := make([]User, 0, len(d.order))
	for _, login := range d.order {
		all = append(all, d.users[login])
	}
	return all
}

// Len returns the number of configured users
func (d *Directory) Len() int {
	return len(d.order)
}
