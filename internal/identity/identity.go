package identity

import (
	"github.com/Christina1281995/tema-emotions/internal/config"
)

// User is a configured labeler identity.
type User struct {
	Name        string
	DatasetPath string
}

// Directory resolves usernames against the configured labeler list.
type Directory struct {
	users map[string]User
}

// NewDirectory builds a directory from the configured user entries.
func NewDirectory(entries []config.UserEntry) *Directory {
	users := make(map[string]User, len(entries))
	for _, e := range entries {
		users[e.Name] = User{Name: e.Name, DatasetPath: e.Dataset}
	}
	return &Directory{users: users}
}

// Lookup resolves a username to a known labeler.
func (d *Directory) Lookup(username string) (User, bool) {
	u, ok := d.users[username]
	return u, ok
}
