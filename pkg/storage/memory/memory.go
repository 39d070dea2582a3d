// Package memory provides an in-memory implementation of storage.Directory
// for tests and single-node development deployments. Contents are seeded at
// startup and lost when the process restarts.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rhuss/alertbridge/pkg/storage"
)

// Directory is an in-memory storage.Directory.
type Directory struct {
	mu     sync.RWMutex
	users  map[string]map[string]bool // email -> permission set
	alerts map[string][]string        // alert ID -> recipient emails
}

// Ensure Directory implements storage.Directory at compile time.
var _ storage.Directory = (*Directory)(nil)

// New creates an empty directory.
func New() *Directory {
	return &Directory{
		users:  make(map[string]map[string]bool),
		alerts: make(map[string][]string),
	}
}

// AddUser creates or replaces a user with the given permissions.
func (d *Directory) AddUser(email string, permissions ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	perms := make(map[string]bool, len(permissions))
	for _, p := range permissions {
		perms[p] = true
	}
	d.users[email] = perms
}

// DeleteUser removes a user. Tokens issued to the user remain
// cryptographically valid but no longer pass liveness checks.
func (d *Directory) DeleteUser(email string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, email)
}

// SetAlertRecipients records the recipients of an alert.
func (d *Directory) SetAlertRecipients(alertID string, emails ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts[alertID] = append([]string(nil), emails...)
}

// UserExists reports whether the user is present.
func (d *Directory) UserExists(_ context.Context, email string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.users[email]
	return ok, nil
}

// HasPermission reports whether an existing user holds the permission.
func (d *Directory) HasPermission(_ context.Context, email, permission string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	perms, ok := d.users[email]
	if !ok {
		return false, nil
	}
	return perms[permission], nil
}

// AlertRecipients returns the existing users an alert is addressed to,
// sorted by email. Returns storage.ErrNotFound for unknown alerts.
func (d *Directory) AlertRecipients(_ context.Context, alertID string) ([]storage.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	emails, ok := d.alerts[alertID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	users := make([]storage.User, 0, len(emails))
	for _, e := range emails {
		if _, exists := d.users[e]; exists {
			users = append(users, storage.User{Email: e})
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

// HealthCheck always succeeds.
func (d *Directory) HealthCheck(context.Context) error { return nil }

// Close is a no-op.
func (d *Directory) Close() error { return nil }
