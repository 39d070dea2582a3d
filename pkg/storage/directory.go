package storage

import (
	"context"
	"encoding/json"
)

// PermViewAlert is the permission a recipient needs to receive alert data.
const PermViewAlert = "view_alert"

// User is an account known to the backend, identified by its email.
type User struct {
	Email string
}

// UserDirectory answers whether an account still exists. Accounts can be
// deleted after a token was issued, so this is checked on every connect.
type UserDirectory interface {
	UserExists(ctx context.Context, email string) (bool, error)
}

// PermissionChecker answers whether a user holds a named permission.
type PermissionChecker interface {
	HasPermission(ctx context.Context, email, permission string) (bool, error)
}

// RecipientSource resolves the users an alert is addressed to.
type RecipientSource interface {
	AlertRecipients(ctx context.Context, alertID string) ([]User, error)
}

// Directory bundles the collaborators a deployment provides.
type Directory interface {
	UserDirectory
	PermissionChecker
	RecipientSource

	// HealthCheck reports whether the directory can serve requests.
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the directory.
	Close() error
}

// AlertEvent announces that an alert's data should be pushed to its recipients.
type AlertEvent struct {
	AlertID string          `json:"alert_id"`
	Data    json.RawMessage `json:"data"`
}
