// Package session authenticates mint requests by a session cookie issued
// by the web application that fronts alertbridge.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rhuss/alertbridge/pkg/auth"
)

// DefaultCookieName is the cookie carrying the session ID.
const DefaultCookieName = "sessionid"

// ErrNotFound is returned by a Store for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session is a logged-in user session.
type Session struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store looks up and manages sessions.
type Store interface {
	Create(ctx context.Context, email string, ttl time.Duration) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// Authenticator resolves the session cookie against a Store.
//
// Decision outcomes:
//   - Abstain: no session cookie on the request
//   - No: cookie present but the session is unknown, expired or the store failed
//   - Yes: session found, identity carries the session's email and ID
type Authenticator struct {
	store      Store
	cookieName string
}

// NewAuthenticator creates a session authenticator. An empty cookieName
// selects DefaultCookieName.
func NewAuthenticator(store Store, cookieName string) *Authenticator {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Authenticator{store: store, cookieName: cookieName}
}

// Authenticate implements auth.Authenticator.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.AuthResult {
	cookie, err := r.Cookie(a.cookieName)
	if err != nil || cookie.Value == "" {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	sess, err := a.store.Get(ctx, cookie.Value)
	if err != nil {
		return auth.AuthResult{
			Decision: auth.No,
			Err:      fmt.Errorf("%w: %w", auth.ErrUnauthenticated, err),
		}
	}

	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: &auth.Identity{Email: sess.Email, SessionID: sess.ID},
	}
}
