// Package noop provides a development authenticator that accepts every
// request as a single configured user.
package noop

import (
	"context"
	"net/http"

	"github.com/rhuss/alertbridge/pkg/auth"
)

// Authenticator always returns Yes for the configured email.
type Authenticator struct {
	Email string
}

// Authenticate implements auth.Authenticator.
func (a *Authenticator) Authenticate(_ context.Context, _ *http.Request) auth.AuthResult {
	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: &auth.Identity{Email: a.Email},
	}
}
