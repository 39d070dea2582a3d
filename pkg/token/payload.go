package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// PayloadType is the discriminant carried in the "type" claim.
type PayloadType string

const (
	// TypeBackend identifies the process that publishes into the broker.
	TypeBackend PayloadType = "backend"

	// TypeUser identifies a front-end client or an IoT device.
	TypeUser PayloadType = "user"
)

// Payload is the decoded content of a token. It is implemented only by
// BackendPayload and UserPayload; callers switch on the concrete type.
type Payload interface {
	Type() PayloadType

	claims() jwtlib.MapClaims
}

// BackendPayload represents the backend itself. It is always fully trusted.
type BackendPayload struct{}

// Type returns TypeBackend.
func (BackendPayload) Type() PayloadType { return TypeBackend }

func (BackendPayload) claims() jwtlib.MapClaims {
	return jwtlib.MapClaims{"type": string(TypeBackend)}
}

// UserPayload represents an end-user or device, identified by email.
type UserPayload struct {
	Email string

	// Exp is the absolute expiry in seconds since the epoch. Nil means the
	// token never expires, which is how device tokens are issued.
	Exp *int64
}

// Type returns TypeUser.
func (UserPayload) Type() PayloadType { return TypeUser }

// Expires reports whether the payload carries an expiry.
func (p UserPayload) Expires() bool { return p.Exp != nil }

// ExpiresAt returns the expiry as a time, or the zero time when the payload
// never expires.
func (p UserPayload) ExpiresAt() time.Time {
	if p.Exp == nil {
		return time.Time{}
	}
	return time.Unix(*p.Exp, 0)
}

func (p UserPayload) claims() jwtlib.MapClaims {
	c := jwtlib.MapClaims{
		"type":  string(TypeUser),
		"email": p.Email,
	}
	// A missing exp claim means "never expires"; it is never encoded as null.
	if p.Exp != nil {
		c["exp"] = *p.Exp
	}
	return c
}
