package token

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// UserLifetime is how long an expiring user token stays valid.
const UserLifetime = 24 * time.Hour

// DefaultAlgorithm is the signing algorithm used when none is configured.
const DefaultAlgorithm = "HS256"

// Sentinel errors returned by Decode.
var (
	// ErrInvalidToken covers bad signatures, malformed tokens and expired tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnrecognizedPayloadType is returned when the "type" claim is present
	// but names no known principal kind.
	ErrUnrecognizedPayloadType = errors.New("unrecognized payload type")
)

// Config holds the codec settings.
type Config struct {
	// Secret is the shared HMAC secret (required).
	Secret []byte

	// Algorithm is one of HS256, HS384 or HS512. Default: HS256.
	Algorithm string

	// UserLifetime overrides the lifetime of expiring user tokens. Default: 24h.
	UserLifetime time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Codec encodes and decodes tokens with a process-wide secret.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret   []byte
	method   jwtlib.SigningMethod
	lifetime time.Duration
	now      func() time.Time
}

// New creates a Codec. It fails when the secret is empty or the algorithm
// is not an HMAC algorithm.
func New(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = DefaultAlgorithm
	}
	method, ok := jwtlib.GetSigningMethod(cfg.Algorithm).(*jwtlib.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	if cfg.UserLifetime == 0 {
		cfg.UserLifetime = UserLifetime
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{
		secret:   cfg.Secret,
		method:   method,
		lifetime: cfg.UserLifetime,
		now:      cfg.Now,
	}, nil
}

// Algorithm returns the name of the signing algorithm.
func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// Encode signs the payload's claims.
func (c *Codec) Encode(p Payload) (string, error) {
	if p == nil {
		return "", fmt.Errorf("encoding token: nil payload")
	}
	signed, err := jwtlib.NewWithClaims(c.method, p.claims()).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// MintBackend returns a token identifying the backend. Backend tokens never expire.
func (c *Codec) MintBackend() (string, error) {
	return c.Encode(BackendPayload{})
}

// MintUser returns a token for the given email. Client-facing tokens pass
// expires=true and are valid for the configured lifetime; device tokens pass
// expires=false and carry no exp claim.
func (c *Codec) MintUser(email string, expires bool) (string, error) {
	if email == "" {
		return "", fmt.Errorf("minting user token: empty email")
	}
	p := UserPayload{Email: email}
	if expires {
		exp := c.now().Add(c.lifetime).Unix()
		p.Exp = &exp
	}
	return c.Encode(p)
}

// Decode verifies the signature and, when present, the expiry, then rebuilds
// the payload from its "type" claim.
func (c *Codec) Decode(tokenStr string) (Payload, error) {
	parsed, err := jwtlib.Parse(tokenStr, func(t *jwtlib.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwtlib.WithValidMethods([]string{c.method.Alg()}),
		jwtlib.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	typ, ok := claims["type"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing type claim", ErrInvalidToken)
	}

	switch PayloadType(typ) {
	case TypeBackend:
		return BackendPayload{}, nil
	case TypeUser:
		return userFromClaims(claims)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedPayloadType, typ)
	}
}

func userFromClaims(claims jwtlib.MapClaims) (UserPayload, error) {
	email, _ := claims["email"].(string)
	if email == "" {
		return UserPayload{}, fmt.Errorf("%w: user token without email", ErrInvalidToken)
	}

	p := UserPayload{Email: email}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return UserPayload{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if exp != nil {
		unix := exp.Unix()
		p.Exp = &unix
	}
	return p, nil
}
