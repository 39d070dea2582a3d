// Package http serves the alertbridge HTTP surface: the decision endpoints
// called by the MQTT broker's JWT auth plugin, the client-facing token mint
// endpoint, and health, readiness and metrics endpoints.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rhuss/alertbridge/pkg/acl"
	"github.com/rhuss/alertbridge/pkg/auth"
	"github.com/rhuss/alertbridge/pkg/debug"
	"github.com/rhuss/alertbridge/pkg/observability"
	"github.com/rhuss/alertbridge/pkg/storage"
	"github.com/rhuss/alertbridge/pkg/token"
)

// Decision outcomes used as metric labels.
const (
	outcomeAllow      = "allow"
	outcomeDeny       = "deny"
	outcomeBadRequest = "bad_request"
)

// TokenCodec decodes broker-presented tokens and mints user tokens.
// *token.Codec satisfies it.
type TokenCodec interface {
	Decode(tokenStr string) (token.Payload, error)
	MintUser(email string, expires bool) (string, error)
}

// Gateway implements the decision and mint handlers. Decision responses
// carry no body: 200 allows, 403 denies, 400 marks a request that never
// reached a decision.
type Gateway struct {
	codec       TokenCodec
	users       storage.UserDirectory
	maxBodySize int64
	logger      *slog.Logger
}

// NewGateway creates a Gateway. A nil logger selects slog.Default().
func NewGateway(codec TokenCodec, users storage.UserDirectory, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		codec:       codec,
		users:       users,
		maxBodySize: 64 << 10,
		logger:      logger,
	}
}

// bearerToken returns the second space-separated field of the
// Authorization header, so "Bearer <token>" and "JWT <token>" both work.
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// decodeRequestToken extracts and decodes the presented token. On failure
// it answers 400 and returns false.
func (g *Gateway) decodeRequestToken(w http.ResponseWriter, r *http.Request, endpoint string) (token.Payload, bool) {
	raw, ok := bearerToken(r)
	if !ok {
		debug.Log("gateway", "missing or malformed authorization header", "endpoint", endpoint)
		g.respond(w, endpoint, outcomeBadRequest)
		return nil, false
	}

	payload, err := g.codec.Decode(raw)
	if err != nil {
		debug.Log("gateway", "token rejected",
			"endpoint", endpoint,
			"token", debug.TokenHint("gateway", raw),
			"error", err,
		)
		g.respond(w, endpoint, outcomeBadRequest)
		return nil, false
	}
	return payload, true
}

func (g *Gateway) respond(w http.ResponseWriter, endpoint, outcome string) {
	observability.AuthDecisionsTotal.WithLabelValues(endpoint, outcome).Inc()
	switch outcome {
	case outcomeAllow:
		w.WriteHeader(http.StatusOK)
	case outcomeDeny:
		w.WriteHeader(http.StatusForbidden)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func allowIf(ok bool) string {
	if ok {
		return outcomeAllow
	}
	return outcomeDeny
}

// HandleUser answers whether the presented principal still exists. The
// backend always exists. A user exists while the directory still knows
// its email; directory failures deny.
func (g *Gateway) HandleUser(w http.ResponseWriter, r *http.Request) {
	payload, ok := g.decodeRequestToken(w, r, "user")
	if !ok {
		return
	}

	switch p := payload.(type) {
	case token.BackendPayload:
		g.respond(w, "user", outcomeAllow)
	case token.UserPayload:
		exists, err := g.users.UserExists(r.Context(), p.Email)
		if err != nil {
			g.logger.Error("user lookup failed", "email", p.Email, "error", err)
			g.respond(w, "user", outcomeDeny)
			return
		}
		debug.Log("gateway", "user lookup", "email", p.Email, "exists", exists)
		g.respond(w, "user", allowIf(exists))
	default:
		g.respond(w, "user", outcomeDeny)
	}
}

// HandleSuperuser allows the backend and denies every user.
func (g *Gateway) HandleSuperuser(w http.ResponseWriter, r *http.Request) {
	payload, ok := g.decodeRequestToken(w, r, "superuser")
	if !ok {
		return
	}

	_, isBackend := payload.(token.BackendPayload)
	g.respond(w, "superuser", allowIf(isBackend))
}

// HandleACL answers whether the principal may perform the requested
// operation on a topic. The backend is allowed before the body is read.
func (g *Gateway) HandleACL(w http.ResponseWriter, r *http.Request) {
	payload, ok := g.decodeRequestToken(w, r, "acl")
	if !ok {
		return
	}

	switch p := payload.(type) {
	case token.BackendPayload:
		g.respond(w, "acl", outcomeAllow)
	case token.UserPayload:
		req, err := acl.ParseAccessRequest(http.MaxBytesReader(w, r.Body, g.maxBodySize))
		if err != nil {
			debug.Log("gateway", "malformed access request", "error", err)
			g.respond(w, "acl", outcomeBadRequest)
			return
		}
		granted := acl.Grant(p, req)
		debug.Log("gateway", "acl decision",
			"email", p.Email,
			"topic", req.Topic,
			"acc", req.Acc.String(),
			"clientid", req.ClientID,
			"granted", granted,
		)
		g.respond(w, "acl", allowIf(granted))
	default:
		g.respond(w, "acl", outcomeDeny)
	}
}

// mintResponse is the body of a successful mint call.
type mintResponse struct {
	JWT string `json:"jwt"`
}

// HandleMint issues an expiring user token for the authenticated session
// user. It must run behind auth.Middleware.
func (g *Gateway) HandleMint(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFrom(r.Context())
	if id == nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	tok, err := g.codec.MintUser(id.Email, true)
	if err != nil {
		g.logger.Error("minting user token failed", "email", id.Email, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	observability.TokensMintedTotal.WithLabelValues("user").Inc()
	debug.Log("gateway", "user token minted", "email", id.Email, "session_id", id.SessionID)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(mintResponse{JWT: tok}); err != nil {
		g.logger.Warn("writing mint response failed", "error", err)
	}
}
