package auth

import (
	"log/slog"
	"net/http"

	"github.com/rhuss/alertbridge/pkg/debug"
	"github.com/rhuss/alertbridge/pkg/observability"
)

// Middleware creates HTTP middleware from an AuthChain and optional
// RateLimiter. Rejections carry empty bodies: 401 when unauthenticated,
// 429 when rate limited.
func Middleware(chain *AuthChain, limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := chain.Authenticate(r.Context(), r)

			if result.Decision != Yes || result.Identity == nil {
				debug.Log("auth", "authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			if result.Identity.Email == "" {
				slog.Error("authenticator returned identity without email")
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			debug.Log("auth", "authentication succeeded",
				"email", result.Identity.Email,
				"path", r.URL.Path,
			)

			if limiter != nil {
				if err := limiter.Allow(r.Context(), result.Identity); err != nil {
					slog.Warn("rate limit exceeded", "email", result.Identity.Email)
					observability.RateLimitRejectedTotal.Inc()
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), result.Identity)))
		})
	}
}
