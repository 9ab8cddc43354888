package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rhuss/stockroom/pkg/api"
	"github.com/rhuss/stockroom/pkg/debug"
	"github.com/rhuss/stockroom/pkg/observability"
	"github.com/rhuss/stockroom/pkg/transport"
)

// Client-facing messages for rejected requests.
const (
	msgUnauthenticated   = "Authentication required"
	msgInvalidCredential = "Invalid or expired token"
)

// Middleware creates HTTP middleware from an AuthChain. It checks the
// bypass list, runs authentication, and injects the identity into the
// request context. Rejected requests never reach next.
func Middleware(chain *AuthChain, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check bypass list.
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			// Run auth chain.
			result := chain.Authenticate(r.Context(), r)

			if result.Decision != Yes || result.Identity == nil {
				apiErr := rejection(result.Err)
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"reason", apiErr.Type,
					"error", result.Err,
				)
				observability.RecordAuthFailure(string(apiErr.Type))
				transport.WriteAPIError(w, apiErr)
				return
			}

			// Validate identity.
			if result.Identity.Subject == "" {
				slog.Error("authenticator returned identity with empty subject")
				transport.WriteAPIError(w, api.NewServerError("internal authentication error"))
				return
			}

			debug.Log("auth", "authentication succeeded",
				"subject", result.Identity.Subject,
				"path", r.URL.Path,
			)

			ctx := WithIdentity(r.Context(), result.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rejection maps a chain error to the client-facing error.
func rejection(err error) *api.APIError {
	if err == nil || errors.Is(err, ErrUnauthenticated) {
		return api.NewUnauthenticatedError(msgUnauthenticated)
	}
	return api.NewInvalidCredentialError(msgInvalidCredential)
}

// DefaultBypassEndpoints lists endpoints that skip authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics"}
