package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/haulage/pkg/jwtx"
	"github.com/aussiebroadwan/haulage/pkg/slogx"
)

// Authenticator turns a bearer token into verified claims. Implementations
// decide what "verified" means beyond the signature (e.g. revocation).
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*jwtx.Claims, error)
}

func AuthnMiddleware(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := a.Authenticate(ctx, raw)
			if err != nil {
				writeBearerError(w, "the access token is invalid, expired or revoked")
				log.Debug("bearer authentication failed", "err", err)
				return
			}

			// Inject into context for downstream handlers.
			ctx = contextWithAuth(ctx, claims, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithAuth(ctx context.Context, c *jwtx.Claims, raw string) context.Context {
	ctx = context.WithValue(ctx, CtxKeySubject, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyPermissions, c.Permissions)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	ctx = context.WithValue(ctx, CtxKeyBearer, raw)
	ctx = slogx.WithContext(ctx, slogx.FromContext(ctx).With("sub", c.Subject))
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "invalid_token",
		"error_description": desc,
	})
}
