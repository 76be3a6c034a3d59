package httpx

import (
	"net/http"
	"slices"
	"strings"

	"github.com/aussiebroadwan/haulage/pkg/jwtx"
)

// RequireAnyPermission the caller must hold at least one of the provided
// permissions. The wildcard permission satisfies any requirement.
func RequireAnyPermission(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have := permissionsFromCtx(r.Context())

			if slices.Contains(have, jwtx.WildcardPermission) {
				next.ServeHTTP(w, r)
				return
			}
			for _, p := range required {
				if slices.Contains(have, p) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeInsufficientPermission(w, required...)
		})
	}
}

// RequireAllPermissions the caller must hold every permission listed.
func RequireAllPermissions(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have := permissionsFromCtx(r.Context())

			if !slices.Contains(have, jwtx.WildcardPermission) {
				for _, p := range required {
					if !slices.Contains(have, p) {
						writeInsufficientPermission(w, required...)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer insufficient_scope.
func writeInsufficientPermission(w http.ResponseWriter, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":             "insufficient_scope",
		"error_description": "missing permission: " + strings.Join(required, " "),
	})
}
