package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/haulage/pkg/httpx"
	"github.com/aussiebroadwan/haulage/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator map[string]*jwtx.Claims

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*jwtx.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("nope")
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("outer"), mw("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestAuthnMiddleware(t *testing.T) {
	claims := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "01JSUB"},
		Permissions:      []string{"orders:read"},
	}
	auth := stubAuthenticator{"good": claims}

	var seen *jwtx.Claims
	var bearer, subject string
	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httpx.ClaimsFromContext(r.Context())
		bearer = httpx.BearerFromContext(r.Context())
		subject = httpx.SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}), httpx.AuthnMiddleware(auth))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("rejected token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepted token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Same(t, claims, seen)
		require.Equal(t, "good", bearer)
		require.Equal(t, "01JSUB", subject)
	})
}

func TestRequirePermissions(t *testing.T) {
	auth := stubAuthenticator{
		"buyer": {Permissions: []string{"orders:read", "orders:create"}},
		"admin": {Permissions: []string{jwtx.WildcardPermission}},
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	call := func(h http.Handler, token string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	anyOf := httpx.Chain(ok, httpx.AuthnMiddleware(auth), httpx.RequireAnyPermission("sessions:revoke", "orders:read"))
	require.Equal(t, http.StatusOK, call(anyOf, "buyer"))
	require.Equal(t, http.StatusOK, call(anyOf, "admin"))

	allOf := httpx.Chain(ok, httpx.AuthnMiddleware(auth), httpx.RequireAllPermissions("orders:read", "sessions:revoke"))
	require.Equal(t, http.StatusForbidden, call(allOf, "buyer"))
	require.Equal(t, http.StatusOK, call(allOf, "admin"))
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Email string `json:"email"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@x.com"}`))
	require.NoError(t, httpx.DecodeJSON(req, &dst))
	require.Equal(t, "a@x.com", dst.Email)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@x.com","admin":true}`))
	require.Error(t, httpx.DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a"}{"email":"b"}`))
	require.Error(t, httpx.DecodeJSON(req, &dst))
}
