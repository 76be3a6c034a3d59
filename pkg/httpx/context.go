package httpx

import (
	"context"

	"github.com/aussiebroadwan/haulage/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeySubject     ctxKey = "subject"
	CtxKeyPermissions ctxKey = "permissions"
	CtxKeyClaims      ctxKey = "claims"
	CtxKeyBearer      ctxKey = "bearer"
)

// SubjectFromContext returns the authenticated subject id, or "".
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(CtxKeySubject).(string)
	return s
}

// ClaimsFromContext returns the verified access claims, if any.
func ClaimsFromContext(ctx context.Context) (*jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(*jwtx.Claims)
	return c, ok
}

// BearerFromContext returns the raw bearer token the request was
// authenticated with. Logout needs it to blacklist the token.
func BearerFromContext(ctx context.Context) string {
	s, _ := ctx.Value(CtxKeyBearer).(string)
	return s
}

func permissionsFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyPermissions).([]string); ok {
		return v
	}
	return nil
}
