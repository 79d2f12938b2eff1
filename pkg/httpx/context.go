package httpx

import (
	"context"

	"github.com/crissvargas/realestate/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyToken  ctxKey = "bearer_token"
	CtxKeyClaims ctxKey = "claims"
)

// BearerTokenFromContext returns the raw token accepted by AuthnMiddleware.
func BearerTokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeyToken).(string)
	return v
}

// ClaimsFromContext returns the verified claims, if any.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

func contextWithAuth(ctx context.Context, token string, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyToken, token)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}
