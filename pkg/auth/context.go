package auth

import "context"

type contextKey struct{ name string }

var tokenKey = contextKey{"bearer-token"}

// ContextWithToken stores the caller's bearer token for downstream calls.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the bearer token stored by ContextWithToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
