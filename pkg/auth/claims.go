// Package auth extracts caller identity from bearer tokens.
//
// Tokens reaching this service have already been verified by the hosting
// runtime's authorizer, so extraction deliberately performs no signature or
// expiry checks. Nothing here establishes trust; it only reads claims the
// upstream layer vouched for.
package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AnonymousSubject is returned whenever a subject cannot be extracted.
// Substituting it keeps a chat turn alive instead of failing the request
// on a decoding problem.
const AnonymousSubject = "anonymous"

// claimFallbacks are tried in order when the registered subject claim is
// empty. Some identity providers put the stable user identifier elsewhere.
var claimFallbacks = []string{"username", "email", "user_id"}

// SubjectFromToken returns the stable subject identifier carried in the
// token's payload. It never returns an error: any malformed input (wrong
// segment count, bad base64url, invalid claim structure, missing subject)
// yields AnonymousSubject.
func SubjectFromToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return AnonymousSubject
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return AnonymousSubject
	}

	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub
	}

	for _, key := range claimFallbacks {
		if val, ok := claims[key].(string); ok && val != "" {
			return val
		}
	}

	return AnonymousSubject
}

// FromAuthorizationHeader strips the Bearer scheme from an Authorization
// header value. A header without the scheme is treated as a raw token.
func FromAuthorizationHeader(header string) string {
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return header
}
