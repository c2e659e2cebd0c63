// Package auth implements bearer-token authentication for the admin API.
// Tokens carry scopes; the legacy single api_key authenticates with the
// wildcard scope.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// Wildcard grants every scope. The legacy api_key principal holds it.
const Wildcard = "*"

// TokenConfig is a bearer token with a set of scopes.
type TokenConfig struct {
	Token  string
	Scopes []string
}

// Principal is an authenticated caller and its granted scopes.
type Principal struct {
	Token  string
	Scopes map[string]struct{}
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ExtractBearerToken pulls the token out of an Authorization: Bearer header.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing Authorization header")
	}

	rest, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", errors.New("invalid Authorization header format")
	}

	token := strings.TrimSpace(rest)
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// Authenticate matches a presented bearer token against configured tokens.
// If legacyAPIKey matches, it authenticates as admin with the wildcard scope.
func Authenticate(presented string, legacyAPIKey string, tokens []TokenConfig) (Principal, bool) {
	if tokenMatch(presented, legacyAPIKey) {
		return grant(presented, []string{Wildcard}), true
	}
	for _, t := range tokens {
		if tokenMatch(presented, t.Token) {
			return grant(presented, t.Scopes), true
		}
	}
	return Principal{}, false
}

// HasAnyScope reports whether p holds at least one of the required scopes.
// The wildcard scope satisfies any requirement.
func HasAnyScope(p Principal, required ...string) bool {
	if len(required) == 0 {
		return true
	}
	if _, ok := p.Scopes[Wildcard]; ok {
		return true
	}
	for _, s := range required {
		if _, ok := p.Scopes[s]; ok {
			return true
		}
	}
	return false
}

// tokenMatch compares tokens in constant time. Empty strings never match,
// so an unset api_key cannot be satisfied by an empty Authorization header.
func tokenMatch(presented, configured string) bool {
	if presented == "" || configured == "" {
		return false
	}
	if len(presented) != len(configured) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}

// readImplied maps write scopes to the read scope they include.
var readImplied = map[string]string{
	"deliveries:rw": "deliveries:ro",
	"events:rw":     "events:ro",
}

func grant(token string, scopes []string) Principal {
	granted := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		granted[s] = struct{}{}
		if ro, ok := readImplied[s]; ok {
			granted[ro] = struct{}{}
		}
	}
	return Principal{Token: token, Scopes: granted}
}
