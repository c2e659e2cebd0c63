package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	token, err := ExtractBearerToken(req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token != "test-token" {
		t.Fatalf("expected token %q, got %q", "test-token", token)
	}

	req2 := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
	if _, err := ExtractBearerToken(req2); err == nil {
		t.Fatalf("expected error for missing header")
	}

	req3 := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
	req3.Header.Set("Authorization", "Basic abc")
	if _, err := ExtractBearerToken(req3); err == nil {
		t.Fatalf("expected error for non-bearer header")
	}

	req4 := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
	req4.Header.Set("Authorization", "Bearer   ")
	if _, err := ExtractBearerToken(req4); err == nil {
		t.Fatalf("expected error for empty bearer token")
	}
}

func TestAuthenticateLegacyKey(t *testing.T) {
	t.Parallel()

	p, ok := Authenticate("admin-key", "admin-key", nil)
	if !ok {
		t.Fatalf("expected legacy key to authenticate")
	}
	if _, hasAll := p.Scopes["*"]; !hasAll {
		t.Fatalf("expected legacy key to grant wildcard scope, got %v", p.Scopes)
	}
}

func TestAuthenticateScopedToken(t *testing.T) {
	t.Parallel()

	tokens := []TokenConfig{
		{Token: "reader", Scopes: []string{"deliveries:ro"}},
		{Token: "writer", Scopes: []string{" deliveries:rw ", ""}},
	}

	p, ok := Authenticate("reader", "", tokens)
	if !ok {
		t.Fatalf("expected reader token to authenticate")
	}
	if _, has := p.Scopes["deliveries:ro"]; !has {
		t.Fatalf("expected deliveries:ro scope, got %v", p.Scopes)
	}
	if _, has := p.Scopes["*"]; has {
		t.Fatalf("scoped token must not grant wildcard")
	}

	// Write implies read; blank entries are dropped.
	p, ok = Authenticate("writer", "", tokens)
	if !ok {
		t.Fatalf("expected writer token to authenticate")
	}
	if _, has := p.Scopes["deliveries:rw"]; !has {
		t.Fatalf("expected deliveries:rw scope, got %v", p.Scopes)
	}
	if _, has := p.Scopes["deliveries:ro"]; !has {
		t.Fatalf("expected deliveries:rw to imply deliveries:ro, got %v", p.Scopes)
	}
	if _, has := p.Scopes[""]; has {
		t.Fatalf("blank scope must be dropped")
	}
}

func TestAuthenticateRejects(t *testing.T) {
	t.Parallel()

	tokens := []TokenConfig{{Token: "reader", Scopes: []string{"deliveries:ro"}}}

	if _, ok := Authenticate("wrong", "admin-key", tokens); ok {
		t.Fatalf("expected unknown token to be rejected")
	}
	if _, ok := Authenticate("", "", tokens); ok {
		t.Fatalf("expected empty token to be rejected")
	}
	// Empty legacy key must never match an empty presented token.
	if _, ok := Authenticate("", "", nil); ok {
		t.Fatalf("expected empty presented token to be rejected with empty config")
	}
}

func TestHasAnyScope(t *testing.T) {
	t.Parallel()

	admin := Principal{Scopes: map[string]struct{}{"*": {}}}
	reader := Principal{Scopes: map[string]struct{}{"events:ro": {}}}

	if !HasAnyScope(admin, "deliveries:ro") {
		t.Fatalf("wildcard must satisfy any scope")
	}
	if !HasAnyScope(reader, "deliveries:ro", "events:ro") {
		t.Fatalf("expected events:ro to satisfy requirement list")
	}
	if HasAnyScope(reader, "deliveries:ro") {
		t.Fatalf("expected missing scope to be rejected")
	}
	if !HasAnyScope(reader) {
		t.Fatalf("empty requirement list must pass")
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
	ctx := WithPrincipal(req.Context(), Principal{Token: "tok"})

	p, ok := PrincipalFromContext(ctx)
	if !ok {
		t.Fatalf("expected principal in context")
	}
	if p.Token != "tok" {
		t.Fatalf("expected token %q, got %q", "tok", p.Token)
	}

	if _, ok := PrincipalFromContext(req.Context()); ok {
		t.Fatalf("expected no principal in fresh context")
	}
}
