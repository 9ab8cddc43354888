package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

// mockAuthn is a test authenticator with configurable behavior.
type mockAuthn struct {
	result AuthResult
}

func (m *mockAuthn) Authenticate(_ context.Context, _ *http.Request) AuthResult {
	return m.result
}

func TestAuthChain(t *testing.T) {
	yes := func(sub string) Authenticator {
		return &mockAuthn{result: AuthResult{Decision: Yes, Identity: &Identity{Subject: sub}}}
	}
	no := &mockAuthn{result: AuthResult{Decision: No, Err: ErrInvalidCredential}}
	abstain := &mockAuthn{result: AuthResult{Decision: Abstain}}

	tests := []struct {
		name        string
		authns      []Authenticator
		fallback    AuthDecision
		wantDecide  AuthDecision
		wantSubject string
		wantErr     error
	}{
		{"first yes wins", []Authenticator{yes("alice"), no}, No, Yes, "alice", nil},
		{"first no wins", []Authenticator{no, yes("bob")}, No, No, "", ErrInvalidCredential},
		{"abstain then yes", []Authenticator{abstain, yes("jwt-user")}, No, Yes, "jwt-user", nil},
		{"all abstain rejects", []Authenticator{abstain, abstain}, No, No, "", ErrUnauthenticated},
		{"all abstain accepts", []Authenticator{abstain}, Yes, Yes, "anonymous", nil},
		{"empty chain rejects", nil, No, No, "", ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &AuthChain{Authenticators: tt.authns, DefaultDecision: tt.fallback}
			r, _ := http.NewRequest("GET", "/inventory", nil)

			result := chain.Authenticate(context.Background(), r)
			if result.Decision != tt.wantDecide {
				t.Fatalf("Decision = %d, want %d", result.Decision, tt.wantDecide)
			}
			if tt.wantSubject != "" && result.Identity.Subject != tt.wantSubject {
				t.Errorf("Subject = %q, want %q", result.Identity.Subject, tt.wantSubject)
			}
			if tt.wantErr != nil && !errors.Is(result.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", result.Err, tt.wantErr)
			}
		})
	}
}

func TestIdentity_Caller(t *testing.T) {
	id := &Identity{Subject: "alice"}
	if got := id.Caller(); got.UserID != "alice" {
		t.Errorf("Caller = %+v, want UserID alice", got)
	}

	var nilID *Identity
	if got := nilID.Caller(); got.UserID != "" {
		t.Errorf("Caller on nil = %+v, want zero", got)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		wantOK bool
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"lowercase scheme", "bearer tok", "tok", true},
		{"missing", "", "", false},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", false},
		{"empty token", "Bearer ", "", false},
		{"whitespace token", "Bearer    ", "", false},
		{"scheme only", "Bearer", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest("GET", "/inventory", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, ok := BearerToken(r)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("BearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()

	// No identity set.
	if IdentityFromContext(ctx) != nil {
		t.Error("expected nil identity from empty context")
	}

	// Set and retrieve.
	id := &Identity{Subject: "alice"}
	ctx = WithIdentity(ctx, id)
	got := IdentityFromContext(ctx)
	if got == nil || got.Subject != "alice" {
		t.Errorf("got %v, want alice", got)
	}
}

func TestCallerFromContext(t *testing.T) {
	tests := []struct {
		name   string
		ctx    context.Context
		want   string
		wantOK bool
	}{
		{"no identity", context.Background(), "", false},
		{"empty subject", WithIdentity(context.Background(), &Identity{}), "", false},
		{"subject", WithIdentity(context.Background(), &Identity{Subject: "bob"}), "bob", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := CallerFromContext(tt.ctx)
			if c.UserID != tt.want || ok != tt.wantOK {
				t.Errorf("CallerFromContext() = (%q, %v), want (%q, %v)", c.UserID, ok, tt.want, tt.wantOK)
			}
		})
	}
}
