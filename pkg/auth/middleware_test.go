package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/stockroom/pkg/api"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *api.APIError {
	t.Helper()
	var resp api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("error body missing error object")
	}
	return resp.Error
}

func TestMiddleware_BypassEndpoint(t *testing.T) {
	chain := &AuthChain{DefaultDecision: No}
	handler := Middleware(chain, []string{"/healthz"})(okHandler())

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("bypass endpoint: status = %d, want 200", rec.Code)
	}
}

func TestMiddleware_NoCredential_Unauthenticated(t *testing.T) {
	chain := &AuthChain{DefaultDecision: No}
	handler := Middleware(chain, DefaultBypassEndpoints)(okHandler())

	req := httptest.NewRequest("GET", "/inventory", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no auth: status = %d, want 401", rec.Code)
	}
	if got := decodeError(t, rec).Type; got != api.ErrorTypeUnauthenticated {
		t.Errorf("error type = %q, want unauthenticated", got)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate challenge")
	}
}

func TestMiddleware_BadCredential_InvalidCredential(t *testing.T) {
	chain := &AuthChain{
		Authenticators: []Authenticator{
			&mockAuthn{result: AuthResult{Decision: No, Err: fmt.Errorf("%w: signature mismatch", ErrInvalidCredential)}},
		},
		DefaultDecision: No,
	}
	handler := Middleware(chain, DefaultBypassEndpoints)(okHandler())

	req := httptest.NewRequest("GET", "/inventory", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad auth: status = %d, want 401", rec.Code)
	}
	apiErr := decodeError(t, rec)
	if apiErr.Type != api.ErrorTypeInvalidCredential {
		t.Errorf("error type = %q, want invalid_credential", apiErr.Type)
	}
	if apiErr.Message == "" {
		t.Error("error message is empty")
	}
}

func TestMiddleware_ValidAuth_Passes(t *testing.T) {
	chain := &AuthChain{
		Authenticators: []Authenticator{
			&mockAuthn{result: AuthResult{
				Decision: Yes,
				Identity: &Identity{Subject: "alice"},
			}},
		},
		DefaultDecision: No,
	}

	var gotCaller api.Caller
	handler := Middleware(chain, DefaultBypassEndpoints)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCaller = IdentityFromContext(r.Context()).Caller()
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/inventory", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("valid auth: status = %d, want 200", rec.Code)
	}
	if gotCaller.UserID != "alice" {
		t.Errorf("caller = %+v, want alice", gotCaller)
	}
}

func TestMiddleware_EmptySubject_ServerError(t *testing.T) {
	chain := &AuthChain{
		Authenticators: []Authenticator{
			&mockAuthn{result: AuthResult{Decision: Yes, Identity: &Identity{Subject: ""}}},
		},
		DefaultDecision: No,
	}

	called := false
	handler := Middleware(chain, DefaultBypassEndpoints)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("GET", "/inventory", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("empty subject: status = %d, want 500", rec.Code)
	}
	if called {
		t.Error("handler must not run for an identity without subject")
	}
}

func TestMiddleware_DefaultAccept(t *testing.T) {
	chain := &AuthChain{DefaultDecision: Yes}

	var subject string
	handler := Middleware(chain, DefaultBypassEndpoints)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = IdentityFromContext(r.Context()).Subject
	}))

	req := httptest.NewRequest("GET", "/inventory", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if subject != "anonymous" {
		t.Errorf("subject = %q, want anonymous", subject)
	}
}

func TestRejection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want api.ErrorType
	}{
		{"nil", nil, api.ErrorTypeUnauthenticated},
		{"unauthenticated", ErrUnauthenticated, api.ErrorTypeUnauthenticated},
		{"invalid credential", fmt.Errorf("%w: expired", ErrInvalidCredential), api.ErrorTypeInvalidCredential},
		{"other", fmt.Errorf("jwks fetch failed"), api.ErrorTypeInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rejection(tt.err).Type; got != tt.want {
				t.Errorf("rejection(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
