// Package integration runs end-to-end scenarios against a fully wired
// stockroom server: bearer-token auth, the inventory service, and a
// Redis-backed store, all started in-process.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/rhuss/stockroom/pkg/auth"
	"github.com/rhuss/stockroom/pkg/auth/jwt"
	"github.com/rhuss/stockroom/pkg/inventory"
	"github.com/rhuss/stockroom/pkg/storage"
	"github.com/rhuss/stockroom/pkg/storage/redis"
	transporthttp "github.com/rhuss/stockroom/pkg/transport/http"
)

const testSecret = "integration-secret"

// testEnv holds the shared server for all integration tests.
var testEnv *TestEnvironment

// TestEnvironment holds the stockroom server and its Redis backend.
type TestEnvironment struct {
	Server *httptest.Server
	Redis  *miniredis.Miniredis
}

// TestMain starts Redis and the stockroom server before running tests.
func TestMain(m *testing.M) {
	env, err := setupTestEnvironment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up test environment: %v\n", err)
		os.Exit(1)
	}
	testEnv = env
	code := m.Run()
	testEnv.Teardown()
	os.Exit(code)
}

func setupTestEnvironment() (*TestEnvironment, error) {
	mr, err := miniredis.Run()
	if err != nil {
		return nil, fmt.Errorf("starting miniredis: %w", err)
	}

	rs, err := redis.New(context.Background(), redis.Config{Addr: mr.Addr(), KeyPrefix: "it:"})
	if err != nil {
		mr.Close()
		return nil, fmt.Errorf("creating redis store: %w", err)
	}
	store := storage.WithMetrics("redis", rs)

	svc, err := inventory.New(store, inventory.Config{LowStockThreshold: 10})
	if err != nil {
		mr.Close()
		return nil, fmt.Errorf("creating inventory service: %w", err)
	}

	chain := &auth.AuthChain{
		Authenticators:  []auth.Authenticator{jwt.New(jwt.Config{Secret: testSecret, Issuer: "stockroom-test"})},
		DefaultDecision: auth.No,
	}

	srv := transporthttp.NewServer(svc,
		transporthttp.WithAuth(auth.Middleware(chain, auth.DefaultBypassEndpoints)),
		transporthttp.WithHealthChecker(store),
	)

	return &TestEnvironment{
		Server: httptest.NewServer(srv.Handler()),
		Redis:  mr,
	}, nil
}

// Teardown stops the server and Redis.
func (env *TestEnvironment) Teardown() {
	if env.Server != nil {
		env.Server.Close()
	}
	if env.Redis != nil {
		env.Redis.Close()
	}
}

// BaseURL returns the stockroom server base URL.
func (env *TestEnvironment) BaseURL() string {
	return env.Server.URL
}

// tokenFor signs a bearer token for the given user.
func tokenFor(t *testing.T, user string) string {
	t.Helper()
	tok, err := jwt.Sign(jwt.SignOptions{
		Secret:  testSecret,
		Subject: user,
		Issuer:  "stockroom-test",
		TTL:     time.Hour,
	}, time.Now())
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return tok
}

// --- HTTP helpers ---

// do sends a request with an optional bearer token and JSON body.
func do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, testEnv.BaseURL()+path, reader)
	if err != nil {
		t.Fatalf("creating %s request: %v", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return string(body)
}

// decodeJSON reads the response body and decodes it into the target.
func decodeJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding JSON: %v", err)
	}
}

// expectStatus fails the test when the response status differs.
func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, want, readBody(t, resp))
	}
}
