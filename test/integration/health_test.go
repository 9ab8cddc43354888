package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestHealthEndpointNoAuth(t *testing.T) {
	for _, path := range []string{"/healthz", "/readyz"} {
		resp := do(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestReadyzFollowsRedis(t *testing.T) {
	testEnv.Redis.SetError("connection refused")
	defer testEnv.Redis.SetError("")

	resp := do(t, http.MethodGet, "/readyz", "", nil)
	expectStatus(t, resp, http.StatusServiceUnavailable)

	body := readBody(t, resp)
	if !strings.Contains(body, "transient") {
		t.Errorf("body = %q, want transient error", body)
	}
}
