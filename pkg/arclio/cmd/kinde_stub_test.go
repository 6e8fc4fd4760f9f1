package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arclio/arclio-login/pkg/arclio/config"
)

// kindeStub serves the token and user profile endpoints.
type kindeStub struct {
	*httptest.Server

	mu       sync.Mutex
	grants   []url.Values
	tokenRes map[string]any
	status   int
}

func newKindeStub(t *testing.T) *kindeStub {
	t.Helper()
	stub := &kindeStub{
		status: http.StatusOK,
		tokenRes: map[string]any{
			"access_token":  "stub-access",
			"refresh_token": "stub-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		stub.mu.Lock()
		stub.grants = append(stub.grants, r.PostForm)
		status, body := stub.status, stub.tokenRes
		stub.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant", "error_description": "refresh token revoked"})
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/oauth2/v2/user_profile", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stub-access", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "kp_123", "email": "a@b.com"})
	})
	stub.Server = httptest.NewServer(mux)
	t.Cleanup(stub.Close)

	t.Setenv(config.EnvKindeDomain, stub.URL)
	t.Setenv(config.EnvKindeClientID, "cid")
	t.Setenv(config.EnvKindeClientSecret, "sec")
	return stub
}

func (s *kindeStub) Grants() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.grants...)
}
