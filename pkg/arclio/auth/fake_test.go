package auth

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arclio/arclio-login/pkg/arclio/credentials"
	"github.com/arclio/arclio-login/pkg/arclio/kinde"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(t *testing.T) (*credentials.Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	path := filepath.Join(t.TempDir(), "arclio", "credentials.json")
	return credentials.NewFileStore(path, credentials.WithClock(clock.Now)), clock
}

// fakeProvider records calls. callbackQuery, when set, is appended to the
// redirect URI to form the authorization URL, so "visiting" it hits the listener.
type fakeProvider struct {
	mu sync.Mutex

	unconfigured  bool
	state         string
	nonce         string
	callbackQuery string

	exchangeTokens *kinde.TokenSet
	exchangeErr    error
	identity       *kinde.Identity
	userInfoErr    error
	verified       *kinde.Identity
	verifyErr      error
	refreshTokens  *kinde.TokenSet
	refreshErr     error

	exchangeCalls []string
	redirectURIs  []string
	userInfoCalls int
	verifyNonces  []string
	refreshCalls  []string
}

func (p *fakeProvider) IsConfigured() bool { return !p.unconfigured }

func (p *fakeProvider) NewAuthorizationRequest(redirectURI string) (*kinde.AuthorizationRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redirectURIs = append(p.redirectURIs, redirectURI)
	return &kinde.AuthorizationRequest{
		URL:   redirectURI + "?" + p.callbackQuery,
		State: p.state,
		Nonce: p.nonce,
	}, nil
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code, redirectURI string) (*kinde.TokenSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchangeCalls = append(p.exchangeCalls, code)
	p.redirectURIs = append(p.redirectURIs, redirectURI)
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return p.exchangeTokens, nil
}

func (p *fakeProvider) FetchUserInfo(_ context.Context, _ string) (*kinde.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfoCalls++
	if p.userInfoErr != nil {
		return nil, p.userInfoErr
	}
	return p.identity, nil
}

func (p *fakeProvider) VerifyIDToken(_ context.Context, _ string, nonce string) (*kinde.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verifyNonces = append(p.verifyNonces, nonce)
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	return p.verified, nil
}

func (p *fakeProvider) Refresh(_ context.Context, refreshToken string) (*kinde.TokenSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshCalls = append(p.refreshCalls, refreshToken)
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	return p.refreshTokens, nil
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// visit plays the browser: it follows the authorization URL in the background.
func visit(url string) error {
	go func() {
		resp, err := http.Get(strings.Replace(url, "localhost", "127.0.0.1", 1))
		if err == nil {
			_ = resp.Body.Close()
		}
	}()
	return nil
}
