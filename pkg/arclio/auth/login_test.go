package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/arclio/arclio-login/pkg/arclio/callback"
	"github.com/arclio/arclio-login/pkg/arclio/kinde"
	"github.com/arclio/arclio-login/pkg/system"
)

func newLoginProvider() *fakeProvider {
	return &fakeProvider{
		state:          "st-1",
		nonce:          "n-1",
		callbackQuery:  "code=authz-code-xyz&state=st-1",
		exchangeTokens: &kinde.TokenSet{AccessToken: "at", RefreshToken: "rt", IDToken: "idt", TokenType: "Bearer", ExpiresIn: 3600},
		identity:       &kinde.Identity{Subject: "u1", Email: "a@b.com"},
	}
}

func TestLoginSuccess(t *testing.T) {
	store, clock := newTestStore(t)
	provider := newLoginProvider()
	var out bytes.Buffer
	port := freePort(t)

	flow := &LoginFlow{
		Provider:    provider,
		Store:       store,
		Ports:       []int{port},
		Timeout:     5 * time.Second,
		OpenBrowser: visit,
		Out:         &out,
		Log:         system.NewTestLogger(),
	}
	res, err := flow.Run(context.Background())
	require.NoError(t, err)

	callbackURL := fmt.Sprintf("http://localhost:%d/callback", port)
	assert.Equal(t, []string{"authz-code-xyz"}, provider.exchangeCalls)
	assert.Equal(t, []string{callbackURL, callbackURL}, provider.redirectURIs, "same redirect URI for authorize and exchange")
	assert.Equal(t, 1, provider.userInfoCalls)
	assert.Empty(t, provider.verifyNonces)

	assert.Equal(t, kinde.Identity{Subject: "u1", Email: "a@b.com"}, res.Identity)
	assert.Equal(t, store.Location(), res.Location)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Contains(t, out.String(), "Opening browser for authentication...")
	assert.NotContains(t, out.String(), "Could not open browser")

	creds, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, "at", creds.AccessToken)
	assert.Equal(t, "rt", creds.RefreshToken)
	assert.Equal(t, "idt", creds.IDToken)
	assert.Equal(t, clock.Now().UnixMilli()+3600*1000, creds.ExpiresAt)
	assert.Equal(t, "a@b.com", creds.UserEmail)
	assert.Equal(t, "u1", creds.UserID)

	_, dialErr := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 200*time.Millisecond)
	assert.Error(t, dialErr, "listener closed after login")
}

func TestLoginBrowserFailureFallsBackToURL(t *testing.T) {
	store, _ := newTestStore(t)
	provider := newLoginProvider()
	var out bytes.Buffer

	flow := &LoginFlow{
		Provider: provider,
		Store:    store,
		Ports:    []int{freePort(t)},
		Timeout:  5 * time.Second,
		OpenBrowser: func(url string) error {
			_ = visit(url)
			return errors.New("no display")
		},
		Out: &out,
	}
	_, err := flow.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Could not open browser automatically.")
	assert.Contains(t, out.String(), "Please open this URL: http://localhost:")
	assert.True(t, store.IsAuthenticated())
}

// urlWatcher follows the first URL written to it, standing in for a user who
// copies the printed link into a browser.
type urlWatcher struct {
	bytes.Buffer
	followed bool
}

func (w *urlWatcher) Write(p []byte) (int, error) {
	n, err := w.Buffer.Write(p)
	if !w.followed {
		if url := urlPattern.FindString(string(p)); url != "" {
			w.followed = true
			_ = visit(url)
		}
	}
	return n, err
}

var urlPattern = regexp.MustCompile(`http://localhost:\d+/callback\S*`)

func TestLoginNoBrowser(t *testing.T) {
	store, _ := newTestStore(t)
	provider := newLoginProvider()
	out := &urlWatcher{}

	flow := &LoginFlow{
		Provider:  provider,
		Store:     store,
		Ports:     []int{freePort(t)},
		Timeout:   5 * time.Second,
		NoBrowser: true,
		OpenBrowser: func(string) error {
			t.Error("browser must not be launched")
			return nil
		},
		Out: out,
	}
	_, err := flow.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, out.followed)
	assert.Contains(t, out.String(), "Open this URL in your browser:")
	assert.NotContains(t, out.String(), "Opening browser")
	assert.True(t, store.IsAuthenticated())
}

func TestLoginNotConfigured(t *testing.T) {
	store, _ := newTestStore(t)
	provider := &fakeProvider{unconfigured: true}

	flow := &LoginFlow{Provider: provider, Store: store, OpenBrowser: visit}
	_, err := flow.Run(context.Background())
	require.ErrorIs(t, err, ErrProviderNotConfigured)
	assert.Empty(t, provider.redirectURIs)
}

func TestLoginDenied(t *testing.T) {
	store, _ := newTestStore(t)
	provider := newLoginProvider()
	provider.callbackQuery = "error=access_denied&error_description=User+cancelled"

	flow := &LoginFlow{Provider: provider, Store: store, Ports: []int{freePort(t)}, Timeout: 5 * time.Second, OpenBrowser: visit}
	_, err := flow.Run(context.Background())

	var denied *AuthorizationDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "access_denied", denied.Code)
	assert.Equal(t, "User cancelled", denied.Description)
	assert.EqualError(t, err, "authentication failed: access_denied: User cancelled")
	assert.Empty(t, provider.exchangeCalls)
	assert.False(t, store.IsAuthenticated())
}

func TestLoginStateMismatch(t *testing.T) {
	store, _ := newTestStore(t)
	provider := newLoginProvider()
	provider.callbackQuery = "code=authz-code-xyz&state=forged"

	flow := &LoginFlow{Provider: provider, Store: store, Ports: []int{freePort(t)}, Timeout: 5 * time.Second, OpenBrowser: visit}
	_, err := flow.Run(context.Background())

	var denied *AuthorizationDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, StateMismatch, denied.Code)
	assert.Empty(t, provider.exchangeCalls)
	assert.False(t, store.IsAuthenticated())
}

func TestLoginTimeout(t *testing.T) {
	store, _ := newTestStore(t)
	provider := newLoginProvider()
	port := freePort(t)

	flow := &LoginFlow{
		Provider:    provider,
		Store:       store,
		Ports:       []int{port},
		Timeout:     100 * time.Millisecond,
		OpenBrowser: func(string) error { return nil },
	}
	start := time.Now()
	_, err := flow.Run(context.Background())
	require.ErrorIs(t, err, callback.ErrCallbackTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, provider.exchangeCalls)

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err, "port released after timeout")
	_ = ln.Close()
}

func TestLoginNoAvailablePort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	store, _ := newTestStore(t)
	provider := newLoginProvider()
	flow := &LoginFlow{
		Provider:    provider,
		Store:       store,
		Ports:       []int{ln.Addr().(*net.TCPAddr).Port},
		OpenBrowser: visit,
	}
	_, err = flow.Run(context.Background())
	require.ErrorIs(t, err, callback.ErrNoAvailablePort)
	assert.Empty(t, provider.redirectURIs)
}

func TestLoginExchangeFailure(t *testing.T) {
	store, _ := newTestStore(t)
	provider := newLoginProvider()
	provider.exchangeErr = &kinde.ProviderError{Op: kinde.OpExchange, Message: "invalid_grant", StatusCode: 400}

	flow := &LoginFlow{Provider: provider, Store: store, Ports: []int{freePort(t)}, Timeout: 5 * time.Second, OpenBrowser: visit}
	_, err := flow.Run(context.Background())
	require.ErrorIs(t, err, kinde.ErrTokenExchange)
	assert.Equal(t, 0, provider.userInfoCalls)
	assert.False(t, store.IsAuthenticated())
}

func TestLoginVerifiesIDToken(t *testing.T) {
	store, _ := newTestStore(t)
	provider := newLoginProvider()
	provider.verified = &kinde.Identity{Subject: "u-verified", Email: "v@b.com"}

	flow := &LoginFlow{
		Provider:      provider,
		Store:         store,
		Ports:         []int{freePort(t)},
		Timeout:       5 * time.Second,
		VerifyIDToken: true,
		OpenBrowser:   visit,
	}
	res, err := flow.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-verified", res.Identity.Subject)
	assert.Equal(t, []string{"n-1"}, provider.verifyNonces)
	assert.Equal(t, 0, provider.userInfoCalls)

	creds, _ := store.Load()
	assert.Equal(t, "u-verified", creds.UserID)
}

func TestLoginVerifyIDTokenFailures(t *testing.T) {
	t.Run("missing id token", func(t *testing.T) {
		store, _ := newTestStore(t)
		provider := newLoginProvider()
		provider.exchangeTokens.IDToken = ""

		flow := &LoginFlow{Provider: provider, Store: store, Ports: []int{freePort(t)}, Timeout: 5 * time.Second, VerifyIDToken: true, OpenBrowser: visit}
		_, err := flow.Run(context.Background())
		require.ErrorIs(t, err, kinde.ErrIDTokenVerification)
		assert.False(t, store.IsAuthenticated())
	})

	t.Run("verification error", func(t *testing.T) {
		store, _ := newTestStore(t)
		provider := newLoginProvider()
		provider.verifyErr = fmt.Errorf("%w: nonce mismatch", kinde.ErrIDTokenVerification)

		flow := &LoginFlow{Provider: provider, Store: store, Ports: []int{freePort(t)}, Timeout: 5 * time.Second, VerifyIDToken: true, OpenBrowser: visit}
		_, err := flow.Run(context.Background())
		require.ErrorIs(t, err, kinde.ErrIDTokenVerification)
		assert.False(t, store.IsAuthenticated())
	})
}

func TestLoginContextCancelled(t *testing.T) {
	store, _ := newTestStore(t)
	provider := newLoginProvider()
	ctx, cancel := context.WithCancel(context.Background())

	flow := &LoginFlow{
		Provider: provider,
		Store:    store,
		Ports:    []int{freePort(t)},
		Timeout:  time.Minute,
		OpenBrowser: func(string) error {
			cancel()
			return nil
		},
	}
	_, err := flow.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoginLogsAttemptWithoutSecrets(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	store, _ := newTestStore(t)
	provider := newLoginProvider()

	flow := &LoginFlow{
		Provider:    provider,
		Store:       store,
		Ports:       []int{freePort(t)},
		Timeout:     5 * time.Second,
		OpenBrowser: visit,
		Log:         zap.New(core).Sugar(),
	}
	_, err := flow.Run(context.Background())
	require.NoError(t, err)

	started := recorded.FilterMessage("Login started").All()
	require.Len(t, started, 1)
	attempt, ok := started[0].ContextMap()["attempt"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, attempt)

	for _, entry := range recorded.All() {
		for _, v := range entry.ContextMap() {
			s := fmt.Sprint(v)
			assert.NotContains(t, s, "authz-code-xyz")
			assert.NotEqual(t, "at", s)
			assert.NotEqual(t, "rt", s)
		}
	}
}

func TestBrowserCommand(t *testing.T) {
	cases := map[string][]string{
		"darwin":  {"open", "https://x"},
		"windows": {"rundll32", "url.dll,FileProtocolHandler", "https://x"},
		"linux":   {"xdg-open", "https://x"},
	}
	for goos, want := range cases {
		t.Run(goos, func(t *testing.T) {
			cmd := browserCommand(goos, "https://x")
			require.NotNil(t, cmd)
			assert.Equal(t, want, cmd.Args)
		})
	}
	assert.Nil(t, browserCommand("plan9", "https://x"))
}
