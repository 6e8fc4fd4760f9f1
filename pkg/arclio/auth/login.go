package auth

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arclio/arclio-login/pkg/arclio/callback"
	"github.com/arclio/arclio-login/pkg/arclio/credentials"
	"github.com/arclio/arclio-login/pkg/arclio/kinde"
)

// Provider is the part of the identity provider a login needs.
type Provider interface {
	IsConfigured() bool
	NewAuthorizationRequest(redirectURI string) (*kinde.AuthorizationRequest, error)
	ExchangeCode(ctx context.Context, code, redirectURI string) (*kinde.TokenSet, error)
	FetchUserInfo(ctx context.Context, accessToken string) (*kinde.Identity, error)
	VerifyIDToken(ctx context.Context, rawIDToken, nonce string) (*kinde.Identity, error)
}

var (
	_ Provider  = (*kinde.Client)(nil)
	_ Refresher = (*kinde.Client)(nil)
)

// LoginFlow runs one interactive authorization code login. The zero values of Ports
// and Timeout select callback.DefaultPorts and callback.DefaultTimeout.
type LoginFlow struct {
	Provider Provider
	Store    *credentials.Store

	Ports   []int
	Timeout time.Duration
	// VerifyIDToken checks the id_token signature and nonce and takes the identity
	// from it instead of the user profile endpoint.
	VerifyIDToken bool
	// NoBrowser only prints the authorization URL.
	NoBrowser   bool
	OpenBrowser func(url string) error

	Out io.Writer
	Log *zap.SugaredLogger
}

type LoginResult struct {
	Identity  kinde.Identity
	Location  string
	ExpiresIn int64
}

// Run performs the login and persists the tokens and identity. The callback
// listener is shut down on every return path.
func (f *LoginFlow) Run(ctx context.Context) (*LoginResult, error) {
	if f.Provider == nil || !f.Provider.IsConfigured() {
		return nil, ErrProviderNotConfigured
	}
	out := f.Out
	if out == nil {
		out = io.Discard
	}
	log := f.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log = log.With("attempt", uuid.NewString())

	listener := callback.NewListener(log)
	defer func() {
		if err := listener.Close(); err != nil {
			log.Warnw("Failed to close callback listener", "error", err)
		}
	}()
	port, err := listener.Start(f.Ports)
	if err != nil {
		return nil, err
	}
	redirectURI := listener.CallbackURL()
	log.Debugw("Login started", "port", port, "redirectURI", redirectURI)

	req, err := f.Provider.NewAuthorizationRequest(redirectURI)
	if err != nil {
		return nil, err
	}
	f.present(out, log, req.URL)

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = callback.DefaultTimeout
	}
	_, _ = fmt.Fprintln(out, "Waiting for authentication...")
	res, err := listener.AwaitResult(ctx, timeout)
	if err != nil {
		return nil, err
	}
	if res.Failed() {
		return nil, &AuthorizationDeniedError{Code: res.Error, Description: res.ErrorDescription}
	}
	if res.State != req.State {
		log.Warnw("Callback state mismatch", "statePresent", res.State != "")
		return nil, &AuthorizationDeniedError{
			Code:        StateMismatch,
			Description: "callback state does not match the authorization request",
		}
	}

	tokens, err := f.Provider.ExchangeCode(ctx, res.Code, redirectURI)
	if err != nil {
		return nil, err
	}
	log.Debugw("Authorization code exchanged", "expiresIn", tokens.ExpiresIn, "refreshToken", tokens.RefreshToken != "")

	identity, err := f.identity(ctx, tokens, req.Nonce)
	if err != nil {
		return nil, err
	}

	if err := f.Store.SetTokens(storedTokens(tokens)); err != nil {
		return nil, err
	}
	if err := f.Store.SetUserInfo(identity.Email, identity.Subject); err != nil {
		return nil, err
	}
	log.Debugw("Login complete", "subject", identity.Subject)

	return &LoginResult{
		Identity:  *identity,
		Location:  f.Store.Location(),
		ExpiresIn: tokens.ExpiresIn,
	}, nil
}

// present hands the authorization URL to the user. A browser that cannot be
// launched only means the URL is printed.
func (f *LoginFlow) present(out io.Writer, log *zap.SugaredLogger, authURL string) {
	if f.NoBrowser {
		_, _ = fmt.Fprintf(out, "Open this URL in your browser:\n%s\n", authURL)
		return
	}
	open := f.OpenBrowser
	if open == nil {
		open = OpenBrowser
	}
	_, _ = fmt.Fprintln(out, "Opening browser for authentication...")
	if err := open(authURL); err != nil {
		log.Debugw("Browser launch failed", "error", err)
		_, _ = fmt.Fprintf(out, "\nCould not open browser automatically.\nPlease open this URL: %s\n", authURL)
	}
}

func (f *LoginFlow) identity(ctx context.Context, tokens *kinde.TokenSet, nonce string) (*kinde.Identity, error) {
	if f.VerifyIDToken {
		if tokens.IDToken == "" {
			return nil, fmt.Errorf("%w: token response has no id_token", kinde.ErrIDTokenVerification)
		}
		return f.Provider.VerifyIDToken(ctx, tokens.IDToken, nonce)
	}
	return f.Provider.FetchUserInfo(ctx, tokens.AccessToken)
}
