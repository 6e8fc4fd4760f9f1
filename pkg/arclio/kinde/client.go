package kinde

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	authPath        = "/oauth2/auth"
	tokenPath       = "/oauth2/token"
	userProfilePath = "/oauth2/v2/user_profile"

	// stateBytes is the entropy of the state and nonce parameters.
	stateBytes = 32
)

// Scopes requested on every login; "offline" asks Kinde for a refresh token.
var Scopes = []string{"openid", "profile", "email", "offline"}

type Config struct {
	Domain       string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	Logger       *zap.SugaredLogger
}

// Client talks to a single Kinde business domain. It holds no per-login state.
type Client struct {
	domain       string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	rest         *resty.Client
	log          *zap.SugaredLogger
	now          func() time.Time
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	domain := strings.TrimRight(cfg.Domain, "/")
	return &Client{
		domain:       domain,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   httpClient,
		rest: resty.NewWithClient(httpClient).
			SetBaseURL(domain).
			SetHeader("Accept", "application/json").
			SetLogger(log),
		log: log,
		now: time.Now,
	}
}

// IsConfigured reports whether domain, client id and client secret are all set.
func (c *Client) IsConfigured() bool {
	return c.domain != "" && c.clientID != "" && c.clientSecret != ""
}

func (c *Client) Domain() string {
	return c.domain
}

func (c *Client) oauthConfig(redirectURI string) oauth2.Config {
	return oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.domain + authPath,
			TokenURL:  c.domain + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURI,
		Scopes:      Scopes,
	}
}

func (c *Client) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// NewAuthorizationRequest builds the authorize URL with a fresh state and nonce.
func (c *Client) NewAuthorizationRequest(redirectURI string) (*AuthorizationRequest, error) {
	state, err := randomToken(stateBytes)
	if err != nil {
		return nil, err
	}
	nonce, err := randomToken(stateBytes)
	if err != nil {
		return nil, err
	}
	cfg := c.oauthConfig(redirectURI)
	authURL := cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", nonce))
	return &AuthorizationRequest{URL: authURL, State: state, Nonce: nonce}, nil
}

// BuildAuthorizationURL returns only the URL of a new authorization request.
func (c *Client) BuildAuthorizationURL(redirectURI string) (string, error) {
	req, err := c.NewAuthorizationRequest(redirectURI)
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenSet, error) {
	cfg := c.oauthConfig(redirectURI)
	tok, err := cfg.Exchange(c.httpContext(ctx), code)
	if err != nil {
		return nil, newProviderError(OpExchange, err)
	}
	c.log.Debugw("Exchanged authorization code", "expiresIn", tok.ExpiresIn, "hasRefreshToken", tok.RefreshToken != "")
	return c.tokenSet(tok), nil
}

// Refresh uses the refresh token grant. When the provider does not rotate the
// refresh token the one passed in is kept.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	if refreshToken == "" {
		return nil, &ProviderError{Op: OpRefresh, Message: "refresh token is required"}
	}
	cfg := c.oauthConfig("")
	src := cfg.TokenSource(c.httpContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, newProviderError(OpRefresh, err)
	}
	ts := c.tokenSet(tok)
	if ts.RefreshToken == "" {
		ts.RefreshToken = refreshToken
	}
	c.log.Debugw("Refreshed access token", "expiresIn", ts.ExpiresIn, "rotated", ts.RefreshToken != refreshToken)
	return ts, nil
}

func (c *Client) tokenSet(tok *oauth2.Token) *TokenSet {
	ts := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    tok.ExpiresIn,
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		ts.IDToken = idToken
	}
	if ts.TokenType == "" {
		ts.TokenType = DefaultTokenType
	}
	if ts.ExpiresIn <= 0 {
		if tok.Expiry.IsZero() {
			ts.ExpiresIn = DefaultExpiresIn
		} else {
			ts.ExpiresIn = int64(math.Round(tok.Expiry.Sub(c.now()).Seconds()))
		}
	}
	return ts
}

func newProviderError(op string, err error) *ProviderError {
	perr := &ProviderError{Op: op, Err: err}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil {
			perr.StatusCode = retrieveErr.Response.StatusCode
		}
		switch {
		case retrieveErr.ErrorDescription != "":
			perr.Message = retrieveErr.ErrorDescription
		case retrieveErr.ErrorCode != "":
			perr.Message = retrieveErr.ErrorCode
		default:
			perr.Message = strings.TrimSpace(string(retrieveErr.Body))
		}
	}
	if perr.Message == "" && err != nil {
		perr.Message = err.Error()
	}
	return perr
}

func randomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
