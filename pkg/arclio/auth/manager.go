package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/arclio/arclio-login/pkg/arclio/credentials"
	"github.com/arclio/arclio-login/pkg/arclio/kinde"
)

// Refresher trades a refresh token for a new token set.
type Refresher interface {
	IsConfigured() bool
	Refresh(ctx context.Context, refreshToken string) (*kinde.TokenSet, error)
}

// TokenManager hands out the stored access token, refreshing it first when it is
// expired or within credentials.ExpiryBuffer of expiring.
type TokenManager struct {
	Store    *credentials.Store
	Provider Refresher
	Log      *zap.SugaredLogger
}

// GetValidToken returns a usable access token. A valid stored token is returned
// without touching the network. Refresh failures are not retried.
func (m *TokenManager) GetValidToken(ctx context.Context) (string, error) {
	log := m.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	creds, ok := m.Store.Load()
	if !ok {
		return "", ErrNotAuthenticated
	}
	if !creds.Expired(m.Store.Now()) {
		log.Debugw("Using stored access token", "expiresAt", creds.ExpiryTime())
		return creds.AccessToken, nil
	}
	if creds.RefreshToken == "" {
		return "", ErrReauthenticationRequired
	}
	if m.Provider == nil || !m.Provider.IsConfigured() {
		return "", ErrProviderNotConfigured
	}

	log.Debugw("Access token expired, refreshing", "expiresAt", creds.ExpiryTime())
	tokens, err := m.Provider.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		if !errors.Is(err, kinde.ErrTokenRefresh) {
			err = &kinde.ProviderError{Op: kinde.OpRefresh, Err: err}
		}
		return "", err
	}
	if err := m.Store.SetTokens(storedTokens(tokens)); err != nil {
		return "", err
	}
	log.Debugw("Access token refreshed", "expiresIn", tokens.ExpiresIn, "rotated", tokens.RefreshToken != creds.RefreshToken)
	return tokens.AccessToken, nil
}

func storedTokens(t *kinde.TokenSet) credentials.Tokens {
	return credentials.Tokens{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		IDToken:      t.IDToken,
		ExpiresIn:    t.ExpiresIn,
	}
}
