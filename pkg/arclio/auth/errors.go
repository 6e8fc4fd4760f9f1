package auth

import (
	"errors"
	"fmt"
)

var (
	ErrProviderNotConfigured    = errors.New("kinde oauth not configured: set KINDE_AUTH_DOMAIN, KINDE_CLIENT_ID and KINDE_CLIENT_SECRET")
	ErrNotAuthenticated         = errors.New("not authenticated, run: arclio login")
	ErrReauthenticationRequired = errors.New("token expired and no refresh token, run: arclio login")
)

// StateMismatch is the AuthorizationDeniedError code used when the redirect carries
// a state other than the one sent in the authorize request.
const StateMismatch = "state_mismatch"

// AuthorizationDeniedError is a redirect that came back with an error instead of a code.
type AuthorizationDeniedError struct {
	Code        string
	Description string
}

func (e *AuthorizationDeniedError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("authentication failed: %s", e.Code)
	}
	return fmt.Sprintf("authentication failed: %s: %s", e.Code, e.Description)
}
