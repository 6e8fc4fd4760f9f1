package kinde

import (
	"errors"
	"fmt"
)

var (
	ErrTokenExchange       = errors.New("token exchange failed")
	ErrTokenRefresh        = errors.New("token refresh failed")
	ErrTokenDecode         = errors.New("failed to decode token")
	ErrIDTokenVerification = errors.New("id token verification failed")
)

const (
	OpExchange = "exchange"
	OpRefresh  = "refresh"
)

// ProviderError is a failed call to the token endpoint. Message carries the
// provider's error_description or error, or the raw response body.
type ProviderError struct {
	Op         string
	Message    string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	kind := e.kind()
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", kind, e.Err)
	default:
		return kind.Error()
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == e.kind()
}

func (e *ProviderError) kind() error {
	if e.Op == OpRefresh {
		return ErrTokenRefresh
	}
	return ErrTokenExchange
}
