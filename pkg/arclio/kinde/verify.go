package kinde

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// VerifyIDToken checks the signature, issuer, audience and expiry of an ID token
// against the domain's published keys, and its nonce when one is given.
func (c *Client) VerifyIDToken(ctx context.Context, rawIDToken, nonce string) (*Identity, error) {
	ctx = oidc.ClientContext(ctx, c.httpClient)
	provider, err := oidc.NewProvider(ctx, c.domain)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to discover OIDC provider: %v", ErrIDTokenVerification, err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: c.clientID})
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIDTokenVerification, err)
	}
	if nonce != "" && idToken.Nonce != nonce {
		return nil, fmt.Errorf("%w: nonce mismatch", ErrIDTokenVerification)
	}
	var claims Identity
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIDTokenVerification, err)
	}
	claims.Subject = idToken.Subject
	return &claims, nil
}
