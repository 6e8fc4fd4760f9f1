package kinde

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

type userProfile struct {
	ID         string `json:"id"`
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// FetchUserInfo looks up the user behind accessToken. When the profile endpoint
// does not answer 200 the identity is decoded from the token itself without
// verification; such an identity is for display only.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*Identity, error) {
	var profile userProfile
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&profile).
		Get(userProfilePath)
	if err != nil {
		return nil, fmt.Errorf("user profile request failed: %w", err)
	}
	subject := profile.Sub
	if subject == "" {
		subject = profile.ID
	}
	if resp.StatusCode() != http.StatusOK || subject == "" {
		c.log.Debugw("User profile unavailable, decoding access token claims", "status", resp.StatusCode())
		return DecodeUnverified(accessToken)
	}
	return &Identity{
		Subject:    subject,
		Email:      profile.Email,
		GivenName:  profile.GivenName,
		FamilyName: profile.FamilyName,
		Picture:    profile.Picture,
	}, nil
}

// DecodeUnverified reads the identity claims from the payload segment of a JWT.
// The signature is NOT checked: never base an authorization decision on the result.
func DecodeUnverified(token string) (*Identity, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrTokenDecode, len(parts))
	}
	payload, err := jwt.DecodeSegment(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenDecode, err)
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenDecode, err)
	}
	identity := identityFromClaims(claims)
	if identity.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrTokenDecode)
	}
	return identity, nil
}

func identityFromClaims(claims jwt.MapClaims) *Identity {
	str := func(key string) string {
		v, _ := claims[key].(string)
		return v
	}
	return &Identity{
		Subject:    str("sub"),
		Email:      str("email"),
		GivenName:  str("given_name"),
		FamilyName: str("family_name"),
		Picture:    str("picture"),
	}
}
