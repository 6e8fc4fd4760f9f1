package kinde

const (
	DefaultTokenType = "Bearer"
	// DefaultExpiresIn applies when the token response carries no lifetime.
	DefaultExpiresIn int64 = 3600
)

// TokenSet is the result of a code exchange or refresh. It is replaced wholesale on
// every refresh.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type"`
	// ExpiresIn is the lifetime in seconds at the time the token was issued.
	ExpiresIn int64 `json:"expires_in"`
}

// Identity describes the logged in user. Identities decoded without signature
// verification are only fit for display.
type Identity struct {
	Subject    string `json:"sub"`
	Email      string `json:"email,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Picture    string `json:"picture,omitempty"`
}

// DisplayName returns the email when known, the subject otherwise.
func (i Identity) DisplayName() string {
	if i.Email != "" {
		return i.Email
	}
	return i.Subject
}

// AuthorizationRequest is one authorize redirect with its freshly generated state and nonce.
type AuthorizationRequest struct {
	URL   string
	State string
	Nonce string
}
