package oauth2

import (
	"time"

	"github.com/jrsteele09/narrate-web/users"
	xoauth2 "golang.org/x/oauth2"
)

// TokenResponse is the body returned by /auth/login and /auth/register.
// /auth/refresh returns the same shape without User.
type TokenResponse struct {
	// AccessToken is the short-lived bearer credential.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// RefreshToken mints new access tokens at /auth/refresh.
	// Security: rotates on each use, the previous value must be discarded
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "bearer".
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds from issuance.
	// The absolute expiry is computed by the client at the moment the
	// response is received.
	ExpiresIn int `json:"expires_in"`

	// User is the profile snapshot. Only present on login and register.
	User *users.Profile `json:"user,omitempty"`
}

// Lifetime returns ExpiresIn as a duration.
func (t TokenResponse) Lifetime() time.Duration {
	return time.Duration(t.ExpiresIn) * time.Second
}

// Token converts the response into an x/oauth2 token anchored at issuedAt.
func (t TokenResponse) Token(issuedAt time.Time) *xoauth2.Token {
	tokenType := t.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &xoauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    tokenType,
		Expiry:       issuedAt.Add(t.Lifetime()),
	}
}

// Valid reports whether the response carries what a session needs.
func (t TokenResponse) Valid() bool {
	return t.AccessToken != "" && t.ExpiresIn >= 0
}
