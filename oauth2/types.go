package oauth2

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials is the body of /auth/login and /auth/register.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ErrorResponse is the error body the backend returns, e.g. {"detail": "Invalid credentials"}.
// Validation failures send a list of objects in detail instead of a string.
type ErrorResponse struct {
	Detail any    `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Message flattens the error body into a single line for display.
func (e ErrorResponse) Message() string {
	switch d := e.Detail.(type) {
	case string:
		return d
	case []any:
		for _, item := range d {
			if m, ok := item.(map[string]any); ok {
				if msg, ok := m["msg"].(string); ok {
					return msg
				}
			}
		}
	}
	return e.Error
}

var ErrNoExpiryClaim = errors.New("token has no exp claim")

// ExpiryFromJWT reads the exp claim of an access token without verifying the
// signature. Verification is the backend's job; the client only needs to know
// when to renew.
func ExpiryFromJWT(rawToken string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiryClaim
	}
	return exp.Time, nil
}
