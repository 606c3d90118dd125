package oauth2_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/narrate-web/oauth2"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return raw
}

func TestExpiryFromJWT(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	raw := signedToken(t, jwt.MapClaims{"sub": "1", "exp": exp.Unix()})

	got, err := oauth2.ExpiryFromJWT(raw)
	require.NoError(t, err)
	require.True(t, exp.Equal(got))
}

func TestExpiryFromJWT_NoExp(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{"sub": "1"})

	_, err := oauth2.ExpiryFromJWT(raw)
	require.ErrorIs(t, err, oauth2.ErrNoExpiryClaim)
}

func TestExpiryFromJWT_Opaque(t *testing.T) {
	_, err := oauth2.ExpiryFromJWT("not-a-jwt")
	require.Error(t, err)
}

func TestTokenResponse_Token(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	resp := oauth2.TokenResponse{AccessToken: "AT1", RefreshToken: "RT1", ExpiresIn: 3600}

	tok := resp.Token(issued)
	require.Equal(t, "AT1", tok.AccessToken)
	require.Equal(t, "RT1", tok.RefreshToken)
	require.Equal(t, "Bearer", tok.TokenType)
	require.Equal(t, issued.Add(time.Hour), tok.Expiry)
}

func TestErrorResponse_Message(t *testing.T) {
	var plain oauth2.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(`{"detail":"Incorrect email or password"}`), &plain))
	require.Equal(t, "Incorrect email or password", plain.Message())

	var validation oauth2.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(`{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address"}]}`), &validation))
	require.Equal(t, "value is not a valid email address", validation.Message())

	var proxy oauth2.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(`{"error":"Backend unreachable"}`), &proxy))
	require.Equal(t, "Backend unreachable", proxy.Message())
}
