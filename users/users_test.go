package users_test

import (
	"testing"

	"github.com/jrsteele09/narrate-web/users"
	"github.com/stretchr/testify/require"
)

func TestValidateCredentials(t *testing.T) {
	require.NoError(t, users.ValidateCredentials("a@b.com", "secret123"))
	require.Error(t, users.ValidateCredentials("", "secret123"))
	require.Error(t, users.ValidateCredentials("not-an-email", "secret123"))
	require.Error(t, users.ValidateCredentials("a@b.com", ""))
}

func TestValidateRegistration(t *testing.T) {
	require.NoError(t, users.ValidateRegistration("a@b.com", "secret123", "secret123"))

	err := users.ValidateRegistration("a@b.com", "secret123", "secret124")
	require.Error(t, err)
	require.Contains(t, err.Error(), "do not match")

	err = users.ValidateRegistration("a@b.com", "abc", "abc")
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least 6")
}

func TestRatePassword(t *testing.T) {
	require.Equal(t, users.PasswordWeak, users.RatePassword("abc"))
	require.Equal(t, users.PasswordMedium, users.RatePassword("abcdef"))
	require.Equal(t, users.PasswordStrong, users.RatePassword("abcdefgh"))
}

func TestProfile_Helpers(t *testing.T) {
	p := users.Profile{ID: 1, Email: "a@b.com", Credits: 25}
	require.Equal(t, users.PlanFree, p.PlanOrDefault())
	require.True(t, p.CanAfford(users.ReelCost))
	p.Credits = 19
	require.False(t, p.CanAfford(users.ReelCost))
}
