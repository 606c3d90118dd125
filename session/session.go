package session

import (
	"time"

	"github.com/jrsteele09/narrate-web/oauth2"
	"github.com/jrsteele09/narrate-web/users"
)

// State is where the manager sits in the session lifecycle.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateValid           State = "valid"
	StateRefreshing      State = "refreshing"
)

// Session is the authenticated user's credentials plus the cached profile.
// AccessToken and ExpiresAt are always set together.
type Session struct {
	AccessToken  string        // Short-lived bearer credential
	RefreshToken string        // Long-lived, empty for sessions adopted from a social login
	ExpiresAt    time.Time     // Absolute access token expiry
	Profile      users.Profile // Advisory cache, refreshed on demand
}

// Expired reports whether the access token is no longer usable at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Remaining is the validity left at now, never negative.
func (s Session) Remaining(now time.Time) time.Duration {
	if d := s.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// sessionFromResponse builds the session issued at now. The profile is left
// empty when the response carries none.
func sessionFromResponse(resp *oauth2.TokenResponse, now time.Time) Session {
	tok := resp.Token(now)
	s := Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if resp.User != nil {
		s.Profile = *resp.User
	}
	return s
}

// Timer is a pending renewal. Stop reports whether the timer was stopped
// before it fired.
type Timer interface {
	Stop() bool
}

// Clock is the time source of the manager. Tests substitute a fake one to
// drive renewals deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
