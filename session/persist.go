package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/jrsteele09/narrate-web/internal/errors"
	"github.com/jrsteele09/narrate-web/session/store"
	"github.com/jrsteele09/narrate-web/users"
)

func encodeEntries(s Session) (store.Entries, error) {
	user, err := json.Marshal(s.Profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	entries := store.Entries{
		store.KeyAccessToken: s.AccessToken,
		store.KeyExpiresAt:   strconv.FormatInt(s.ExpiresAt.UnixMilli(), 10),
		store.KeyUser:        string(user),
	}
	if s.RefreshToken != "" {
		entries[store.KeyRefreshToken] = s.RefreshToken
	}
	return entries, nil
}

// decodeEntries rebuilds a session from persisted entries. ok is false when
// nothing is stored. A token without an expiry (or the reverse) and values
// that do not parse are reported as ErrCorruptSession.
func decodeEntries(e store.Entries) (s Session, ok bool, err error) {
	token, hasToken := e[store.KeyAccessToken]
	rawExpiry, hasExpiry := e[store.KeyExpiresAt]

	if !hasToken && !hasExpiry {
		if len(e) == 0 {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("%w: entries without access token", apperrors.ErrCorruptSession)
	}
	if token == "" || !hasExpiry {
		return Session{}, false, fmt.Errorf("%w: access token and expiry must be stored together", apperrors.ErrCorruptSession)
	}

	ms, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		return Session{}, false, fmt.Errorf("%w: expiry %q: %v", apperrors.ErrCorruptSession, rawExpiry, err)
	}

	var profile users.Profile
	if raw := e[store.KeyUser]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			return Session{}, false, fmt.Errorf("%w: profile: %v", apperrors.ErrCorruptSession, err)
		}
	}

	return Session{
		AccessToken:  token,
		RefreshToken: e[store.KeyRefreshToken],
		ExpiresAt:    time.UnixMilli(ms),
		Profile:      profile,
	}, true, nil
}
