package session_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/narrate-web/authapi"
	"github.com/jrsteele09/narrate-web/authapi/authapifake"
	"github.com/jrsteele09/narrate-web/session"
	"github.com/jrsteele09/narrate-web/session/clockfake"
	"github.com/jrsteele09/narrate-web/session/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestManagerAgainstBackend(t *testing.T) {
	clock := clockfake.New(t0)
	backend := authapifake.New()
	backend.NowTimeFunc = clock.Now
	backend.AddUser("a@b.com", "secret123", 100)
	srv := httptest.NewServer(backend.Mux())
	t.Cleanup(srv.Close)

	st := store.NewMemory()
	mgr := session.NewManager(authapi.New(srv.URL, 5*time.Second), st,
		session.WithClock(clock),
		session.WithLogger(zerolog.Nop()),
	)
	t.Cleanup(mgr.Close)
	ctx := context.Background()

	first, err := mgr.Login(ctx, "a@b.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, t0.Add(time.Hour), first.ExpiresAt)

	clock.Advance(3480 * time.Second)
	require.Equal(t, 1, backend.RefreshCalls())

	second, ok := mgr.Current()
	require.True(t, ok)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, clock.Now().Add(time.Hour), second.ExpiresAt)
	require.Equal(t, "a@b.com", second.Profile.Email)

	backend.SetCredits("a@b.com", 80)
	require.NoError(t, mgr.RefreshProfile(ctx))
	s, _ := mgr.Current()
	require.Equal(t, 80, s.Profile.Credits)

	backend.RevokeRefreshTokens()
	clock.Advance(3480 * time.Second)
	require.Equal(t, 2, backend.RefreshCalls())
	_, ok = mgr.Current()
	require.False(t, ok)

	entries, err := st.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)
}
