package session_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/narrate-web/internal/errors"
	"github.com/jrsteele09/narrate-web/oauth2"
	"github.com/jrsteele09/narrate-web/session"
	"github.com/jrsteele09/narrate-web/session/clockfake"
	"github.com/jrsteele09/narrate-web/session/store"
	"github.com/jrsteele09/narrate-web/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

var testProfile = users.Profile{ID: 1, Email: "a@b.com", Credits: 100, Plan: users.PlanFree}

// fakeAPI stands in for the backend. Unset funcs fail the test when called.
type fakeAPI struct {
	t            *testing.T
	loginFn      func(email, password string) (*oauth2.TokenResponse, error)
	refreshFn    func(refreshToken string) (*oauth2.TokenResponse, error)
	meFn         func(accessToken string) (*users.Profile, error)
	refreshCalls atomic.Int32
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (*oauth2.TokenResponse, error) {
	require.NotNil(f.t, f.loginFn, "unexpected login")
	return f.loginFn(email, password)
}

func (f *fakeAPI) Register(_ context.Context, email, password string) (*oauth2.TokenResponse, error) {
	require.NotNil(f.t, f.loginFn, "unexpected register")
	return f.loginFn(email, password)
}

func (f *fakeAPI) Refresh(_ context.Context, refreshToken string) (*oauth2.TokenResponse, error) {
	f.refreshCalls.Add(1)
	require.NotNil(f.t, f.refreshFn, "unexpected refresh")
	return f.refreshFn(refreshToken)
}

func (f *fakeAPI) Me(_ context.Context, accessToken string) (*users.Profile, error) {
	require.NotNil(f.t, f.meFn, "unexpected me")
	return f.meFn(accessToken)
}

type testFixture struct {
	clock *clockfake.Clock
	api   *fakeAPI
	store *store.Memory
	mgr   *session.Manager
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		clock: clockfake.New(t0),
		api:   &fakeAPI{t: t},
		store: store.NewMemory(),
	}
	f.mgr = session.NewManager(f.api, f.store,
		session.WithClock(f.clock),
		session.WithLogger(zerolog.Nop()),
	)
	t.Cleanup(f.mgr.Close)
	return f
}

func issued(access, refresh string, expiresIn int) *oauth2.TokenResponse {
	p := testProfile
	return &oauth2.TokenResponse{AccessToken: access, RefreshToken: refresh, TokenType: "bearer", ExpiresIn: expiresIn, User: &p}
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	f.api.loginFn = func(string, string) (*oauth2.TokenResponse, error) {
		return issued("AT1", "RT1", 3600), nil
	}
	_, err := f.mgr.Login(context.Background(), "a@b.com", "secret123")
	require.NoError(t, err)
}

func (f *testFixture) persisted(t *testing.T) store.Entries {
	t.Helper()
	e, err := f.store.Load(context.Background())
	require.NoError(t, err)
	return e
}

func seed(t *testing.T, st store.Store, access, refresh string, expiresAt time.Time) {
	t.Helper()
	e := store.Entries{
		store.KeyAccessToken: access,
		store.KeyExpiresAt:   strconv.FormatInt(expiresAt.UnixMilli(), 10),
		store.KeyUser:        `{"id":1,"email":"a@b.com","credits":100,"plan":"free"}`,
	}
	if refresh != "" {
		e[store.KeyRefreshToken] = refresh
	}
	require.NoError(t, st.Save(context.Background(), e))
}

func TestLogin_InstallsPersistsAndSchedules(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	s, ok := f.mgr.Current()
	require.True(t, ok)
	require.Equal(t, "AT1", s.AccessToken)
	require.Equal(t, "RT1", s.RefreshToken)
	require.Equal(t, t0.Add(3600*time.Second), s.ExpiresAt)
	require.Equal(t, testProfile, s.Profile)
	require.Equal(t, session.StateValid, f.mgr.State())

	renewAt, ok := f.mgr.NextRenewal()
	require.True(t, ok)
	require.Equal(t, t0.Add(3480*time.Second), renewAt)
	require.Equal(t, 1, f.clock.Pending())

	e := f.persisted(t)
	require.Equal(t, "AT1", e[store.KeyAccessToken])
	require.Equal(t, "RT1", e[store.KeyRefreshToken])
	require.Equal(t, strconv.FormatInt(t0.Add(time.Hour).UnixMilli(), 10), e[store.KeyExpiresAt])
	require.Contains(t, e[store.KeyUser], `"email":"a@b.com"`)
}

func TestLogin_FailureKeepsExistingSession(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.api.loginFn = func(string, string) (*oauth2.TokenResponse, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	_, err := f.mgr.Login(context.Background(), "a@b.com", "secret123")
	require.ErrorIs(t, err, apperrors.ErrNetwork)

	f.api.loginFn = func(string, string) (*oauth2.TokenResponse, error) {
		return nil, apperrors.ErrInvalidCredentials
	}
	_, err = f.mgr.Login(context.Background(), "a@b.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	s, ok := f.mgr.Current()
	require.True(t, ok)
	require.Equal(t, "AT1", s.AccessToken)
	require.Equal(t, "AT1", f.persisted(t)[store.KeyAccessToken])
}

func TestRenewalTimer_RotatesTokens(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.api.refreshFn = func(rt string) (*oauth2.TokenResponse, error) {
		require.Equal(t, "RT1", rt)
		return &oauth2.TokenResponse{AccessToken: "AT2", RefreshToken: "RT2", ExpiresIn: 3600}, nil
	}
	f.clock.Advance(3480 * time.Second)

	require.EqualValues(t, 1, f.api.refreshCalls.Load())
	s, ok := f.mgr.Current()
	require.True(t, ok)
	require.Equal(t, "AT2", s.AccessToken)
	require.Equal(t, "RT2", s.RefreshToken)
	require.Equal(t, t0.Add(3480*time.Second+time.Hour), s.ExpiresAt)
	require.Equal(t, testProfile, s.Profile, "refresh without user keeps the cached profile")

	renewAt, ok := f.mgr.NextRenewal()
	require.True(t, ok)
	require.Equal(t, t0.Add(2*3480*time.Second), renewAt)
	require.Equal(t, 1, f.clock.Pending())

	e := f.persisted(t)
	require.Equal(t, "AT2", e[store.KeyAccessToken])
	require.Equal(t, "RT2", e[store.KeyRefreshToken])
}

func TestRenewalTimer_RejectionLogsOut(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.api.refreshFn = func(string) (*oauth2.TokenResponse, error) {
		return nil, apperrors.ErrInvalidCredentials
	}
	f.clock.Advance(3480 * time.Second)

	_, ok := f.mgr.Current()
	require.False(t, ok)
	require.Equal(t, session.StateUnauthenticated, f.mgr.State())
	require.Empty(t, f.persisted(t))
	require.Equal(t, 0, f.clock.Pending())

	_, ok = f.mgr.NextRenewal()
	require.False(t, ok)
}

func TestRenewalTimer_NetworkFailureLogsOut(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.api.refreshFn = func(string) (*oauth2.TokenResponse, error) {
		return nil, apperrors.ErrNetwork
	}
	f.clock.Advance(3480 * time.Second)

	require.Equal(t, session.StateUnauthenticated, f.mgr.State())
	require.Empty(t, f.persisted(t))
	require.EqualValues(t, 1, f.api.refreshCalls.Load())
}

func TestScheduleRenewal_ReplacesPendingTimer(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.mgr.ScheduleRenewal(10 * time.Minute)
	require.Equal(t, 1, f.clock.Pending())
	renewAt, _ := f.mgr.NextRenewal()
	require.Equal(t, t0.Add(8*time.Minute), renewAt)

	f.mgr.ScheduleRenewal(time.Minute)
	require.Equal(t, 1, f.clock.Pending())
	renewAt, _ = f.mgr.NextRenewal()
	require.Equal(t, t0, renewAt, "lifetime under the lead time renews immediately")
}

func TestRestoreOnLoad_Valid(t *testing.T) {
	f := setupTestFixture(t)
	seed(t, f.store, "AT1", "RT1", t0.Add(time.Hour))

	require.NoError(t, f.mgr.RestoreOnLoad(context.Background()))

	s, ok := f.mgr.Current()
	require.True(t, ok)
	require.Equal(t, "AT1", s.AccessToken)
	require.Equal(t, int64(1), s.Profile.ID)
	renewAt, ok := f.mgr.NextRenewal()
	require.True(t, ok)
	require.Equal(t, t0.Add(time.Hour-2*time.Minute), renewAt)
	require.Zero(t, f.api.refreshCalls.Load())
}

func TestRestoreOnLoad_NearExpiryRenewsImmediately(t *testing.T) {
	f := setupTestFixture(t)
	seed(t, f.store, "AT1", "RT1", t0.Add(30*time.Second))

	require.NoError(t, f.mgr.RestoreOnLoad(context.Background()))
	renewAt, ok := f.mgr.NextRenewal()
	require.True(t, ok)
	require.Equal(t, t0, renewAt)

	f.api.refreshFn = func(rt string) (*oauth2.TokenResponse, error) {
		require.Equal(t, "RT1", rt)
		return &oauth2.TokenResponse{AccessToken: "AT2", RefreshToken: "RT2", ExpiresIn: 3600}, nil
	}
	f.clock.Fire()

	s, ok := f.mgr.Current()
	require.True(t, ok)
	require.Equal(t, "AT2", s.AccessToken)
}

func TestRestoreOnLoad_ExpiredRefreshSucceeds(t *testing.T) {
	f := setupTestFixture(t)
	seed(t, f.store, "AT1", "RT1", t0.Add(-time.Minute))

	f.api.refreshFn = func(rt string) (*oauth2.TokenResponse, error) {
		return &oauth2.TokenResponse{AccessToken: "AT2", RefreshToken: "RT2", ExpiresIn: 3600}, nil
	}
	require.NoError(t, f.mgr.RestoreOnLoad(context.Background()))

	s, ok := f.mgr.Current()
	require.True(t, ok)
	require.Equal(t, "AT2", s.AccessToken)
	require.Equal(t, "a@b.com", s.Profile.Email)
	require.Equal(t, "AT2", f.persisted(t)[store.KeyAccessToken])
}

func TestRestoreOnLoad_ExpiredRefreshFails(t *testing.T) {
	f := setupTestFixture(t)
	seed(t, f.store, "AT1", "RT1", t0.Add(-time.Minute))

	f.api.refreshFn = func(string) (*oauth2.TokenResponse, error) {
		return nil, apperrors.ErrInvalidCredentials
	}
	err := f.mgr.RestoreOnLoad(context.Background())
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)

	require.Equal(t, session.StateUnauthenticated, f.mgr.State())
	require.Empty(t, f.persisted(t))
	require.Equal(t, 0, f.clock.Pending())
}

func TestRestoreOnLoad_ExpiredWithoutRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	seed(t, f.store, "AT1", "", t0.Add(-time.Minute))

	err := f.mgr.RestoreOnLoad(context.Background())
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	require.Zero(t, f.api.refreshCalls.Load())
	require.Empty(t, f.persisted(t))
}

func TestRestoreOnLoad_CorruptStateIsCleared(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Save(context.Background(), store.Entries{
		store.KeyAccessToken: "AT1",
		store.KeyExpiresAt:   "not-a-number",
	}))

	require.NoError(t, f.mgr.RestoreOnLoad(context.Background()))
	require.Equal(t, session.StateUnauthenticated, f.mgr.State())
	require.Empty(t, f.persisted(t))
}

func TestRestoreOnLoad_Empty(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.mgr.RestoreOnLoad(context.Background()))
	require.Equal(t, session.StateUnauthenticated, f.mgr.State())
	require.Equal(t, 0, f.clock.Pending())
}

func TestRefreshTokens_ConcurrentCallersShareOneRequest(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.api.refreshFn = func(rt string) (*oauth2.TokenResponse, error) {
		once.Do(func() { close(started) })
		<-release
		return &oauth2.TokenResponse{AccessToken: "AT2", RefreshToken: "RT2", ExpiresIn: 3600}, nil
	}

	const callers = 5
	results := make(chan bool, callers)
	go func() { results <- f.mgr.RefreshTokens(context.Background()) }()
	<-started
	require.Equal(t, session.StateRefreshing, f.mgr.State())

	for i := 1; i < callers; i++ {
		go func() { results <- f.mgr.RefreshTokens(context.Background()) }()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < callers; i++ {
		require.True(t, <-results)
	}
	require.EqualValues(t, 1, f.api.refreshCalls.Load())

	s, ok := f.mgr.Current()
	require.True(t, ok)
	require.Equal(t, "AT2", s.AccessToken)
	require.Equal(t, "RT2", s.RefreshToken)
}

func TestLogout_DuringRefreshDiscardsResult(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	started := make(chan struct{})
	release := make(chan struct{})
	f.api.refreshFn = func(string) (*oauth2.TokenResponse, error) {
		close(started)
		<-release
		return &oauth2.TokenResponse{AccessToken: "AT2", RefreshToken: "RT2", ExpiresIn: 3600}, nil
	}

	done := make(chan bool)
	go func() { done <- f.mgr.RefreshTokens(context.Background()) }()
	<-started
	f.mgr.Logout()
	close(release)

	require.False(t, <-done)
	require.Equal(t, session.StateUnauthenticated, f.mgr.State())
	require.Empty(t, f.persisted(t))
	require.Equal(t, 0, f.clock.Pending())
}

func TestLogout_ThenTokenFails(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	tok, err := f.mgr.Token()
	require.NoError(t, err)
	require.Equal(t, "AT1", tok.AccessToken)
	require.Equal(t, "Bearer", tok.TokenType)

	f.mgr.Logout()
	f.mgr.Logout()

	_, err = f.mgr.Token()
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	require.Empty(t, f.persisted(t))
	require.Equal(t, 0, f.clock.Pending())

	f.clock.Advance(2 * time.Hour)
	require.Zero(t, f.api.refreshCalls.Load())
}

func TestCurrent_HidesExpiredSession(t *testing.T) {
	f := setupTestFixture(t)
	f.mgr = session.NewManager(f.api, f.store,
		session.WithClock(f.clock),
		session.WithLogger(zerolog.Nop()),
		session.WithRenewalLeadTime(0),
	)
	f.api.loginFn = func(string, string) (*oauth2.TokenResponse, error) {
		return issued("AT1", "RT1", 60), nil
	}
	_, err := f.mgr.Login(context.Background(), "a@b.com", "secret123")
	require.NoError(t, err)
	f.mgr.Close()

	f.clock.Advance(time.Minute)
	_, ok := f.mgr.Current()
	require.False(t, ok)
	_, err = f.mgr.Token()
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
}

func TestRefreshProfile(t *testing.T) {
	f := setupTestFixture(t)
	require.ErrorIs(t, f.mgr.RefreshProfile(context.Background()), apperrors.ErrNotAuthenticated)

	f.login(t)
	f.api.meFn = func(token string) (*users.Profile, error) {
		require.Equal(t, "AT1", token)
		p := testProfile
		p.Credits = 80
		return &p, nil
	}
	require.NoError(t, f.mgr.RefreshProfile(context.Background()))
	s, _ := f.mgr.Current()
	require.Equal(t, 80, s.Profile.Credits)
	require.Contains(t, f.persisted(t)[store.KeyUser], `"credits":80`)

	f.api.meFn = func(string) (*users.Profile, error) {
		return nil, apperrors.ErrNetwork
	}
	require.ErrorIs(t, f.mgr.RefreshProfile(context.Background()), apperrors.ErrNetwork)
	s, _ = f.mgr.Current()
	require.Equal(t, 80, s.Profile.Credits)
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

func TestAdoptAccessToken_UsesExpClaim(t *testing.T) {
	f := setupTestFixture(t)
	raw := signedToken(t, jwt.MapClaims{"sub": "a@b.com", "exp": t0.Add(30 * time.Minute).Unix()})
	f.api.meFn = func(token string) (*users.Profile, error) {
		require.Equal(t, raw, token)
		p := testProfile
		return &p, nil
	}

	s, err := f.mgr.AdoptAccessToken(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, t0.Add(30*time.Minute), s.ExpiresAt.UTC())
	require.Empty(t, s.RefreshToken)

	e := f.persisted(t)
	require.Equal(t, raw, e[store.KeyAccessToken])
	_, hasRefresh := e[store.KeyRefreshToken]
	require.False(t, hasRefresh)

	// Without a refresh token the renewal ends the session.
	f.clock.Advance(28 * time.Minute)
	require.Equal(t, session.StateUnauthenticated, f.mgr.State())
	require.Empty(t, f.persisted(t))
	require.Zero(t, f.api.refreshCalls.Load())
}

func TestAdoptAccessToken_DefaultLifetime(t *testing.T) {
	f := setupTestFixture(t)
	f.api.meFn = func(string) (*users.Profile, error) {
		p := testProfile
		return &p, nil
	}

	s, err := f.mgr.AdoptAccessToken(context.Background(), "opaque-token")
	require.NoError(t, err)
	require.Equal(t, t0.Add(session.DefaultAdoptedLifetime), s.ExpiresAt)
}

func TestAdoptAccessToken_Rejected(t *testing.T) {
	f := setupTestFixture(t)
	f.api.meFn = func(string) (*users.Profile, error) {
		return nil, apperrors.ErrNotAuthenticated
	}

	_, err := f.mgr.AdoptAccessToken(context.Background(), "bad")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	require.Equal(t, session.StateUnauthenticated, f.mgr.State())

	_, err = f.mgr.AdoptAccessToken(context.Background(), "")
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
}

func TestAdoptAccessToken_AlreadyExpired(t *testing.T) {
	f := setupTestFixture(t)
	raw := signedToken(t, jwt.MapClaims{"exp": t0.Add(-time.Minute).Unix()})
	f.api.meFn = func(string) (*users.Profile, error) {
		p := testProfile
		return &p, nil
	}

	_, err := f.mgr.AdoptAccessToken(context.Background(), raw)
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	require.Equal(t, session.StateUnauthenticated, f.mgr.State())
}

type failingStore struct {
	*store.Memory
}

func (failingStore) Save(context.Context, store.Entries) error {
	return apperrors.ErrStorageUnavailable
}

func TestLogin_PersistFailureKeepsInMemorySession(t *testing.T) {
	clock := clockfake.New(t0)
	api := &fakeAPI{t: t, loginFn: func(string, string) (*oauth2.TokenResponse, error) {
		return issued("AT1", "RT1", 3600), nil
	}}
	mgr := session.NewManager(api, failingStore{store.NewMemory()}, session.WithClock(clock), session.WithLogger(zerolog.Nop()))
	defer mgr.Close()

	_, err := mgr.Login(context.Background(), "a@b.com", "secret123")
	require.NoError(t, err)
	s, ok := mgr.Current()
	require.True(t, ok)
	require.Equal(t, "AT1", s.AccessToken)
}

func TestRegister_InstallsPersistsAndSchedules(t *testing.T) {
	f := setupTestFixture(t)
	f.api.loginFn = func(email, password string) (*oauth2.TokenResponse, error) {
		require.Equal(t, "new@b.com", email)
		return issued("AT1", "RT1", 3600), nil
	}

	s, err := f.mgr.Register(context.Background(), "new@b.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, "AT1", s.AccessToken)
	require.Equal(t, t0.Add(time.Hour), s.ExpiresAt)
	require.Equal(t, session.StateValid, f.mgr.State())

	renewAt, ok := f.mgr.NextRenewal()
	require.True(t, ok)
	require.Equal(t, t0.Add(3480*time.Second), renewAt)

	e := f.persisted(t)
	require.Equal(t, "AT1", e[store.KeyAccessToken])
	require.Equal(t, "RT1", e[store.KeyRefreshToken])
}

func TestRegister_FailureKeepsExistingSession(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.api.loginFn = func(string, string) (*oauth2.TokenResponse, error) {
		return nil, apperrors.ErrInvalidCredentials
	}
	_, err := f.mgr.Register(context.Background(), "a@b.com", "secret123")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	s, ok := f.mgr.Current()
	require.True(t, ok)
	require.Equal(t, "AT1", s.AccessToken)
	require.Equal(t, "AT1", f.persisted(t)[store.KeyAccessToken])
	require.Equal(t, 1, f.clock.Pending())
}

func TestRefreshTokens_NewSessionDoesNotJoinStaleRefresh(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	started := make(chan struct{})
	release := make(chan struct{})
	f.api.refreshFn = func(rt string) (*oauth2.TokenResponse, error) {
		if rt == "RT1" {
			close(started)
			<-release
			return &oauth2.TokenResponse{AccessToken: "AT9", RefreshToken: "RT9", ExpiresIn: 3600}, nil
		}
		require.Equal(t, "RT2", rt)
		return &oauth2.TokenResponse{AccessToken: "AT3", RefreshToken: "RT3", ExpiresIn: 3600}, nil
	}

	done := make(chan bool)
	go func() { done <- f.mgr.RefreshTokens(context.Background()) }()
	<-started

	// A login during the first refresh issues a token that is already inside
	// the lead time, so its renewal is due at once.
	f.api.loginFn = func(string, string) (*oauth2.TokenResponse, error) {
		return issued("AT2", "RT2", 60), nil
	}
	_, err := f.mgr.Login(context.Background(), "a@b.com", "secret123")
	require.NoError(t, err)
	f.clock.Fire()

	close(release)
	require.False(t, <-done)

	s, ok := f.mgr.Current()
	require.True(t, ok)
	require.Equal(t, "AT3", s.AccessToken)
	require.Equal(t, "RT3", s.RefreshToken)
	require.EqualValues(t, 2, f.api.refreshCalls.Load())
	require.Equal(t, 1, f.clock.Pending())
	_, ok = f.mgr.NextRenewal()
	require.True(t, ok)
}

func TestLogoutToken_OnlyForCurrentToken(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	require.False(t, f.mgr.LogoutToken("AT0"))
	_, ok := f.mgr.Current()
	require.True(t, ok)

	require.True(t, f.mgr.LogoutToken("AT1"))
	require.Equal(t, session.StateUnauthenticated, f.mgr.State())
	require.Empty(t, f.persisted(t))
	require.False(t, f.mgr.LogoutToken("AT1"))
}
