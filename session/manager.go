package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/narrate-web/internal/errors"
	"github.com/jrsteele09/narrate-web/oauth2"
	"github.com/jrsteele09/narrate-web/session/store"
	"github.com/jrsteele09/narrate-web/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultRenewalLeadTime is how long before expiry the silent renewal fires.
	DefaultRenewalLeadTime = 120 * time.Second
	// DefaultAdoptedLifetime applies to adopted tokens that carry no exp claim.
	DefaultAdoptedLifetime = 15 * time.Minute

	refreshKey = "refresh"
)

var errSuperseded = errors.New("session replaced while refreshing")

// AuthAPI is the backend surface the manager needs. authapi.Client implements it.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*oauth2.TokenResponse, error)
	Register(ctx context.Context, email, password string) (*oauth2.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.TokenResponse, error)
	Me(ctx context.Context, accessToken string) (*users.Profile, error)
}

// Manager owns the one session of this process: it installs sessions issued by
// the backend, persists them, renews the access token ahead of expiry and tears
// everything down on logout or renewal failure.
//
// Every install and every logout bumps a generation counter. Work that started
// against one generation (a refresh in flight, a renewal timer, a store write)
// is discarded when it finishes under another, so a racing logout is never
// undone by a late result.
type Manager struct {
	api             AuthAPI
	store           store.Store
	clock           Clock
	log             zerolog.Logger
	leadTime        time.Duration
	adoptedLifetime time.Duration

	mu         sync.Mutex
	current    *Session
	generation uint64
	refreshing bool
	timer      Timer
	renewAt    time.Time

	storeMu sync.Mutex // serialises store writes and orders them against logout
	group   singleflight.Group
}

type Option func(*Manager)

func WithClock(c Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

func WithRenewalLeadTime(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.leadTime = d
		}
	}
}

func WithDefaultAdoptedLifetime(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.adoptedLifetime = d
		}
	}
}

// NewManager creates a manager with an empty session. Call RestoreOnLoad once
// before handing it to the rest of the application.
func NewManager(api AuthAPI, st store.Store, opts ...Option) *Manager {
	m := &Manager{
		api:             api,
		store:           st,
		clock:           systemClock{},
		log:             log.Logger,
		leadTime:        DefaultRenewalLeadTime,
		adoptedLifetime: DefaultAdoptedLifetime,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With().Str("component", "session").Logger()
	return m
}

// Login signs in with email and password. On failure the current session, if
// any, is left untouched and the error wraps ErrInvalidCredentials or ErrNetwork.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		return Session{}, authError("login", err)
	}
	return m.installIssued(ctx, resp), nil
}

// Register creates an account and signs it in. Same contract as Login.
func (m *Manager) Register(ctx context.Context, email, password string) (Session, error) {
	resp, err := m.api.Register(ctx, email, password)
	if err != nil {
		return Session{}, authError("register", err)
	}
	return m.installIssued(ctx, resp), nil
}

// AdoptAccessToken installs a bare access token handed over by the social
// login callback. The profile comes from /auth/me and the expiry from the
// token's exp claim. Such a session has no refresh token, so it ends at the
// renewal lead time.
func (m *Manager) AdoptAccessToken(ctx context.Context, accessToken string) (Session, error) {
	if accessToken == "" {
		return Session{}, fmt.Errorf("adopt token: %w", apperrors.ErrNotAuthenticated)
	}
	profile, err := m.api.Me(ctx, accessToken)
	if err != nil {
		return Session{}, authError("adopt token", err)
	}

	now := m.clock.Now()
	expiresAt, err := oauth2.ExpiryFromJWT(accessToken)
	if err != nil {
		m.log.Debug().Err(err).Msg("adopted token has no readable expiry, using default lifetime")
		expiresAt = now.Add(m.adoptedLifetime)
	}
	if !now.Before(expiresAt) {
		return Session{}, fmt.Errorf("adopt token: %w", apperrors.ErrSessionExpired)
	}

	sess := Session{AccessToken: accessToken, ExpiresAt: expiresAt, Profile: *profile}
	gen := m.install(sess, expiresAt.Sub(now))
	m.persist(ctx, gen, sess)
	return sess, nil
}

// Logout cancels the renewal timer and clears the session from memory and from
// storage. It never contacts the backend and is safe to call at any time.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.stopTimerLocked()
	hadSession := m.current != nil
	m.current = nil
	m.refreshing = false
	m.generation++
	m.mu.Unlock()

	m.storeMu.Lock()
	err := m.store.Clear(context.Background())
	m.storeMu.Unlock()
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to clear persisted session")
	}
	if hadSession {
		m.log.Info().Msg("signed out")
	}
}

// LogoutToken logs out only when accessToken still belongs to the installed
// session. A rejection that arrives for a token already replaced by a newer
// login or renewal leaves the newer session alone. It reports whether a
// logout happened.
func (m *Manager) LogoutToken(accessToken string) bool {
	m.mu.Lock()
	if m.current == nil || m.current.AccessToken != accessToken {
		m.mu.Unlock()
		return false
	}
	gen := m.generation
	m.mu.Unlock()
	return m.logoutGeneration(gen)
}

// RefreshTokens renews the access token with the refresh token. Concurrent
// callers for the same session share a single backend call and its outcome.
// Any failure ends the session. It returns true when a new token pair was
// installed.
func (m *Manager) RefreshTokens(ctx context.Context) bool {
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()

	// One flight per session generation.
	key := refreshKey + strconv.FormatUint(gen, 10)
	_, err, shared := m.group.Do(key, func() (any, error) {
		return nil, m.refresh(context.WithoutCancel(ctx), gen)
	})
	if shared {
		m.log.Debug().Msg("joined refresh already in flight")
	}
	return err == nil
}

func (m *Manager) refresh(ctx context.Context, gen uint64) error {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return errSuperseded
	}
	sess := m.current
	if sess == nil || sess.RefreshToken == "" {
		m.mu.Unlock()
		m.log.Info().Msg("no refresh token, ending session")
		m.Logout()
		return apperrors.ErrNoRefreshToken
	}
	m.refreshing = true
	refreshToken := sess.RefreshToken
	profile := sess.Profile
	m.mu.Unlock()

	resp, err := m.api.Refresh(ctx, refreshToken)

	m.mu.Lock()
	stillCurrent := m.generation == gen
	if stillCurrent {
		m.refreshing = false
	}
	m.mu.Unlock()

	if !stillCurrent {
		m.log.Debug().Msg("discarding refresh result for a replaced session")
		return errSuperseded
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("token refresh failed, ending session")
		m.logoutGeneration(gen)
		return err
	}

	next := sessionFromResponse(resp, m.clock.Now())
	if resp.User == nil {
		next.Profile = profile
	}
	if next.RefreshToken == "" {
		// Backends that do not rotate keep the old refresh token valid.
		next.RefreshToken = refreshToken
	}

	newGen, ok := m.installIf(gen, next, resp.Lifetime())
	if !ok {
		return errSuperseded
	}
	m.persist(ctx, newGen, next)
	m.log.Debug().Time("expires_at", next.ExpiresAt).Msg("access token renewed")
	return nil
}

// ScheduleRenewal arms the single renewal timer to fire lead time before a
// token with the given lifetime expires. Any pending timer is cancelled first.
// A lifetime at or below the lead time renews immediately.
func (m *Manager) ScheduleRenewal(lifetime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduleLocked(lifetime)
}

// RestoreOnLoad rebuilds the session persisted by a previous run. A still
// valid session is installed with a timer for its remaining lifetime. An
// expired one is refreshed before it becomes visible; if that fails storage is
// cleared and ErrSessionExpired returned. Corrupt persisted state is cleared.
func (m *Manager) RestoreOnLoad(ctx context.Context) error {
	m.storeMu.Lock()
	entries, err := m.store.Load(ctx)
	m.storeMu.Unlock()
	if err != nil {
		if errors.Is(err, apperrors.ErrCorruptSession) {
			m.log.Warn().Err(err).Msg("discarding unreadable persisted session")
			m.Logout()
			return nil
		}
		return fmt.Errorf("restore session: %w", err)
	}

	sess, ok, err := decodeEntries(entries)
	if err != nil {
		m.log.Warn().Err(err).Msg("discarding unreadable persisted session")
		m.Logout()
		return nil
	}
	if !ok {
		return nil
	}

	now := m.clock.Now()
	if sess.Expired(now) {
		m.mu.Lock()
		m.stopTimerLocked()
		m.current = &sess
		m.generation++
		m.mu.Unlock()

		m.log.Info().Time("expired_at", sess.ExpiresAt).Msg("persisted session expired, refreshing")
		if !m.RefreshTokens(ctx) {
			return apperrors.ErrSessionExpired
		}
		return nil
	}

	m.install(sess, sess.Remaining(now))
	m.log.Info().Str("email", sess.Profile.Email).Time("expires_at", sess.ExpiresAt).Msg("session restored")
	return nil
}

// RefreshProfile replaces the cached profile with the backend's current view.
// On failure the old profile stays in place and the error is returned for
// callers that want to report it.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	m.mu.Lock()
	if m.current == nil || m.current.Expired(m.clock.Now()) {
		m.mu.Unlock()
		return apperrors.ErrNotAuthenticated
	}
	gen := m.generation
	token := m.current.AccessToken
	m.mu.Unlock()

	profile, err := m.api.Me(ctx, token)
	if err != nil {
		m.log.Warn().Err(err).Msg("profile refresh failed, keeping cached profile")
		return fmt.Errorf("refresh profile: %w", err)
	}

	m.mu.Lock()
	if m.generation != gen || m.current == nil {
		m.mu.Unlock()
		return nil
	}
	m.current.Profile = *profile
	snapshot := *m.current
	m.mu.Unlock()

	m.persist(ctx, gen, snapshot)
	return nil
}

// Current returns the installed session when its access token is still
// usable. Expired sessions are never handed out.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.Expired(m.clock.Now()) {
		return Session{}, false
	}
	return *m.current, true
}

// State reports the lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.current == nil:
		return StateUnauthenticated
	case m.refreshing:
		return StateRefreshing
	default:
		return StateValid
	}
}

// NextRenewal returns when the pending renewal fires.
func (m *Manager) NextRenewal() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer == nil {
		return time.Time{}, false
	}
	return m.renewAt, true
}

// Token implements oauth2.TokenSource over the current session.
func (m *Manager) Token() (*xoauth2.Token, error) {
	s, ok := m.Current()
	if !ok {
		return nil, apperrors.ErrNotAuthenticated
	}
	return &xoauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.RefreshToken,
		Expiry:       s.ExpiresAt,
	}, nil
}

// Close stops the renewal timer without touching the session. Used on
// process shutdown so the persisted session survives for the next run.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
}

func (m *Manager) installIssued(ctx context.Context, resp *oauth2.TokenResponse) Session {
	sess := sessionFromResponse(resp, m.clock.Now())
	gen := m.install(sess, resp.Lifetime())
	m.persist(ctx, gen, sess)
	m.log.Info().Str("email", sess.Profile.Email).Time("expires_at", sess.ExpiresAt).Msg("signed in")
	return sess
}

func (m *Manager) install(sess Session, lifetime time.Duration) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installLocked(sess, lifetime)
}

// installIf installs sess only while the manager is still at generation gen.
func (m *Manager) installIf(gen uint64, sess Session, lifetime time.Duration) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return 0, false
	}
	return m.installLocked(sess, lifetime), true
}

func (m *Manager) installLocked(sess Session, lifetime time.Duration) uint64 {
	m.generation++
	m.current = &sess
	m.refreshing = false
	m.scheduleLocked(lifetime)
	return m.generation
}

func (m *Manager) scheduleLocked(lifetime time.Duration) {
	m.stopTimerLocked()

	delay := lifetime - m.leadTime
	if delay < 0 {
		delay = 0
	}
	gen := m.generation
	m.renewAt = m.clock.Now().Add(delay)
	m.timer = m.clock.AfterFunc(delay, func() {
		m.onRenewalDue(gen)
	})
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) onRenewalDue(gen uint64) {
	m.mu.Lock()
	if m.generation != gen {
		// A newer session re-armed the timer after this one was already firing.
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.mu.Unlock()

	m.RefreshTokens(context.Background())
}

func (m *Manager) logoutGeneration(gen uint64) bool {
	m.mu.Lock()
	current := m.generation == gen
	m.mu.Unlock()
	if current {
		m.Logout()
	}
	return current
}

// persist writes sess to the store if gen is still current. A failed write is
// logged: the in-memory session stays authoritative for this process.
func (m *Manager) persist(ctx context.Context, gen uint64, sess Session) {
	entries, err := encodeEntries(sess)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to encode session")
		return
	}

	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	m.mu.Lock()
	current := m.generation == gen
	m.mu.Unlock()
	if !current {
		return
	}

	if err := m.store.Save(context.WithoutCancel(ctx), entries); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist session, continuing with in-memory session")
	}
}

// authError makes sure every login/register failure is classified.
func authError(op string, err error) error {
	if errors.Is(err, apperrors.ErrInvalidCredentials) || errors.Is(err, apperrors.ErrNetwork) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, apperrors.ErrNotAuthenticated) {
		return fmt.Errorf("%s: %w: %v", op, apperrors.ErrInvalidCredentials, err)
	}
	return fmt.Errorf("%s: %w: %v", op, apperrors.ErrNetwork, err)
}
