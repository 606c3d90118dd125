// Package authapifake is an in-memory stand-in for the backend's /auth
// endpoints. Serve its Mux from an httptest.Server.
//
// Access tokens are HS256 JWTs, refresh tokens are random and rotate on every
// use: presenting a rotated token is rejected like the real backend does.
package authapifake

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/narrate-web/authapi"
	"github.com/jrsteele09/narrate-web/oauth2"
	"github.com/jrsteele09/narrate-web/users"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultAccessTokenTTL = time.Hour
	refreshTokenLength    = 32
	signupCredits         = 100
)

var errNotFound = errors.New("not found")

type account struct {
	profile      users.Profile
	passwordHash string
}

// Backend holds accounts and outstanding refresh tokens.
type Backend struct {
	// NowTimeFunc returns the current time. Tests sharing a fake clock with the
	// session manager point it at that clock.
	NowTimeFunc func() time.Time
	// AccessTokenTTL is reported as expires_in and baked into the exp claim.
	AccessTokenTTL time.Duration

	key []byte
	mux *http.ServeMux

	lock     sync.RWMutex
	accounts map[string]*account // by email
	refresh  map[string]string   // refresh token to email
	byUser   map[string]string   // email to its single live refresh token
	nextID   int64
	failWith int

	refreshCalls atomic.Int32
}

func New() *Backend {
	b := &Backend{
		NowTimeFunc:    time.Now,
		AccessTokenTTL: DefaultAccessTokenTTL,
		key:            []byte(uuid.NewString()),
		mux:            http.NewServeMux(),
		accounts:       make(map[string]*account),
		refresh:        make(map[string]string),
		byUser:         make(map[string]string),
	}
	b.mux.HandleFunc("POST "+authapi.RouteLogin, b.login)
	b.mux.HandleFunc("POST "+authapi.RouteRegister, b.register)
	b.mux.HandleFunc("POST "+authapi.RouteRefresh, b.refreshTokens)
	b.mux.HandleFunc("GET "+authapi.RouteMe, b.me)
	return b
}

// Mux serves the auth routes. Tests may register product routes on it and
// guard them with Authenticate.
func (b *Backend) Mux() *http.ServeMux {
	return b.mux
}

// AddUser creates an account with the given balance.
func (b *Backend) AddUser(email, password string, credits int) users.Profile {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	b.nextID++
	a := &account{
		profile: users.Profile{
			ID:        b.nextID,
			Email:     email,
			Credits:   credits,
			Plan:      users.PlanFree,
			CreatedAt: b.NowTimeFunc().UTC().Format("2006-01-02T15:04:05.000000"),
		},
		passwordHash: string(hash),
	}
	b.accounts[email] = a
	return a.profile
}

// SetCredits changes an account balance, as a billed operation would.
func (b *Backend) SetCredits(email string, credits int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if a, ok := b.accounts[email]; ok {
		a.profile.Credits = credits
	}
}

// FailRefreshWith makes /auth/refresh answer with status until reset with 0.
func (b *Backend) FailRefreshWith(status int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.failWith = status
}

// RevokeRefreshTokens drops every outstanding refresh token.
func (b *Backend) RevokeRefreshTokens() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.refresh = make(map[string]string)
	b.byUser = make(map[string]string)
}

// RefreshCalls counts requests to /auth/refresh.
func (b *Backend) RefreshCalls() int {
	return int(b.refreshCalls.Load())
}

// IssueAccessToken mints a token for email without a refresh token, the way
// the social login callback hands one over.
func (b *Backend) IssueAccessToken(email string) (string, error) {
	b.lock.RLock()
	a, ok := b.accounts[email]
	b.lock.RUnlock()
	if !ok {
		return "", errNotFound
	}
	return b.createAccessToken(a.profile)
}

// Authenticate resolves the request's bearer token to an account profile.
func (b *Backend) Authenticate(r *http.Request) (users.Profile, bool) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return users.Profile{}, false
	}
	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return b.key, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithTimeFunc(b.NowTimeFunc))
	if err != nil {
		return users.Profile{}, false
	}
	email, _ := claims["email"].(string)

	b.lock.RLock()
	defer b.lock.RUnlock()
	a, ok := b.accounts[email]
	if !ok {
		return users.Profile{}, false
	}
	return a.profile, true
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds oauth2.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	b.lock.RLock()
	a, ok := b.accounts[creds.Email]
	b.lock.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(creds.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	b.issue(w, a.profile, true)
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var creds oauth2.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	b.lock.RLock()
	_, exists := b.accounts[creds.Email]
	b.lock.RUnlock()
	if exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	profile := b.AddUser(creds.Email, creds.Password, signupCredits)
	b.issue(w, profile, true)
}

func (b *Backend) refreshTokens(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)

	var req oauth2.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	b.lock.Lock()
	if b.failWith != 0 {
		status := b.failWith
		b.lock.Unlock()
		writeDetail(w, status, "Refresh failed")
		return
	}
	email, ok := b.refresh[req.RefreshToken]
	if ok {
		delete(b.refresh, req.RefreshToken)
		delete(b.byUser, email)
	}
	a := b.accounts[email]
	b.lock.Unlock()

	if !ok || a == nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	b.issue(w, a.profile, false)
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	profile, ok := b.Authenticate(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (b *Backend) issue(w http.ResponseWriter, profile users.Profile, withUser bool) {
	access, err := b.createAccessToken(profile)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	refresh, err := b.createRefreshToken(profile.Email)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := oauth2.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(b.AccessTokenTTL / time.Second),
	}
	if withUser {
		resp.User = &profile
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) createAccessToken(profile users.Profile) (string, error) {
	now := b.NowTimeFunc()
	claims := jwtlib.MapClaims{
		"sub":   profile.Email,
		"email": profile.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(b.AccessTokenTTL).Unix(),
		"jti":   uuid.NewString(),
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(b.key)
}

// createRefreshToken replaces the account's live refresh token.
func (b *Backend) createRefreshToken(email string) (string, error) {
	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	b.lock.Lock()
	defer b.lock.Unlock()
	if old, ok := b.byUser[email]; ok {
		delete(b.refresh, old)
	}
	b.refresh[token] = email
	b.byUser[email] = token
	return token, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, oauth2.ErrorResponse{Detail: detail})
}
