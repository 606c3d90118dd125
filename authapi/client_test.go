package authapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/narrate-web/authapi"
	apperrors "github.com/jrsteele09/narrate-web/internal/errors"
	"github.com/stretchr/testify/require"
)

const loginResponse = `{"access_token":"AT1","refresh_token":"RT1","token_type":"bearer","expires_in":3600,"user":{"id":1,"email":"a@b.com","credits":100,"plan":"free","created_at":"2026-01-01T10:00:00.123456"}}`

func newBackend(t *testing.T, handler http.HandlerFunc) *authapi.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return authapi.New(srv.URL, 5*time.Second)
}

func TestLogin_Success(t *testing.T) {
	var got map[string]string
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, authapi.RouteLogin, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(loginResponse))
	})

	tr, err := c.Login(context.Background(), "a@b.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"email": "a@b.com", "password": "secret123"}, got)
	require.Equal(t, "AT1", tr.AccessToken)
	require.Equal(t, "RT1", tr.RefreshToken)
	require.Equal(t, 3600, tr.ExpiresIn)
	require.NotNil(t, tr.User)
	require.Equal(t, 100, tr.User.Credits)
}

func TestLogin_Rejected(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Incorrect email or password"}`))
	})

	_, err := c.Login(context.Background(), "a@b.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	var se *authapi.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusUnauthorized, se.StatusCode)
	require.Equal(t, "Incorrect email or password", se.Message)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, authapi.RouteRegister, r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Email already registered"}`))
	})

	_, err := c.Register(context.Background(), "a@b.com", "secret123")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	require.Contains(t, err.Error(), "Email already registered")
}

func TestLogin_ServerErrorIsNetwork(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Login(context.Background(), "a@b.com", "secret123")
	require.ErrorIs(t, err, apperrors.ErrNetwork)
	require.NotErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLogin_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := authapi.New(url, time.Second).Login(context.Background(), "a@b.com", "secret123")
	require.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestLogin_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	_, err := authapi.New(srv.URL, 50*time.Millisecond).Login(context.Background(), "a@b.com", "secret123")
	require.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestLogin_MalformedBody(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":`))
	})

	_, err := c.Login(context.Background(), "a@b.com", "secret123")
	require.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestRefresh_SendsToken(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "RT1", body["refresh_token"])
		w.Write([]byte(`{"access_token":"AT2","refresh_token":"RT2","token_type":"bearer","expires_in":3600}`))
	})

	tr, err := c.Refresh(context.Background(), "RT1")
	require.NoError(t, err)
	require.Equal(t, "AT2", tr.AccessToken)
	require.Nil(t, tr.User)
}

func TestMe(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer AT1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id":1,"email":"a@b.com","credits":80,"plan":"pro","created_at":"2026-01-01T10:00:00"}`))
	})

	p, err := c.Me(context.Background(), "AT1")
	require.NoError(t, err)
	require.Equal(t, 80, p.Credits)

	_, err = c.Me(context.Background(), "stale")
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
}
