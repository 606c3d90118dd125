package server

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/narrate-web/internal/errors"
	"github.com/jrsteele09/narrate-web/session"
	"github.com/jrsteele09/narrate-web/users"
	"github.com/rs/zerolog/log"
)

const maxFormBody = 1 << 20

type credentialsRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password,omitempty"`
}

// SessionResponse is what the browser sees of the session. Tokens never
// leave the server.
type SessionResponse struct {
	Authenticated bool           `json:"authenticated"`
	State         session.State  `json:"state"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	Profile       *users.Profile `json:"profile,omitempty"`
}

func (s *Server) sessionResponse() SessionResponse {
	sess, ok := s.sessions.Current()
	if !ok {
		return SessionResponse{State: session.StateUnauthenticated}
	}
	return SessionResponse{
		Authenticated: true,
		State:         s.sessions.State(),
		ExpiresAt:     &sess.ExpiresAt,
		Profile:       &sess.Profile,
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) SessionStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.sessionResponse())
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeCredentials(w, r)
		if !ok {
			return
		}
		if err := users.ValidateCredentials(req.Email, req.Password); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := s.sessions.Login(r.Context(), req.Email, req.Password); err != nil {
			writeAuthError(w, err, "Invalid credentials")
			return
		}
		writeJSON(w, http.StatusOK, s.sessionResponse())
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeCredentials(w, r)
		if !ok {
			return
		}
		confirm := req.ConfirmPassword
		if confirm == "" {
			confirm = req.Password
		}
		if err := users.ValidateRegistration(req.Email, req.Password, confirm); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := s.sessions.Register(r.Context(), req.Email, req.Password); err != nil {
			writeAuthError(w, err, "Registration failed")
			return
		}
		writeJSON(w, http.StatusOK, s.sessionResponse())
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.sessions.Logout()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ProfileRefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.sessions.RefreshProfile(r.Context()); err != nil {
			if apperrors.Is(err, apperrors.ErrNotAuthenticated) {
				writeJSONError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			writeJSONError(w, http.StatusBadGateway, "Could not refresh profile")
			return
		}
		writeJSON(w, http.StatusOK, s.sessionResponse())
	}
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBody)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	return req, true
}

func writeAuthError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidCredentials):
		writeJSONError(w, http.StatusUnauthorized, backendMessage(err, fallback))
	default:
		log.Warn().Err(err).Msg("authentication request failed")
		writeJSONError(w, http.StatusBadGateway, "Authentication service unavailable")
	}
}
