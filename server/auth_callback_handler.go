package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// AuthCallbackHandler completes a social login. The backend redirects here
// with the access token in the query string; the token is adopted as the
// session and the browser continues to the home page.
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			redirectWithError(w, r, RouteLogin, LoginErrorOAuthFailed)
			return
		}

		sess, err := s.sessions.AdoptAccessToken(r.Context(), token)
		if err != nil {
			log.Warn().Err(err).Str("request_id", requestID(r.Context())).Msg("social login callback failed")
			redirectWithError(w, r, RouteLogin, LoginErrorAuthFailed)
			return
		}

		log.Info().Str("email", sess.Profile.Email).Msg("social login completed")
		http.Redirect(w, r, RouteHome, http.StatusSeeOther)
	}
}
