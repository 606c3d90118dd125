package server

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/rs/zerolog/log"
)

// Request headers the browser sends that must not reach the backend.
var strippedProxyHeaders = []string{"Cookie", "Authorization", "X-Forwarded-For"}

func (s *Server) newBackendProxy() *httputil.ReverseProxy {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = s.config.GetMediaTimeout()

	return &httputil.ReverseProxy{
		Transport: transport,
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(s.backend)
			pr.Out.URL.Path = joinPath(s.backend.Path, strings.TrimPrefix(pr.In.URL.Path, strings.TrimSuffix(RouteAPIPrefix, "/")))
			pr.Out.URL.RawPath = ""
			pr.Out.Host = s.backend.Host

			for _, h := range strippedProxyHeaders {
				pr.Out.Header.Del(h)
			}
			if sess, ok := sessionFromContext(pr.In.Context()); ok {
				pr.Out.Header.Set("Authorization", "Bearer "+sess.AccessToken)
			}
			if id := requestID(pr.In.Context()); id != "" {
				pr.Out.Header.Set(headerRequestID, id)
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			if resp.StatusCode != http.StatusUnauthorized {
				return nil
			}
			sess, ok := sessionFromContext(resp.Request.Context())
			if !ok {
				return nil
			}
			if s.sessions.LogoutToken(sess.AccessToken) {
				log.Info().Str("path", resp.Request.URL.Path).Msg("backend rejected access token, signed out")
			} else {
				log.Debug().Str("path", resp.Request.URL.Path).Msg("backend rejected a token that is no longer current")
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, r.Context().Err()) && r.Context().Err() != nil {
				// Client went away.
				return
			}
			log.Error().Err(err).Str("request_id", requestID(r.Context())).Str("path", r.URL.Path).Msg("backend unreachable")
			writeJSONError(w, http.StatusBadGateway, "Backend unreachable")
		},
	}
}

// ProxyHandler forwards /api/* to the backend with the session's bearer
// token. Bodies and query strings pass through untouched.
func (s *Server) ProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.proxy.ServeHTTP(w, r)
	}
}

func joinPath(base, p string) string {
	if p == "" {
		p = "/"
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(p, "/")
}
