package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/jrsteele09/narrate-web/internal/config"
	"github.com/jrsteele09/narrate-web/session"
	"github.com/rs/zerolog/log"
)

// SessionManager is the session surface the web server drives.
// *session.Manager implements it.
type SessionManager interface {
	Login(ctx context.Context, email, password string) (session.Session, error)
	Register(ctx context.Context, email, password string) (session.Session, error)
	AdoptAccessToken(ctx context.Context, accessToken string) (session.Session, error)
	Logout()
	LogoutToken(accessToken string) bool
	Current() (session.Session, bool)
	State() session.State
	RefreshProfile(ctx context.Context) error
}

var _ SessionManager = (*session.Manager)(nil)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	sessions SessionManager
	backend  *url.URL
	proxy    *httputil.ReverseProxy
}

func New(config config.Config, sessions SessionManager) (*Server, error) {
	backend, err := url.Parse(config.GetBackendURL())
	if err != nil || backend.Scheme == "" || backend.Host == "" {
		return nil, fmt.Errorf("[Server New] invalid backend url %q", config.GetBackendURL())
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		sessions: sessions,
		backend:  backend,
	}
	s.proxy = s.newBackendProxy()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("*", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color := routeColor(method, path)
	log.Info().Msgf("[%-19s] %s", color+paddedMethod+ResetColor, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
