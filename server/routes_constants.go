package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Pages the browser is sent to
	RouteHome  = "/"
	RouteLogin = "/login"

	// Session Routes
	RouteSession               = "/session"
	RouteSessionLogin          = "/session/login"
	RouteSessionRegister       = "/session/register"
	RouteSessionLogout         = "/session/logout"
	RouteSessionProfileRefresh = "/session/profile/refresh"

	// Social login hands the access token back here
	RouteAuthCallback = "/auth/callback"

	// Backend passthrough
	RouteAPIPrefix = "/api/"
	RouteAPI       = RouteAPIPrefix + "{path...}"

	RouteHealth = "/healthz"
)

// Error codes appended to RouteLogin as ?error=
const (
	LoginErrorOAuthFailed = "oauth_failed"
	LoginErrorAuthFailed  = "auth_failed"
)
