package server

import "strings"

// ANSI colours for the start-up route listing.
const (
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m"

	// Inverse video marks routes that reach the backend.
	CyanInverse = "\033[7;36m"

	ResetColor = "\033[0m"
)

var methodColors = map[string]string{
	"GET":     Green,
	"POST":    Blue,
	"PUT":     Cyan,
	"DELETE":  Yellow,
	"PATCH":   Magenta,
	"OPTIONS": Gray,
}

// routeColor picks the colour for a route line. Proxied paths stand out
// whatever their method.
func routeColor(method, path string) string {
	if strings.HasPrefix(path, RouteAPIPrefix) {
		return CyanInverse
	}
	if c, ok := methodColors[method]; ok {
		return c
	}
	return Gray
}
