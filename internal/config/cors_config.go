package config

import (
	"slices"
	"strings"
)

type Cors struct {
	file *File
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

// String lists the origins sorted, for the start-up log.
func (a AllowedOrigins) String() string {
	origins := make([]string, 0, len(a))
	for k := range a {
		origins = append(origins, k)
	}
	slices.Sort(origins)
	return strings.Join(origins, ", ")
}

// GetAllowedOrigins reads ALLOWED_ORIGINS as a comma separated list.
func (c Cors) GetAllowedOrigins() AllowedOrigins {
	origins := AllowedOrigins{}
	if raw := GetEnv("ALLOWED_ORIGINS", ""); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins[o] = nullValue{}
			}
		}
		return origins
	}
	for _, o := range c.file.Server.AllowedOrigins {
		origins[o] = nullValue{}
	}
	if len(origins) == 0 {
		origins["http://localhost:3000"] = nullValue{}
	}
	return origins
}

// GetAllowedMethods covers the session endpoints and everything the proxy
// forwards.
func (Cors) GetAllowedMethods() string {
	return "GET, POST, PUT, PATCH, DELETE, OPTIONS"
}

// GetAllowedHeaders lists what the browser may send. Authorization is absent:
// the proxy injects the bearer itself and strips any the client sends.
func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Accept, X-Request-ID"
}
