package config

import "time"

type SessionConfig interface {
	GetRenewalLeadTime() time.Duration
	GetDefaultAdoptedLifetime() time.Duration
}

type Session struct {
	file *File
}

var _ SessionConfig = Session{}

// GetRenewalLeadTime is how long before access token expiry the silent
// renewal fires.
func (s Session) GetRenewalLeadTime() time.Duration {
	return parseDuration(lookup("RENEWAL_LEAD_TIME", s.file.Session.RenewalLeadTime, ""), 120*time.Second)
}

// GetDefaultAdoptedLifetime applies to access tokens handed over by the social
// login callback when the token carries no exp claim.
func (s Session) GetDefaultAdoptedLifetime() time.Duration {
	return parseDuration(lookup("DEFAULT_ADOPTED_LIFETIME", s.file.Session.DefaultAdoptedLifetime, ""), 15*time.Minute)
}

type Backend struct {
	file *File
}

var _ BackendConfig = Backend{}

// GetBackendURL is the narration API base URL. Inside docker compose the
// service is reachable as "backend".
func (b Backend) GetBackendURL() string {
	return lookup("BACKEND_INTERNAL_URL", b.file.Backend.URL, "http://backend:8000")
}

func (b Backend) GetAuthTimeout() time.Duration {
	return parseDuration(lookup("AUTH_TIMEOUT", b.file.Backend.AuthTimeout, ""), 20*time.Second)
}

// GetMediaTimeout bounds the heavy analysis and rendering calls.
func (b Backend) GetMediaTimeout() time.Duration {
	return parseDuration(lookup("MEDIA_TIMEOUT", b.file.Backend.MediaTimeout, ""), 10*time.Minute)
}
