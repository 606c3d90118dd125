package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	BackendConfig
	SessionConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type BackendConfig interface {
	GetBackendURL() string
	GetAuthTimeout() time.Duration
	GetMediaTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	Backend
	Session
	Store
}

// New returns a configuration backed by environment variables only.
func New() Config {
	return newMainConfig(&File{})
}

// Load returns a configuration that reads environment variables first and
// falls back to the TOML file at path. An empty path uses NARRATE_CONFIG,
// and when that is unset too the result is the same as New.
func Load(path string) (Config, error) {
	if path == "" {
		path = GetEnv(configPathEnvVar, "")
	}
	if path == "" {
		return New(), nil
	}
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return newMainConfig(f), nil
}

func newMainConfig(f *File) mainConfig {
	return mainConfig{
		EnvVars: EnvVars{file: f},
		Cors:    Cors{file: f},
		Backend: Backend{file: f},
		Session: Session{file: f},
		Store:   Store{file: f},
	}
}
