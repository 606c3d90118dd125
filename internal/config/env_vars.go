package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	baseURLVar     = "BASE_URL"
	logLevelEnvVar = "LOG_LEVEL"
)

type EnvVars struct {
	file *File
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := lookup(portEnvVar, e.file.Server.Port, "3000")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return lookup(appNameVar, e.file.Server.AppName, "Narrate")
}

func (e EnvVars) GetEnv() string {
	return lookup("ENV", e.file.Server.Env, "DEV")
}

func (e EnvVars) GetLogLevel() string {
	return lookup(logLevelEnvVar, e.file.Server.LogLevel, "info")
}

// GetBaseURL returns the public URL of this server (e.g., "https://app.example.com").
// Used to build absolute redirect targets.
func (e EnvVars) GetBaseURL() string {
	return lookup(baseURLVar, e.file.Server.BaseURL, "http://localhost:3000")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// parseDuration accepts Go duration strings ("90s", "10m") and bare integers
// as seconds. Anything else yields the default.
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
