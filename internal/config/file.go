package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const configPathEnvVar = "NARRATE_CONFIG"

// File mirrors the optional TOML configuration file. Environment variables
// always win over values read from it.
type File struct {
	Server struct {
		Port           string   `toml:"port"`
		AppName        string   `toml:"app_name"`
		Env            string   `toml:"env"`
		LogLevel       string   `toml:"log_level"`
		BaseURL        string   `toml:"base_url"`
		AllowedOrigins []string `toml:"allowed_origins"`
	} `toml:"server"`

	Backend struct {
		URL          string `toml:"url"`
		AuthTimeout  string `toml:"auth_timeout"`
		MediaTimeout string `toml:"media_timeout"`
	} `toml:"backend"`

	Session struct {
		RenewalLeadTime        string `toml:"renewal_lead_time"`
		DefaultAdoptedLifetime string `toml:"default_adopted_lifetime"`
	} `toml:"session"`

	Store struct {
		Driver        string `toml:"driver"`
		Path          string `toml:"path"`
		Namespace     string `toml:"namespace"`
		EncryptionKey string `toml:"encryption_key"`
		RedisAddr     string `toml:"redis_addr"`
		RedisPassword string `toml:"redis_password"`
		RedisDB       int    `toml:"redis_db"`
	} `toml:"store"`
}

// ReadFile decodes the TOML file at path. Unknown keys are rejected so a
// typo does not silently fall back to a default.
func ReadFile(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %q not found: %w", path, err)
		}
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	var f File
	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode config file %q: %w", path, err)
	}
	return &f, nil
}

// lookup resolves a setting: env var, then file value, then default.
func lookup(envVar, fileValue, defaultValue string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if strings.TrimSpace(fileValue) != "" {
		return fileValue
	}
	return defaultValue
}
