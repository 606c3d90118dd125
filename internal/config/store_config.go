package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Store drivers understood by the session storage factory.
const (
	StoreDriverFile   = "file"
	StoreDriverRedis  = "redis"
	StoreDriverSQLite = "sqlite"
	StoreDriverMemory = "memory"
)

type StoreConfig interface {
	GetStoreDriver() string
	GetStorePath() string
	GetStoreNamespace() string
	GetStoreEncryptionKey() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type Store struct {
	file *File
}

var _ StoreConfig = Store{}

func (s Store) GetStoreDriver() string {
	return lookup("SESSION_STORE", s.file.Store.Driver, StoreDriverFile)
}

// GetStorePath is the session file (file driver) or database (sqlite driver).
// Defaults to a file under the user's config directory.
func (s Store) GetStorePath() string {
	def := "./data/session.json"
	if dir, err := os.UserConfigDir(); err == nil {
		def = filepath.Join(dir, "narrate", "session.json")
	}
	return lookup("SESSION_STORE_PATH", s.file.Store.Path, def)
}

// GetStoreNamespace prefixes keys so several profiles can share one redis or
// sqlite database.
func (s Store) GetStoreNamespace() string {
	return lookup("SESSION_STORE_NAMESPACE", s.file.Store.Namespace, "default")
}

// GetStoreEncryptionKey enables sealing of the session file when non-empty.
func (s Store) GetStoreEncryptionKey() string {
	return lookup("SESSION_STORE_KEY", s.file.Store.EncryptionKey, "")
}

func (s Store) GetRedisAddr() string {
	return lookup("REDIS_ADDR", s.file.Store.RedisAddr, "localhost:6379")
}

func (s Store) GetRedisPassword() string {
	return lookup("REDIS_PASSWORD", s.file.Store.RedisPassword, "")
}

func (s Store) GetRedisDB() int {
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			return db
		}
	}
	return s.file.Store.RedisDB
}
