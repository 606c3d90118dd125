// Package app wires configuration into the session stack shared by the web
// server and the CLI.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrsteele09/narrate-web/api"
	"github.com/jrsteele09/narrate-web/authapi"
	"github.com/jrsteele09/narrate-web/internal/config"
	apperrors "github.com/jrsteele09/narrate-web/internal/errors"
	"github.com/jrsteele09/narrate-web/session"
	"github.com/jrsteele09/narrate-web/session/store"
	"github.com/jrsteele09/narrate-web/session/store/filestore"
	"github.com/jrsteele09/narrate-web/session/store/redisstore"
	"github.com/jrsteele09/narrate-web/session/store/sqlitestore"
	"github.com/rs/zerolog"
)

// App bundles the long-lived components. Close releases them in reverse order.
type App struct {
	Config  config.Config
	Auth    *authapi.Client
	Store   store.Store
	Session *session.Manager
	API     *api.Client
}

// OpenStore builds the session store selected by the configuration.
func OpenStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	switch driver := c.GetStoreDriver(); driver {
	case config.StoreDriverFile:
		var opts []filestore.Option
		if key := c.GetStoreEncryptionKey(); key != "" {
			opts = append(opts, filestore.WithPassphrase(key))
		}
		path := c.GetStorePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("[app OpenStore] %w: %v", apperrors.ErrStorageUnavailable, err)
		}
		fs, err := filestore.New(path, opts...)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.StoreDriverRedis:
		rs, err := redisstore.Dial(ctx, c.GetRedisAddr(), c.GetRedisPassword(), c.GetRedisDB(), c.GetStoreNamespace())
		if err != nil {
			return nil, err
		}
		return rs, nil
	case config.StoreDriverSQLite:
		path := c.GetStorePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("[app OpenStore] %w: %v", apperrors.ErrStorageUnavailable, err)
		}
		ss, err := sqlitestore.Open(ctx, path, c.GetStoreNamespace())
		if err != nil {
			return nil, err
		}
		return ss, nil
	case config.StoreDriverMemory:
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("[app OpenStore] unknown session store %q: %w", driver, apperrors.ErrUnsupported)
	}
}

// New opens the store, builds the manager and restores any persisted session.
// An expired session that cannot be renewed is not an error here: the app
// starts signed out.
func New(ctx context.Context, c config.Config, logger zerolog.Logger) (*App, error) {
	st, err := OpenStore(ctx, c)
	if err != nil {
		return nil, err
	}

	auth := authapi.New(c.GetBackendURL(), c.GetAuthTimeout())
	mgr := session.NewManager(auth, st,
		session.WithLogger(logger),
		session.WithRenewalLeadTime(c.GetRenewalLeadTime()),
		session.WithDefaultAdoptedLifetime(c.GetDefaultAdoptedLifetime()),
	)

	if err := mgr.RestoreOnLoad(ctx); err != nil {
		if !apperrors.Is(err, apperrors.ErrSessionExpired) {
			mgr.Close()
			_ = st.Close()
			return nil, fmt.Errorf("[app New] %w", err)
		}
		logger.Info().Msg("persisted session expired, starting signed out")
	}

	return &App{
		Config:  c,
		Auth:    auth,
		Store:   st,
		Session: mgr,
		API:     api.New(c.GetBackendURL(), mgr, api.WithTimeout(c.GetMediaTimeout())),
	}, nil
}

// Close stops renewals and releases the store. The session stays persisted.
func (a *App) Close() error {
	a.Session.Close()
	return a.Store.Close()
}
