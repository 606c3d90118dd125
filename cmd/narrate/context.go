package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/jrsteele09/narrate-web/internal/app"
	"github.com/jrsteele09/narrate-web/internal/config"
	apperrors "github.com/jrsteele09/narrate-web/internal/errors"
	"github.com/jrsteele09/narrate-web/internal/logging"
	"github.com/spf13/cobra"
)

type commandContext struct {
	configFlag  *string
	outputFlag  *string
	verboseFlag *bool

	appOnce sync.Once
	app     *app.App
	appErr  error
}

func newCommandContext(configFlag, outputFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		outputFlag:  outputFlag,
		verboseFlag: verboseFlag,
	}
}

// ensureApp loads config, opens the session store and restores the persisted
// session once per invocation.
func (c *commandContext) ensureApp(ctx context.Context) (*app.App, error) {
	c.appOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.appErr = err
			return
		}

		level := "warn"
		if c.verboseFlag != nil && *c.verboseFlag {
			level = "debug"
		}
		logger := logging.New(level, os.Stderr)

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			c.appErr = err
			return
		}
		c.app = a
	})
	return c.app, c.appErr
}

// close stops renewals and releases the store. The session stays on disk for
// the next invocation.
func (c *commandContext) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func (c *commandContext) output() outputFormat {
	f, _ := parseOutputFormat(*c.outputFlag)
	return f
}

// outputOr substitutes def when the user left the default table format.
func (c *commandContext) outputOr(def outputFormat) outputFormat {
	if f := c.output(); f != outputTable {
		return f
	}
	return def
}

func (c *commandContext) withApp(cmd *cobra.Command, fn func(*app.App) error) error {
	a, err := c.ensureApp(cmd.Context())
	if err != nil {
		return err
	}
	return explain(fn(a))
}

// explain turns session errors into something a terminal user can act on.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrNotAuthenticated):
		return fmt.Errorf("not signed in; run `narrate login` first")
	case errors.Is(err, apperrors.ErrSessionExpired):
		return fmt.Errorf("session expired; run `narrate login` again")
	case errors.Is(err, apperrors.ErrNetwork):
		return fmt.Errorf("backend unreachable: %w", err)
	default:
		return err
	}
}
