package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"equipqr/internal/config"
	"equipqr/internal/daemonctl"
	"equipqr/internal/logging"
	"equipqr/internal/queueaccess"
)

// daemonDialTimeout bounds how long a command waits for the daemon before
// falling back to the local store.
const daemonDialTimeout = 750 * time.Millisecond

type commandContext struct {
	configFlag *string
	localFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, localFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		localFlag:  localFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// commandLogger writes to the CLI log file only, keeping stdout and stderr
// for command output.
func (c *commandContext) commandLogger(cfg *config.Config) *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      "json",
			OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "equipqr-cli.log")},
		})
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) forceLocal() bool {
	return c.localFlag != nil && *c.localFlag
}

// withSession runs fn against the daemon when it answers, otherwise against
// the local store.
func (c *commandContext) withSession(cmd *cobra.Command, fn func(context.Context, queueaccess.Session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateSession(); err != nil {
		return err
	}

	var dial func() (*daemonctl.Client, error)
	if !c.forceLocal() {
		dial = func() (*daemonctl.Client, error) {
			return daemonctl.Dial(cmd.Context(), cfg, daemonDialTimeout)
		}
	}
	openLocal := func() (*queueaccess.Local, error) {
		return queueaccess.OpenLocal(cfg, c.commandLogger(cfg))
	}

	session, err := queueaccess.OpenWithFallback(dial, openLocal)
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(cmd.Context(), session)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
