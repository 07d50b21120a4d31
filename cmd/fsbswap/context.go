package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/shiroemons/go-fsbswap/internal/fsbswap/app"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/config"
	"github.com/shiroemons/go-fsbswap/internal/fsbswap/logging"
)

type globalFlags struct {
	config    string
	profile   string
	logLevel  string
	logFormat string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig は設定ファイルを読み込み、フラグの値で上書きします
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, loaded, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if c.flags.profile != "" {
			cfg.Profile = c.flags.profile
		}
		if c.flags.logLevel != "" {
			cfg.Logging.Level = c.flags.logLevel
		}
		if c.flags.logFormat != "" {
			cfg.Logging.Format = c.flags.logFormat
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}

		logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		if err != nil {
			c.configErr = err
			return
		}
		if loaded {
			logger.Debug("設定ファイルを読み込みました", slog.String("path", c.configPath()))
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.flags.config != "" {
		return c.flags.config
	}
	return config.DefaultPath
}

// newApp は設定からAppを作成します
func (c *commandContext) newApp() (*app.App, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return app.NewWithOptions(cfg, app.Options{Logger: c.logger}), nil
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
