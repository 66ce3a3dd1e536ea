package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"goldmap/internal/config"
	"goldmap/internal/logging"
)

const skipConfigAnnotation = "skipConfigLoad"

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// newLogger builds the console logger for commands that do not own the run
// log file.
func (c *commandContext) newLogger() *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.NewNop()
	}
	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// configSource describes where the effective configuration came from.
func (c *commandContext) configSource() string {
	if c.configExists {
		return c.configPath
	}
	return "built-in defaults"
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for current := cmd; current != nil; current = current.Parent() {
		if current.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}
