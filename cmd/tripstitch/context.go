package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"tripstitch/internal/config"
	"tripstitch/internal/logging"
	"tripstitch/internal/maprender"
)

// commandContext lazily loads configuration and the logger, shared by every
// subcommand. Style overrides from the config file are registered on first
// load so the render engine sees them.
type commandContext struct {
	configFlag *string
	cfg        *config.Config
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	for _, s := range cfg.Map.Styles {
		maprender.RegisterStyle(maprender.Style{
			Name:    s.Name,
			URL:     s.URL,
			Headers: cfg.Map.Headers,
		})
	}
	c.cfg = cfg
	c.logger = logger
	return cfg, nil
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	if _, err := c.ensureConfig(); err != nil {
		return nil, err
	}
	return c.logger, nil
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
