package config

import (
	"fmt"

	"github.com/kballard/go-shellquote"
)

var supportedExtensions = map[string]struct{}{
	"fit":  {},
	"fits": {},
	"fts":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSiril(); err != nil {
		return err
	}
	if err := c.validateCosmicClarity(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSiril() error {
	if _, ok := supportedExtensions[c.Siril.Extension]; !ok {
		return fmt.Errorf("siril.extension: unsupported value %q (fit, fits, fts)", c.Siril.Extension)
	}
	return nil
}

func (c *Config) validateCosmicClarity() error {
	if c.CosmicClarity.ExtraArgs == "" {
		return nil
	}
	if _, err := shellquote.Split(c.CosmicClarity.ExtraArgs); err != nil {
		return fmt.Errorf("cosmic_clarity.extra_args: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (console, json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q (debug, info, warn, error)", c.Logging.Level)
	}
	return nil
}

// CosmicClarityExtraArgs returns the parsed extra argument vector for Cosmic
// Clarity invocations. Validation guarantees the string splits cleanly.
func (c *Config) CosmicClarityExtraArgs() []string {
	if c.CosmicClarity.ExtraArgs == "" {
		return nil
	}
	args, err := shellquote.Split(c.CosmicClarity.ExtraArgs)
	if err != nil {
		return nil
	}
	return args
}
