package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSiril(); err != nil {
		return err
	}
	if err := c.normalizeCosmicClarity(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSiril() error {
	c.Siril.CommandPipe = strings.TrimSpace(c.Siril.CommandPipe)
	if c.Siril.CommandPipe == "" {
		c.Siril.CommandPipe = defaultCommandPipe
	}
	c.Siril.ResponsePipe = strings.TrimSpace(c.Siril.ResponsePipe)
	if c.Siril.ResponsePipe == "" {
		c.Siril.ResponsePipe = defaultResponsePipe
	}
	c.Siril.RequiredVersion = strings.TrimSpace(c.Siril.RequiredVersion)
	if c.Siril.RequiredVersion == "" {
		c.Siril.RequiredVersion = defaultRequiredVersion
	}
	c.Siril.Extension = strings.ToLower(strings.TrimSpace(c.Siril.Extension))
	if c.Siril.Extension == "" {
		c.Siril.Extension = defaultExtension
	}
	if c.Siril.ConnectTimeout <= 0 {
		c.Siril.ConnectTimeout = defaultConnectTimeout
	}
	if strings.TrimSpace(c.Siril.ConfigDir) == "" {
		c.Siril.ConfigDir = defaultSirilConfigDir
	}
	var err error
	if c.Siril.ConfigDir, err = expandPath(c.Siril.ConfigDir); err != nil {
		return fmt.Errorf("siril.config_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCosmicClarity() error {
	var err error
	if path := strings.TrimSpace(c.CosmicClarity.SharpenExecutable); path != "" {
		if c.CosmicClarity.SharpenExecutable, err = expandPath(path); err != nil {
			return fmt.Errorf("cosmic_clarity.sharpen_executable: %w", err)
		}
	} else {
		c.CosmicClarity.SharpenExecutable = ""
	}
	if path := strings.TrimSpace(c.CosmicClarity.DenoiseExecutable); path != "" {
		if c.CosmicClarity.DenoiseExecutable, err = expandPath(path); err != nil {
			return fmt.Errorf("cosmic_clarity.denoise_executable: %w", err)
		}
	} else {
		c.CosmicClarity.DenoiseExecutable = ""
	}
	c.CosmicClarity.ExtraArgs = strings.TrimSpace(c.CosmicClarity.ExtraArgs)
	if c.CosmicClarity.RunTimeout < 0 {
		c.CosmicClarity.RunTimeout = 0
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
