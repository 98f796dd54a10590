package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"astropipe/internal/config"
	"astropipe/internal/logging"
	"astropipe/internal/manifest"
	"astropipe/internal/pipeline"
	"astropipe/internal/services/cosmic"
	"astropipe/internal/services/siril"
)

type commandContext struct {
	configFlag  *string
	workdirFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, workdirFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		workdirFlag: workdirFlag,
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

// workdir resolves the working directory flag, defaulting to the
// process's current directory.
func (c *commandContext) workdir() (string, error) {
	if c.workdirFlag != nil && strings.TrimSpace(*c.workdirFlag) != "" {
		return config.ExpandPath(*c.workdirFlag)
	}
	return os.Getwd()
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
}

// newDriver assembles the pipeline driver from the configuration. The
// caller owns the returned store and must close it.
func (c *commandContext) newDriver(logger *slog.Logger) (*pipeline.Driver, *manifest.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := manifest.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	conn := siril.NewPipeConn(
		cfg.Siril.CommandPipe,
		cfg.Siril.ResponsePipe,
		time.Duration(cfg.Siril.ConnectTimeout)*time.Second,
		logger,
	)
	driver := &pipeline.Driver{
		Conn:    conn,
		Store:   store,
		Logger:  logger,
		LockDir: cfg.Paths.StateDir,
		Session: siril.SessionOptions{
			RequiredVersion: cfg.Siril.RequiredVersion,
			Extension:       cfg.Siril.Extension,
			Force32Bit:      cfg.Siril.Force32Bit,
		},
	}
	return driver, store, nil
}

// cosmicClient builds a Cosmic Clarity client for one tool, honoring
// configured executable overrides, extra arguments, and run timeout.
func (c *commandContext) cosmicClient(tool cosmic.Tool) (*cosmic.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts := []cosmic.Option{
		cosmic.WithExtraArgs(cfg.CosmicClarityExtraArgs()),
	}
	if cfg.CosmicClarity.RunTimeout > 0 {
		opts = append(opts, cosmic.WithRunTimeout(time.Duration(cfg.CosmicClarity.RunTimeout)*time.Second))
	}
	switch tool {
	case cosmic.ToolSharpen:
		if cfg.CosmicClarity.SharpenExecutable != "" {
			opts = append(opts, cosmic.WithExecutablePath(cfg.CosmicClarity.SharpenExecutable))
		}
	case cosmic.ToolDenoise:
		if cfg.CosmicClarity.DenoiseExecutable != "" {
			opts = append(opts, cosmic.WithExecutablePath(cfg.CosmicClarity.DenoiseExecutable))
		}
	}
	return cosmic.New(tool, cfg.SirilConfigDir(), opts...), nil
}
