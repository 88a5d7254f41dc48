package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"explainer/internal/config"
	"explainer/internal/logging"
	"explainer/internal/profile"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
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

// ensureLogger builds the process logger and prunes expired log files.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		active := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
		logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "*.log", active)
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// profileFlags are the encoding overrides shared by compile and segment.
type profileFlags struct {
	resolution string
	frameRate  int
}

func (f *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.resolution, "resolution", "", "Output resolution (720p, 1080p, 4k)")
	cmd.Flags().IntVar(&f.frameRate, "fps", 0, "Output frame rate (24, 30, 60)")
}

func (f *profileFlags) resolve(cfg *config.Config) (profile.Profile, error) {
	resolution := cfg.Profile.Resolution
	if strings.TrimSpace(f.resolution) != "" {
		resolution = f.resolution
	}
	frameRate := cfg.Profile.FrameRate
	if f.frameRate != 0 {
		frameRate = f.frameRate
	}
	prof, err := profile.New(resolution, frameRate, cfg.Profile.VideoPreset, cfg.Profile.AudioPreset)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("encoding profile: %w", err)
	}
	return prof, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
