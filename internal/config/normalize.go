package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProfile()
	c.normalizeFFmpeg()
	c.normalizePublish()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.JobsDir) == "" {
		c.Paths.JobsDir = defaultJobsDir
	}
	var err error
	if c.Paths.JobsDir, err = expandPath(strings.TrimSpace(c.Paths.JobsDir)); err != nil {
		return fmt.Errorf("paths.jobs_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProfile() {
	c.Profile.Resolution = strings.ToLower(strings.TrimSpace(c.Profile.Resolution))
	if c.Profile.Resolution == "" {
		c.Profile.Resolution = defaultResolution
	}
	if c.Profile.FrameRate == 0 {
		c.Profile.FrameRate = defaultFrameRate
	}
	c.Profile.VideoPreset = strings.ToLower(strings.TrimSpace(c.Profile.VideoPreset))
	if c.Profile.VideoPreset == "" {
		c.Profile.VideoPreset = defaultVideoPreset
	}
	c.Profile.AudioPreset = strings.ToLower(strings.TrimSpace(c.Profile.AudioPreset))
	if c.Profile.AudioPreset == "" {
		c.Profile.AudioPreset = defaultAudioPreset
	}
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.FFmpegBinary = strings.TrimSpace(c.FFmpeg.FFmpegBinary)
	if c.FFmpeg.FFmpegBinary == "" {
		c.FFmpeg.FFmpegBinary = defaultFFmpegBinary
	}
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizePublish() {
	c.Publish.Bucket = strings.TrimSpace(c.Publish.Bucket)
	c.Publish.Region = strings.TrimSpace(c.Publish.Region)
	c.Publish.Endpoint = strings.TrimRight(strings.TrimSpace(c.Publish.Endpoint), "/")
	c.Publish.Prefix = strings.Trim(strings.TrimSpace(c.Publish.Prefix), "/")
	c.Publish.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Publish.PublicBaseURL), "/")
	c.Publish.AccessKey = strings.TrimSpace(c.Publish.AccessKey)
	if c.Publish.AccessKey == "" {
		if value, ok := os.LookupEnv("EXPLAINER_S3_ACCESS_KEY"); ok {
			c.Publish.AccessKey = strings.TrimSpace(value)
		}
	}
	c.Publish.SecretKey = strings.TrimSpace(c.Publish.SecretKey)
	if c.Publish.SecretKey == "" {
		if value, ok := os.LookupEnv("EXPLAINER_S3_SECRET_KEY"); ok {
			c.Publish.SecretKey = strings.TrimSpace(value)
		}
	}
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
