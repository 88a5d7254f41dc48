package config

import (
	"errors"
	"fmt"
	"slices"
)

var (
	supportedResolutions  = []string{"720p", "1080p", "4k"}
	supportedFrameRates   = []int{24, 30, 60}
	supportedVideoPresets = []string{"h264-yuv420p"}
	supportedAudioPresets = []string{"aac-128k"}
	supportedLogFormats   = []string{"console", "json"}
	supportedLogLevels    = []string{"debug", "info", "warn", "error"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateProfile(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.JobsDir == "" {
		return errors.New("paths.jobs_dir must be set")
	}
	return nil
}

func (c *Config) validateProfile() error {
	if !slices.Contains(supportedResolutions, c.Profile.Resolution) {
		return fmt.Errorf("profile.resolution must be one of %v, got %q", supportedResolutions, c.Profile.Resolution)
	}
	if !slices.Contains(supportedFrameRates, c.Profile.FrameRate) {
		return fmt.Errorf("profile.frame_rate must be one of %v, got %d", supportedFrameRates, c.Profile.FrameRate)
	}
	if !slices.Contains(supportedVideoPresets, c.Profile.VideoPreset) {
		return fmt.Errorf("profile.video_preset must be one of %v, got %q", supportedVideoPresets, c.Profile.VideoPreset)
	}
	if !slices.Contains(supportedAudioPresets, c.Profile.AudioPreset) {
		return fmt.Errorf("profile.audio_preset must be one of %v, got %q", supportedAudioPresets, c.Profile.AudioPreset)
	}
	return nil
}

func (c *Config) validateBatch() error {
	return ensurePositiveMap(map[string]int{
		"batch.parallelism":     c.Batch.Parallelism,
		"batch.probe_timeout":   c.Batch.ProbeTimeout,
		"batch.segment_timeout": c.Batch.SegmentTimeout,
		"batch.concat_timeout":  c.Batch.ConcatTimeout,
		"batch.keep_jobs":       c.Batch.KeepJobs,
	})
}

func (c *Config) validatePublish() error {
	if !c.Publish.Enabled {
		return nil
	}
	if c.Publish.Bucket == "" {
		return errors.New("publish.bucket must be set when publish.enabled is true")
	}
	if c.Publish.Region == "" {
		return errors.New("publish.region must be set when publish.enabled is true")
	}
	if (c.Publish.AccessKey == "") != (c.Publish.SecretKey == "") {
		return errors.New("publish.access_key and publish.secret_key must be set together")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !slices.Contains(supportedLogFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format must be one of %v, got %q", supportedLogFormats, c.Logging.Format)
	}
	if !slices.Contains(supportedLogLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of %v, got %q", supportedLogLevels, c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
