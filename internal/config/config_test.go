package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"explainer/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "explainer", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if want := filepath.Join(tempHome, ".local", "share", "explainer", "jobs"); cfg.Paths.JobsDir != want {
		t.Fatalf("jobs dir = %q, want %q", cfg.Paths.JobsDir, want)
	}
	if cfg.Profile.Resolution != "720p" || cfg.Profile.FrameRate != 30 {
		t.Fatalf("unexpected profile defaults: %+v", cfg.Profile)
	}
	if cfg.ProbeTimeout() != 10*time.Second || cfg.SegmentTimeout() != 300*time.Second || cfg.ConcatTimeout() != 600*time.Second {
		t.Fatalf("unexpected timeouts: %+v", cfg.Batch)
	}
	if cfg.Publish.Enabled {
		t.Fatal("expected publishing disabled by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.JobsDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "explainer.toml")

	type payload struct {
		Paths struct {
			JobsDir string `toml:"jobs_dir"`
		} `toml:"paths"`
		Profile struct {
			Resolution string `toml:"resolution"`
			FrameRate  int    `toml:"frame_rate"`
		} `toml:"profile"`
		Batch struct {
			Parallelism int `toml:"parallelism"`
		} `toml:"batch"`
	}
	custom := payload{}
	custom.Paths.JobsDir = filepath.Join(tempDir, "jobs")
	custom.Profile.Resolution = "1080P"
	custom.Profile.FrameRate = 60
	custom.Batch.Parallelism = 4

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Paths.JobsDir != custom.Paths.JobsDir {
		t.Fatalf("jobs dir = %q", cfg.Paths.JobsDir)
	}
	if cfg.Profile.Resolution != "1080p" {
		t.Fatalf("expected resolution lowercased, got %q", cfg.Profile.Resolution)
	}
	if cfg.Profile.FrameRate != 60 || cfg.Batch.Parallelism != 4 {
		t.Fatalf("unexpected values: %+v %+v", cfg.Profile, cfg.Batch)
	}
	if cfg.Batch.SegmentTimeout != 300 {
		t.Fatalf("expected untouched defaults to survive, got %d", cfg.Batch.SegmentTimeout)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "explainer.toml")
	if err := os.WriteFile(configPath, []byte("[batch]\nparalelism = 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestPublishCredentialsFromEnv(t *testing.T) {
	t.Setenv("EXPLAINER_S3_ACCESS_KEY", "AKIA")
	t.Setenv("EXPLAINER_S3_SECRET_KEY", "secret")
	configPath := filepath.Join(t.TempDir(), "explainer.toml")
	content := "[publish]\nenabled = true\nbucket = \"videos\"\nregion = \"nyc3\"\nendpoint = \"https://nyc3.digitaloceanspaces.com/\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Publish.AccessKey != "AKIA" || cfg.Publish.SecretKey != "secret" {
		t.Fatalf("expected env credentials, got %+v", cfg.Publish)
	}
	if cfg.Publish.Endpoint != "https://nyc3.digitaloceanspaces.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Publish.Endpoint)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"resolution", func(c *config.Config) { c.Profile.Resolution = "8k" }, "profile.resolution"},
		{"frame rate", func(c *config.Config) { c.Profile.FrameRate = 25 }, "profile.frame_rate"},
		{"video preset", func(c *config.Config) { c.Profile.VideoPreset = "hevc" }, "profile.video_preset"},
		{"parallelism", func(c *config.Config) { c.Batch.Parallelism = 0 }, "batch.parallelism must be positive"},
		{"segment timeout", func(c *config.Config) { c.Batch.SegmentTimeout = -1 }, "batch.segment_timeout"},
		{"publish bucket", func(c *config.Config) { c.Publish.Enabled = true; c.Publish.Region = "nyc3" }, "publish.bucket"},
		{"publish keys", func(c *config.Config) {
			c.Publish.Enabled = true
			c.Publish.Bucket = "b"
			c.Publish.Region = "r"
			c.Publish.AccessKey = "only"
		}, "publish.access_key"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}
