package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"explainer/internal/config"
	"explainer/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", base)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeManifest creates assets for each duration under dir/project and a
// manifest that names only the background images.
func writeManifest(t *testing.T, dir string, durations ...float64) string {
	t.Helper()
	project := filepath.Join(dir, "project")
	segments := make([]map[string]any, 0, len(durations))
	for i, d := range durations {
		image, _ := testsupport.WriteSegmentAssets(t, project, i+1, d)
		rel, err := filepath.Rel(project, image)
		if err != nil {
			t.Fatalf("rel: %v", err)
		}
		segments = append(segments, map[string]any{
			"segment_number":   i + 1,
			"background_image": rel,
		})
	}
	data, err := json.Marshal(map[string]any{"topic": "How Tides Work", "segments": segments})
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	path := filepath.Join(project, "script.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
