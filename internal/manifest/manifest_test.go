package manifest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"explainer/internal/manifest"
	"explainer/internal/services"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "script.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "images", "one.png"))
	touch(t, filepath.Join(dir, "audio", "segment_02_audio.mp3"))
	path := writeManifest(t, dir, `{
		"topic": "How Vaccines Work",
		"segments": [
			{"segment_number": 2, "title": "Immune memory", "background_image": "images/two.png"},
			{"segment_number": 1, "background_image": "images/one.png", "audio_file": "/abs/narration.mp3"}
		]
	}`)

	m, err := manifest.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Topic != "How Vaccines Work" {
		t.Fatalf("topic = %q", m.Topic)
	}
	segs := m.Sorted()
	if segs[0].Index != 1 || segs[1].Index != 2 {
		t.Fatalf("unexpected order %+v", segs)
	}
	if segs[0].ImagePath != filepath.Join(dir, "images", "one.png") {
		t.Fatalf("image path = %q", segs[0].ImagePath)
	}
	if segs[0].AudioPath != "/abs/narration.mp3" {
		t.Fatalf("declared absolute path should be kept, got %q", segs[0].AudioPath)
	}
	if segs[1].AudioPath != filepath.Join(dir, "audio", "segment_02_audio.mp3") {
		t.Fatalf("expected conventional audio path, got %q", segs[1].AudioPath)
	}
	if segs[1].ImagePath != filepath.Join(dir, "images", "two.png") {
		t.Fatalf("missing image keeps declared path, got %q", segs[1].ImagePath)
	}
	if segs[1].Title != "Immune memory" {
		t.Fatalf("title = %q", segs[1].Title)
	}
}

func TestLoadKeepsMissingDeclaredPath(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "img.png"))
	touch(t, filepath.Join(dir, "audio", "segment_01_audio.mp3"))
	touch(t, filepath.Join(dir, "images", "segment_01_background.png"))
	path := writeManifest(t, dir, `[{"index":1,"image_path":"other.png","audio_path":"narration_new.mp3"}]`)

	m, err := manifest.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	seg := m.Segments[0]
	if seg.AudioPath != filepath.Join(dir, "narration_new.mp3") {
		t.Fatalf("declared audio replaced by %q", seg.AudioPath)
	}
	if seg.ImagePath != filepath.Join(dir, "other.png") {
		t.Fatalf("declared image replaced by %q", seg.ImagePath)
	}
}

func TestParseAlternateKeysAndArray(t *testing.T) {
	m, err := manifest.Parse([]byte(`[{"index":1,"image_path":"a.png","audio_path":"a.mp3"}]`), "/base")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(m.Segments) != 1 || m.Segments[0].ImagePath != "/base/a.png" || m.Segments[0].AudioPath != "/base/a.mp3" {
		t.Fatalf("unexpected segments %+v", m.Segments)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"duplicate", `{"segments":[{"index":1},{"index":1}]}`},
		{"gap", `{"segments":[{"index":1},{"index":3}]}`},
		{"zero", `{"segments":[{"index":0}]}`},
		{"empty", `{"segments":[]}`},
		{"no index", `{"segments":[{"image_path":"a.png"}]}`},
		{"not json", `segments: 1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manifest.Parse([]byte(tt.body), "/base")
			if !errors.Is(err, services.ErrInvalidManifest) {
				t.Fatalf("expected ErrInvalidManifest, got %v", err)
			}
			if services.ReasonOf(err) != services.ReasonInvalidManifest {
				t.Fatalf("unexpected reason %q", services.ReasonOf(err))
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := manifest.Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, services.ErrInvalidManifest) {
		t.Fatalf("expected ErrInvalidManifest, got %v", err)
	}
}
