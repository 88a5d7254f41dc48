package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"explainer/internal/services"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestChainPrefersDeclaredPath(t *testing.T) {
	base := t.TempDir()
	touch(t, filepath.Join(base, "custom", "bg.png"))
	touch(t, filepath.Join(base, "images", "segment_01_background.png"))

	asset, err := DefaultChain(KindImage).Resolve(context.Background(), Request{Index: 1, Kind: KindImage, Declared: "custom/bg.png", BaseDir: base})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if asset.Path != filepath.Join(base, "custom", "bg.png") || asset.Provider != "file" {
		t.Fatalf("unexpected asset %+v", asset)
	}
}

func TestChainFallsBackToConvention(t *testing.T) {
	base := t.TempDir()
	touch(t, filepath.Join(base, "audio", "segment_03_audio.mp3"))

	asset, err := DefaultChain(KindAudio).Resolve(context.Background(), Request{Index: 3, Kind: KindAudio, BaseDir: base})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if asset.Path != filepath.Join(base, "audio", "segment_03_audio.mp3") {
		t.Fatalf("unexpected path %q", asset.Path)
	}
	if !strings.HasPrefix(asset.Provider, "convention:") {
		t.Fatalf("unexpected provider %q", asset.Provider)
	}
}

func TestChainAllFail(t *testing.T) {
	base := t.TempDir()
	_, err := DefaultChain(KindAudio).Resolve(context.Background(), Request{Index: 2, Kind: KindAudio, Declared: "missing.mp3", BaseDir: base})
	if !errors.Is(err, services.ErrMissingAsset) {
		t.Fatalf("expected ErrMissingAsset, got %v", err)
	}
	if !strings.Contains(err.Error(), "file:") || !strings.Contains(err.Error(), "convention:") {
		t.Fatalf("expected every provider failure in %q", err)
	}
}

func TestChainKeepsDeclaredPathOverConvention(t *testing.T) {
	base := t.TempDir()
	touch(t, filepath.Join(base, "audio", "segment_01_audio.mp3"))

	_, err := DefaultChain(KindAudio).Resolve(context.Background(), Request{Index: 1, Kind: KindAudio, Declared: "narration_new.mp3", BaseDir: base})
	if !errors.Is(err, services.ErrMissingAsset) {
		t.Fatalf("expected declared missing file to fail, got %v", err)
	}
}

func TestConventionProviderIgnoresOtherKinds(t *testing.T) {
	base := t.TempDir()
	touch(t, filepath.Join(base, "audio", "segment_01_audio.mp3"))
	p := ConventionProvider{Kind: KindAudio, Pattern: "audio/segment_%02d_audio.mp3"}
	if _, err := p.Resolve(context.Background(), Request{Index: 1, Kind: KindImage, BaseDir: base}); err == nil {
		t.Fatal("expected audio provider to refuse image requests")
	}
}

func TestAbsolute(t *testing.T) {
	if got := Absolute("/data/job", "a/b.png"); got != "/data/job/a/b.png" {
		t.Fatalf("got %q", got)
	}
	if got := Absolute("/data/job", "/abs/b.png"); got != "/abs/b.png" {
		t.Fatalf("got %q", got)
	}
	if got := Absolute("/data", "  "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
