// Package assets resolves the image and narration files for each segment.
//
// Upstream generators (image rendering, speech synthesis) are modelled as
// Providers. A Chain tries providers in order and the first hit wins, so the
// compiler never needs to know which backend produced a file.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"explainer/internal/services"
)

// Kind distinguishes the two assets of a segment.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// Request asks for one asset of one segment.
type Request struct {
	Index    int
	Kind     Kind
	Declared string // path named by the manifest, possibly relative
	BaseDir  string // directory relative paths resolve against
}

// Asset is a resolved file and the provider that supplied it.
type Asset struct {
	Path     string
	Provider string
}

// Provider supplies asset files.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, req Request) (Asset, error)
}

// Chain tries each provider in order.
type Chain []Provider

// Name implements Provider.
func (c Chain) Name() string {
	names := make([]string, 0, len(c))
	for _, p := range c {
		names = append(names, p.Name())
	}
	return strings.Join(names, ">")
}

// Resolve returns the first successful asset. When every provider fails the
// error wraps services.ErrMissingAsset and each provider's failure.
func (c Chain) Resolve(ctx context.Context, req Request) (Asset, error) {
	var errs []error
	for _, p := range c {
		if err := ctx.Err(); err != nil {
			return Asset{}, err
		}
		asset, err := p.Resolve(ctx, req)
		if err == nil {
			return asset, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	detail := fmt.Sprintf("segment %d %s", req.Index, req.Kind)
	if len(errs) == 0 {
		return Asset{}, services.Wrap(services.ErrMissingAsset, "assets", "resolve", detail+": no providers", nil)
	}
	return Asset{}, services.Wrap(services.ErrMissingAsset, "assets", "resolve", detail, errors.Join(errs...))
}

// FileProvider returns the path declared by the manifest when it names an
// existing regular file.
type FileProvider struct{}

// Name implements Provider.
func (FileProvider) Name() string { return "file" }

// Resolve implements Provider.
func (FileProvider) Resolve(_ context.Context, req Request) (Asset, error) {
	if strings.TrimSpace(req.Declared) == "" {
		return Asset{}, errors.New("no path declared")
	}
	path := Absolute(req.BaseDir, req.Declared)
	if err := regularFile(path); err != nil {
		return Asset{}, err
	}
	return Asset{Path: path, Provider: "file"}, nil
}

// ConventionProvider looks for pre-generated files named by a printf pattern
// taking the segment index, such as "audio/segment_%02d_audio.mp3". It only
// answers requests without a declared path: a manifest that names a file
// gets that file or nothing.
type ConventionProvider struct {
	Kind    Kind
	Pattern string
}

// DefaultConventions are the names written by the upstream generators.
var DefaultConventions = []ConventionProvider{
	{Kind: KindImage, Pattern: "images/segment_%02d_background.png"},
	{Kind: KindAudio, Pattern: "audio/segment_%02d_audio.mp3"},
}

// Name implements Provider.
func (p ConventionProvider) Name() string { return "convention:" + p.Pattern }

// Path returns the conventional location for index under baseDir.
func (p ConventionProvider) Path(baseDir string, index int) string {
	return Absolute(baseDir, fmt.Sprintf(p.Pattern, index))
}

// Resolve implements Provider.
func (p ConventionProvider) Resolve(_ context.Context, req Request) (Asset, error) {
	if p.Kind != "" && p.Kind != req.Kind {
		return Asset{}, fmt.Errorf("provider serves %s assets", p.Kind)
	}
	if strings.TrimSpace(req.Declared) != "" {
		return Asset{}, fmt.Errorf("declared path %s takes precedence", req.Declared)
	}
	path := p.Path(req.BaseDir, req.Index)
	if err := regularFile(path); err != nil {
		return Asset{}, err
	}
	return Asset{Path: path, Provider: p.Name()}, nil
}

// DefaultChain returns the file-then-convention chain for kind. The
// convention step only applies when the manifest declares no path.
func DefaultChain(kind Kind) Chain {
	chain := Chain{FileProvider{}}
	for _, conv := range DefaultConventions {
		if conv.Kind == kind {
			chain = append(chain, conv)
		}
	}
	return chain
}

// Absolute resolves path against baseDir unless it is already absolute.
func Absolute(baseDir, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	return filepath.Clean(path)
}

func regularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	return nil
}
