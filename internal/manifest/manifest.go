// Package manifest loads and validates the list of segment asset pairs for a
// batch.
//
// A manifest is JSON: either {"topic": ..., "segments": [...]} or a bare
// array of segments. Each segment carries its 1-based index as
// "segment_number" or "index", its image as "background_image" or
// "image_path", and its narration as "audio_file" or "audio_path". Relative
// paths resolve against the manifest's directory.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"explainer/internal/assets"
	"explainer/internal/services"
)

// Segment is one (image, audio) pair. The paths are read-only inputs.
type Segment struct {
	Index     int    `json:"index"`
	Title     string `json:"title,omitempty"`
	ImagePath string `json:"image_path"`
	AudioPath string `json:"audio_path"`
}

// Manifest is the ordered set of segments for one batch.
type Manifest struct {
	Topic    string    `json:"topic,omitempty"`
	Source   string    `json:"source,omitempty"`
	Segments []Segment `json:"segments"`
}

type rawSegment struct {
	SegmentNumber   *int   `json:"segment_number"`
	Index           *int   `json:"index"`
	Title           string `json:"title"`
	BackgroundImage string `json:"background_image"`
	ImagePath       string `json:"image_path"`
	AudioFile       string `json:"audio_file"`
	AudioPath       string `json:"audio_path"`
}

type rawManifest struct {
	Topic    string       `json:"topic"`
	Title    string       `json:"title"`
	Segments []rawSegment `json:"segments"`
}

// Load reads the manifest at path, resolves asset paths through the default
// provider chains and validates the indices.
func Load(ctx context.Context, path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, services.Wrap(services.ErrInvalidManifest, "manifest", "read", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	m, err := Parse(data, filepath.Dir(abs))
	if err != nil {
		return Manifest{}, err
	}
	m.Source = abs
	if err := m.ResolveAssets(ctx, filepath.Dir(abs)); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Parse decodes and validates a manifest payload. Relative paths are joined
// with baseDir but not checked for existence.
func Parse(data []byte, baseDir string) (Manifest, error) {
	raw, err := decode(data)
	if err != nil {
		return Manifest{}, services.Wrap(services.ErrInvalidManifest, "manifest", "decode", "", err)
	}
	m := Manifest{Topic: strings.TrimSpace(raw.Topic)}
	if m.Topic == "" {
		m.Topic = strings.TrimSpace(raw.Title)
	}
	for pos, seg := range raw.Segments {
		index := seg.SegmentNumber
		if index == nil {
			index = seg.Index
		}
		if index == nil {
			return Manifest{}, services.Wrap(services.ErrInvalidManifest, "manifest", "decode", fmt.Sprintf("segment at position %d has no index", pos+1), nil)
		}
		m.Segments = append(m.Segments, Segment{
			Index:     *index,
			Title:     strings.TrimSpace(seg.Title),
			ImagePath: assets.Absolute(baseDir, firstNonEmpty(seg.BackgroundImage, seg.ImagePath)),
			AudioPath: assets.Absolute(baseDir, firstNonEmpty(seg.AudioFile, seg.AudioPath)),
		})
	}
	if err := Validate(m.Segments); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// ResolveAssets fills each segment's undeclared paths using the provider
// chains. A declared path is never replaced. A segment whose asset cannot be
// found keeps its declared path (or the conventional one) so compilation
// reports it as missing for that index alone.
func (m *Manifest) ResolveAssets(ctx context.Context, baseDir string) error {
	for i := range m.Segments {
		seg := &m.Segments[i]
		for _, target := range []struct {
			kind assets.Kind
			path *string
		}{
			{assets.KindImage, &seg.ImagePath},
			{assets.KindAudio, &seg.AudioPath},
		} {
			asset, err := assets.DefaultChain(target.kind).Resolve(ctx, assets.Request{
				Index:    seg.Index,
				Kind:     target.kind,
				Declared: *target.path,
				BaseDir:  baseDir,
			})
			if err == nil {
				*target.path = asset.Path
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if *target.path == "" {
				*target.path = conventionalPath(target.kind, baseDir, seg.Index)
			}
		}
	}
	return nil
}

// Validate requires a non-empty set of indices forming exactly 1..N.
func Validate(segments []Segment) error {
	if len(segments) == 0 {
		return services.Wrap(services.ErrInvalidManifest, "manifest", "validate", "no segments", nil)
	}
	seen := make(map[int]struct{}, len(segments))
	for _, seg := range segments {
		if seg.Index < 1 {
			return services.Wrap(services.ErrInvalidManifest, "manifest", "validate", fmt.Sprintf("index %d must be at least 1", seg.Index), nil)
		}
		if _, dup := seen[seg.Index]; dup {
			return services.Wrap(services.ErrInvalidManifest, "manifest", "validate", fmt.Sprintf("duplicate index %d", seg.Index), nil)
		}
		seen[seg.Index] = struct{}{}
	}
	for i := 1; i <= len(segments); i++ {
		if _, ok := seen[i]; !ok {
			return services.Wrap(services.ErrInvalidManifest, "manifest", "validate", fmt.Sprintf("index %d missing from 1..%d", i, len(segments)), nil)
		}
	}
	return nil
}

// Sorted returns the segments ordered by index.
func (m Manifest) Sorted() []Segment {
	out := slices.Clone(m.Segments)
	slices.SortFunc(out, func(a, b Segment) int { return a.Index - b.Index })
	return out
}

func decode(data []byte) (rawManifest, error) {
	trimmed := bytes.TrimSpace(data)
	var raw rawManifest
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw.Segments); err != nil {
			return rawManifest{}, err
		}
		return raw, nil
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return rawManifest{}, err
	}
	return raw, nil
}

func conventionalPath(kind assets.Kind, baseDir string, index int) string {
	for _, conv := range assets.DefaultConventions {
		if conv.Kind == kind {
			return conv.Path(baseDir, index)
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
