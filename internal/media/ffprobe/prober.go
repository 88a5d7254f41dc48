package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"
	"time"

	"explainer/internal/services"
)

var (
	ErrNotFound   = errors.New("media not found")
	ErrUnreadable = errors.New("media unreadable")
	ErrMalformed  = errors.New("media malformed")
)

// Prober runs ffprobe against local files.
type Prober struct {
	binary  string
	timeout time.Duration
	run     services.OutputRunner
}

// Option customizes a Prober.
type Option func(*Prober)

// WithRunner replaces the ffprobe executor, primarily for tests.
func WithRunner(run services.OutputRunner) Option {
	return func(p *Prober) {
		if run != nil {
			p.run = run
		}
	}
}

// WithTimeout bounds every ffprobe invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Prober) {
		p.timeout = timeout
	}
}

// NewProber constructs a prober for the given ffprobe binary.
func NewProber(binary string, opts ...Option) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	p := &Prober{binary: binary, run: services.RunOutput}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Inspect executes ffprobe against path and decodes the JSON response.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	if err := checkReadable(path); err != nil {
		return Result{}, err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
	output, err := p.run(ctx, p.binary, args...)
	if err != nil {
		if ctxErr := services.ContextError(ctx); ctxErr != nil {
			return Result{}, fmt.Errorf("%w: ffprobe %s: %w", ErrUnreadable, path, ctxErr)
		}
		return Result{}, fmt.Errorf("%w: ffprobe %s: %w", ErrUnreadable, path, err)
	}
	return Parse(output)
}

// Duration returns the playback length of an audio-bearing file in seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	result, err := p.Inspect(ctx, path)
	if err != nil {
		return 0, err
	}
	return AudioDuration(result)
}

// AudioDuration extracts a positive duration from a probe result that carries
// at least one audio stream. The container duration wins; the first audio
// stream's duration is the fallback.
func AudioDuration(result Result) (float64, error) {
	audio, ok := result.FirstAudio()
	if !ok {
		return 0, fmt.Errorf("%w: no audio stream", ErrMalformed)
	}
	duration := result.DurationSeconds()
	if duration == 0 || math.IsNaN(duration) {
		duration = audio.DurationSeconds()
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0, fmt.Errorf("%w: invalid duration %q", ErrMalformed, result.Format.Duration)
	}
	return duration, nil
}

func checkReadable(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty path", ErrNotFound)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrUnreadable, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	return file.Close()
}
