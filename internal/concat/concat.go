// Package concat joins compiled segment clips into the final video with the
// ffmpeg concat demuxer, copying streams without re-encoding.
package concat

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"explainer/internal/fileutil"
	"explainer/internal/logging"
	"explainer/internal/media/ffprobe"
	"explainer/internal/services"
)

const stageName = "concat"

// Prober inspects clips. *ffprobe.Prober satisfies it.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Input is one clip to join, identified by its segment index.
type Input struct {
	Index int
	Path  string
}

// Final describes the joined video.
type Final struct {
	Path            string  `json:"path"`
	SizeBytes       int64   `json:"size_bytes"`
	DurationSeconds float64 `json:"duration_seconds"`
	Segments        []int   `json:"segments"`
}

// Concatenator joins clips into one file.
type Concatenator struct {
	ffmpeg  string
	prober  Prober
	timeout time.Duration
	logger  *slog.Logger
	run     services.CommandRunner
}

// Option customizes a Concatenator.
type Option func(*Concatenator)

// WithTimeout bounds each Concatenate call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Concatenator) { c.timeout = timeout }
}

// WithLogger sets the logging destination.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Concatenator) { c.logger = logging.NewComponentLogger(logger, "concat") }
}

// WithCommandRunner allows injecting a custom command runner for tests.
func WithCommandRunner(run services.CommandRunner) Option {
	return func(c *Concatenator) {
		if run != nil {
			c.run = run
		}
	}
}

// New constructs a concatenator.
func New(ffmpegBinary string, prober Prober, opts ...Option) *Concatenator {
	ffmpegBinary = strings.TrimSpace(ffmpegBinary)
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	c := &Concatenator{
		ffmpeg: ffmpegBinary,
		prober: prober,
		logger: logging.NewComponentLogger(nil, "concat"),
		run:    services.RunCommand,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Concatenate joins inputs in the given order into finalPath. Inputs are
// never reordered, deduplicated or dropped. Mismatched stream parameters fail
// with services.ErrInvariantViolation; every other failure wraps
// services.ErrConcat and leaves nothing at finalPath.
func (c *Concatenator) Concatenate(ctx context.Context, inputs []Input, finalPath string) (Final, error) {
	ctx = services.WithStage(ctx, stageName)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	logger := logging.WithContext(ctx, c.logger)

	if len(inputs) == 0 {
		return Final{}, services.Wrap(services.ErrConcat, stageName, "validate", "no inputs", nil)
	}
	if strings.TrimSpace(finalPath) == "" {
		return Final{}, services.Wrap(services.ErrConcat, stageName, "validate", "final path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return Final{}, services.Wrap(services.ErrConcat, stageName, "prepare output", "", err)
	}
	// A final video from an earlier run must not survive a failed join.
	if err := fileutil.RemoveIfExists(finalPath); err != nil {
		return Final{}, services.Wrap(services.ErrConcat, stageName, "remove stale output", finalPath, err)
	}

	expected, err := c.checkUniform(ctx, inputs)
	if err != nil {
		return Final{}, err
	}

	indices := make([]int, len(inputs))
	for i, in := range inputs {
		indices[i] = in.Index
	}

	start := time.Now()
	if len(inputs) == 1 {
		if err := fileutil.CopyFileVerified(inputs[0].Path, finalPath); err != nil {
			_ = fileutil.RemoveIfExists(finalPath)
			return Final{}, services.Wrap(services.ErrConcat, stageName, "copy single input", "", err)
		}
	} else if err := c.join(ctx, logger, inputs, finalPath); err != nil {
		return Final{}, err
	}

	final, err := c.measure(ctx, finalPath)
	if err != nil {
		_ = fileutil.RemoveIfExists(finalPath)
		return Final{}, services.Wrap(services.ErrConcat, stageName, "verify output", "", err)
	}
	final.Segments = indices
	if diff := math.Abs(final.DurationSeconds - expected); diff > 0.5 {
		logging.WarnWithContext(logger, "final duration differs from segment total", "concat_duration_drift",
			logging.Float64("expected_seconds", expected),
			logging.Float64("measured_seconds", final.DurationSeconds),
			logging.String(logging.FieldImpact, "final video timing may not match narration"),
		)
	}
	logger.Info("final video assembled",
		logging.String("output", final.Path),
		logging.Int("segment_count", len(inputs)),
		logging.Float64("duration_seconds", final.DurationSeconds),
		logging.Int64("size_bytes", final.SizeBytes),
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldEventType, "concat_completed"),
	)
	return final, nil
}

// checkUniform probes every input and returns the summed duration.
func (c *Concatenator) checkUniform(ctx context.Context, inputs []Input) (float64, error) {
	var (
		first signature
		total float64
	)
	for i, in := range inputs {
		if _, err := fileutil.NonEmptySize(in.Path); err != nil {
			return 0, services.Wrap(services.ErrConcat, stageName, "validate", fmt.Sprintf("segment %d", in.Index), err)
		}
		probe, err := c.prober.Inspect(ctx, in.Path)
		if err != nil {
			return 0, services.Wrap(services.ErrConcat, stageName, "probe", fmt.Sprintf("segment %d", in.Index), err)
		}
		sig, err := signatureOf(probe)
		if err != nil {
			return 0, services.Wrap(services.ErrInvariantViolation, stageName, "uniformity", fmt.Sprintf("segment %d", in.Index), err)
		}
		if i == 0 {
			first = sig
		} else if diffs := first.diff(sig); len(diffs) > 0 {
			msg := fmt.Sprintf("segment %d differs from segment %d: %s", in.Index, inputs[0].Index, strings.Join(diffs, "; "))
			return 0, services.Wrap(services.ErrInvariantViolation, stageName, "uniformity", msg, nil)
		}
		if d := probe.DurationSeconds(); !math.IsNaN(d) {
			total += d
		}
	}
	return total, nil
}

func (c *Concatenator) join(ctx context.Context, logger *slog.Logger, inputs []Input, finalPath string) error {
	dir := filepath.Dir(finalPath)
	list, err := os.CreateTemp(dir, ".concat-*.txt")
	if err != nil {
		return services.Wrap(services.ErrConcat, stageName, "write list", "", err)
	}
	listPath := list.Name()
	defer func() { _ = os.Remove(listPath) }()

	paths := make([]string, len(inputs))
	for i, in := range inputs {
		paths[i] = in.Path
	}
	if err := WriteList(list, paths); err != nil {
		_ = list.Close()
		return services.Wrap(services.ErrConcat, stageName, "write list", "", err)
	}
	if err := list.Close(); err != nil {
		return services.Wrap(services.ErrConcat, stageName, "write list", "", err)
	}

	tmpPath := fileutil.TempSibling(finalPath)
	_ = fileutil.RemoveIfExists(tmpPath)
	args := BuildArgs(listPath, tmpPath)
	logger.Debug("executing ffmpeg concat", logging.String("args", strings.Join(args, " ")))
	if err := c.run(ctx, c.ffmpeg, args...); err != nil {
		_ = fileutil.RemoveIfExists(tmpPath)
		if ctxErr := services.ContextError(ctx); ctxErr != nil {
			err = ctxErr
		}
		return services.Wrap(services.ErrConcat, stageName, "ffmpeg", "", err)
	}
	if _, err := fileutil.NonEmptySize(tmpPath); err != nil {
		_ = fileutil.RemoveIfExists(tmpPath)
		return services.Wrap(services.ErrConcat, stageName, "verify output", "", err)
	}
	if err := fileutil.Publish(tmpPath, finalPath); err != nil {
		return services.Wrap(services.ErrConcat, stageName, "publish output", "", err)
	}
	return nil
}

func (c *Concatenator) measure(ctx context.Context, path string) (Final, error) {
	size, err := fileutil.NonEmptySize(path)
	if err != nil {
		return Final{}, err
	}
	probe, err := c.prober.Inspect(ctx, path)
	if err != nil {
		return Final{}, err
	}
	duration := probe.DurationSeconds()
	if math.IsNaN(duration) || duration <= 0 {
		return Final{}, fmt.Errorf("final duration %q is invalid", probe.Format.Duration)
	}
	return Final{Path: path, SizeBytes: size, DurationSeconds: duration}, nil
}

// BuildArgs returns the ffmpeg arguments for a stream-copy join.
func BuildArgs(listPath, output string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-map", "0",
		"-c", "copy",
		"-movflags", "+faststart",
		"-f", "mp4",
		output,
	}
}
