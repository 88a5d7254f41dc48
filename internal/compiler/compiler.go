package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"explainer/internal/fileutil"
	"explainer/internal/imageinfo"
	"explainer/internal/logging"
	"explainer/internal/media/ffprobe"
	"explainer/internal/profile"
	"explainer/internal/services"
)

const stageName = "compile"

// Prober measures media files. *ffprobe.Prober satisfies it.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Request names the inputs for one segment.
type Request struct {
	Index     int
	ImagePath string
	AudioPath string
}

// Compiler encodes segments into a single output directory.
type Compiler struct {
	ffmpeg    string
	outputDir string
	prober    Prober
	timeout   time.Duration
	logger    *slog.Logger
	run       services.CommandRunner
}

// Option customizes a Compiler.
type Option func(*Compiler)

// WithTimeout bounds each Compile call, probing included.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Compiler) { c.timeout = timeout }
}

// WithLogger sets the logging destination.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) { c.logger = logging.NewComponentLogger(logger, "compiler") }
}

// WithCommandRunner allows injecting a custom command runner for tests.
func WithCommandRunner(run services.CommandRunner) Option {
	return func(c *Compiler) {
		if run != nil {
			c.run = run
		}
	}
}

// New constructs a compiler writing into outputDir.
func New(ffmpegBinary, outputDir string, prober Prober, opts ...Option) *Compiler {
	ffmpegBinary = strings.TrimSpace(ffmpegBinary)
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	c := &Compiler{
		ffmpeg:    ffmpegBinary,
		outputDir: outputDir,
		prober:    prober,
		logger:    logging.NewComponentLogger(nil, "compiler"),
		run:       services.RunCommand,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OutputPath returns where index is written.
func (c *Compiler) OutputPath(index int) string {
	return filepath.Join(c.outputDir, SegmentFileName(index))
}

// Compile produces the clip for req under prof. Re-running with the same
// inputs overwrites the previous output.
func (c *Compiler) Compile(ctx context.Context, req Request, prof profile.Profile) Result {
	start := time.Now()
	ctx = services.WithStage(services.WithSegmentIndex(ctx, req.Index), stageName)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	logger := logging.WithContext(ctx, c.logger)

	result := c.compile(ctx, logger, req, prof)
	result.Index = req.Index
	result.Elapsed = time.Since(start)
	if result.Compiled() {
		logger.Info("segment compiled",
			logging.String("output", result.OutputPath),
			logging.Float64("duration_seconds", result.DurationSeconds),
			logging.Int64("size_bytes", result.SizeBytes),
			logging.Duration("elapsed", result.Elapsed),
			logging.String(logging.FieldEventType, "segment_compiled"),
		)
	} else {
		logging.WarnWithContext(logger, "segment failed", "segment_failed",
			logging.String(logging.FieldReason, string(result.Reason)),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "segment excluded from final video"),
			logging.String(logging.FieldErrorHint, hintFor(result.Reason)),
		)
	}
	return result
}

func (c *Compiler) compile(ctx context.Context, logger *slog.Logger, req Request, prof profile.Profile) Result {
	if req.Index <= 0 {
		return Failed(req.Index, services.Wrap(services.ErrInvalidManifest, stageName, "validate", fmt.Sprintf("index %d must be positive", req.Index), nil))
	}
	if err := services.ContextError(ctx); err != nil {
		return Failed(req.Index, err)
	}
	if err := checkAsset("image", req.ImagePath); err != nil {
		return Failed(req.Index, err)
	}
	if err := checkAsset("audio", req.AudioPath); err != nil {
		return Failed(req.Index, err)
	}
	imgInfo, err := checkImage(req.ImagePath)
	if err != nil {
		return Failed(req.Index, err)
	}

	audioSeconds, err := c.prober.Duration(ctx, req.AudioPath)
	if err != nil {
		if ctxErr := services.ContextError(ctx); ctxErr != nil {
			return Failed(req.Index, ctxErr)
		}
		// The prober enforces its own deadline; a hung ffprobe is a timeout,
		// not an unreadable file.
		if errors.Is(err, services.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return Failed(req.Index, services.Wrap(services.ErrTimeout, stageName, "probe audio", req.AudioPath, err))
		}
		return Failed(req.Index, services.Wrap(services.ErrAudioUnreadable, stageName, "probe audio", req.AudioPath, err))
	}
	logger.Debug("audio probed",
		logging.String("audio", req.AudioPath),
		logging.Float64("audio_seconds", audioSeconds),
	)
	if imgInfo != nil {
		logImageFit(logger, *imgInfo, prof)
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return Failed(req.Index, services.Wrap(services.ErrEncode, stageName, "prepare output", c.outputDir, err))
	}
	finalPath := c.OutputPath(req.Index)
	tmpPath := fileutil.TempSibling(finalPath)
	cleanup := func() {
		_ = fileutil.RemoveIfExists(tmpPath)
		_ = fileutil.RemoveIfExists(finalPath)
	}
	cleanup()

	args := BuildArgs(req.ImagePath, req.AudioPath, audioSeconds, prof, tmpPath)
	logger.Debug("executing ffmpeg", logging.String("args", strings.Join(args, " ")))
	if err := c.run(ctx, c.ffmpeg, args...); err != nil {
		cleanup()
		if ctxErr := services.ContextError(ctx); ctxErr != nil {
			return Failed(req.Index, ctxErr)
		}
		return Failed(req.Index, services.Wrap(services.ErrEncode, stageName, "ffmpeg", "", err))
	}

	size, err := fileutil.NonEmptySize(tmpPath)
	if err != nil {
		cleanup()
		return Failed(req.Index, services.Wrap(services.ErrEncode, stageName, "verify output", "", err))
	}
	measured, err := c.verify(ctx, tmpPath, audioSeconds, prof)
	if err != nil {
		cleanup()
		if ctxErr := services.ContextError(ctx); ctxErr != nil {
			return Failed(req.Index, ctxErr)
		}
		return Failed(req.Index, services.Wrap(services.ErrEncode, stageName, "verify output", "", err))
	}
	if err := fileutil.Publish(tmpPath, finalPath); err != nil {
		cleanup()
		return Failed(req.Index, services.Wrap(services.ErrEncode, stageName, "publish output", "", err))
	}

	return Result{
		Status:          StatusCompiled,
		OutputPath:      finalPath,
		DurationSeconds: measured,
		AudioSeconds:    audioSeconds,
		SizeBytes:       size,
	}
}

// verify probes the encoded clip and checks it carries both streams at the
// profile geometry with a duration matching the audio.
func (c *Compiler) verify(ctx context.Context, path string, audioSeconds float64, prof profile.Profile) (float64, error) {
	probe, err := c.prober.Inspect(ctx, path)
	if err != nil {
		return 0, err
	}
	video, ok := probe.FirstVideo()
	if !ok {
		return 0, errors.New("output has no video stream")
	}
	if _, ok := probe.FirstAudio(); !ok {
		return 0, errors.New("output has no audio stream")
	}
	if video.Width != 0 && (video.Width != prof.Width || video.Height != prof.Height) {
		return 0, fmt.Errorf("output is %dx%d, want %dx%d", video.Width, video.Height, prof.Width, prof.Height)
	}
	measured := probe.DurationSeconds()
	if math.IsNaN(measured) || measured <= 0 {
		return 0, fmt.Errorf("output duration %q is invalid", probe.Format.Duration)
	}
	if diff := math.Abs(measured - audioSeconds); diff > prof.DurationTolerance() {
		return 0, fmt.Errorf("output duration %.3fs differs from audio %.3fs by %.3fs", measured, audioSeconds, diff)
	}
	return measured, nil
}

// checkImage decodes the header of formats Go can read so a corrupt
// background fails before any encode. Nil info means ffmpeg decides.
func checkImage(path string) (*imageinfo.Info, error) {
	if !imageinfo.Checkable(path) {
		return nil, nil
	}
	info, err := imageinfo.Read(path)
	if err != nil {
		return nil, services.Wrap(services.ErrMissingAsset, stageName, "read image", path, err)
	}
	return &info, nil
}

func logImageFit(logger *slog.Logger, info imageinfo.Info, prof profile.Profile) {
	fit := imageinfo.FitInside(info, prof.Width, prof.Height)
	logger.Debug("image placement",
		logging.String("format", info.Format),
		logging.Int("source_width", info.Width),
		logging.Int("source_height", info.Height),
		logging.Int("scaled_width", fit.ScaledWidth),
		logging.Int("scaled_height", fit.ScaledHeight),
		logging.Bool("letterboxed", fit.Letterboxed()),
	)
}

// BuildArgs returns the ffmpeg arguments that loop the still image for
// exactly audioSeconds and mux it with the re-encoded narration.
func BuildArgs(imagePath, audioPath string, audioSeconds float64, prof profile.Profile, output string) []string {
	fps := strconv.Itoa(prof.FrameRate)
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-loop", "1", "-framerate", fps, "-i", imagePath,
		"-i", audioPath,
		"-map", "0:v:0", "-map", "1:a:0",
		"-vf", prof.FilterGraph(),
	}
	args = append(args, prof.VideoArgs()...)
	args = append(args, prof.AudioArgs()...)
	return append(args,
		"-t", strconv.FormatFloat(audioSeconds, 'f', 6, 64),
		"-movflags", "+faststart",
		"-f", "mp4",
		output,
	)
}

func checkAsset(label, path string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrMissingAsset, stageName, "validate", label+" path is empty", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrMissingAsset, stageName, "validate", label+" "+path, err)
	}
	if !info.Mode().IsRegular() {
		return services.Wrap(services.ErrMissingAsset, stageName, "validate", label+" "+path+" is not a regular file", nil)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrMissingAsset, stageName, "validate", label+" "+path+" is empty", nil)
	}
	file, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrMissingAsset, stageName, "validate", label+" "+path+" is not readable", err)
	}
	return file.Close()
}

func hintFor(reason services.Reason) string {
	switch reason {
	case services.ReasonMissingAsset:
		return "check the image and audio paths in the manifest"
	case services.ReasonAudioUnreadable:
		return "verify the narration file plays with ffprobe"
	case services.ReasonTimeout:
		return "raise batch.segment_timeout or lower the resolution"
	case services.ReasonCanceled:
		return "rerun the segment to retry"
	default:
		return "inspect the ffmpeg output in the detail field"
	}
}
