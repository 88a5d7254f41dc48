package batch

import (
	"log/slog"

	"explainer/internal/compiler"
	"explainer/internal/concat"
	"explainer/internal/config"
	"explainer/internal/media/ffprobe"
)

// NewFromConfig wires the ffprobe prober, segment compiler and concatenator
// described by cfg. Clips go to segmentsDir and the final video to finalPath.
func NewFromConfig(cfg *config.Config, segmentsDir, finalPath string, logger *slog.Logger, opts ...Option) *Orchestrator {
	prober := ffprobe.NewProber(cfg.FFmpeg.FFprobeBinary, ffprobe.WithTimeout(cfg.ProbeTimeout()))
	segmentCompiler := compiler.New(cfg.FFmpeg.FFmpegBinary, segmentsDir, prober,
		compiler.WithTimeout(cfg.SegmentTimeout()),
		compiler.WithLogger(logger),
	)
	concatenator := concat.New(cfg.FFmpeg.FFmpegBinary, prober,
		concat.WithTimeout(cfg.ConcatTimeout()),
		concat.WithLogger(logger),
	)
	base := []Option{WithParallelism(cfg.Batch.Parallelism), WithLogger(logger)}
	return New(segmentCompiler, concatenator, finalPath, append(base, opts...)...)
}
