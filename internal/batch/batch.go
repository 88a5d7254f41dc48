// Package batch drives one manifest through segment compilation and final
// concatenation.
//
// Segments are compiled independently, optionally in parallel, and a failure
// in one never stops the others. Results are kept by index so the outcome
// list is always 1..N. Concatenation runs once every attempt has finished and
// only over the segments that compiled.
package batch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"explainer/internal/compiler"
	"explainer/internal/concat"
	"explainer/internal/fileutil"
	"explainer/internal/logging"
	"explainer/internal/manifest"
	"explainer/internal/profile"
	"explainer/internal/services"
)

const stageName = "batch"

// SegmentCompiler compiles one segment. *compiler.Compiler satisfies it.
type SegmentCompiler interface {
	Compile(ctx context.Context, req compiler.Request, prof profile.Profile) compiler.Result
}

// Concatenator joins clips. *concat.Concatenator satisfies it.
type Concatenator interface {
	Concatenate(ctx context.Context, inputs []concat.Input, finalPath string) (concat.Final, error)
}

// SegmentResult is the outcome for one manifest index.
type SegmentResult = compiler.Result

// Result is the outcome of a whole batch.
type Result struct {
	Segments  []SegmentResult
	Final     *concat.Final
	ConcatErr error
	Canceled  bool
	Elapsed   time.Duration
}

// CompiledCount returns how many segments produced a clip.
func (r Result) CompiledCount() int {
	n := 0
	for _, seg := range r.Segments {
		if seg.Compiled() {
			n++
		}
	}
	return n
}

// FailedCount returns how many segments failed.
func (r Result) FailedCount() int {
	return len(r.Segments) - r.CompiledCount()
}

// Succeeded reports whether every segment compiled and the final video exists.
func (r Result) Succeeded() bool {
	return !r.Canceled && r.Final != nil && r.FailedCount() == 0
}

// Orchestrator runs batches.
type Orchestrator struct {
	compiler     SegmentCompiler
	concatenator Concatenator
	finalPath    string
	parallelism  int
	segmentsOnly bool
	logger       *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithParallelism bounds how many segments compile at once. Values below 1
// mean sequential.
func WithParallelism(n int) Option {
	return func(o *Orchestrator) { o.parallelism = n }
}

// WithSegmentsOnly skips concatenation.
func WithSegmentsOnly(enabled bool) Option {
	return func(o *Orchestrator) { o.segmentsOnly = enabled }
}

// WithLogger sets the logging destination.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logging.NewComponentLogger(logger, "batch") }
}

// New constructs an orchestrator that writes the final video to finalPath.
func New(segmentCompiler SegmentCompiler, concatenator Concatenator, finalPath string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		compiler:     segmentCompiler,
		concatenator: concatenator,
		finalPath:    strings.TrimSpace(finalPath),
		parallelism:  1,
		logger:       logging.NewComponentLogger(nil, "batch"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.parallelism < 1 {
		o.parallelism = 1
	}
	return o
}

// Run compiles every segment of m and assembles the final video. The only
// error returned is an invalid manifest, in which case nothing is compiled.
// Segment failures, cancellation and concatenation failures are reported in
// the Result.
func (o *Orchestrator) Run(ctx context.Context, m manifest.Manifest, prof profile.Profile) (Result, error) {
	start := time.Now()
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, o.logger)

	if err := manifest.Validate(m.Segments); err != nil {
		logging.ErrorWithContext(logger, "manifest rejected", "manifest_invalid",
			logging.Error(err),
			logging.String(logging.FieldReason, string(services.ReasonInvalidManifest)),
			logging.String(logging.FieldErrorHint, "fix segment indices so they run 1..N without gaps or duplicates"),
		)
		return Result{}, err
	}

	segments := m.Sorted()
	logger.Info("batch started",
		logging.Int("segment_count", len(segments)),
		logging.Int("parallelism", o.parallelism),
		logging.String("profile", prof.String()),
		logging.Bool("segments_only", o.segmentsOnly),
		logging.String(logging.FieldEventType, "batch_started"),
	)

	result := Result{Segments: o.compileAll(ctx, logger, segments, prof)}
	result.Canceled = ctx.Err() != nil

	if result.Canceled || o.segmentsOnly || result.CompiledCount() == 0 {
		o.discardStaleFinal(logger)
	}
	switch {
	case result.Canceled:
		logging.WarnWithContext(logger, "batch canceled", "batch_canceled",
			logging.Int("compiled", result.CompiledCount()),
			logging.String(logging.FieldImpact, "final video not assembled"),
			logging.String(logging.FieldErrorHint, "rerun the batch; compiled segments are overwritten deterministically"),
		)
	case o.segmentsOnly:
		logger.Info("concatenation skipped", logging.String("reason", "segments only"))
	case result.CompiledCount() == 0:
		logging.WarnWithContext(logger, "no segments compiled", "batch_empty",
			logging.String(logging.FieldImpact, "no final video produced"),
			logging.String(logging.FieldErrorHint, "check the segment failures above"),
		)
	default:
		o.assemble(ctx, logger, &result)
	}

	result.Elapsed = time.Since(start)
	logger.Info("batch finished",
		logging.Int("compiled", result.CompiledCount()),
		logging.Int("failed", result.FailedCount()),
		logging.Bool("final", result.Final != nil),
		logging.Bool("canceled", result.Canceled),
		logging.Duration("elapsed", result.Elapsed),
		logging.String(logging.FieldEventType, "batch_finished"),
	)
	return result, nil
}

func (o *Orchestrator) compileAll(ctx context.Context, logger *slog.Logger, segments []manifest.Segment, prof profile.Profile) []SegmentResult {
	results := make([]SegmentResult, len(segments))
	sampler := logging.NewProgressSampler(25)
	var (
		mu   sync.Mutex
		done int
	)
	record := func(pos int, res SegmentResult) {
		results[pos] = res
		mu.Lock()
		defer mu.Unlock()
		done++
		if sampler.ShouldLog(done, len(segments)) {
			logger.Info("batch progress",
				logging.Int("done", done),
				logging.Int("total", len(segments)),
				logging.String(logging.FieldEventType, "batch_progress"),
			)
		}
	}

	var g errgroup.Group
	g.SetLimit(o.parallelism)
	for pos, seg := range segments {
		if err := services.ContextError(ctx); err != nil {
			record(pos, notStarted(seg.Index, err))
			continue
		}
		g.Go(func() error {
			if err := services.ContextError(ctx); err != nil {
				record(pos, notStarted(seg.Index, err))
				return nil
			}
			record(pos, o.compiler.Compile(ctx, compiler.Request{
				Index:     seg.Index,
				ImagePath: seg.ImagePath,
				AudioPath: seg.AudioPath,
			}, prof))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// notStarted is always Canceled, even when the batch context hit a deadline.
// discardStaleFinal removes a final video left by an earlier run in the same
// job directory when this run will not produce one.
func (o *Orchestrator) discardStaleFinal(logger *slog.Logger) {
	if o.finalPath == "" {
		return
	}
	if err := fileutil.RemoveIfExists(o.finalPath); err != nil {
		logging.WarnWithContext(logger, "stale final video not removed", "final_cleanup_failed",
			logging.String("path", o.finalPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "an older final video remains next to this report"),
		)
	}
}

func notStarted(index int, cause error) SegmentResult {
	return compiler.FailedWithReason(index, services.ReasonCanceled, "segment not started: "+cause.Error())
}

func (o *Orchestrator) assemble(ctx context.Context, logger *slog.Logger, result *Result) {
	inputs := make([]concat.Input, 0, len(result.Segments))
	for _, seg := range result.Segments {
		if seg.Compiled() {
			inputs = append(inputs, concat.Input{Index: seg.Index, Path: seg.OutputPath})
		}
	}
	final, err := o.concatenator.Concatenate(ctx, inputs, o.finalPath)
	if err != nil {
		result.ConcatErr = err
		logging.ErrorWithContext(logger, "concatenation failed", "concat_failed",
			logging.Error(err),
			logging.String(logging.FieldReason, string(services.ReasonOf(err))),
			logging.String(logging.FieldImpact, "segment clips kept; no final video"),
			logging.String(logging.FieldErrorHint, "rerun with the concat command once the cause is fixed"),
		)
		return
	}
	result.Final = &final
}
