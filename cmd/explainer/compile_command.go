package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"explainer/internal/batch"
	"explainer/internal/config"
	"explainer/internal/jobs"
	"explainer/internal/logging"
	"explainer/internal/manifest"
	"explainer/internal/preflight"
	"explainer/internal/publish"
	"explainer/internal/report"
	"explainer/internal/services"
)

type compileOptions struct {
	profile       profileFlags
	parallelism   int
	segmentsOnly  bool
	jobDir        string
	topic         string
	publish       bool
	skipPreflight bool
}

func newCompileCommand(ctx *commandContext) *cobra.Command {
	var opts compileOptions

	cmd := &cobra.Command{
		Use:   "compile <manifest.json>",
		Short: "Compile every segment of a manifest and join them into one video",
		Long: `Compile every segment listed in the manifest into its own clip, then join
the clips that succeeded, in index order, into the final video.

A segment that fails (missing asset, unreadable audio, encoder error, timeout)
is recorded in report.json and left out of the final video; the other
segments are unaffected. Interrupting the command stops unstarted segments and
keeps the clips that already finished.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, ctx, args[0], opts)
		},
	}

	opts.profile.register(cmd)
	cmd.Flags().IntVar(&opts.parallelism, "parallelism", 0, "Segments compiled at once (default from config)")
	cmd.Flags().BoolVar(&opts.segmentsOnly, "segments-only", false, "Compile segments without joining them")
	cmd.Flags().StringVar(&opts.jobDir, "job-dir", "", "Reuse this directory instead of creating a new job")
	cmd.Flags().StringVar(&opts.topic, "topic", "", "Topic used to name the job (default from manifest)")
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "Upload the final video to the configured bucket")
	cmd.Flags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "Skip dependency and directory checks")
	return cmd
}

func runCompile(cmd *cobra.Command, ctx *commandContext, manifestPath string, opts compileOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	prof, err := opts.profile.resolve(cfg)
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !opts.skipPreflight {
		if failed := preflight.Failed(preflight.RunAll(runCtx, cfg, prof, nil)); len(failed) > 0 {
			return fmt.Errorf("preflight failed: %s (run `explainer deps` for details)", preflight.Summary(failed))
		}
	}

	m, err := manifest.Load(runCtx, manifestPath)
	if err != nil {
		return err
	}
	topic := strings.TrimSpace(opts.topic)
	if topic == "" {
		topic = m.Topic
	}

	store := jobs.NewStore(cfg.Paths.JobsDir, jobs.WithLogger(logger))
	var job *jobs.Job
	if strings.TrimSpace(opts.jobDir) != "" {
		dir, err := config.ExpandPath(opts.jobDir)
		if err != nil {
			return fmt.Errorf("resolve job dir: %w", err)
		}
		job, err = store.Open(dir)
		if err != nil {
			return err
		}
	} else if job, err = store.Create(topic); err != nil {
		return err
	}
	defer job.Release()

	jobLogger, closer, err := logging.OpenJobLog(logger, job.LogPath())
	if err != nil {
		return fmt.Errorf("open job log: %w", err)
	}
	defer closer.Close()
	runCtx = services.WithJobID(runCtx, job.ID)

	batchOpts := []batch.Option{batch.WithSegmentsOnly(opts.segmentsOnly)}
	if opts.parallelism > 0 {
		batchOpts = append(batchOpts, batch.WithParallelism(opts.parallelism))
	}
	orch := batch.NewFromConfig(cfg, job.SegmentsDir(), job.FinalPath(), jobLogger, batchOpts...)
	res, err := orch.Run(runCtx, m, prof)
	if err != nil {
		return err
	}

	rep := report.Build(report.Meta{
		JobID:        job.ID,
		Topic:        topic,
		Manifest:     m.Source,
		SegmentsOnly: opts.segmentsOnly,
	}, prof, res)
	if res.Final != nil && !res.Canceled && (opts.publish || cfg.Publish.Enabled) {
		rep.SetPublished(publishFinal(runCtx, cfg, jobLogger, job.ID, res.Final.Path))
	}
	if _, _, err := report.Write(job.Dir, rep); err != nil {
		logging.ErrorWithContext(jobLogger, "report not written", "report_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "outcome only available in the job log"),
		)
	}

	if cfg.Batch.KeepJobs > 0 {
		store.Cleanup(cfg.Batch.KeepJobs)
	}

	if ctx.JSONMode() {
		if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
	} else {
		printReport(cmd.OutOrStdout(), rep, job.Dir, shouldColorize(cmd.OutOrStdout()))
	}
	return outcomeError(rep)
}

func publishFinal(ctx context.Context, cfg *config.Config, logger *slog.Logger, jobID, path string) (string, error) {
	publisher, err := publish.New(ctx, cfg.Publish, publish.WithLogger(logger))
	if err != nil {
		return "", err
	}
	return publisher.Upload(ctx, jobID, path)
}

// outcomeError maps a report to the command's exit status. Partial batches
// fail the command so scripts notice missing segments.
func outcomeError(rep report.Report) error {
	switch rep.Outcome {
	case report.OutcomeComplete:
		return nil
	case report.OutcomeCanceled:
		return context.Canceled
	case report.OutcomeFailed:
		return errors.New("no segments compiled")
	default:
		if rep.ConcatError != "" {
			return fmt.Errorf("final video not assembled: %s", rep.ConcatError)
		}
		return fmt.Errorf("%d of %d segments failed", rep.Failed, len(rep.Segments))
	}
}

func printReport(out io.Writer, rep report.Report, jobDir string, colorize bool) {
	rows := make([][]string, 0, len(rep.Segments))
	var total int64
	for _, seg := range rep.Segments {
		if seg.Status == "compiled" {
			total += seg.SizeBytes
			rows = append(rows, []string{
				fmt.Sprint(seg.Index), "compiled",
				fmt.Sprintf("%.3f", seg.DurationSeconds),
				logging.FormatBytes(seg.SizeBytes),
				filepath.Base(seg.OutputPath),
			})
			continue
		}
		rows = append(rows, []string{fmt.Sprint(seg.Index), "failed", "", "", seg.Reason})
	}
	fmt.Fprint(out, renderTable(
		[]column{
			{header: "Segment", align: alignRight},
			{header: "Status"},
			{header: "Seconds", align: alignRight},
			{header: "Size", align: alignRight},
			{header: "Output / Reason"},
		},
		rows,
		[]string{"", fmt.Sprintf("%d/%d", rep.Compiled, len(rep.Segments)), "", logging.FormatBytes(total), ""},
	))

	switch {
	case rep.Final != nil:
		fmt.Fprintln(out, renderStatusLine("Final video", statusOK,
			fmt.Sprintf("%s (%.3fs, %s)", rep.Final.Path, rep.Final.DurationSeconds, logging.FormatBytes(rep.Final.SizeBytes)), colorize))
		if rep.Final.PublicURL != "" {
			fmt.Fprintln(out, renderStatusLine("Published", statusOK, rep.Final.PublicURL, colorize))
		}
	case rep.ConcatError != "":
		fmt.Fprintln(out, renderStatusLine("Final video", statusError, rep.ConcatError, colorize))
	case rep.SegmentsOnly:
		fmt.Fprintln(out, renderStatusLine("Final video", statusInfo, "skipped (segments only)", colorize))
	case rep.Canceled:
		fmt.Fprintln(out, renderStatusLine("Final video", statusWarn, "not created (canceled)", colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("Final video", statusError, "not created", colorize))
	}
	if rep.PublishError != "" {
		fmt.Fprintln(out, renderStatusLine("Published", statusWarn, rep.PublishError, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Report", statusInfo, filepath.Join(jobDir, report.FileName), colorize))
}
